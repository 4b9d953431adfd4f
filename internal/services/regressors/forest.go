package regressors

import (
	"math/rand"
)

type ForestConfig struct {
	Trees          int
	MaxDepth       int
	MinSamplesLeaf int
	Seed           int64
}

// DefaultForestConfig: 80 bootstrap trees of depth at most 8.
func DefaultForestConfig(seed int64) ForestConfig {
	return ForestConfig{Trees: 80, MaxDepth: 8, MinSamplesLeaf: 1, Seed: seed}
}

// RandomForest averages CART trees grown on bootstrap resamples.
type RandomForest struct {
	cfg   ForestConfig
	trees []*Tree
	width int
}

func NewRandomForest(cfg ForestConfig) *RandomForest {
	if cfg.Trees < 1 {
		cfg.Trees = 1
	}
	return &RandomForest{cfg: cfg}
}

func (f *RandomForest) Fit(X [][]float64, y []float64) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(f.cfg.Seed))
	n := len(y)
	feats := seq(len(X[0]))
	tc := TreeConfig{MaxDepth: f.cfg.MaxDepth, MinSamplesLeaf: f.cfg.MinSamplesLeaf}

	trees := make([]*Tree, 0, f.cfg.Trees)
	for i := 0; i < f.cfg.Trees; i++ {
		rows := make([]int, n)
		for j := range rows {
			rows[j] = rng.Intn(n)
		}
		t, err := growTree(X, y, rows, feats, tc)
		if err != nil {
			return err
		}
		trees = append(trees, t)
	}
	f.trees = trees
	f.width = len(X[0])
	return nil
}

func (f *RandomForest) Predict(X [][]float64) ([]float64, error) {
	if len(f.trees) == 0 {
		return nil, ErrNotFitted
	}
	if err := validateRows(X, f.width); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		var s float64
		for _, t := range f.trees {
			s += t.predictRow(x)
		}
		out[i] = s / float64(len(f.trees))
	}
	return out, nil
}
