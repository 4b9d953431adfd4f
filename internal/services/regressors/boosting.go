package regressors

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// BoostingConfig configures squared-error gradient boosting.
type BoostingConfig struct {
	Rounds       int
	LearningRate float64
	Tree         TreeConfig
	// Subsample is the row fraction drawn without replacement per round.
	Subsample float64
	// ColSample is the column fraction drawn per round.
	ColSample float64
	Seed      int64
}

// XGBoostConfig grows depth-wise trees of depth 3 with an L2 leaf penalty.
func XGBoostConfig(seed int64) BoostingConfig {
	return BoostingConfig{
		Rounds:       80,
		LearningRate: 0.08,
		Tree:         TreeConfig{MaxDepth: 3, MinSamplesLeaf: 1, Lambda: 1},
		Subsample:    0.8,
		ColSample:    0.8,
		Seed:         seed,
	}
}

// LightGBMConfig grows leaf-wise trees of at most 31 leaves.
func LightGBMConfig(seed int64) BoostingConfig {
	return BoostingConfig{
		Rounds:       80,
		LearningRate: 0.08,
		Tree:         TreeConfig{MaxLeaves: 31, MinSamplesLeaf: 1},
		Subsample:    0.8,
		ColSample:    0.8,
		Seed:         seed,
	}
}

// GradientBoosting fits an additive ensemble of regression trees to residuals.
type GradientBoosting struct {
	cfg   BoostingConfig
	base  float64
	trees []*Tree
	width int
}

func NewGradientBoosting(cfg BoostingConfig) *GradientBoosting {
	if cfg.Rounds < 1 {
		cfg.Rounds = 1
	}
	if cfg.Subsample <= 0 || cfg.Subsample > 1 {
		cfg.Subsample = 1
	}
	if cfg.ColSample <= 0 || cfg.ColSample > 1 {
		cfg.ColSample = 1
	}
	return &GradientBoosting{cfg: cfg}
}

func (g *GradientBoosting) Fit(X [][]float64, y []float64) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(g.cfg.Seed))
	n, width := len(y), len(X[0])
	nRows := fraction(n, g.cfg.Subsample)
	nCols := fraction(width, g.cfg.ColSample)

	base := stat.Mean(y, nil)
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = base
	}
	resid := make([]float64, n)
	trees := make([]*Tree, 0, g.cfg.Rounds)

	for round := 0; round < g.cfg.Rounds; round++ {
		for i := range resid {
			resid[i] = y[i] - pred[i]
		}
		rows := sample(rng, n, nRows)
		feats := sample(rng, width, nCols)
		t, err := growTree(X, resid, rows, feats, g.cfg.Tree)
		if err != nil {
			return err
		}
		for i, x := range X {
			pred[i] += g.cfg.LearningRate * t.predictRow(x)
		}
		trees = append(trees, t)
	}
	g.base = base
	g.trees = trees
	g.width = width
	return nil
}

func (g *GradientBoosting) Predict(X [][]float64) ([]float64, error) {
	if len(g.trees) == 0 {
		return nil, ErrNotFitted
	}
	if err := validateRows(X, g.width); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		v := g.base
		for _, t := range g.trees {
			v += g.cfg.LearningRate * t.predictRow(x)
		}
		out[i] = v
	}
	return out, nil
}

// fraction returns round(frac*n), at least 1.
func fraction(n int, frac float64) int {
	k := int(math.Round(frac * float64(n)))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

// sample draws k distinct indices from [0,n) in ascending order.
func sample(rng *rand.Rand, n, k int) []int {
	if k > n {
		k = n
	}
	out := rng.Perm(n)[:k]
	sort.Ints(out)
	return out
}
