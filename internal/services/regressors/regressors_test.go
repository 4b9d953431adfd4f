package regressors

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/service"
)

var (
	_ service.Regressor = (*DecisionTree)(nil)
	_ service.Regressor = (*RandomForest)(nil)
	_ service.Regressor = (*GradientBoosting)(nil)
)

func stepData(n int) ([][]float64, []float64) {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X[i] = []float64{float64(i), float64(i % 3)}
		if i >= n/2 {
			y[i] = 10
		}
	}
	return X, y
}

func noisyData(n, width int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		row := make([]float64, width)
		for j := range row {
			row[j] = rng.Float64() * 10
		}
		X[i] = row
		y[i] = 3*row[0] - 2*row[1] + math.Sin(row[2]) + rng.NormFloat64()*0.1
	}
	return X, y
}

func TestDecisionTreeLearnsStep(t *testing.T) {
	X, y := stepData(40)
	dt := NewDecisionTree(TreeConfig{MaxDepth: 1})
	require.NoError(t, dt.Fit(X, y))

	got, err := dt.Predict([][]float64{{5, 0}, {35, 0}})
	require.NoError(t, err)
	assert.InDelta(t, 0, got[0], 1e-9)
	assert.InDelta(t, 10, got[1], 1e-9)
}

func TestRandomForestLearnsStep(t *testing.T) {
	X, y := stepData(40)
	rf := NewRandomForest(DefaultForestConfig(42))
	require.NoError(t, rf.Fit(X, y))

	got, err := rf.Predict([][]float64{{2, 2}, {38, 2}})
	require.NoError(t, err)
	assert.InDelta(t, 0, got[0], 1e-9)
	assert.InDelta(t, 10, got[1], 1e-9)
}

func TestBoostingConverges(t *testing.T) {
	X, y := stepData(40)
	for name, cfg := range map[string]BoostingConfig{
		"xgboost":  XGBoostConfig(42),
		"lightgbm": LightGBMConfig(42),
	} {
		t.Run(name, func(t *testing.T) {
			g := NewGradientBoosting(cfg)
			require.NoError(t, g.Fit(X, y))
			got, err := g.Predict([][]float64{{3, 0}, {36, 0}})
			require.NoError(t, err)
			assert.InDelta(t, 0, got[0], 0.5)
			assert.InDelta(t, 10, got[1], 0.5)
		})
	}
}

func TestRegressorsAreDeterministic(t *testing.T) {
	X, y := noisyData(60, 6, 7)
	probe, _ := noisyData(10, 6, 8)

	build := map[string]func() service.Regressor{
		"forest":   func() service.Regressor { return NewRandomForest(DefaultForestConfig(42)) },
		"xgboost":  func() service.Regressor { return NewGradientBoosting(XGBoostConfig(42)) },
		"lightgbm": func() service.Regressor { return NewGradientBoosting(LightGBMConfig(42)) },
	}
	for name, mk := range build {
		t.Run(name, func(t *testing.T) {
			a, b := mk(), mk()
			require.NoError(t, a.Fit(X, y))
			require.NoError(t, b.Fit(X, y))
			pa, err := a.Predict(probe)
			require.NoError(t, err)
			pb, err := b.Predict(probe)
			require.NoError(t, err)
			assert.Equal(t, pa, pb)
		})
	}
}

func TestSeedChangesForest(t *testing.T) {
	X, y := noisyData(60, 6, 7)
	probe, _ := noisyData(5, 6, 8)

	a := NewRandomForest(DefaultForestConfig(1))
	b := NewRandomForest(DefaultForestConfig(2))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	pa, _ := a.Predict(probe)
	pb, _ := b.Predict(probe)
	assert.NotEqual(t, pa, pb)
}

func TestTreeGrowthLimits(t *testing.T) {
	X, y := noisyData(200, 4, 3)
	rows, feats := seq(len(y)), seq(4)

	deep, err := growTree(X, y, rows, feats, TreeConfig{MaxDepth: 3})
	require.NoError(t, err)
	assert.LessOrEqual(t, deep.Depth(), 3)
	assert.LessOrEqual(t, deep.Leaves(), 8)

	wide, err := growTree(X, y, rows, feats, TreeConfig{MaxLeaves: 31})
	require.NoError(t, err)
	assert.Equal(t, 31, wide.Leaves())

	small, err := growTree(X, y, rows, feats, TreeConfig{MaxLeaves: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, small.Leaves())
}

func TestRegressorInputValidation(t *testing.T) {
	rf := NewRandomForest(DefaultForestConfig(42))
	_, err := rf.Predict([][]float64{{1}})
	assert.True(t, errors.Is(err, ErrNotFitted))

	assert.True(t, errors.Is(rf.Fit(nil, nil), ErrEmptyInput))
	assert.True(t, errors.Is(rf.Fit([][]float64{{1}, {2}}, []float64{1}), ErrShape))
	assert.True(t, errors.Is(rf.Fit([][]float64{{1, 2}, {2}}, []float64{1, 2}), ErrShape))
	assert.True(t, errors.Is(rf.Fit([][]float64{{math.NaN()}, {2}}, []float64{1, 2}), ErrNonFinite))

	X, y := stepData(10)
	require.NoError(t, rf.Fit(X, y))
	_, err = rf.Predict([][]float64{{1}})
	assert.True(t, errors.Is(err, ErrShape))
}

func TestConstantTargetsGiveConstantPrediction(t *testing.T) {
	X, _ := stepData(12)
	y := make([]float64, len(X))
	for i := range y {
		y[i] = 4.2
	}
	g := NewGradientBoosting(XGBoostConfig(42))
	require.NoError(t, g.Fit(X, y))
	got, err := g.Predict(X[:2])
	require.NoError(t, err)
	assert.InDelta(t, 4.2, got[0], 1e-9)
	assert.InDelta(t, 4.2, got[1], 1e-9)
}
