package forecast

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/service"
	"PriceCast/internal/services/features"
)

func series(n int, f func(i int) float64) models.Series {
	s := models.Series{}
	for i := 0; i < n; i++ {
		s.Periods = append(s.Periods, fmt.Sprintf("%04d-%02d", 2020+i/12, i%12+1))
		s.Values = append(s.Values, f(i))
	}
	return s
}

// stubRegressor predicts a constant and can be told to fail.
type stubRegressor struct {
	value   float64
	fitErr  error
	doPanic bool
}

func (s *stubRegressor) Fit(X [][]float64, y []float64) error {
	if s.doPanic {
		panic("boom")
	}
	return s.fitErr
}

func (s *stubRegressor) Predict(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i := range out {
		out[i] = s.value
	}
	return out, nil
}

// lastLag predicts the lag-1 column, which makes recursion easy to follow.
type lastLag struct{}

func (lastLag) Fit(X [][]float64, y []float64) error { return nil }
func (lastLag) Predict(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = row[0] + 1
	}
	return out, nil
}

func TestNaiveRepeatsLastValue(t *testing.T) {
	s := series(10, func(i int) float64 { return float64(i) })
	s.Periods[9] = "2024-11"
	res, err := Naive().Forecast(service.ForecastRequest{Series: s, Horizon: 3})
	require.NoError(t, err)

	require.Len(t, res.Forecast, 3)
	assert.Equal(t, []string{"2024-12", "2025-01", "2025-02"},
		[]string{res.Forecast[0].Period, res.Forecast[1].Period, res.Forecast[2].Period})
	for _, p := range res.Forecast {
		assert.Equal(t, 9.0, p.Value)
		assert.Equal(t, p.Value, p.Lower)
		assert.Equal(t, p.Value, p.Upper)
	}
	assert.Equal(t, models.Metrics{}, res.Metrics)
}

func TestScoreMAPEIgnoresZeroActuals(t *testing.T) {
	m := Score([]float64{0, 10}, []float64{1, 12})
	require.NotNil(t, m.MAPE)
	assert.InDelta(t, 0.2, *m.MAPE, 1e-12)
	assert.InDelta(t, 1.5, *m.MAE, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), *m.RMSE, 1e-12)

	m = Score([]float64{0, 0, 0}, []float64{1, 2, 3})
	assert.Nil(t, m.MAPE)
	require.NotNil(t, m.MAE)
	assert.InDelta(t, 2.0, *m.MAE, 1e-12)
}

func TestEvaluateHoldout(t *testing.T) {
	X := make([][]float64, 10)
	y := make([]float64, 10)
	for i := range X {
		X[i] = []float64{float64(i)}
		y[i] = 5
	}
	// ten rows hold out three; constant prediction of 4 misses by one each
	m := Evaluate(func() service.Regressor { return &stubRegressor{value: 4} }, X, y)
	require.NotNil(t, m.MAE)
	assert.InDelta(t, 1.0, *m.MAE, 1e-12)
	assert.InDelta(t, 1.0, *m.RMSE, 1e-12)
	assert.InDelta(t, 0.2, *m.MAPE, 1e-12)

	// three rows leave nothing to train on
	assert.Equal(t, models.Metrics{}, Evaluate(func() service.Regressor { return &stubRegressor{} }, X[:3], y[:3]))
	// four rows hold out three, leaving one
	assert.Equal(t, models.Metrics{}, Evaluate(func() service.Regressor { return &stubRegressor{} }, X[:4], y[:4]))
}

func TestEvaluateDegradesOnFailure(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	y := []float64{1, 2, 3, 4, 5, 6}
	assert.Equal(t, models.Metrics{}, Evaluate(func() service.Regressor { return &stubRegressor{fitErr: errors.New("bad")} }, X, y))
	assert.Equal(t, models.Metrics{}, Evaluate(func() service.Regressor { return &stubRegressor{doPanic: true} }, X, y))
}

func TestResidualSigma(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	sigma, err := ResidualSigma(&stubRegressor{value: 0}, X, []float64{1, -1, 1, -1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sigma, 1e-12)

	sigma, err = ResidualSigma(&stubRegressor{value: 0}, X[:3], []float64{1, 1, 1})
	require.NoError(t, err)
	assert.Zero(t, sigma)
}

func TestRecursiveFeedsPredictionsBack(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	plan, err := features.NewPlan(len(values))
	require.NoError(t, err)

	points, err := Recursive(lastLag{}, values, "2024-12", plan, 4, 0.5)
	require.NoError(t, err)
	require.Len(t, points, 4)
	for i, p := range points {
		assert.Equal(t, float64(9+i), p.Value)
		assert.InDelta(t, p.Value-0.98, p.Lower, 1e-12)
		assert.InDelta(t, p.Value+0.98, p.Upper, 1e-12)
		// band width is constant across the horizon
		assert.InDelta(t, 1.96, p.Upper-p.Lower, 1e-12)
	}
	assert.Equal(t, "2025-01", points[0].Period)
	assert.Equal(t, "2025-04", points[3].Period)
}

func TestCatalogThresholds(t *testing.T) {
	cat := Catalog()
	kinds := make([]string, len(cat))
	mins := make(map[string]int)
	for i, m := range cat {
		kinds[i] = m.Kind()
		mins[m.Kind()] = m.MinPeriods()
	}
	assert.Equal(t, []string{KindNaive, KindRandomForest, KindXGBoost, KindLightGBM}, kinds)
	assert.Equal(t, map[string]int{KindNaive: 8, KindRandomForest: 18, KindXGBoost: 30, KindLightGBM: 30}, mins)
	assert.Equal(t, "Persistencia", Labels(cat)[KindNaive].Label)
}

func TestLearnedModelsForecast(t *testing.T) {
	s := series(36, func(i int) float64 { return 10 + float64(i%12) + 0.1*float64(i) })
	for _, m := range Catalog()[1:] {
		t.Run(m.Kind(), func(t *testing.T) {
			res, err := m.Forecast(service.ForecastRequest{Series: s, Horizon: 6, Seed: 42})
			require.NoError(t, err)
			require.Len(t, res.Forecast, 6)
			require.NotNil(t, res.Metrics.MAE)
			require.NotNil(t, res.Metrics.MAPE)
			first := res.Forecast[0]
			assert.Equal(t, "2023-01", first.Period)
			assert.LessOrEqual(t, first.Lower, first.Value)
			assert.GreaterOrEqual(t, first.Upper, first.Value)
			for _, p := range res.Forecast {
				assert.False(t, math.IsNaN(p.Value))
			}

			again, err := m.Forecast(service.ForecastRequest{Series: s, Horizon: 6, Seed: 42})
			require.NoError(t, err)
			assert.Equal(t, res, again)
		})
	}
}

func TestLearnedModelSkipsShortSeries(t *testing.T) {
	s := series(8, func(i int) float64 { return float64(i) })
	_, err := Catalog()[1].Forecast(service.ForecastRequest{Series: s, Horizon: 2, Seed: 42})
	assert.True(t, errors.Is(err, features.ErrInsufficientRows))
}
