package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/service"
)

const (
	// minEvalRows is the fewest supervised rows for a held-out evaluation.
	minEvalRows = 4
	// minHoldout and holdoutFraction size the held-out tail.
	minHoldout      = 3
	holdoutFraction = 0.2
	minTrainRows    = 2
	// z95 scales sigma into a two-sided 95% band.
	z95 = 1.96
)

// RegressorFactory returns a fresh, unfitted regressor.
type RegressorFactory func() service.Regressor

// Evaluate fits a fresh regressor on the leading rows and scores the held-out
// tail. Any failure yields all-null metrics.
func Evaluate(newRegressor RegressorFactory, X [][]float64, y []float64) models.Metrics {
	n := len(y)
	if n < minEvalRows {
		return models.Metrics{}
	}
	test := int(math.Round(holdoutFraction * float64(n)))
	if test < minHoldout {
		test = minHoldout
	}
	split := n - test
	if split < minTrainRows {
		return models.Metrics{}
	}

	var pred []float64
	err := guard(func() error {
		reg := newRegressor()
		if err := reg.Fit(X[:split], y[:split]); err != nil {
			return err
		}
		var err error
		pred, err = reg.Predict(X[split:])
		return err
	})
	if err != nil || len(pred) != test {
		return models.Metrics{}
	}
	return Score(y[split:], pred)
}

// Score computes MAE, RMSE and MAPE (as a fraction). MAPE ignores zero actuals
// and is null when every actual is zero.
func Score(actual, pred []float64) models.Metrics {
	if len(actual) == 0 || len(actual) != len(pred) {
		return models.Metrics{}
	}
	diff := make([]float64, len(actual))
	floats.SubTo(diff, actual, pred)

	abs := make([]float64, len(diff))
	sq := make([]float64, len(diff))
	for i, d := range diff {
		abs[i] = math.Abs(d)
		sq[i] = d * d
	}
	mae := stat.Mean(abs, nil)
	rmse := math.Sqrt(stat.Mean(sq, nil))
	m := models.Metrics{MAE: &mae, RMSE: &rmse}

	var pct []float64
	for i, a := range actual {
		if a != 0 {
			pct = append(pct, abs[i]/math.Abs(a))
		}
	}
	if len(pct) > 0 {
		mape := stat.Mean(pct, nil)
		m.MAPE = &mape
	}
	return m
}

// ResidualSigma is the RMS in-sample residual of a fitted regressor. Short
// training sets give zero.
func ResidualSigma(reg service.Regressor, X [][]float64, y []float64) (float64, error) {
	if len(y) < minEvalRows {
		return 0, nil
	}
	pred, err := reg.Predict(X)
	if err != nil {
		return 0, fmt.Errorf("in-sample predict: %w", err)
	}
	diff := make([]float64, len(y))
	floats.SubTo(diff, y, pred)
	return floats.Norm(diff, 2) / math.Sqrt(float64(len(diff))), nil
}

// guard converts a panic inside fn into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered: %v", r)
		}
	}()
	return fn()
}
