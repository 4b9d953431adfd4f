package features

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"PriceCast/pkg/util"
)

// MinTrainingRows is the fewest supervised rows a model is trained on.
const MinTrainingRows = 6

var (
	// ErrNoLags means the series is too short for even a one-step lag.
	ErrNoLags = errors.New("no usable lags")
	// ErrInsufficientRows means fewer than MinTrainingRows supervised rows exist.
	ErrInsufficientRows = errors.New("insufficient training rows")
)

var (
	candidateLags    = []int{1, 2, 3, 6, 12}
	candidateWindows = []int{3, 6, 12}
)

// Plan fixes the lag and rolling-window columns used for one series.
type Plan struct {
	Lags    []int
	Windows []int
}

// NewPlan picks the lags shorter than the series and the windows no longer than
// the largest lag.
func NewPlan(n int) (Plan, error) {
	var p Plan
	for _, l := range candidateLags {
		if n > l {
			p.Lags = append(p.Lags, l)
		}
	}
	if len(p.Lags) == 0 {
		return Plan{}, fmt.Errorf("%w: series length %d", ErrNoLags, n)
	}
	maxLag := p.MaxLag()
	for _, w := range candidateWindows {
		if w <= maxLag {
			p.Windows = append(p.Windows, w)
		}
	}
	return p, nil
}

func (p Plan) MaxLag() int {
	m := 0
	for _, l := range p.Lags {
		if l > m {
			m = l
		}
	}
	return m
}

// Width is the number of columns in a feature row.
func (p Plan) Width() int { return len(p.Lags) + len(p.Windows) + 4 }

// row builds the features for predicting position idx from the values before it.
func (p Plan) row(prior []float64, idx int, month int) []float64 {
	out := make([]float64, 0, p.Width())
	n := len(prior)
	for _, l := range p.Lags {
		out = append(out, prior[n-l])
	}
	for _, w := range p.Windows {
		out = append(out, stat.Mean(prior[n-w:], nil))
	}
	sin, cos := SeasonalEncoding(month)
	out = append(out, float64(month), sin, cos, float64(idx))
	return out
}

// SeasonalEncoding maps a calendar month onto the unit circle.
func SeasonalEncoding(month int) (float64, float64) {
	angle := 2 * math.Pi * float64(month) / 12
	return math.Sin(angle), math.Cos(angle)
}

// BuildTrainingSet turns a series into supervised rows: one per position from
// MaxLag onward, labelled with the value at that position.
func BuildTrainingSet(values []float64, periods []string, p Plan) ([][]float64, []float64, error) {
	if len(values) != len(periods) {
		return nil, nil, fmt.Errorf("values/periods length mismatch: %d != %d", len(values), len(periods))
	}
	maxLag := p.MaxLag()
	if maxLag == 0 {
		return nil, nil, ErrNoLags
	}
	var (
		X [][]float64
		y []float64
	)
	for i := maxLag; i < len(values); i++ {
		month, err := util.MonthOf(periods[i])
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		X = append(X, p.row(values[:i], i, month))
		y = append(y, values[i])
	}
	if len(y) < MinTrainingRows {
		return nil, nil, fmt.Errorf("%w: %d rows", ErrInsufficientRows, len(y))
	}
	return X, y, nil
}

// BuildInferenceRow builds the features for the period following history.
func BuildInferenceRow(history []float64, nextPeriod string, p Plan) ([]float64, error) {
	maxLag := p.MaxLag()
	if maxLag == 0 {
		return nil, ErrNoLags
	}
	if len(history) < maxLag {
		return nil, fmt.Errorf("history of %d shorter than lag %d", len(history), maxLag)
	}
	for _, w := range p.Windows {
		if len(history) < w {
			return nil, fmt.Errorf("history of %d shorter than window %d", len(history), w)
		}
	}
	month, err := util.MonthOf(nextPeriod)
	if err != nil {
		return nil, err
	}
	return p.row(history, len(history), month), nil
}
