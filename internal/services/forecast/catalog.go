package forecast

import (
	"fmt"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/service"
	"PriceCast/internal/services/features"
	"PriceCast/internal/services/regressors"
)

const (
	KindNaive        = "naive"
	KindRandomForest = "random_forest"
	KindXGBoost      = "xgboost"
	KindLightGBM     = "lightgbm"
)

var labels = map[string]string{
	KindNaive:        "Persistencia",
	KindRandomForest: "Random Forest",
	KindXGBoost:      "XGBoost",
	KindLightGBM:     "LightGBM",
}

// Catalog returns every model kind in evaluation order.
func Catalog() []service.Model {
	return []service.Model{
		Naive(),
		&learned{
			kind:       KindRandomForest,
			minPeriods: 18,
			build: func(seed int64) service.Regressor {
				return regressors.NewRandomForest(regressors.DefaultForestConfig(seed))
			},
		},
		&learned{
			kind:       KindXGBoost,
			minPeriods: 30,
			build: func(seed int64) service.Regressor {
				return regressors.NewGradientBoosting(regressors.XGBoostConfig(seed))
			},
		},
		&learned{
			kind:       KindLightGBM,
			minPeriods: 30,
			build: func(seed int64) service.Regressor {
				return regressors.NewGradientBoosting(regressors.LightGBMConfig(seed))
			},
		},
	}
}

// Labels maps each kind in the catalog to its display label.
func Labels(catalog []service.Model) map[string]models.ModelInfo {
	out := make(map[string]models.ModelInfo, len(catalog))
	for _, m := range catalog {
		out[m.Kind()] = models.ModelInfo{Label: m.Label()}
	}
	return out
}

// learned is a feature-based model backed by a regressor.
type learned struct {
	kind       string
	minPeriods int
	build      func(seed int64) service.Regressor
}

func (m *learned) Kind() string       { return m.kind }
func (m *learned) Label() string      { return labels[m.kind] }
func (m *learned) MinPeriods() int    { return m.minPeriods }
func (m *learned) UsesTraining() bool { return true }

// Forecast builds features, scores a held-out tail, refits on everything and
// rolls the fitted model forward.
func (m *learned) Forecast(req service.ForecastRequest) (res *models.ModelResult, err error) {
	s := req.Series
	plan, err := features.NewPlan(s.Len())
	if err != nil {
		return nil, err
	}
	X, y, err := features.BuildTrainingSet(s.Values, s.Periods, plan)
	if err != nil {
		return nil, err
	}
	factory := func() service.Regressor { return m.build(req.Seed) }

	metrics := Evaluate(factory, X, y)

	err = guard(func() error {
		reg := factory()
		if err := reg.Fit(X, y); err != nil {
			return fmt.Errorf("fit %s: %w", m.kind, err)
		}
		sigma, err := ResidualSigma(reg, X, y)
		if err != nil {
			return err
		}
		points, err := Recursive(reg, s.Values, s.LastPeriod(), plan, req.Horizon, sigma)
		if err != nil {
			return fmt.Errorf("forecast %s: %w", m.kind, err)
		}
		res = &models.ModelResult{Forecast: points, Metrics: metrics}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
