package service

import (
	"PriceCast/internal/domain/models"
)

// Regressor is a supervised learner over dense float rows.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// ForecastRequest is the per-series input handed to a Model.
type ForecastRequest struct {
	Series  models.Series
	Horizon int
	Seed    int64
}

// Model is one entry of the forecasting model catalog.
type Model interface {
	Kind() string
	Label() string
	// MinPeriods is the shortest series the model is attempted on.
	MinPeriods() int
	// UsesTraining reports whether an attempt counts against the training budget.
	UsesTraining() bool
	Forecast(req ForecastRequest) (*models.ModelResult, error)
}
