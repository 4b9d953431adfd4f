package repository

import (
	"context"
	"errors"

	"PriceCast/internal/domain/models"
)

var (
	// ErrInputNotFound means the observation source does not exist or cannot be opened.
	ErrInputNotFound = errors.New("input not found")
	// ErrSeriesNotFound is returned by ForecastReader for unknown keys.
	ErrSeriesNotFound = errors.New("series not found")
	// ErrNoDocument means no forecast document has been published yet.
	ErrNoDocument = errors.New("no forecast document published")
)

// ObservationSource yields the raw observation table in any order.
type ObservationSource interface {
	Load(ctx context.Context) ([]models.Observation, error)
}

// DocumentSink receives a finished forecast document.
type DocumentSink interface {
	Name() string
	Write(ctx context.Context, doc *models.Document) error
}

// ForecastReader is the query side used by the HTTP API.
type ForecastReader interface {
	Meta(ctx context.Context) (*models.Meta, error)
	Keys(ctx context.Context) ([]string, error)
	Series(ctx context.Context, key string) (*models.SeriesForecast, error)
}

type Metrics interface {
	RecordSeries(outcome string)
	RecordModelRun(kind, result string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordDocumentSize(series int, bytes int)
}
