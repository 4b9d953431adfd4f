package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	seriesTotal   *prometheus.CounterVec
	modelRuns     *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	documentSize  prometheus.Gauge
	documentBytes prometheus.Gauge
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		seriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_series_total",
				Help: "Series processed per run by outcome",
			},
			[]string{"outcome"},
		),
		modelRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_model_runs_total",
				Help: "Model attempts by kind and result",
			},
			[]string{"model", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricecast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
		documentSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "pricecast_document_series",
			Help: "Series entries in the last published document",
		}),
		documentBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "pricecast_document_bytes",
			Help: "Encoded size of the last published document",
		}),
	}
}

// RecordSeries counts a series outcome (forecast, beyond_target, no_models, failed).
func (r *Recorder) RecordSeries(outcome string) {
	r.seriesTotal.WithLabelValues(outcome).Inc()
}

// RecordModelRun counts one (series, model) attempt.
func (r *Recorder) RecordModelRun(kind, result string) {
	r.modelRuns.WithLabelValues(kind, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordDocumentSize(series int, bytes int) {
	r.documentSize.Set(float64(series))
	r.documentBytes.Set(float64(bytes))
}
