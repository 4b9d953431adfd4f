package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pricecast",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of forecast API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APILookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pricecast",
			Subsystem: "api",
			Name:      "lookups_total",
			Help:      "Forecast lookups by endpoint and result (hit, miss, invalid, error)",
		},
		[]string{"endpoint", "result"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APILookups)
	})
}
