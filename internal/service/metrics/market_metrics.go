package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	MarketLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cardpulse",
			Subsystem: "market",
			Name:      "latency_seconds",
			Help:      "Latency of market endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	MarketErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardpulse",
			Subsystem: "market",
			Name:      "errors_total",
			Help:      "Errors by market endpoint",
		},
		[]string{"endpoint"},
	)

	CompositorFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardpulse",
			Subsystem: "market",
			Name:      "compositor_fallbacks_total",
			Help:      "History requests served raw-only because rollups were unavailable",
		},
		[]string{"period"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(MarketLatency, MarketErrors, CompositorFallbacks)
	})
}
