package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	observationsStored  *prometheus.CounterVec
	observationsDropped *prometheus.CounterVec
	errorsTotal         *prometheus.CounterVec
	lastPrice           *prometheus.GaugeVec
	latency             *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		observationsStored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardpulse_observations_stored_total",
				Help: "Total number of price observations stored per backend",
			},
			[]string{"backend", "venue"},
		),
		observationsDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardpulse_observations_dropped_total",
				Help: "Total number of price observations dropped before storage",
			},
			[]string{"reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cardpulse_last_price",
				Help: "Last recorded price for a card",
			},
			[]string{"card_id"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cardpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordObservationStored records an observation written to a backend.
func (r *Recorder) RecordObservationStored(backend, venue string) {
	r.observationsStored.WithLabelValues(backend, venue).Inc()
}

// RecordObservationDropped records an observation rejected before storage.
func (r *Recorder) RecordObservationDropped(reason string) {
	r.observationsDropped.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a card.
func (r *Recorder) RecordLastPrice(cardID string, price float64) {
	r.lastPrice.WithLabelValues(cardID).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
