package mtls

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for mTLS validation.
type Metrics struct {
	validationTotal    *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
	registry           *prometheus.Registry
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trustgw"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.validationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mtls",
			Name:      "validations_total",
			Help:      "Total number of mTLS validation attempts",
		},
		[]string{"status", "reason", "assurance"},
	)

	m.validationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mtls",
			Name:      "validation_duration_seconds",
			Help:      "mTLS validation duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"status", "assurance"},
	)

	m.registry.MustRegister(
		m.validationTotal,
		m.validationDuration,
	)

	return m
}

// RecordValidation records an mTLS validation attempt.
func (m *Metrics) RecordValidation(status, reason, assurance string, duration time.Duration) {
	m.validationTotal.WithLabelValues(status, reason, assurance).Inc()
	m.validationDuration.WithLabelValues(status, assurance).Observe(duration.Seconds())
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the metrics with the given registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.validationTotal,
		m.validationDuration,
	)
}
