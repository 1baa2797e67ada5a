package classifier

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for request classification.
type Metrics struct {
	classificationsTotal   *prometheus.CounterVec
	classificationDuration *prometheus.HistogramVec
	registry               *prometheus.Registry
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trustgw"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.classificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "classifications_total",
			Help:      "Total number of request classifications",
		},
		[]string{"lane", "identity_type"},
	)

	m.classificationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "classification_duration_seconds",
			Help:      "Request classification duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 2},
		},
		[]string{"lane"},
	)

	m.registry.MustRegister(
		m.classificationsTotal,
		m.classificationDuration,
	)

	return m
}

// RecordClassification records a classification outcome.
func (m *Metrics) RecordClassification(lane, identityType string, duration time.Duration) {
	m.classificationsTotal.WithLabelValues(lane, identityType).Inc()
	m.classificationDuration.WithLabelValues(lane).Observe(duration.Seconds())
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the metrics with the given registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.classificationsTotal,
		m.classificationDuration,
	)
}
