package pipeline

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the decision pipeline.
type Metrics struct {
	decisionsTotal   *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec
	registry         *prometheus.Registry
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trustgw"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "decisions_total",
			Help:      "Total number of pipeline decisions",
		},
		[]string{"lane", "allowed"},
	)

	m.decisionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "decision_duration_seconds",
			Help:      "End-to-end pipeline decision duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 2.5},
		},
		[]string{"lane"},
	)

	m.registry.MustRegister(
		m.decisionsTotal,
		m.decisionDuration,
	)

	return m
}

// RecordDecision records one pipeline decision.
func (m *Metrics) RecordDecision(lane string, allowed bool, duration time.Duration) {
	m.decisionsTotal.WithLabelValues(lane, strconv.FormatBool(allowed)).Inc()
	m.decisionDuration.WithLabelValues(lane).Observe(duration.Seconds())
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the metrics with the given registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.decisionsTotal,
		m.decisionDuration,
	)
}
