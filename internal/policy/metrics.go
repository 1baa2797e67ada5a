package policy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for policy evaluation.
type Metrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	activePolicies     prometheus.Gauge
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

	m.evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "evaluations_total",
			Help:      "Total number of policy evaluations",
		},
		[]string{"action", "policy"},
	)

	m.evaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "evaluation_duration_seconds",
			Help:      "Policy evaluation duration in seconds",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
		[]string{"action"},
	)

	m.activePolicies = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "active_policies",
			Help:      "Number of policies in the active set",
		},
	)

	m.registry.MustRegister(
		m.evaluationsTotal,
		m.evaluationDuration,
		m.activePolicies,
	)

	return m
}

// RecordEvaluation records one policy evaluation.
func (m *Metrics) RecordEvaluation(action, policy string, duration time.Duration) {
	m.evaluationsTotal.WithLabelValues(action, policy).Inc()
	m.evaluationDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// SetActivePolicies sets the active policy count.
func (m *Metrics) SetActivePolicies(n int) {
	m.activePolicies.Set(float64(n))
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the metrics with the given registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.evaluationsTotal,
		m.evaluationDuration,
		m.activePolicies,
	)
}
