package botverify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for crawler verification.
type Metrics struct {
	verificationTotal    *prometheus.CounterVec
	verificationDuration *prometheus.HistogramVec
	dnsLookups           *prometheus.CounterVec
	registry             *prometheus.Registry
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trustgw"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.verificationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "botverify",
			Name:      "verifications_total",
			Help:      "Total number of crawler verification attempts",
		},
		[]string{"status"},
	)

	m.verificationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "botverify",
			Name:      "verification_duration_seconds",
			Help:      "Crawler verification duration in seconds",
			Buckets:   []float64{.0001, .001, .01, .05, .1, .5, 1, 2, 5},
		},
		[]string{"status"},
	)

	m.dnsLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "botverify",
			Name:      "dns_lookups_total",
			Help:      "Total number of DNS lookups during verification",
		},
		[]string{"direction", "status"},
	)

	m.registry.MustRegister(
		m.verificationTotal,
		m.verificationDuration,
		m.dnsLookups,
	)

	return m
}

// RecordVerification records a verification attempt.
func (m *Metrics) RecordVerification(status string, duration time.Duration) {
	m.verificationTotal.WithLabelValues(status).Inc()
	m.verificationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordDNSLookup records a DNS lookup.
func (m *Metrics) RecordDNSLookup(direction, status string) {
	m.dnsLookups.WithLabelValues(direction, status).Inc()
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the metrics with the given registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.verificationTotal,
		m.verificationDuration,
		m.dnsLookups,
	)
}
