package classifier

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordClassification(t *testing.T) {
	m := NewMetrics("test")

	m.RecordClassification("public", "anonymous", 2*time.Millisecond)
	m.RecordClassification("public", "anonymous", time.Millisecond)
	m.RecordClassification("blocked", "bot", time.Millisecond)

	counter, err := m.classificationsTotal.GetMetricWithLabelValues("public", "anonymous")
	require.NoError(t, err)

	var metric dto.Metric
	require.NoError(t, counter.Write(&metric))
	require.NotNil(t, metric.Counter)
	assert.Equal(t, float64(2), *metric.Counter.Value)
}

func TestMetricsGatherFamilies(t *testing.T) {
	m := NewMetrics("")
	m.RecordClassification("trusted", "mtls", time.Millisecond)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "trustgw_classifier_classifications_total")
	assert.Contains(t, names, "trustgw_classifier_classification_duration_seconds")
}

func TestMetricsMustRegisterShared(t *testing.T) {
	m := NewMetrics("test")
	shared := prometheus.NewRegistry()

	m.MustRegister(shared)
	m.RecordClassification("public", "anonymous", time.Millisecond)

	families, err := shared.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
