package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.CyclesTotal.WithLabelValues(StatusGenerated).Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues(StatusGenerated)))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRecordCycle_LastStatus(t *testing.T) {
	RecordCycle(StatusSkipped, 0.1, 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(DefaultMetrics.LastCycleStatus.WithLabelValues(StatusSkipped)))
	assert.Equal(t, 0.0, testutil.ToFloat64(DefaultMetrics.LastCycleStatus.WithLabelValues(StatusGenerated)))

	RecordCycle(StatusGenerated, 2, 1731587640)
	assert.Equal(t, 1731587640.0, testutil.ToFloat64(DefaultMetrics.LastSuccessfulCycle))
	assert.Equal(t, 0.0, testutil.ToFloat64(DefaultMetrics.LastCycleStatus.WithLabelValues(StatusSkipped)))
}

func TestRecordProviderCall_CountsErrors(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.ProviderCallErrors.WithLabelValues("unit", "/x"))
	RecordProviderCall("unit", "/x", 0.01, nil)
	RecordProviderCall("unit", "/x", 0.01, errors.New("boom"))
	after := testutil.ToFloat64(DefaultMetrics.ProviderCallErrors.WithLabelValues("unit", "/x"))
	assert.Equal(t, before+1, after)
}
