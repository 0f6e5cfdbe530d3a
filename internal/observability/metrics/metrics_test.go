package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matches(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matches(metric *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, lp := range metric.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
			found++
		}
	}
	return found == len(labels)
}

func TestPipelineMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.ObserveLead("whatsapp", "created")
	m.ObserveLead("whatsapp", "created")
	m.ObserveGeoAttempt("ipapi", "timeout")
	m.ObserveGeoResolution("ip")
	m.ObserveFanout("lead", 3)
	m.ObserveFanout("lead", 0)
	m.ObserveContact("persisted")

	assert.Equal(t, 2.0, counterValue(t, reg, "agency_leads_total", map[string]string{"contact_method": "whatsapp", "outcome": "created"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "agency_geo_provider_attempts_total", map[string]string{"provider": "ipapi", "outcome": "timeout"}))
	assert.Equal(t, 3.0, counterValue(t, reg, "agency_notify_fanout_rows_total", map[string]string{"type": "lead"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "agency_contact_submissions_total", map[string]string{"state": "persisted"}))
}

func TestPipelineMetricsLabelGuard(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)
	m.ObserveLead("", "invalid")
	assert.Equal(t, 1.0, counterValue(t, reg, "agency_leads_total", map[string]string{"contact_method": "unknown", "outcome": "invalid"}))
}

func TestPipelineMetricsNilSafe(t *testing.T) {
	var m *PipelineMetrics
	m.ObserveLead("email", "created")
	m.ObserveGeoAttempt("ipwho", "ok")
	m.ObserveGeoResolution("none")
	m.ObserveFanout("system", 1)
	m.ObserveContact("rejected")
}
