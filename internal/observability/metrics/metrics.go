package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics exposes counters for the lead intake and notification flows.
type PipelineMetrics struct {
	leadsTotal      *prometheus.CounterVec
	geoAttempts     *prometheus.CounterVec
	geoResolutions  *prometheus.CounterVec
	fanoutRows      *prometheus.CounterVec
	contactOutcomes *prometheus.CounterVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		leadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agency",
			Subsystem: "leads",
			Name:      "total",
			Help:      "Lead store outcomes by contact method",
		}, []string{"contact_method", "outcome"}),
		geoAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agency",
			Subsystem: "geo",
			Name:      "provider_attempts_total",
			Help:      "Geolocation provider attempts by outcome",
		}, []string{"provider", "outcome"}),
		geoResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agency",
			Subsystem: "geo",
			Name:      "resolutions_total",
			Help:      "Geolocation results by geo_source",
		}, []string{"geo_source"}),
		fanoutRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agency",
			Subsystem: "notify",
			Name:      "fanout_rows_total",
			Help:      "Admin notification rows created by type",
		}, []string{"type"}),
		contactOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agency",
			Subsystem: "contact",
			Name:      "submissions_total",
			Help:      "Contact form submissions by final state",
		}, []string{"state"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.leadsTotal, m.geoAttempts, m.geoResolutions, m.fanoutRows, m.contactOutcomes)
	return m
}

func (m *PipelineMetrics) ObserveLead(contactMethod, outcome string) {
	if m == nil {
		return
	}
	m.leadsTotal.WithLabelValues(label(contactMethod), outcome).Inc()
}

func (m *PipelineMetrics) ObserveGeoAttempt(provider, outcome string) {
	if m == nil {
		return
	}
	m.geoAttempts.WithLabelValues(label(provider), outcome).Inc()
}

func (m *PipelineMetrics) ObserveGeoResolution(source string) {
	if m == nil {
		return
	}
	m.geoResolutions.WithLabelValues(label(source)).Inc()
}

func (m *PipelineMetrics) ObserveFanout(eventType string, rows int) {
	if m == nil || rows <= 0 {
		return
	}
	m.fanoutRows.WithLabelValues(label(eventType)).Add(float64(rows))
}

func (m *PipelineMetrics) ObserveContact(state string) {
	if m == nil {
		return
	}
	m.contactOutcomes.WithLabelValues(label(state)).Inc()
}

// label keeps free-form input from exploding label cardinality.
func label(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || len(v) > 32 {
		return "unknown"
	}
	return v
}
