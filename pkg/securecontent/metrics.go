// Copyright 2024-2026 Aiku AI

package securecontent

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aiku/securecontent/pkg/securecontent/markers"
)

const metricsNamespace = "securecontent"

// Metrics counts decoration activity. A nil *Metrics records nothing.
type Metrics struct {
	Decorations   *prometheus.CounterVec
	Regions       *prometheus.CounterVec
	Participation *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg when reg is not
// nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Decorations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decorations_total",
			Help:      "Decoration passes that found at least one protected region, by mode.",
		}, []string{"mode"}),
		Regions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "regions_total",
			Help:      "Protected regions processed, by kind and resulting state.",
		}, []string{"kind", "state"}),
		Participation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "participation_resolutions_total",
			Help:      "Participation checks, by the tier that answered.",
		}, []string{"tier"}),
	}
	if reg != nil {
		reg.MustRegister(m.Decorations, m.Regions, m.Participation)
	}
	return m
}

func (m *Metrics) observeDecoration(mode Mode) {
	if m == nil {
		return
	}
	m.Decorations.WithLabelValues(string(mode)).Inc()
}

func (m *Metrics) observeRegion(kind markers.Kind, state State) {
	if m == nil {
		return
	}
	m.Regions.WithLabelValues(string(kind), string(state)).Inc()
}

func (m *Metrics) observeParticipation(tier string) {
	if m == nil {
		return
	}
	m.Participation.WithLabelValues(tier).Inc()
}
