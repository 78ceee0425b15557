package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the disclosure engine.
type Metrics struct {
	// Signals by topic and outcome (applied, flipped, stale, unresolvable)
	Signals *prometheus.CounterVec

	// Traveler renders by disclosure state served
	Renders *prometheus.CounterVec
}

// New creates a Metrics instance with all disclosure module metrics registered.
func New() *Metrics {
	return &Metrics{
		Signals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfare_disclosure_signals_total",
			Help: "Total booking signals processed, by signal and outcome",
		}, []string{"signal", "outcome"}),

		Renders: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfare_disclosure_renders_total",
			Help: "Total traveler itinerary renders, by disclosure state served",
		}, []string{"state"}),
	}
}

// IncrementSignal records one processed booking signal.
func (m *Metrics) IncrementSignal(signal, outcome string) {
	if m != nil {
		m.Signals.WithLabelValues(signal, outcome).Inc()
	}
}

// IncrementRender records one traveler render.
func (m *Metrics) IncrementRender(state string) {
	if m != nil {
		m.Renders.WithLabelValues(state).Inc()
	}
}
