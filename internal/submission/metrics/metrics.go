package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the submission module.
type Metrics struct {
	// Submissions accepted, by source type
	Created *prometheus.CounterVec

	// Submissions rejected as duplicates of existing content
	Duplicates prometheus.Counter

	// Status transitions, by target status
	Transitions *prometheus.CounterVec

	// Create latency including dedup lookup
	CreateLatency prometheus.Histogram
}

// New creates a Metrics instance with all submission module metrics registered.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfare_submissions_created_total",
			Help: "Total submissions accepted, by source type",
		}, []string{"source"}),

		Duplicates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_submissions_duplicate_total",
			Help: "Total submissions rejected because identical content already exists",
		}),

		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfare_submission_transitions_total",
			Help: "Total submission status transitions, by target status",
		}, []string{"to"}),

		CreateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wayfare_submission_create_duration_seconds",
			Help:    "Duration of submission intake including the dedup check",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementCreated records an accepted submission.
func (m *Metrics) IncrementCreated(source string) {
	if m != nil {
		m.Created.WithLabelValues(source).Inc()
	}
}

// IncrementDuplicate records a rejected duplicate submission.
func (m *Metrics) IncrementDuplicate() {
	if m != nil {
		m.Duplicates.Inc()
	}
}

// IncrementTransition records a status transition.
func (m *Metrics) IncrementTransition(to string) {
	if m != nil {
		m.Transitions.WithLabelValues(to).Inc()
	}
}

// ObserveCreateLatency records the intake duration.
func (m *Metrics) ObserveCreateLatency(d time.Duration) {
	if m != nil {
		m.CreateLatency.Observe(d.Seconds())
	}
}
