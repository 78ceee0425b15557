package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the itinerary version store.
type Metrics struct {
	VersionsCreated prometheus.Counter
	ItemsPerVersion prometheus.Histogram
}

// New creates a Metrics instance with all itinerary module metrics registered.
func New() *Metrics {
	return &Metrics{
		VersionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_itinerary_versions_created_total",
			Help: "Total itinerary versions written",
		}),
		ItemsPerVersion: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wayfare_itinerary_version_items",
			Help:    "Item count per written itinerary version",
			Buckets: []float64{1, 2, 5, 10, 20, 50},
		}),
	}
}

// ObserveVersionCreated records one written version and its item count.
func (m *Metrics) ObserveVersionCreated(items int) {
	if m != nil {
		m.VersionsCreated.Inc()
		m.ItemsPerVersion.Observe(float64(items))
	}
}
