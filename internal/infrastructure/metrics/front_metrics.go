package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Store operation labels.
const (
	OpAdd    = "add"
	OpRemove = "remove"

	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// StoreMetrics contains Prometheus metrics for the domain collection store.
type StoreMetrics struct {
	Mutations       *prometheus.CounterVec
	Size            prometheus.Gauge
	PersistDuration prometheus.Histogram
	LoadFailures    prometheus.Counter
}

// NewStoreMetrics creates and registers store metrics with the given registerer.
func NewStoreMetrics(registerer prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collabfront_store_mutations_total",
				Help: "Total number of domain store mutations",
			},
			[]string{"op", "status"},
		),
		Size: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collabfront_store_domains",
			Help: "Current number of domains in the collection",
		}),
		PersistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "collabfront_store_persist_duration_seconds",
			Help:    "Time to write the collection to durable storage",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		LoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collabfront_store_load_failures_total",
			Help: "Hydrations that fell back to an empty collection because storage was unreadable",
		}),
	}

	registerer.MustRegister(m.Mutations, m.Size, m.PersistDuration, m.LoadFailures)

	return m
}

// Notification outcome labels.
const (
	OutcomeDisplayed   = "displayed"
	OutcomeUnavailable = "unavailable"
)

// NotificationMetrics contains Prometheus metrics for the notification facade.
type NotificationMetrics struct {
	Shown     *prometheus.CounterVec
	Dismissed prometheus.Counter
}

// NewNotificationMetrics creates and registers notification metrics with the given registerer.
func NewNotificationMetrics(registerer prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		Shown: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collabfront_notifications_shown_total",
				Help: "Total number of notification requests by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		Dismissed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collabfront_notifications_dismissed_total",
			Help: "Total number of notification dismissals forwarded to the handler",
		}),
	}

	registerer.MustRegister(m.Shown, m.Dismissed)

	return m
}
