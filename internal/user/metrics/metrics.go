package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for user lifecycle operations.
type Metrics struct {
	UsersCreated   prometheus.Counter
	UsersUpdated   prometheus.Counter
	UsersDeleted   prometheus.Counter
	EmailConflicts prometheus.Counter
	CreateLatency  prometheus.Histogram
}

// New registers and returns user metrics collectors.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentd_users_created_total",
			Help: "Total number of users created",
		}),
		UsersUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentd_users_updated_total",
			Help: "Total number of user email updates",
		}),
		UsersDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentd_users_deleted_total",
			Help: "Total number of users deleted",
		}),
		EmailConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentd_user_email_conflicts_total",
			Help: "Total number of create or update attempts rejected for a taken email",
		}),
		CreateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "consentd_user_create_latency_seconds",
			Help:    "Latency of user creation in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementUsersCreated()   { m.UsersCreated.Inc() }
func (m *Metrics) IncrementUsersUpdated()   { m.UsersUpdated.Inc() }
func (m *Metrics) IncrementUsersDeleted()   { m.UsersDeleted.Inc() }
func (m *Metrics) IncrementEmailConflicts() { m.EmailConflicts.Inc() }

func (m *Metrics) ObserveCreateLatency(durationSeconds float64) {
	m.CreateLatency.Observe(durationSeconds)
}
