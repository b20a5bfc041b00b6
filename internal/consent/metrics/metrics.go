package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for consent operations.
type Metrics struct {
	ConsentsSet     *prometheus.CounterVec
	BatchesRejected prometheus.Counter
	HistoryReads    prometheus.Counter
	SetLatency      prometheus.Histogram
}

// New registers and returns consent metrics collectors.
func New() *Metrics {
	return &Metrics{
		ConsentsSet: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consentd_consents_set_total",
			Help: "Total number of consent writes, labeled by type and state",
		}, []string{"type", "enabled"}),
		BatchesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentd_consent_batches_rejected_total",
			Help: "Total number of consent batches rejected by validation",
		}),
		HistoryReads: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentd_consent_history_reads_total",
			Help: "Total number of consent history page reads",
		}),
		SetLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "consentd_consent_set_latency_seconds",
			Help:    "Latency of a consent batch write in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementConsentsSet(typ string, enabled bool) {
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	m.ConsentsSet.WithLabelValues(typ, state).Inc()
}

func (m *Metrics) IncrementBatchesRejected() { m.BatchesRejected.Inc() }
func (m *Metrics) IncrementHistoryReads()    { m.HistoryReads.Inc() }

func (m *Metrics) ObserveSetLatency(durationSeconds float64) {
	m.SetLatency.Observe(durationSeconds)
}
