package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tracking record and its outbox relay.
type Metrics struct {
	EventsAppended   *prometheus.CounterVec
	OutboxPublished  prometheus.Counter
	OutboxFailures   prometheus.Counter
	OutboxBatchDelay prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		EventsAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "firledger_audit_events_appended_total",
			Help: "Total number of case tracking records appended, by action type",
		}, []string{"action_type"}),
		OutboxPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "firledger_audit_outbox_published_total",
			Help: "Total number of outbox entries published to Kafka",
		}),
		OutboxFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "firledger_audit_outbox_failures_total",
			Help: "Total number of failed outbox relay batches",
		}),
		OutboxBatchDelay: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "firledger_audit_outbox_batch_duration_seconds",
			Help:    "Duration of one outbox claim-publish-mark batch",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) IncrementAppended(actionType string) {
	m.EventsAppended.WithLabelValues(actionType).Inc()
}

func (m *Metrics) AddPublished(n int) {
	m.OutboxPublished.Add(float64(n))
}

func (m *Metrics) IncrementOutboxFailure() {
	m.OutboxFailures.Inc()
}

// ObserveBatch records the duration of a relay batch.
// Call with time.Now() at the start of the batch.
func (m *Metrics) ObserveBatch(start time.Time) {
	m.OutboxBatchDelay.Observe(time.Since(start).Seconds())
}
