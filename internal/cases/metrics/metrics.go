package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for case registration and updates.
type Metrics struct {
	CasesCreated   prometheus.Counter
	FieldChanges   *prometheus.CounterVec
	UpdateDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		CasesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "firledger_cases_created_total",
			Help: "Total number of cases registered",
		}),
		FieldChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "firledger_case_field_changes_total",
			Help: "Total number of tracked case field changes, by field",
		}, []string{"field"}),
		UpdateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "firledger_case_update_duration_seconds",
			Help:    "Duration of case update transactions",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	m.CasesCreated.Inc()
}

func (m *Metrics) IncrementFieldChange(field string) {
	m.FieldChanges.WithLabelValues(field).Inc()
}

// ObserveUpdate records the duration of an update.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveUpdate(start time.Time) {
	m.UpdateDuration.Observe(time.Since(start).Seconds())
}
