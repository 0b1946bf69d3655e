package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts recorded statements by kind (link, append, supplementary).
type Metrics struct {
	Recorded *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Recorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "firledger_statements_recorded_total",
			Help: "Total number of statements recorded, by kind",
		}, []string{"kind"}),
	}
}

func (m *Metrics) IncrementRecorded(kind string) {
	m.Recorded.WithLabelValues(kind).Inc()
}
