package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts authorization denials by capability and reason.
type Metrics struct {
	Denied *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Denied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "firledger_authorization_denied_total",
			Help: "Total number of denied authorization checks",
		}, []string{"capability", "reason"}),
	}
}

func (m *Metrics) IncrementDenied(capability, reason string) {
	m.Denied.WithLabelValues(capability, reason).Inc()
}
