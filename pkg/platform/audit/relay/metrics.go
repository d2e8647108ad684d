package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Published prometheus.Counter
	Failed    prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "penny_audit_relay_published_total",
			Help: "Outbox rows published to Kafka",
		}),
		Failed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "penny_audit_relay_failed_total",
			Help: "Outbox rows that failed to publish",
		}),
	}
}

func (m *Metrics) observePublished(n int) {
	if m == nil {
		return
	}
	m.Published.Add(float64(n))
}

func (m *Metrics) observeFailed(n int) {
	if m == nil {
		return
	}
	m.Failed.Add(float64(n))
}
