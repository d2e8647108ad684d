package guard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"penny/pkg/platform/circuit"
)

type Metrics struct {
	CircuitOpen *prometheus.GaugeVec
	Rejected    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		CircuitOpen: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "penny_provider_circuit_open",
			Help: "1 while the provider's circuit is open",
		}, []string{"provider"}),
		Rejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "penny_provider_circuit_rejected_total",
			Help: "Calls failed fast by an open circuit",
		}, []string{"provider"}),
	}
}

func (m *Metrics) setState(provider string, state circuit.State) {
	if m == nil {
		return
	}
	v := 0.0
	if state == circuit.StateOpen {
		v = 1
	}
	m.CircuitOpen.WithLabelValues(provider).Set(v)
}

func (m *Metrics) incRejected(provider string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(provider).Inc()
}
