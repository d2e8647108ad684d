package chat

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the chat gateway.
type Metrics struct {
	Questions         *prometheus.CounterVec
	PassagesRetrieved prometheus.Histogram
	AskDuration       prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		Questions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "penny_chat_questions_total",
			Help: "Questions handled by outcome",
		}, []string{"outcome"}),
		PassagesRetrieved: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "penny_chat_passages_retrieved",
			Help:    "Passages used to ground an answer",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		}),
		AskDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "penny_chat_ask_duration_seconds",
			Help:    "End-to-end duration of a question",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}),
	}
}

func (m *Metrics) ObserveAnswer(outcome string, passages int, start time.Time) {
	if m == nil {
		return
	}
	m.Questions.WithLabelValues(outcome).Inc()
	m.AskDuration.Observe(time.Since(start).Seconds())
	if outcome == outcomeAnswered {
		m.PassagesRetrieved.Observe(float64(passages))
	}
}
