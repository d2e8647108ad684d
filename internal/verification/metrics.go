package verification

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification coordinator.
type Metrics struct {
	Outcomes        *prometheus.CounterVec
	StepDuration    *prometheus.HistogramVec
	AttemptDuration prometheus.Histogram
	FaceConfidence  prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "penny_verification_outcomes_total",
			Help: "Verification attempts by outcome and reason",
		}, []string{"outcome", "reason"}),
		StepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "penny_verification_step_duration_seconds",
			Help:    "Duration of each verification step by the state it started from",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"from_state"}),
		AttemptDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "penny_verification_attempt_duration_seconds",
			Help:    "End-to-end duration of a verification attempt",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}),
		FaceConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "penny_verification_face_confidence",
			Help:    "Face match similarity reported by the matcher",
			Buckets: []float64{10, 25, 50, 70, 80, 85, 90, 95, 98, 99, 100},
		}),
	}
}

func (m *Metrics) ObserveStep(fromState string, start time.Time) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(fromState).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveOutcome(res Result, start time.Time) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(string(res.Outcome), string(res.Reason)).Inc()
	m.AttemptDuration.Observe(time.Since(start).Seconds())
	if res.Confidence > 0 {
		m.FaceConfidence.Observe(res.Confidence)
	}
}
