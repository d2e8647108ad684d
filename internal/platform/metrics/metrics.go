package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-level Prometheus metrics.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	SessionsStarted prometheus.Counter
}

// New creates and registers the HTTP metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "penny_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "penny_sessions_started_total",
			Help: "Chat sessions issued a session token",
		}),
	}
}

// ObserveRequest records one request. Nil-safe so handlers can run without metrics.
func (m *Metrics) ObserveRequest(method, route string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementSessionsStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
}
