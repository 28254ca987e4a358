package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports server-level counters on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	turns         *prometheus.CounterVec
	turnLatency   *prometheus.HistogramVec
	sessionErrors prometheus.Counter
	activeStreams prometheus.Gauge
}

// NewMetrics builds and registers the metric set. A nil registry gets its
// own private one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{registry: registry}
	m.turns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "travelgo",
			Subsystem: "server",
			Name:      "turns_total",
			Help:      "Total conversation turns processed",
		},
		[]string{"intent", "status", "transport"},
	)
	m.turnLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "travelgo",
			Subsystem: "server",
			Name:      "turn_duration_seconds",
			Help:      "Turn processing latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"transport"},
	)
	m.sessionErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "travelgo",
			Subsystem: "server",
			Name:      "session_store_errors_total",
			Help:      "Failed session context loads and saves",
		},
	)
	m.activeStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "travelgo",
			Subsystem: "server",
			Name:      "active_streams",
			Help:      "Streaming turns currently in flight",
		},
	)

	registry.MustRegister(m.turns, m.turnLatency, m.sessionErrors, m.activeStreams)
	return m
}

// RecordTurn records one completed turn.
func (m *Metrics) RecordTurn(intent, status, transport string, d time.Duration) {
	if intent == "" {
		intent = "unknown"
	}
	m.turns.WithLabelValues(intent, status, transport).Inc()
	m.turnLatency.WithLabelValues(transport).Observe(d.Seconds())
}

// RecordSessionError counts a session store failure.
func (m *Metrics) RecordSessionError() {
	m.sessionErrors.Inc()
}

// StreamStarted and StreamEnded track the in-flight stream gauge.
func (m *Metrics) StreamStarted() { m.activeStreams.Inc() }
func (m *Metrics) StreamEnded()   { m.activeStreams.Dec() }

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
