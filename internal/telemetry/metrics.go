package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the chatbridge gateway.
type Metrics struct {
	RequestTotal      *prometheus.CounterVec
	RequestDurationMs *prometheus.HistogramVec
	StreamChunksTotal *prometheus.CounterVec
	SkippedEventTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chatbridge_request_total",
			Help: "Total number of chat completion requests processed.",
		}, []string{"provider", "model", "status", "stream"}),

		RequestDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chatbridge_request_duration_ms",
			Help:    "Request duration in milliseconds, including backend latency.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"provider", "model"}),

		StreamChunksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chatbridge_stream_chunks_total",
			Help: "Total SSE frames written to streaming clients.",
		}, []string{"provider"}),

		SkippedEventTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chatbridge_skipped_event_total",
			Help: "Backend events dropped because their shape was not recognized. A sustained rise usually means the backend protocol changed.",
		}, []string{"provider"}),
	}
}

// RecordRequest records metrics for a completed request.
func (m *Metrics) RecordRequest(provider, model, status string, stream bool, durationMs float64) {
	streamLabel := "false"
	if stream {
		streamLabel = "true"
	}
	m.RequestTotal.WithLabelValues(provider, model, status, streamLabel).Inc()
	m.RequestDurationMs.WithLabelValues(provider, model).Observe(durationMs)
}

// RecordStreamChunk counts one SSE frame flushed to a client.
func (m *Metrics) RecordStreamChunk(provider string) {
	m.StreamChunksTotal.WithLabelValues(provider).Inc()
}

// RecordSkippedEvent counts one silently dropped backend event.
func (m *Metrics) RecordSkippedEvent(provider string) {
	m.SkippedEventTotal.WithLabelValues(provider).Inc()
}
