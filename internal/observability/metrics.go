// Package observability provides metrics, tracing and websocket lifecycle logging.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessageRequestsTotal counts request lifecycle outcomes (sent, accepted, rejected, limited).
	MessageRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hongdating_message_requests_total",
		Help: "Message requests by outcome",
	}, []string{"outcome"})

	// MessagesTotal counts chat messages persisted.
	MessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hongdating_messages_total",
		Help: "Chat messages persisted",
	})

	// WebSocketConnections is the number of open sockets per hub.
	WebSocketConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hongdating_ws_connections",
		Help: "Open WebSocket connections per hub",
	}, []string{"hub"})

	// WebSocketDropped counts outbound frames dropped because a client fell behind.
	WebSocketDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hongdating_ws_dropped_total",
		Help: "WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// PushTotal counts push deliveries by result.
	PushTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hongdating_push_total",
		Help: "Push notification deliveries by result",
	}, []string{"result"})

	// RateLimitHits counts rejected requests per limiter.
	RateLimitHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hongdating_rate_limit_hits_total",
		Help: "Requests rejected by a rate limiter",
	}, []string{"route"})

	// RedisErrors counts Redis command failures by operation.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hongdating_redis_errors_total",
		Help: "Redis errors by operation",
	}, []string{"operation"})

	// DatabaseQueryLatency records gorm query latency.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hongdating_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// ObserveQuery records the elapsed time since start.
func ObserveQuery(operation string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
