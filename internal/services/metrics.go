package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application.
// Secondary-step failures in the acceptance flow are intentionally
// non-fatal, so the counters here are the only place they are visible
// besides the logs.
type Metrics struct {
	// Cache metrics
	CacheHits          *prometheus.CounterVec
	CacheMisses        prometheus.Counter
	CacheRevalidations *prometheus.CounterVec

	// Acceptance flow metrics
	AcceptAttempts          *prometheus.CounterVec
	AcceptSecondaryFailures *prometheus.CounterVec

	// WebSocket metrics
	WebSocketConnections prometheus.Gauge
	WebSocketMessages    *prometheus.CounterVec

	// Notification metrics
	NotificationsSent *prometheus.CounterVec
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the global metrics instance, initializing it on
// first use.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "bountyboard_cache_hits_total",
				Help: "Total cache hits by kind (fresh, offline, stale_fallback)",
			}, []string{"kind"}),

			CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
				Name: "bountyboard_cache_misses_total",
				Help: "Total cache lookups that found no usable entry",
			}),

			CacheRevalidations: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "bountyboard_cache_revalidations_total",
				Help: "Total background cache revalidations by result",
			}, []string{"result"}),

			AcceptAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "bountyboard_accept_attempts_total",
				Help: "Total request-acceptance attempts by outcome (success, primary_failure, insufficient_balance)",
			}, []string{"outcome"}),

			AcceptSecondaryFailures: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "bountyboard_accept_secondary_failures_total",
				Help: "Non-fatal failures of acceptance side effects by step (escrow, status_sync, competitor_cleanup, conversation, conversation_fallback, reload)",
			}, []string{"step"}),

			WebSocketConnections: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "bountyboard_websocket_connections_active",
				Help: "Number of active WebSocket connections",
			}),

			WebSocketMessages: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "bountyboard_websocket_messages_total",
				Help: "Total WebSocket messages by type and direction",
			}, []string{"type", "direction"}),

			NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "bountyboard_notifications_total",
				Help: "Total push notification dispatches by result",
			}, []string{"result"}),
		}
	})
	return globalMetrics
}

// RecordCacheHit records a cache hit of the given kind.
func (m *Metrics) RecordCacheHit(kind string) {
	m.CacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss records a cache lookup with no usable entry.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMisses.Inc()
}

// RecordCacheRevalidation records a background refresh result.
func (m *Metrics) RecordCacheRevalidation(result string) {
	m.CacheRevalidations.WithLabelValues(result).Inc()
}

// RecordAcceptAttempt records the outcome of one acceptance attempt.
func (m *Metrics) RecordAcceptAttempt(outcome string) {
	m.AcceptAttempts.WithLabelValues(outcome).Inc()
}

// RecordSecondaryFailure records a non-fatal side-effect failure.
func (m *Metrics) RecordSecondaryFailure(step string) {
	m.AcceptSecondaryFailures.WithLabelValues(step).Inc()
}

// RecordWebSocketConnect records a new WebSocket connection.
func (m *Metrics) RecordWebSocketConnect() {
	m.WebSocketConnections.Inc()
}

// RecordWebSocketDisconnect records a WebSocket disconnection.
func (m *Metrics) RecordWebSocketDisconnect() {
	m.WebSocketConnections.Dec()
}

// RecordWebSocketMessage records a WebSocket message.
func (m *Metrics) RecordWebSocketMessage(msgType, direction string) {
	m.WebSocketMessages.WithLabelValues(msgType, direction).Inc()
}

// RecordNotification records a push dispatch result.
func (m *Metrics) RecordNotification(result string) {
	m.NotificationsSent.WithLabelValues(result).Inc()
}
