package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPResponseSize      *prometheus.HistogramVec
	HTTPActiveConnections *prometheus.GaugeVec

	// Rate limiting metrics
	RateLimitExceededTotal *prometheus.CounterVec

	// Notification fan-out
	NotificationsCreated *prometheus.CounterVec
	NotificationsDeduped *prometheus.CounterVec
	NotificationsFailed  *prometheus.CounterVec

	// Direct messages
	MessagesSent prometheus.Counter

	// Realtime
	WebSocketConnections prometheus.Gauge
	OnlineUsers          prometheus.Gauge
	RealtimeEventsTotal  *prometheus.CounterVec

	// Timeline
	FeedGenerationTime *prometheus.HistogramVec

	// Reconcile
	CountersRepaired *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPResponseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response body size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of in-flight HTTP requests",
				},
				[]string{"method", "path"},
			),
			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Requests rejected by the write rate limiter",
				},
				[]string{"path"},
			),
			NotificationsCreated: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_created_total",
					Help: "Notifications persisted, by type",
				},
				[]string{"type"},
			),
			NotificationsDeduped: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_deduped_total",
					Help: "Notifications skipped because an identical one exists",
				},
				[]string{"type"},
			),
			NotificationsFailed: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_failed_total",
					Help: "Notifications that could not be persisted",
				},
				[]string{"type"},
			),
			MessagesSent: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "direct_messages_sent_total",
					Help: "Direct messages stored",
				},
			),
			WebSocketConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "websocket_connections",
					Help: "Open websocket connections",
				},
			),
			OnlineUsers: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "presence_online_users",
					Help: "Users with a registered connection",
				},
			),
			RealtimeEventsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "realtime_events_total",
					Help: "Realtime events by type and outcome (sent, offline, dropped)",
				},
				[]string{"event", "result"},
			),
			FeedGenerationTime: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feed_generation_duration_seconds",
					Help:    "Time to assemble a feed page",
					Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
				},
				[]string{"feed"},
			),
			CountersRepaired: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "reconcile_counters_repaired_total",
					Help: "Cached counters rewritten by the reconcile pass",
				},
				[]string{"counter"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	return Initialize()
}
