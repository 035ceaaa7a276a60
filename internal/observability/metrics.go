package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canopy_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canopy_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CacheLookups counts read-through cache lookups by namespace and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canopy_cache_lookups_total",
		Help: "Read-through cache lookups by namespace and result (hit, miss, error)",
	}, []string{"namespace", "result"})

	// TimelineBuildDuration records how long a timeline page takes to build.
	TimelineBuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canopy_timeline_build_duration_seconds",
		Help:    "Time spent building a timeline page",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// TimelineRequests counts timeline builds by kind and outcome.
	TimelineRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canopy_timeline_requests_total",
		Help: "Timeline builds by kind and outcome",
	}, []string{"kind", "outcome"})

	// InteractionToggles counts successful toggles by interaction type and action.
	InteractionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canopy_interaction_toggles_total",
		Help: "Interaction toggles by type and resulting action",
	}, []string{"type", "action"})

	// InteractionToggleRetries counts toggles that lost a concurrent insert and were retried as removals.
	InteractionToggleRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canopy_interaction_toggle_retries_total",
		Help: "Interaction toggles retried after a unique-constraint conflict",
	})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canopy_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canopy_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canopy_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// ObserveTimeline records the duration and outcome of one timeline build.
func ObserveTimeline(kind string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	TimelineRequests.WithLabelValues(kind, outcome).Inc()
	TimelineBuildDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
