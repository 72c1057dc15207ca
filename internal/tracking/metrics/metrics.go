package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal tracks judge API calls per operation and outcome
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgewatch_http_requests_total",
			Help: "Total number of judge API calls",
		},
		[]string{"operation", "outcome"},
	)

	// HTTPErrorsTotal tracks failed attempts by error class
	HTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgewatch_http_errors_total",
			Help: "Total number of failed judge API attempts",
		},
		[]string{"operation", "kind"},
	)

	// HTTPRetriesTotal tracks retry attempts after a retryable failure
	HTTPRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgewatch_http_retries_total",
			Help: "Total number of retried judge API attempts",
		},
		[]string{"operation"},
	)

	// HTTPLatency tracks per-attempt latency
	HTTPLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "judgewatch_http_latency_seconds",
			Help:    "Judge API attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// CacheLookups tracks GetOrFetch outcomes: hit, miss, stale, error
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgewatch_cache_lookups_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"result"},
	)

	// CacheEntries is the current number of cache entries
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "judgewatch_cache_entries",
			Help: "Number of entries held by the cache",
		},
	)

	// CacheSwept tracks entries removed by the background sweeper
	CacheSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "judgewatch_cache_swept_total",
			Help: "Total number of dead cache entries removed by the sweeper",
		},
	)

	// MonitorTracked is the number of submissions under monitoring
	MonitorTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "judgewatch_monitor_tracked",
			Help: "Number of submissions currently tracked",
		},
	)

	// MonitorTransitions tracks observed status changes by new status
	MonitorTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgewatch_monitor_transitions_total",
			Help: "Total number of observed submission status changes",
		},
		[]string{"status"},
	)

	// MonitorTimeouts tracks submissions dropped after the attempt ceiling
	MonitorTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "judgewatch_monitor_timeouts_total",
			Help: "Total number of submissions that stopped being tracked without a final status",
		},
	)

	// MonitorFetchErrors tracks per-id fetch failures during ticks
	MonitorFetchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "judgewatch_monitor_fetch_errors_total",
			Help: "Total number of failed status fetches during monitor ticks",
		},
	)

	// NotificationsDropped tracks events a sink could not accept
	NotificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgewatch_notifications_dropped_total",
			Help: "Total number of notifications dropped by a sink",
		},
		[]string{"sink"},
	)
)
