// Package metrics provides Prometheus metrics for the wallarena service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the wallarena service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Arena Metrics - What really matters for a pairwise-rating archive
	votesProcessed prometheus.Counter
	votesDuplicate prometheus.Counter
	votesRejected  prometheus.Counter
	ratingUpdates  prometheus.Counter
	matchesServed  prometheus.Counter
	matchFallbacks prometheus.Counter

	// Fingerprint Metrics - Backfill throughput and quality
	fingerprintsComputed prometheus.Counter
	fingerprintFailures  prometheus.Counter
	fingerprintLatency   prometheus.Histogram

	// Duplicate Detection Metrics
	clusterRuns      prometheus.Counter
	clusterCacheHits prometheus.Counter
	clusterDuration  prometheus.Histogram
	duplicateGroups  prometheus.Gauge

	// Operational Health Metrics
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueErrors      prometheus.Counter

	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	totalWallpapers         prometheus.Gauge
	fingerprintedWallpapers prometheus.Gauge
	repositoryQueryLatency  prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorsByComponent *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "wallarena",
		subsystem:        "arena",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	m.votesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "votes_processed_total",
		Help:      "Total number of contest votes applied to ratings",
	})

	m.votesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "votes_duplicate_total",
		Help:      "Total number of duplicate votes rejected by the idempotency check",
	})

	m.votesRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "votes_rejected_total",
		Help:      "Total number of votes rejected for unknown or invalid items",
	})

	m.ratingUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rating_updates_total",
		Help:      "Total number of atomic two-record rating updates",
	})

	m.matchesServed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matches_served_total",
		Help:      "Total number of comparison pairs served",
	})

	m.matchFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_fallbacks_total",
		Help:      "Total number of pairs served outside the competitive-closeness window",
	})

	m.fingerprintsComputed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fingerprints_computed_total",
		Help:      "Total number of perceptual fingerprints computed",
	})

	m.fingerprintFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fingerprint_failures_total",
		Help:      "Total number of items skipped due to undecodable image data",
	})

	m.fingerprintLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fingerprint_latency_milliseconds",
		Help:      "Histogram of per-item fingerprint latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.clusterRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cluster_runs_total",
		Help:      "Total number of duplicate clustering passes computed",
	})

	m.clusterCacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cluster_cache_hits_total",
		Help:      "Total number of clustering requests served from the version cache",
	})

	m.clusterDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cluster_duration_milliseconds",
		Help:      "Histogram of clustering pass duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.duplicateGroups = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_groups",
		Help:      "Number of near-duplicate groups found by the last clustering pass",
	})

	// Operational Health Metrics
	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "backfill_queue_size",
		Help:      "Current size of the fingerprint backfill queue (backlog indicator)",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "backfill_queue_capacity",
		Help:      "Maximum capacity of the fingerprint backfill queue",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "backfill_queue_utilization_ratio",
		Help:      "Backfill queue utilization ratio (size / capacity)",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "backfill_enqueues_total",
		Help:      "Total number of backfill jobs enqueued",
	})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "backfill_dequeues_total",
		Help:      "Total number of backfill jobs handed to workers",
	})

	m.queueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "backfill_enqueue_errors_total",
		Help:      "Total number of backfill jobs dropped (queue full or closed)",
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_active_count",
		Help:      "Current number of backfill workers (processing capacity)",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Histogram of per-job worker processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of worker processing errors",
	})

	m.repositoryQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_query_latency_milliseconds",
		Help:      "Histogram of leaderboard query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.totalWallpapers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "total_wallpapers",
		Help:      "Total number of wallpapers in the archive (business scale)",
	})

	m.fingerprintedWallpapers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fingerprinted_wallpapers",
		Help:      "Number of wallpapers with a computed fingerprint",
	})

	// HTTP Performance Metrics - User experience indicators
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds (user experience)",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total errors by component and error type",
		},
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordVoteProcessed increments the processed votes counter.
func RecordVoteProcessed() {
	globalManager.votesProcessed.Inc()
}

// RecordVoteDuplicate increments the duplicate votes counter.
func RecordVoteDuplicate() {
	globalManager.votesDuplicate.Inc()
}

// RecordVoteRejected increments the rejected votes counter.
func RecordVoteRejected() {
	globalManager.votesRejected.Inc()
}

// RecordRatingUpdate increments the rating updates counter.
func RecordRatingUpdate() {
	globalManager.ratingUpdates.Inc()
}

// RecordMatchServed increments the served matches counter.
func RecordMatchServed() {
	globalManager.matchesServed.Inc()
}

// RecordMatchFallback increments the match fallback counter.
func RecordMatchFallback() {
	globalManager.matchFallbacks.Inc()
}

// RecordFingerprintComputed increments the computed fingerprints counter.
func RecordFingerprintComputed() {
	globalManager.fingerprintsComputed.Inc()
}

// RecordFingerprintFailure increments the fingerprint failures counter.
func RecordFingerprintFailure() {
	globalManager.fingerprintFailures.Inc()
}

// RecordFingerprintLatency records per-item fingerprint latency in milliseconds.
func RecordFingerprintLatency(latencyMs float64) {
	globalManager.fingerprintLatency.Observe(latencyMs)
}

// RecordClusterRun increments the clustering passes counter.
func RecordClusterRun() {
	globalManager.clusterRuns.Inc()
}

// RecordClusterCacheHit increments the clustering cache hits counter.
func RecordClusterCacheHit() {
	globalManager.clusterCacheHits.Inc()
}

// RecordClusterDuration records a clustering pass duration in milliseconds.
func RecordClusterDuration(latencyMs float64) {
	globalManager.clusterDuration.Observe(latencyMs)
}

// UpdateDuplicateGroups sets the duplicate group count from the last pass.
func UpdateDuplicateGroups(count int) {
	globalManager.duplicateGroups.Set(float64(count))
}

// UpdateQueueSize sets the current backfill queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum backfill queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the backfill queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueues.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeues.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueErrors.Inc()
}

// UpdateWorkerActiveCount sets the number of backfill workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records per-job worker latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordRepositoryQueryLatency records leaderboard query latency in milliseconds.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// UpdateTotalWallpapers sets the total wallpaper count.
func UpdateTotalWallpapers(count int) {
	globalManager.totalWallpapers.Set(float64(count))
}

// UpdateFingerprintedWallpapers sets the fingerprinted wallpaper count.
func UpdateFingerprintedWallpapers(count int) {
	globalManager.fingerprintedWallpapers.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
