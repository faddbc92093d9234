// Package metrics provides Prometheus metrics for the gavel draft service.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the gavel service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Core Business Metrics - the inflation signals themselves
	picksProcessed        prometheus.Counter
	picksDuplicate        prometheus.Counter
	snapshotsPublished    prometheus.Counter
	overallInflation      prometheus.Gauge
	tierInflation         *prometheus.GaugeVec
	depletionMultiplier   prometheus.Gauge
	calculationLatency    *prometheus.HistogramVec
	calculationPopulation *prometheus.GaugeVec

	// Draft Accounting Metrics
	poolSize        prometheus.Gauge
	purchaseCount   prometheus.Gauge
	budgetSpent     prometheus.Gauge
	budgetRemaining prometheus.Gauge

	// Queue Metrics - pick ingestion backlog
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker Metrics - recalculation pipeline
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Store Metrics - draft state repository
	storeUpdateLatency prometheus.Histogram
	storeQueryLatency  prometheus.Histogram

	// Fanout Metrics - snapshot delivery
	subscriberCount       prometheus.Gauge
	upstreamPublishes     prometheus.Counter
	upstreamPublishErrors prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorsByComponent *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "gavel",
		subsystem:        "draft",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
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
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Core Business Metrics - the numbers bid guidance runs on
	m.picksProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "picks_processed_total",
		Help:      "Total number of pick events successfully processed",
	})

	m.picksDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "picks_duplicate_total",
		Help:      "Total number of duplicate pick events detected (indicates feed quality)",
	})

	m.snapshotsPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshots_published_total",
		Help:      "Total number of inflation snapshots published",
	})

	m.overallInflation = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "overall_inflation_rate",
		Help:      "Latest overall inflation rate (signed ratio, 0 when insufficient data)",
	})

	m.tierInflation = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "tier_inflation_rate",
			Help:      "Latest per-tier inflation rate (signed ratio)",
		},
		[]string{"tier"},
	)

	m.depletionMultiplier = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "budget_depletion_multiplier",
		Help:      "Latest budget depletion multiplier (clamped pace ratio)",
	})

	m.calculationLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "calculation_latency_milliseconds",
			Help:      "Histogram of calculator latency in milliseconds by calculation kind",
			Buckets:   m.histogramBuckets,
		},
		[]string{"kind"},
	)

	m.calculationPopulation = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "calculation_population_size",
			Help:      "Input population size of the most recent calculation by kind",
		},
		[]string{"kind"},
	)

	// Draft Accounting Metrics - where the room stands
	m.poolSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "projection_pool_size",
		Help:      "Number of players in the loaded projection pool",
	})

	m.purchaseCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "purchases_recorded",
		Help:      "Number of completed purchases recorded for the active draft",
	})

	m.budgetSpent = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "budget_spent",
		Help:      "Currency units spent so far in the active draft",
	})

	m.budgetRemaining = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "budget_remaining",
		Help:      "Currency units remaining in the active draft",
	})

	// Queue Metrics - pick ingestion backlog
	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the pick event queue (backlog indicator)",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum queue capacity",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Queue utilization ratio (current size / capacity)",
	})

	m.queueEnqueueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_total",
		Help:      "Total number of pick events enqueued",
	})

	m.queueDequeueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeue_total",
		Help:      "Total number of pick events dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of enqueue rejections (queue full)",
	})

	// Worker Metrics - recalculation pipeline
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Configured number of pipeline workers",
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_active_count",
		Help:      "Number of workers currently processing a pick",
	})

	m.workerIdleCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_idle_count",
		Help:      "Number of idle workers",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Pick processing latency in milliseconds (dequeue to snapshot)",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrorRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of pick processing errors",
	})

	// Store Metrics - draft state repository
	m.storeUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_update_latency_milliseconds",
		Help:      "Draft store update operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_latency_milliseconds",
		Help:      "Draft store query operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Fanout Metrics - snapshot delivery
	m.subscriberCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_subscribers",
		Help:      "Number of live snapshot subscribers (SSE streams)",
	})

	m.upstreamPublishes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_publishes_total",
		Help:      "Total number of snapshots published to the upstream broker",
	})

	m.upstreamPublishErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_publish_errors_total",
		Help:      "Total number of failed upstream publishes",
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

	// Error Metrics
	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_total",
			Help:      "Total number of errors by component and reason",
		},
		[]string{"component", "reason"},
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

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordCalculation implements the engine's instrumentation sink. The draft
// id is accepted for the sink contract but deliberately kept out of labels;
// a label per draft would be unbounded cardinality.
func (m *Manager) RecordCalculation(kind string, latency time.Duration, population int, draftID string) error {
	if kind == "" {
		return ErrUnknownKind
	}
	_ = draftID
	m.calculationLatency.WithLabelValues(kind).Observe(float64(latency.Nanoseconds()) / float64(time.Millisecond.Nanoseconds()))
	m.calculationPopulation.WithLabelValues(kind).Set(float64(population))
	return nil
}

// Default returns the global metrics manager, for use as an observation
// sink.
func Default() *Manager {
	return globalManager
}

// RecordPickProcessed increments the picks processed counter.
func RecordPickProcessed() {
	globalManager.picksProcessed.Inc()
}

// RecordPickDuplicate increments the duplicate picks counter.
func RecordPickDuplicate() {
	globalManager.picksDuplicate.Inc()
}

// RecordSnapshotPublished increments the published snapshots counter.
func RecordSnapshotPublished() {
	globalManager.snapshotsPublished.Inc()
}

// UpdateOverallInflation sets the latest overall inflation rate.
func UpdateOverallInflation(rate float64) {
	globalManager.overallInflation.Set(rate)
}

// UpdateTierInflation sets the latest inflation rate for one tier.
func UpdateTierInflation(tier string, rate float64) {
	globalManager.tierInflation.WithLabelValues(tier).Set(rate)
}

// UpdateDepletionMultiplier sets the latest budget depletion multiplier.
func UpdateDepletionMultiplier(multiplier float64) {
	globalManager.depletionMultiplier.Set(multiplier)
}

// UpdatePoolSize sets the projection pool size.
func UpdatePoolSize(count int) {
	globalManager.poolSize.Set(float64(count))
}

// UpdatePurchaseCount sets the number of recorded purchases.
func UpdatePurchaseCount(count int) {
	globalManager.purchaseCount.Set(float64(count))
}

// UpdateBudgetSpent sets the spent budget gauge.
func UpdateBudgetSpent(spent float64) {
	globalManager.budgetSpent.Set(spent)
}

// UpdateBudgetRemaining sets the remaining budget gauge.
func UpdateBudgetRemaining(remaining float64) {
	globalManager.budgetRemaining.Set(remaining)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records pick processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// RecordStoreUpdateLatency records store update operation latency.
func RecordStoreUpdateLatency(latencyMs float64) {
	globalManager.storeUpdateLatency.Observe(latencyMs)
}

// RecordStoreQueryLatency records store query operation latency.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// UpdateSubscriberCount sets the number of live snapshot subscribers.
func UpdateSubscriberCount(count int) {
	globalManager.subscriberCount.Set(float64(count))
}

// RecordUpstreamPublish increments the upstream publish counter.
func RecordUpstreamPublish() {
	globalManager.upstreamPublishes.Inc()
}

// RecordUpstreamPublishError increments the upstream publish error counter.
func RecordUpstreamPublishError() {
	globalManager.upstreamPublishErrors.Inc()
}

// RecordErrorByComponent increments the error counter for a component and
// reason pair.
func RecordErrorByComponent(component, reason string) {
	globalManager.errorsByComponent.WithLabelValues(component, reason).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// StartSystemCollector samples runtime memory, goroutine and GC pause
// gauges at the manager's refresh interval until ctx is canceled.
func StartSystemCollector(ctx context.Context) {
	if !globalManager.enabled {
		return
	}
	go func() {
		ticker := time.NewTicker(globalManager.refreshInterval)
		defer ticker.Stop()

		var lastPauseNs uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var ms runtime.MemStats
				runtime.ReadMemStats(&ms)
				UpdateSystemMemoryUsage(ms.Alloc)
				UpdateSystemGoroutineCount(runtime.NumGoroutine())
				if ms.PauseTotalNs > lastPauseNs {
					RecordSystemGCPauseTime(float64(ms.PauseTotalNs-lastPauseNs) / float64(time.Millisecond.Nanoseconds()))
					lastPauseNs = ms.PauseTotalNs
				}
			}
		}
	}()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
