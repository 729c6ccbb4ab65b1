// Package metrics provides Prometheus metrics for the statwatch tracker.
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

// Manager manages all Prometheus metrics for the statwatch service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Tracker metrics - the polling scheduler's view of the world
	pollTicks         prometheus.Counter
	subjectsChecked   prometheus.Counter
	versionGateSkips  prometheus.Counter
	baselines         prometheus.Counter
	deltasDetected    prometheus.Counter
	notificationsSent prometheus.Counter
	notificationFails prometheus.Counter
	checkLatency      prometheus.Histogram

	// Provider metrics
	providerFetches      prometheus.Counter
	providerFetchErrors  prometheus.Counter
	providerFetchLatency prometheus.Histogram

	// Store metrics
	storeErrors  prometheus.Counter
	storeLatency prometheus.Histogram

	// Reconciler metrics
	reconcileRuns     prometheus.Counter
	reconcileSkips    prometheus.Counter
	reconcileErrors   prometheus.Counter
	reconcileDuration prometheus.Histogram
	slotCreates       prometheus.Counter
	slotRelabels      prometheus.Counter
	slotRecreates     prometheus.Counter

	// Operational health metrics
	trackedSubjects  prometheus.Gauge
	inflightSubjects prometheus.Gauge
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	workerCount      prometheus.Gauge

	// Queue metrics
	queueEnqueues      prometheus.Counter
	queueDequeues      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// HTTP performance metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking by component
	errorsByComponent *prometheus.CounterVec
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
		namespace:        "statwatch",
		subsystem:        "tracker",
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
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Tracker metrics
	m.pollTicks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "poll_ticks_total",
		Help:      "Total number of polling scheduler ticks",
	})

	m.subjectsChecked = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "subjects_checked_total",
		Help:      "Total number of per-subject check jobs processed",
	})

	m.versionGateSkips = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "version_gate_skips_total",
		Help:      "Total number of checks skipped because the provider version had not advanced",
	})

	m.baselines = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "baselines_established_total",
		Help:      "Total number of first-time baseline snapshots persisted",
	})

	m.deltasDetected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "deltas_detected_total",
		Help:      "Total number of material deltas detected between snapshots",
	})

	m.notificationsSent = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notifications_sent_total",
		Help:      "Total number of notification records delivered",
	})

	m.notificationFails = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notification_failures_total",
		Help:      "Total number of notification deliveries that failed",
	})

	m.checkLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "check_latency_milliseconds",
		Help:      "Histogram of full per-subject check latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Provider metrics
	m.providerFetches = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "provider_fetches_total",
		Help:      "Total number of profile fetches issued to the provider",
	})

	m.providerFetchErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "provider_fetch_errors_total",
		Help:      "Total number of provider fetches that failed",
	})

	m.providerFetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "provider_fetch_latency_milliseconds",
		Help:      "Histogram of provider fetch latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Store metrics
	m.storeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Total number of persistence operations that failed",
	})

	m.storeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_latency_milliseconds",
		Help:      "Histogram of persistence operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Reconciler metrics
	m.reconcileRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconcile_runs_total",
		Help:      "Total number of completed aggregate reconciliation passes",
	})

	m.reconcileSkips = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconcile_skips_total",
		Help:      "Total number of reconciliation passes skipped because one was in flight",
	})

	m.reconcileErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconcile_errors_total",
		Help:      "Total number of reconciliation passes that failed",
	})

	m.reconcileDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconcile_duration_milliseconds",
		Help:      "Histogram of reconciliation pass duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.slotCreates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "slot_creates_total",
		Help:      "Total number of display slot resources created",
	})

	m.slotRelabels = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "slot_relabels_total",
		Help:      "Total number of display slot resources relabeled in place",
	})

	m.slotRecreates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "slot_recreates_total",
		Help:      "Total number of display slots recreated after the external resource vanished",
	})

	// Operational health metrics
	m.trackedSubjects = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_subjects",
		Help:      "Current number of active subscriptions",
	})

	m.inflightSubjects = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "inflight_subjects",
		Help:      "Current number of subjects with a check in flight",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the check-job queue (backlog indicator)",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Configured capacity of the check-job queue",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Queue utilization ratio (size / capacity)",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Current number of check workers (processing capacity)",
	})

	// Queue metrics
	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueues_total",
		Help:      "Total number of check jobs enqueued",
	})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeues_total",
		Help:      "Total number of check jobs dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of enqueue attempts rejected (full or closed queue)",
	})

	// HTTP performance metrics
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
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Error tracking by component
	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total errors grouped by component and error type",
		},
		[]string{"component", "error_type"},
	)
}

// Tracker metrics functions.

// RecordPollTick increments the poll tick counter.
func RecordPollTick() {
	globalManager.pollTicks.Inc()
}

// RecordSubjectChecked increments the subjects checked counter.
func RecordSubjectChecked() {
	globalManager.subjectsChecked.Inc()
}

// RecordVersionGateSkip increments the version gate skip counter.
func RecordVersionGateSkip() {
	globalManager.versionGateSkips.Inc()
}

// RecordBaselineEstablished increments the baseline counter.
func RecordBaselineEstablished() {
	globalManager.baselines.Inc()
}

// RecordDeltaDetected increments the deltas detected counter.
func RecordDeltaDetected() {
	globalManager.deltasDetected.Inc()
}

// RecordNotificationSent increments the notifications sent counter.
func RecordNotificationSent() {
	globalManager.notificationsSent.Inc()
}

// RecordNotificationFailure increments the notification failures counter.
func RecordNotificationFailure() {
	globalManager.notificationFails.Inc()
}

// RecordCheckLatency records full per-subject check latency in milliseconds.
func RecordCheckLatency(latencyMs float64) {
	globalManager.checkLatency.Observe(latencyMs)
}

// Provider metrics functions.

// RecordProviderFetch increments the provider fetch counter.
func RecordProviderFetch() {
	globalManager.providerFetches.Inc()
}

// RecordProviderFetchError increments the provider fetch error counter.
func RecordProviderFetchError() {
	globalManager.providerFetchErrors.Inc()
}

// RecordProviderFetchLatency records provider fetch latency in milliseconds.
func RecordProviderFetchLatency(latencyMs float64) {
	globalManager.providerFetchLatency.Observe(latencyMs)
}

// Store metrics functions.

// RecordStoreError increments the store error counter.
func RecordStoreError() {
	globalManager.storeErrors.Inc()
}

// RecordStoreLatency records persistence operation latency in milliseconds.
func RecordStoreLatency(latencyMs float64) {
	globalManager.storeLatency.Observe(latencyMs)
}

// Reconciler metrics functions.

// RecordReconcileRun increments the reconcile run counter.
func RecordReconcileRun() {
	globalManager.reconcileRuns.Inc()
}

// RecordReconcileSkip increments the reconcile skip counter.
func RecordReconcileSkip() {
	globalManager.reconcileSkips.Inc()
}

// RecordReconcileError increments the reconcile error counter.
func RecordReconcileError() {
	globalManager.reconcileErrors.Inc()
}

// RecordReconcileDuration records reconciliation pass duration in milliseconds.
func RecordReconcileDuration(durationMs float64) {
	globalManager.reconcileDuration.Observe(durationMs)
}

// RecordSlotCreate increments the slot create counter.
func RecordSlotCreate() {
	globalManager.slotCreates.Inc()
}

// RecordSlotRelabel increments the slot relabel counter.
func RecordSlotRelabel() {
	globalManager.slotRelabels.Inc()
}

// RecordSlotRecreate increments the slot recreate counter.
func RecordSlotRecreate() {
	globalManager.slotRecreates.Inc()
}

// Operational health metrics functions.

// UpdateTrackedSubjects sets the current number of active subscriptions.
func UpdateTrackedSubjects(count int) {
	globalManager.trackedSubjects.Set(float64(count))
}

// UpdateInflightSubjects sets the current number of in-flight subjects.
func UpdateInflightSubjects(count int64) {
	globalManager.inflightSubjects.Set(float64(count))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// Queue metrics functions.

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
	globalManager.queueEnqueueErrors.Inc()
}

// HTTP metrics functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error for a specific component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry serving /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
