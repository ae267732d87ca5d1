// Package metrics provides Prometheus metrics for the ntag event pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tagging counter kinds.
const (
	CountTrueElectrons   = "true_e"
	CountTaggedElectrons = "tagged_e"
	CountTrueNeutrons    = "true_n"
	CountTaggedNeutrons  = "tagged_n"
)

// Manager owns every ntag metric.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Event flow
	eventsProcessed prometheus.Counter
	eventsFailed    prometheus.Counter
	eventsDuplicate prometheus.Counter
	eventLatency    prometheus.Histogram

	// Candidates
	candidatesFound     *prometheus.CounterVec
	candidatesPruned    prometheus.Counter
	candidatesDiscarded prometheus.Counter
	labels              *prometheus.CounterVec
	taggingCounts       *prometheus.CounterVec
	extractionLatency   prometheus.Histogram
	vertexFitLatency    prometheus.Histogram

	// Noise overlay
	noiseParts prometheus.Counter

	// Results
	resultsStored prometheus.Gauge

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	errorsByComponent *prometheus.CounterVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ntag",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.eventsProcessed = auto.NewCounter(m.counterOpts("events_processed_total", "Events processed without error"))
	m.eventsFailed = auto.NewCounter(m.counterOpts("events_failed_total", "Events that failed in a collaborator"))
	m.eventsDuplicate = auto.NewCounter(m.counterOpts("events_duplicate_total", "Events skipped as already submitted"))
	m.eventLatency = auto.NewHistogram(m.histogramOpts("event_latency_milliseconds", "Per-event processing latency"))

	m.candidatesFound = auto.NewCounterVec(m.counterOpts("candidates_found_total", "Candidates kept after extraction"), []string{"cluster"})
	m.candidatesPruned = auto.NewCounter(m.counterOpts("candidates_pruned_total", "Delayed candidates removed near early electrons"))
	m.candidatesDiscarded = auto.NewCounter(m.counterOpts("candidates_discarded_total", "Peaks dropped for an empty feature window"))
	m.labels = auto.NewCounterVec(m.counterOpts("labels_total", "Candidates by ground-truth label"), []string{"cluster", "label"})
	m.taggingCounts = auto.NewCounterVec(m.counterOpts("tagging_counts_total", "True and tagged electron and neutron counts"), []string{"kind"})
	m.extractionLatency = auto.NewHistogram(m.histogramOpts("extraction_latency_milliseconds", "Feature extraction latency per candidate"))
	m.vertexFitLatency = auto.NewHistogram(m.histogramOpts("vertex_fit_latency_milliseconds", "Vertex fit latency per candidate"))

	m.noiseParts = auto.NewCounter(m.counterOpts("noise_parts_total", "Noise parts overlaid onto events"))
	m.resultsStored = auto.NewGauge(m.gaugeOpts("results_stored", "Event results held in the repository"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the event queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size / capacity"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Events enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Events dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Failed enqueues"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers currently processing an event"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds", "Worker time per event including hand-off"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Worker errors"))

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Errors by component and kind"), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	gc := m.histogramOpts("system_gc_pause_time_milliseconds", "Average GC pause time")
	gc.Buckets = []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}
	m.systemGCPauseTime = auto.NewHistogram(gc)
}

// RecordEventProcessed increments the processed events counter.
func RecordEventProcessed() { globalManager.eventsProcessed.Inc() }

// RecordEventFailed increments the failed events counter.
func RecordEventFailed() { globalManager.eventsFailed.Inc() }

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() { globalManager.eventsDuplicate.Inc() }

// RecordEventLatency records per-event latency in milliseconds.
func RecordEventLatency(ms float64) { globalManager.eventLatency.Observe(ms) }

// RecordCandidates adds n candidates kept in cluster.
func RecordCandidates(cluster string, n int) {
	globalManager.candidatesFound.WithLabelValues(cluster).Add(float64(n))
}

// RecordCandidatesPruned adds n pruned delayed candidates.
func RecordCandidatesPruned(n int) { globalManager.candidatesPruned.Add(float64(n)) }

// RecordCandidateDiscarded counts one peak dropped for an empty window.
func RecordCandidateDiscarded() { globalManager.candidatesDiscarded.Inc() }

// RecordLabel counts one candidate label in cluster.
func RecordLabel(cluster, label string) {
	globalManager.labels.WithLabelValues(cluster, label).Inc()
}

// RecordTaggingCounts adds per-event counters.
func RecordTaggingCounts(trueE, taggedE, trueN, taggedN int) {
	globalManager.taggingCounts.WithLabelValues(CountTrueElectrons).Add(float64(trueE))
	globalManager.taggingCounts.WithLabelValues(CountTaggedElectrons).Add(float64(taggedE))
	globalManager.taggingCounts.WithLabelValues(CountTrueNeutrons).Add(float64(trueN))
	globalManager.taggingCounts.WithLabelValues(CountTaggedNeutrons).Add(float64(taggedN))
}

// RecordExtractionLatency records feature extraction latency in milliseconds.
func RecordExtractionLatency(ms float64) { globalManager.extractionLatency.Observe(ms) }

// RecordVertexFitLatency records vertex fit latency in milliseconds.
func RecordVertexFitLatency(ms float64) { globalManager.vertexFitLatency.Observe(ms) }

// RecordNoisePart counts one overlaid noise part.
func RecordNoisePart() { globalManager.noiseParts.Inc() }

// UpdateResultsStored sets the number of stored results.
func UpdateResultsStored(n int) { globalManager.resultsStored.Set(float64(n)) }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueueRate.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeueRate.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// AddWorkerActive moves the active worker gauge by delta.
func AddWorkerActive(delta int) { globalManager.workerActiveCount.Add(float64(delta)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(ms float64) { globalManager.workerProcessingLatency.Observe(ms) }

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap bytes in use.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records an average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
