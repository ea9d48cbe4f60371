// Package metrics provides Prometheus metrics for the rigmatch recommendation service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by several metrics.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Oracle lookup results.
const (
	OracleHit   = "hit"
	OracleMiss  = "miss"
	OracleError = "error"
)

// Manager manages all Prometheus metrics for the rigmatch service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	rebuildBuckets   []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Recommendation Metrics
	recommendationRequests *prometheus.CounterVec
	recommendationLatency  *prometheus.HistogramVec
	candidatesScored       *prometheus.CounterVec
	recommendationsEmpty   *prometheus.CounterVec

	// Inventory Oracle Metrics
	oracleLookups      *prometheus.CounterVec
	oracleBreakerState prometheus.Gauge

	// Catalog Snapshot Metrics
	catalogComponents   *prometheus.GaugeVec
	snapshotSeq         prometheus.Gauge
	snapshotLastUnix    prometheus.Gauge
	snapshotVocabulary  prometheus.Gauge
	rebuilds            *prometheus.CounterVec
	rebuildDuration     prometheus.Histogram
	modelStoreOps       *prometheus.CounterVec
	inventoryComponents prometheus.Counter

	// Rebuild Queue Metrics
	queueSize      prometheus.Gauge
	queueCapacity  prometheus.Gauge
	queueEnqueued  prometheus.Counter
	queueDequeued  prometheus.Counter
	queueCoalesced prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
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
		namespace:        defaultNamespace,
		subsystem:        defaultSubsystem,
		histogramBuckets: defaultLatencyBuckets,
		rebuildBuckets:   defaultRebuildBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	// Recommendation Metrics
	m.recommendationRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "recommendation_requests_total",
			Help:        "Total number of recommendation queries by mode, strictness and outcome",
			ConstLabels: labels,
		},
		[]string{"mode", "strict", "outcome"},
	)

	m.recommendationLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "recommendation_latency_milliseconds",
			Help:        "Recommendation query latency in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"mode"},
	)

	m.candidatesScored = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "candidates_scored_total",
			Help:        "Total number of candidates scored",
			ConstLabels: labels,
		},
		[]string{"mode"},
	)

	m.recommendationsEmpty = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "recommendations_empty_total",
			Help:        "Queries whose candidate pool was empty",
			ConstLabels: labels,
		},
		[]string{"mode"},
	)

	// Inventory Oracle Metrics
	m.oracleLookups = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "oracle_lookups_total",
			Help:        "Inventory oracle lookups by result (hit, miss, error)",
			ConstLabels: labels,
		},
		[]string{"result"},
	)

	m.oracleBreakerState = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "oracle_breaker_state",
		Help:        "Inventory oracle circuit state (0 closed, 1 half-open, 2 open)",
		ConstLabels: labels,
	})

	// Catalog Snapshot Metrics
	m.catalogComponents = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "catalog_components",
			Help:        "Components in the current snapshot by category",
			ConstLabels: labels,
		},
		[]string{"category"},
	)

	m.snapshotSeq = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_sequence",
		Help:        "Sequence number of the published snapshot",
		ConstLabels: labels,
	})

	m.snapshotLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_last_unix",
		Help:        "Unix timestamp of the last snapshot publish",
		ConstLabels: labels,
	})

	m.snapshotVocabulary = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_vocabulary_size",
		Help:        "Number of terms in the published similarity index",
		ConstLabels: labels,
	})

	m.rebuilds = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "rebuilds_total",
			Help:        "Catalog rebuilds by reason and outcome",
			ConstLabels: labels,
		},
		[]string{"reason", "outcome"},
	)

	m.rebuildDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rebuild_duration_milliseconds",
		Help:        "Catalog rebuild duration in milliseconds",
		Buckets:     m.rebuildBuckets,
		ConstLabels: labels,
	})

	m.modelStoreOps = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "model_store_operations_total",
			Help:        "Model store loads and saves by outcome",
			ConstLabels: labels,
		},
		[]string{"op", "outcome"},
	)

	m.inventoryComponents = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "inventory_components_added_total",
		Help:        "Components inserted into the inventory",
		ConstLabels: labels,
	})

	// Rebuild Queue Metrics
	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rebuild_queue_size",
		Help:        "Pending rebuild requests",
		ConstLabels: labels,
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rebuild_queue_capacity",
		Help:        "Maximum pending rebuild requests",
		ConstLabels: labels,
	})

	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rebuild_queue_enqueue_total",
		Help:        "Rebuild requests enqueued",
		ConstLabels: labels,
	})

	m.queueDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rebuild_queue_dequeue_total",
		Help:        "Rebuild requests dequeued",
		ConstLabels: labels,
	})

	m.queueCoalesced = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rebuild_queue_coalesced_total",
		Help:        "Rebuild requests merged into an already pending one",
		ConstLabels: labels,
	})

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Error Metrics
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)
}

// Recommendation Metrics Functions.

// RecordRecommendation records one finished query.
func RecordRecommendation(mode string, strict bool, outcome string, latency time.Duration) {
	globalManager.recommendationRequests.WithLabelValues(mode, strconv.FormatBool(strict), outcome).Inc()
	globalManager.recommendationLatency.WithLabelValues(mode).Observe(float64(latency.Microseconds()) / 1000)
}

// RecordCandidatesScored adds n scored candidates for mode.
func RecordCandidatesScored(mode string, n int) {
	globalManager.candidatesScored.WithLabelValues(mode).Add(float64(n))
}

// RecordEmptyPool counts a query whose candidate pool was empty.
func RecordEmptyPool(mode string) {
	globalManager.recommendationsEmpty.WithLabelValues(mode).Inc()
}

// Inventory Oracle Metrics Functions.

// RecordOracleLookup counts one oracle lookup with result hit, miss or error.
func RecordOracleLookup(result string) {
	globalManager.oracleLookups.WithLabelValues(result).Inc()
}

// UpdateOracleBreakerState sets the circuit state gauge.
func UpdateOracleBreakerState(state int) {
	globalManager.oracleBreakerState.Set(float64(state))
}

// Catalog Snapshot Metrics Functions.

// UpdateCatalogComponents sets the component count of category.
func UpdateCatalogComponents(category string, count int) {
	globalManager.catalogComponents.WithLabelValues(category).Set(float64(count))
}

// RecordSnapshotPublished records a snapshot publish.
func RecordSnapshotPublished(seq uint64, vocabulary int, at time.Time) {
	globalManager.snapshotSeq.Set(float64(seq))
	globalManager.snapshotVocabulary.Set(float64(vocabulary))
	globalManager.snapshotLastUnix.Set(float64(at.Unix()))
}

// RecordRebuild records a finished rebuild.
func RecordRebuild(reason, outcome string, took time.Duration) {
	globalManager.rebuilds.WithLabelValues(reason, outcome).Inc()
	globalManager.rebuildDuration.Observe(float64(took.Milliseconds()))
}

// RecordModelStore counts a model store operation ("load" or "save").
func RecordModelStore(op, outcome string) {
	globalManager.modelStoreOps.WithLabelValues(op, outcome).Inc()
}

// RecordInventoryAdd counts a component inserted into the inventory.
func RecordInventoryAdd() {
	globalManager.inventoryComponents.Inc()
}

// Rebuild Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueCoalesced increments the coalesced request counter.
func RecordQueueCoalesced() {
	globalManager.queueCoalesced.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
