// Package metrics provides Prometheus metrics for the quiz service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// defaultRatingBuckets spans the realistic rating range around the 800 start.
var defaultRatingBuckets = []float64{400, 600, 700, 800, 900, 1000, 1200, 1500, 2000} //nolint:gochecknoglobals // static bucket layout

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	ratingBuckets  []float64
	constLabels    map[string]string
	registry       prometheus.Registerer

	// Quiz flow
	questionsServed   *prometheus.CounterVec
	answers           *prometheus.CounterVec
	roundsStarted     *prometheus.CounterVec
	roundsCompleted   *prometheus.CounterVec
	roundsAbandoned   prometheus.Counter
	questionRebuilds  prometheus.Counter
	recencyResets     prometheus.Counter
	ratingValue       prometheus.Histogram
	activeSessions    prometheus.Gauge
	catalogItems      prometheus.Gauge
	catalogRejected   prometheus.Gauge
	viewCacheRequests *prometheus.CounterVec

	// Rating store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Prefetch queue and workers
	prefetchEnqueued  prometheus.Counter
	prefetchDropped   *prometheus.CounterVec
	prefetchQueueSize prometheus.Gauge
	prefetchFetched   *prometheus.CounterVec
	prefetchLatency   prometheus.Histogram
	prefetchWorkers   prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "kunstquiz",
		subsystem:      "engine",
		latencyBuckets: prometheus.DefBuckets,
		ratingBuckets:  defaultRatingBuckets,
		constLabels:    map[string]string{},
		registry:       prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.questionsServed = auto.NewCounterVec(m.counterOpts("questions_served_total",
		"Questions presented to players, by filter and dimension"), []string{"filter", "dimension"})
	m.answers = auto.NewCounterVec(m.counterOpts("answers_total",
		"Submitted answers by outcome"), []string{"outcome"})
	m.roundsStarted = auto.NewCounterVec(m.counterOpts("rounds_started_total",
		"Rounds started, by filter"), []string{"filter"})
	m.roundsCompleted = auto.NewCounterVec(m.counterOpts("rounds_completed_total",
		"Rounds completed, by result variant"), []string{"variant"})
	m.roundsAbandoned = auto.NewCounter(m.counterOpts("rounds_abandoned_total",
		"Rounds discarded by a filter switch or restart"))
	m.questionRebuilds = auto.NewCounter(m.counterOpts("question_rebuilds_total",
		"Questions skipped because not enough answer options existed"))
	m.recencyResets = auto.NewCounter(m.counterOpts("recency_resets_total",
		"Times the recency window was cleared because every key was recent"))
	m.ratingValue = auto.NewHistogram(m.histogramOpts("rating_value",
		"Player rating after each recorded outcome", m.ratingBuckets))
	m.activeSessions = auto.NewGauge(m.gaugeOpts("active_sessions",
		"Player sessions currently held by the service"))
	m.catalogItems = auto.NewGauge(m.gaugeOpts("catalog_items",
		"Usable items in the loaded catalog"))
	m.catalogRejected = auto.NewGauge(m.gaugeOpts("catalog_rejected_items",
		"Items dropped at load because they lacked a grouping key or dimension value"))
	m.viewCacheRequests = auto.NewCounterVec(m.counterOpts("view_cache_requests_total",
		"Filtered view lookups by cache result"), []string{"result"})

	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_latency_milliseconds",
		"Rating store operation latency in milliseconds", m.latencyBuckets), []string{"op"})
	m.storeErrors = auto.NewCounterVec(m.counterOpts("store_errors_total",
		"Rating store failures by operation"), []string{"op"})

	m.prefetchEnqueued = auto.NewCounter(m.counterOpts("prefetch_enqueued_total",
		"Asset prefetch jobs accepted by the queue"))
	m.prefetchDropped = auto.NewCounterVec(m.counterOpts("prefetch_dropped_total",
		"Asset prefetch jobs rejected by the queue"), []string{"reason"})
	m.prefetchQueueSize = auto.NewGauge(m.gaugeOpts("prefetch_queue_size",
		"Pending asset prefetch jobs"))
	m.prefetchFetched = auto.NewCounterVec(m.counterOpts("prefetch_fetched_total",
		"Asset prefetch attempts by result"), []string{"result"})
	m.prefetchLatency = auto.NewHistogram(m.histogramOpts("prefetch_latency_milliseconds",
		"Asset prefetch latency in milliseconds", m.latencyBuckets))
	m.prefetchWorkers = auto.NewGauge(m.gaugeOpts("prefetch_workers",
		"Running asset prefetch workers"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by route, method and status"), []string{"route", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.latencyBuckets), []string{"route", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes",
		"Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines",
		"Number of goroutines"))
}

// Quiz flow.

// RecordQuestionServed counts a question presented for filter and dimension.
func RecordQuestionServed(filter, dimension string) {
	globalManager.questionsServed.WithLabelValues(filter, dimension).Inc()
}

// RecordAnswer counts an answer and observes the resulting rating.
func RecordAnswer(correct bool, rating int) {
	outcome := "incorrect"
	if correct {
		outcome = "correct"
	}
	globalManager.answers.WithLabelValues(outcome).Inc()
	globalManager.ratingValue.Observe(float64(rating))
}

// RecordRoundStarted counts a round start for filter.
func RecordRoundStarted(filter string) {
	globalManager.roundsStarted.WithLabelValues(filter).Inc()
}

// RecordRoundCompleted counts a finished round; perfect rounds get their own label.
func RecordRoundCompleted(perfect bool) {
	variant := "standard"
	if perfect {
		variant = "perfect"
	}
	globalManager.roundsCompleted.WithLabelValues(variant).Inc()
}

// RecordRoundAbandoned counts a discarded in-progress round.
func RecordRoundAbandoned() {
	globalManager.roundsAbandoned.Inc()
}

// RecordQuestionRebuild counts a question skipped for lack of options.
func RecordQuestionRebuild() {
	globalManager.questionRebuilds.Inc()
}

// RecordRecencyReset counts a recency window clear.
func RecordRecencyReset() {
	globalManager.recencyResets.Inc()
}

// UpdateActiveSessions sets the active session gauge.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// UpdateCatalog sets the usable and rejected item gauges.
func UpdateCatalog(usable, rejected int) {
	globalManager.catalogItems.Set(float64(usable))
	globalManager.catalogRejected.Set(float64(rejected))
}

// RecordViewCache counts a filtered view lookup as a hit or a miss.
func RecordViewCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.viewCacheRequests.WithLabelValues(result).Inc()
}

// Rating store.

// RecordStoreLatency observes a store operation latency.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// Prefetch.

// RecordPrefetchEnqueued counts an accepted prefetch job.
func RecordPrefetchEnqueued() {
	globalManager.prefetchEnqueued.Inc()
}

// RecordPrefetchDropped counts a rejected prefetch job by reason.
func RecordPrefetchDropped(reason string) {
	globalManager.prefetchDropped.WithLabelValues(reason).Inc()
}

// UpdatePrefetchQueueSize sets the pending prefetch job gauge.
func UpdatePrefetchQueueSize(size int) {
	globalManager.prefetchQueueSize.Set(float64(size))
}

// RecordPrefetchResult counts a prefetch attempt and observes its latency.
func RecordPrefetchResult(ok bool, latencyMs float64) {
	result := "error"
	if ok {
		result = "ok"
	}
	globalManager.prefetchFetched.WithLabelValues(result).Inc()
	globalManager.prefetchLatency.Observe(latencyMs)
}

// UpdatePrefetchWorkers sets the running prefetch worker gauge.
func UpdatePrefetchWorkers(count int) {
	globalManager.prefetchWorkers.Set(float64(count))
}

// HTTP.

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(route, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(route, method, statusCode).Observe(durationMs)
}

// System.

// UpdateSystemMemoryUsage updates memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
