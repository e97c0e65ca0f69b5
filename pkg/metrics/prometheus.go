// Package metrics provides Prometheus metrics for the gaze focus engine.
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

// Latency buckets in milliseconds tuned for a per-frame tick (sub-ms to a frame)
// and for calibration calls (hundreds of ms to seconds).
var (
	tickBuckets        = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 33}
	calibrationBuckets = []float64{10, 50, 100, 175, 300, 500, 1000, 2000, 3000, 5000}
)

// Manager manages all Prometheus metrics for the gaze focus engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Tick pipeline
	ticks            prometheus.Counter
	tickLatency      prometheus.Histogram
	tickFailures     *prometheus.CounterVec
	candidatesLive   prometheus.Gauge
	candidatesAdded  prometheus.Counter
	evictions        *prometheus.CounterVec
	raysCast         prometheus.Counter
	zeroBounds       prometheus.Counter
	focusChanges     *prometheus.CounterVec
	focusedScore     prometheus.Gauge
	focusEventsDrops prometheus.Counter

	// Focus journal
	journalQueueDepth prometheus.Gauge
	journalObjects    prometheus.Gauge

	// Calibration worker
	calibrationCommands *prometheus.CounterVec
	calibrationLatency  *prometheus.HistogramVec
	calibrationRejected prometheus.Counter
	calibrationRunning  prometheus.Gauge
	calibrationStopped  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gazefocus",
		subsystem:        "engine",
		histogramBuckets: tickBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.ticks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("ticks_total"),
		Help: "Total number of completed discovery and scoring ticks",
	})
	m.tickLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name:    m.name("tick_latency_milliseconds"),
		Help:    "Wall time spent inside one tick in milliseconds",
		Buckets: m.histogramBuckets,
	})
	m.tickFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("tick_failures_total"),
		Help: "Ticks whose score update was skipped, by stage",
	}, []string{"stage"})
	m.candidatesLive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("candidates_live"),
		Help: "Candidates held by the registry after eviction",
	})
	m.candidatesAdded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("candidates_added_total"),
		Help: "Candidates discovered for the first time",
	})
	m.evictions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("candidate_evictions_total"),
		Help: "Candidates removed from the registry, by reason",
	}, []string{"reason"})
	m.raysCast = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("search_rays_cast_total"),
		Help: "Search-pattern rays cast into the scene",
	})
	m.zeroBounds = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("zero_bounds_total"),
		Help: "Candidates that fell back to zero-size bounds",
	})
	m.focusChanges = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("focus_changes_total"),
		Help: "Focus notifications fired, by direction",
	}, []string{"direction"})
	m.focusedScore = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("focused_score"),
		Help: "Score of the currently focused candidate, 0 when nothing is focused",
	})
	m.focusEventsDrops = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("focus_events_dropped_total"),
		Help: "Focus events dropped because the journal queue was full",
	})
	m.journalQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "journal", ConstLabels: constLabels,
		Name: m.name("queue_depth"),
		Help: "Focus events waiting for the journal worker",
	})
	m.journalObjects = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "journal", ConstLabels: constLabels,
		Name: m.name("objects"),
		Help: "Distinct objects that have held focus",
	})

	m.calibrationCommands = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "calibration", ConstLabels: constLabels,
		Name: m.name("commands_total"),
		Help: "Calibration commands completed, by command and status",
	}, []string{"command", "status"})
	m.calibrationLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "calibration", ConstLabels: constLabels,
		Name:    m.name("command_latency_milliseconds"),
		Help:    "Blocking calibration call duration in milliseconds",
		Buckets: calibrationBuckets,
	}, []string{"command"})
	m.calibrationRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "calibration", ConstLabels: constLabels,
		Name: m.name("commands_rejected_total"),
		Help: "Commands rejected because another command was in flight",
	})
	m.calibrationRunning = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "calibration", ConstLabels: constLabels,
		Name: m.name("worker_running"),
		Help: "1 while a calibration worker is running",
	})
	m.calibrationStopped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "calibration", ConstLabels: constLabels,
		Name: m.name("worker_stops_total"),
		Help: "Calibration worker stops, by outcome",
	}, []string{"outcome"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", ConstLabels: constLabels,
		Name: m.name("requests_total"),
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http", ConstLabels: constLabels,
		Name:    m.name("request_duration_milliseconds"),
		Help:    "HTTP request duration in milliseconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("errors_by_component_total"),
		Help: "Errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: constLabels,
		Name: m.name("memory_usage_bytes"),
		Help: "Current heap allocation in bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: constLabels,
		Name: m.name("goroutines"),
		Help: "Current number of goroutines",
	})
}

// Enabled reports whether recording is on.
func (m *Manager) Enabled() bool { return m.enabled }

// Tick pipeline functions.

// RecordTick records a completed tick and its latency.
func RecordTick(latency time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.ticks.Inc()
	globalManager.tickLatency.Observe(float64(latency.Microseconds()) / 1000)
}

// RecordTickFailure records a tick whose score update was skipped.
func RecordTickFailure(stage string) {
	globalManager.tickFailures.WithLabelValues(stage).Inc()
	globalManager.errorRateByComponent.WithLabelValues("tracker", stage).Inc()
}

// UpdateCandidatesLive sets the number of live candidates.
func UpdateCandidatesLive(n int) {
	globalManager.candidatesLive.Set(float64(n))
}

// RecordCandidateAdded increments the new-candidate counter.
func RecordCandidateAdded() {
	globalManager.candidatesAdded.Inc()
}

// RecordEviction records candidates evicted for reason (stale, dead, capacity).
func RecordEviction(reason string, n int) {
	if n <= 0 {
		return
	}
	globalManager.evictions.WithLabelValues(reason).Add(float64(n))
}

// RecordRaysCast adds n search rays.
func RecordRaysCast(n int) {
	if n <= 0 {
		return
	}
	globalManager.raysCast.Add(float64(n))
}

// RecordZeroBounds increments the degraded-geometry counter.
func RecordZeroBounds() {
	globalManager.zeroBounds.Inc()
}

// RecordFocusChange records a focus notification.
func RecordFocusChange(hasFocus bool) {
	dir := "lost"
	if hasFocus {
		dir = "gained"
	}
	globalManager.focusChanges.WithLabelValues(dir).Inc()
}

// UpdateFocusedScore sets the current focused score.
func UpdateFocusedScore(score float64) {
	globalManager.focusedScore.Set(score)
}

// RecordFocusEventDropped increments the dropped focus event counter.
func RecordFocusEventDropped() {
	globalManager.focusEventsDrops.Inc()
}

// UpdateJournalQueueDepth sets the number of queued focus events.
func UpdateJournalQueueDepth(n int) {
	globalManager.journalQueueDepth.Set(float64(n))
}

// UpdateJournalObjects sets the number of objects in the focus journal.
func UpdateJournalObjects(n int) {
	globalManager.journalObjects.Set(float64(n))
}

// Calibration functions.

// RecordCalibrationCommand records a finished calibration command.
func RecordCalibrationCommand(command, status string, elapsed time.Duration) {
	globalManager.calibrationCommands.WithLabelValues(command, status).Inc()
	if elapsed >= 0 {
		globalManager.calibrationLatency.WithLabelValues(command).Observe(float64(elapsed.Milliseconds()))
	}
}

// RecordCalibrationRejected increments the rejected command counter.
func RecordCalibrationRejected() {
	globalManager.calibrationRejected.Inc()
}

// UpdateCalibrationRunning sets the worker running gauge.
func UpdateCalibrationRunning(running bool) {
	v := 0.0
	if running {
		v = 1
	}
	globalManager.calibrationRunning.Set(v)
}

// RecordCalibrationStop records a worker stop (joined, timeout).
func RecordCalibrationStop(outcome string) {
	globalManager.calibrationStopped.WithLabelValues(outcome).Inc()
}

// HTTP functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System functions.

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
