// Package metrics provides Prometheus metrics for the rollcall attendance service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for attendance attempts.
const (
	OutcomeAccepted   = "accepted"
	OutcomeSuppressed = "suppressed"
	OutcomeUnmatched  = "unmatched"
	OutcomeInvalid    = "invalid"
)

// Manager manages all Prometheus metrics for the rollcall service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	distanceBuckets  []float64
	registry         prometheus.Registerer

	// Matching and attendance
	attempts      *prometheus.CounterVec
	matchDistance prometheus.Histogram
	matchLatency  prometheus.Histogram

	// Gallery
	enrollments  prometheus.Counter
	enrollErrors *prometheus.CounterVec
	gallerySize  prometheus.Gauge

	// Cooldown
	cooldownEntries   prometheus.Gauge
	cooldownEvictions prometheus.Counter

	// Delivery to the persistence collaborator
	deliveryFailures  prometheus.Counter
	redelivered       prometheus.Counter
	pendingDeliveries prometheus.Gauge
	pendingCapacity   prometheus.Gauge
	pendingDropped    prometheus.Counter
	repositoryLatency *prometheus.HistogramVec
	errorsByComponent *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
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

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rollcall",
		subsystem:        "attendance",
		histogramBuckets: prometheus.DefBuckets,
		distanceBuckets:  []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 1, 1.5, 2},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.attempts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "attempts_total",
		Help:      "Attendance attempts by outcome",
	}, []string{"outcome"})

	m.matchDistance = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_distance",
		Help:      "Distance of the best candidate for matched attempts",
		Buckets:   m.distanceBuckets,
	})

	m.matchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_latency_milliseconds",
		Help:      "Time spent searching the gallery in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.enrollments = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enrollments_total",
		Help:      "Total number of successful enrollments",
	})

	m.enrollErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enroll_errors_total",
		Help:      "Rejected or failed enrollments by reason",
	}, []string{"reason"})

	m.gallerySize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "gallery_size",
		Help:      "Number of enrolled identities",
	})

	m.cooldownEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cooldown_entries",
		Help:      "Identities currently tracked by the cooldown cache",
	})

	m.cooldownEvictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cooldown_evictions_total",
		Help:      "Cooldown entries evicted after their window elapsed",
	})

	m.deliveryFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "delivery_failures_total",
		Help:      "Accepted attendance events whose durable write failed",
	})

	m.redelivered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "redelivered_total",
		Help:      "Parked attendance events delivered by an operator redelivery",
	})

	m.pendingDeliveries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pending_deliveries",
		Help:      "Attendance events waiting for redelivery",
	})

	m.pendingCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pending_capacity",
		Help:      "Capacity of the pending delivery queue",
	})

	m.pendingDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pending_dropped_total",
		Help:      "Attendance events that could not be parked because the pending queue was full",
	})

	m.repositoryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_latency_milliseconds",
		Help:      "Repository operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"operation"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Total number of errors by component",
	}, []string{"component", "error_type"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_endpoint_total",
		Help:      "Total number of errors by endpoint",
	}, []string{"endpoint", "method", "error_type"})

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

// RecordAttempt counts one attendance attempt with the given outcome label.
func RecordAttempt(outcome string) {
	globalManager.attempts.WithLabelValues(outcome).Inc()
}

// RecordMatchDistance observes the distance of a matched candidate.
func RecordMatchDistance(distance float64) {
	globalManager.matchDistance.Observe(distance)
}

// RecordMatchLatency records gallery search latency in milliseconds.
func RecordMatchLatency(latencyMs float64) {
	globalManager.matchLatency.Observe(latencyMs)
}

// RecordEnrollment increments the enrollment counter.
func RecordEnrollment() {
	globalManager.enrollments.Inc()
}

// RecordEnrollError counts a rejected or failed enrollment.
func RecordEnrollError(reason string) {
	globalManager.enrollErrors.WithLabelValues(reason).Inc()
}

// UpdateGallerySize sets the number of enrolled identities.
func UpdateGallerySize(size int) {
	globalManager.gallerySize.Set(float64(size))
}

// UpdateCooldownEntries sets the number of tracked cooldown entries.
func UpdateCooldownEntries(count int) {
	globalManager.cooldownEntries.Set(float64(count))
}

// RecordCooldownEvictions adds n evicted cooldown entries.
func RecordCooldownEvictions(n int) {
	if n > 0 {
		globalManager.cooldownEvictions.Add(float64(n))
	}
}

// RecordDeliveryFailure counts an attendance event whose write failed.
func RecordDeliveryFailure() {
	globalManager.deliveryFailures.Inc()
}

// RecordRedelivered adds n events delivered by redelivery.
func RecordRedelivered(n int) {
	if n > 0 {
		globalManager.redelivered.Add(float64(n))
	}
}

// UpdatePendingDeliveries sets the pending delivery queue length.
func UpdatePendingDeliveries(size int) {
	globalManager.pendingDeliveries.Set(float64(size))
}

// UpdatePendingCapacity sets the pending delivery queue capacity.
func UpdatePendingCapacity(capacity int) {
	globalManager.pendingCapacity.Set(float64(capacity))
}

// RecordPendingDropped counts an event the pending queue could not hold.
func RecordPendingDropped() {
	globalManager.pendingDropped.Inc()
}

// RecordRepositoryLatency records repository operation latency.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordErrorByComponent records an error for a specific component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error for a specific endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the current memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the current goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
