package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reportforge"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds every collector the service exports.
// All methods are safe on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	generationsTotal *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	documentBytes    *prometheus.HistogramVec
	filesDeleted     prometheus.Counter
	renderRetries    prometheus.Counter
	httpRequests     *prometheus.CounterVec
	rateLimited      prometheus.Counter
}

// NewMetrics creates and registers all collectors in a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Document generations by variant and outcome",
		},
		[]string{"variant", "outcome", "kind"},
	)
	m.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage", "variant", "outcome"},
	)
	m.documentBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_bytes",
			Help:      "Size of generated PDF documents",
			Buckets:   prometheus.ExponentialBuckets(16*1024, 2, 10),
		},
		[]string{"variant"},
	)
	m.filesDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_deleted_total",
		Help:      "Generated documents removed from the file store",
	})
	m.renderRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "render_retries_total",
		Help:      "Pipeline re-runs after a renderer failure",
	})
	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Gateway requests by route and status code",
		},
		[]string{"route", "code"},
	)
	m.rateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Generation requests rejected by the rate limiter",
	})

	m.registry.MustRegister(
		m.generationsTotal,
		m.stageDuration,
		m.documentBytes,
		m.filesDeleted,
		m.renderRetries,
		m.httpRequests,
		m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveStage records the duration of a pipeline stage.
func (m *Metrics) ObserveStage(stage, variant string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, variant, outcome(err)).Observe(d.Seconds())
}

// ObserveGeneration counts a finished generation. kind is the error kind,
// or "" on success.
func (m *Metrics) ObserveGeneration(variant, kind string, err error) {
	if m == nil {
		return
	}
	m.generationsTotal.WithLabelValues(variant, outcome(err), kind).Inc()
}

// ObserveDocument records the size of an emitted document.
func (m *Metrics) ObserveDocument(variant string, size int) {
	if m == nil {
		return
	}
	m.documentBytes.WithLabelValues(variant).Observe(float64(size))
}

// IncFilesDeleted counts a removed document.
func (m *Metrics) IncFilesDeleted() {
	if m == nil {
		return
	}
	m.filesDeleted.Inc()
}

// IncRenderRetries counts a pipeline re-run.
func (m *Metrics) IncRenderRetries() {
	if m == nil {
		return
	}
	m.renderRetries.Inc()
}

// ObserveHTTP counts a gateway response.
func (m *Metrics) ObserveHTTP(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// IncRateLimited counts a throttled request.
func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
