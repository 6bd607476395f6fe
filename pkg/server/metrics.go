package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Conversion outcome labels.
const (
	OutcomeSuccess    = "success"
	OutcomeRenderer   = "renderer_error"
	OutcomeTimeout    = "timeout"
	OutcomeIO         = "io_error"
	OutcomeValidation = "validation_error"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	conversionsTotal   *prometheus.CounterVec
	conversionDuration *prometheus.HistogramVec
	artifactBytes      *prometheus.HistogramVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	rendererUp prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a metrics instance backed by a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		conversionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chordserve_conversions_total",
				Help: "Total number of conversion sessions by format and outcome",
			},
			[]string{"format", "outcome"},
		),

		conversionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chordserve_conversion_duration_seconds",
				Help:    "Renderer session duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format"},
		),

		artifactBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chordserve_artifact_bytes",
				Help:    "Size of rendered artifacts in bytes",
				Buckets: prometheus.ExponentialBuckets(256, 4, 10),
			},
			[]string{"format"},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chordserve_http_requests_total",
				Help: "Total HTTP requests by method, path and status code",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chordserve_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		rendererUp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chordserve_renderer_up",
				Help: "Whether the chordpro executable answered the last version probe",
			},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.conversionsTotal,
		m.conversionDuration,
		m.artifactBytes,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.rendererUp,
	)

	return m
}

// RecordConversion records one finished conversion session.
func (m *Metrics) RecordConversion(format, outcome string, duration time.Duration) {
	m.conversionsTotal.WithLabelValues(format, outcome).Inc()
	m.conversionDuration.WithLabelValues(format).Observe(duration.Seconds())
}

// RecordArtifact records the size of a successfully rendered artifact.
func (m *Metrics) RecordArtifact(format string, bytes int64) {
	m.artifactBytes.WithLabelValues(format).Observe(float64(bytes))
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetRendererAvailable publishes the outcome of the last renderer probe.
func (m *Metrics) SetRendererAvailable(up bool) {
	if up {
		m.rendererUp.Set(1)
	} else {
		m.rendererUp.Set(0)
	}
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
