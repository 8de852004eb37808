// Package metrics is the Prometheus observability surface named in
// SPEC_FULL §3.4 / §4.8 (C12): counters for processed/blocked/
// rate-limited content, histograms for per-tier processing time, and a
// gauge for review-queue depth by priority, on top of the teacher's own
// HTTP request metrics and registry wiring.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ContentProcessedTotal counts every content/message the engine has
	// taken a terminal decision on, labelled by flow and decision.
	ContentProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modsentry_content_processed_total",
			Help: "Total content/messages processed, by flow and decision.",
		},
		[]string{"flow", "decision"},
	)

	// RateLimitedTotal counts Flow B messages rejected for exceeding a
	// user's rate limit, whether or not another rule also fired.
	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modsentry_rate_limited_total",
			Help: "Total messages rejected for exceeding the per-user rate limit.",
		},
		[]string{"channel"},
	)

	// TierProcessingSeconds is the per-tier latency histogram spec.md
	// §6 names as part of the observability surface.
	TierProcessingSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modsentry_tier_processing_seconds",
			Help:    "Processing time per moderation tier.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
		[]string{"tier"},
	)

	// ReviewQueueDepth is the review-queue gauge by priority.
	ReviewQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "modsentry_review_queue_depth",
			Help: "Number of pending review tasks, by priority.",
		},
		[]string{"priority"},
	)
)

var initMetricsOnce sync.Once
var registry *prometheus.Registry

// InitMetrics initializes and registers Prometheus metrics.
func InitMetrics() *prometheus.Registry {
	initMetricsOnce.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(httpRequestsTotal)
		registry.MustRegister(httpRequestDurationSeconds)
		registry.MustRegister(ContentProcessedTotal)
		registry.MustRegister(RateLimitedTotal)
		registry.MustRegister(TierProcessingSeconds)
		registry.MustRegister(ReviewQueueDepth)

		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		log.Info().Msg("Prometheus metrics initialized.")
	})
	return registry
}

// MetricsHandler returns an http.Handler that serves Prometheus metrics.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// HTTPMetricsMiddleware collects HTTP request metrics.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lw, r)

		duration := time.Since(start).Seconds()
		method := r.Method
		path := r.URL.Path
		status := strconv.Itoa(lw.statusCode)

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDurationSeconds.WithLabelValues(method, path).Observe(duration)
	})
}

// loggingResponseWriter is a wrapper to capture the HTTP status code.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
