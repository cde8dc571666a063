// Package telemetry exposes Prometheus metrics for the sync service.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// --- CUSTOM METRIC DEFINITIONS ---

var (
	webhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projectsync_webhook_events_total",
			Help: "Total number of webhook deliveries, labeled by event type and outcome.",
		},
		[]string{"event", "outcome"},
	)

	upsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projectsync_remote_upserts_total",
			Help: "Total number of remote database upserts, labeled by operation.",
		},
		[]string{"operation"},
	)

	summarizerTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projectsync_summarizer_total",
			Help: "Total number of summarization attempts, labeled by stage and outcome.",
		},
		[]string{"stage", "outcome"},
	)

	upstreamRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "projectsync_upstream_request_duration_seconds",
			Help:    "Histogram of upstream API request latencies, labeled by service and operation.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"service", "operation"},
	)

	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projectsync_upstream_requests_total",
			Help: "Total number of upstream API requests, labeled by service, operation and code.",
		},
		[]string{"service", "operation", "code"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// --- HTTP HANDLER & MIDDLEWARE ---

// Handler returns the standard Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}

		ObserveHTTPRequest(r.Method, routePattern, ww.statusCode, time.Since(start))
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

// --- HELPER FUNCTIONS ---

// ObserveWebhookEvent records a webhook delivery outcome.
func ObserveWebhookEvent(event, outcome string) {
	if event == "" {
		event = "unknown"
	}
	webhookEventsTotal.WithLabelValues(event, outcome).Inc()
}

// ObserveUpsert records a remote database write ("create", "update" or "skip").
func ObserveUpsert(operation string) {
	upsertsTotal.WithLabelValues(operation).Inc()
}

// ObserveSummarizer records a summarization attempt per stage.
func ObserveSummarizer(stage, outcome string) {
	summarizerTotal.WithLabelValues(stage, outcome).Inc()
}

// ObserveUpstreamRequest records metrics for an outbound API request.
func ObserveUpstreamRequest(service, operation string, code int, duration time.Duration) {
	upstreamRequestsTotal.WithLabelValues(service, operation, strconv.Itoa(code)).Inc()
	upstreamRequestDurationSeconds.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// ObserveHTTPRequest records metrics for an inbound HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
