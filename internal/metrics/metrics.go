// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "formrelay"

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Total form submissions processed.",
		},
		[]string{"form", "status"}, // status: success, partial_success, failed, not_ready, rejected
	)

	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Total WhatsApp delivery attempts.",
		},
		[]string{"status"},
	)

	readyWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ready_wait_duration_seconds",
			Help:      "Time requests spent waiting for the WhatsApp client.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	clientReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "whatsapp_ready",
			Help:      "1 once the WhatsApp client has become ready.",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status_code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// ObserveSubmission counts one processed submission.
func ObserveSubmission(form, status string) {
	submissionsTotal.WithLabelValues(form, status).Inc()
}

// ObserveDelivery counts one delivery attempt.
func ObserveDelivery(status string) {
	deliveriesTotal.WithLabelValues(status).Inc()
}

// ObserveReadyWait records how long a request waited on readiness.
func ObserveReadyWait(d time.Duration) {
	readyWaitSeconds.Observe(d.Seconds())
}

// SetReady flips the readiness gauge.
func SetReady(ready bool) {
	if ready {
		clientReady.Set(1)
		return
	}
	clientReady.Set(0)
}

// Middleware records request counts and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequestDurationSeconds.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
	})
}
