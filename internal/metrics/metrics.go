// Package metrics exposes Prometheus collectors for the HTTP surface and the
// order lifecycle.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "laundry_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "laundry_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "laundry_orders_created_total",
		Help: "Orders placed through the web form.",
	})

	statusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "laundry_order_status_changes_total",
		Help: "Order status transitions by target status.",
	}, []string{"status"})
)

func OrderCreated() { ordersCreated.Inc() }

func StatusChanged(status string) { statusChanges.WithLabelValues(status).Inc() }

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records count and latency per route pattern. It must wrap the
// ServeMux directly so the matched pattern is visible after ServeHTTP.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
