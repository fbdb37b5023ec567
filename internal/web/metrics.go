package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movli_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movli_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// WatchlistOperations counts store operations by outcome: ok, not_found, duplicate, error.
	WatchlistOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movli_watchlist_operations_total",
			Help: "Total number of watchlist operations by type and outcome",
		},
		[]string{"operation", "outcome"},
	)

	AuthFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movli_auth_failures_total",
			Help: "Total number of rejected bearer tokens",
		},
	)

	ChatReplies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movli_chat_replies_total",
			Help: "Total number of assistant replies",
		},
	)
)

// instrument records request counts and durations labelled by chi route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
