// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoicer_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "invoicer_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoicer_events_dropped_total",
		Help: "Change events dropped because a subscriber buffer was full.",
	}, []string{"subscriber"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoicer_report_cache_lookups_total",
		Help: "Report cache lookups by result (hit or miss).",
	}, []string{"result"})

	AMQPPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoicer_amqp_publish_failures_total",
		Help: "Change messages that could not be published to the broker.",
	})

	MirrorOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoicer_mirror_operations_total",
		Help: "Expense mirror operations by kind and result.",
	}, []string{"op", "result"})

	ReconcileFixes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoicer_reconcile_fixes_total",
		Help: "Denormalized counters corrected by reconciliation.",
	})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoicer_http_rate_limited_total",
		Help: "Mutating requests rejected by the per-client rate limit.",
	})

	SuspiciousRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoicer_http_suspicious_requests_total",
		Help: "Requests flagged by the security detector, by reason.",
	}, []string{"reason"})
)

// CacheHit and CacheMiss record report cache lookups.
func CacheHit()  { CacheLookups.WithLabelValues("hit").Inc() }
func CacheMiss() { CacheLookups.WithLabelValues("miss").Inc() }

// Result maps an error to the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Instrument records request count and latency under a fixed route label so
// path parameters do not blow up label cardinality.
func Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap ResponseWriter to capture status code
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes through to the underlying writer for websocket upgrades.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}
