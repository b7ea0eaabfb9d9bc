// Package metrics provides Prometheus metrics for the blog backend.
// Metrics are grouped by concern: HTTP requests, post cache and post views.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rpupo63/meetup-site-backend/errs"
)

const (
	namespace = "meetup_blog"
)

var (
	// HTTP metrics - track request volume and latency
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// Cache metrics - lookups by slug
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Post cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	CacheInvalidationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidation_failures_total",
			Help:      "Cache deletes that failed after a successful store write",
		},
	)

	// View metrics - best-effort counter increments
	ViewIncrementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "posts",
			Name:      "view_increments_total",
			Help:      "Background view-count increments by outcome (ok, failed)",
		},
		[]string{"outcome"},
	)

	// Store metrics - latency of storage port calls
	StoreCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "call_duration_seconds",
			Help:      "Post store call duration in seconds by operation and outcome",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation", "outcome"},
	)
)

// RecordCacheLookup records a cache lookup result
func RecordCacheLookup(result string) {
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordViewIncrement records the outcome of a background view increment
func RecordViewIncrement(err error) {
	if err != nil {
		ViewIncrementsTotal.WithLabelValues("failed").Inc()
		return
	}
	ViewIncrementsTotal.WithLabelValues("ok").Inc()
}

// RecordStoreCall records how long a store operation took. Not-found and conflict
// answers are the store working as intended and get their own outcomes.
func RecordStoreCall(operation string, seconds float64, err error) {
	StoreCallDuration.WithLabelValues(operation, storeOutcome(err)).Observe(seconds)
}

func storeOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errs.IsNotFound(err):
		return "not_found"
	case errs.IsConflict(err):
		return "conflict"
	default:
		return "error"
	}
}
