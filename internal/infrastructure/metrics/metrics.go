// Package metrics provides Prometheus metrics for a running load test.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "intellab_loadtest"

var (
	// RequestsTotal counts HTTP requests issued by the run.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests issued",
		},
		[]string{"endpoint", "code"},
	)

	// RequestDuration measures request latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	// HandshakesTotal counts login handshakes by outcome.
	HandshakesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_handshakes_total",
			Help:      "Total number of login handshakes by outcome",
		},
		[]string{"outcome"},
	)

	// CacheHitsTotal counts iterations served from the auth cache.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_cache_hits_total",
			Help:      "Total number of auth cache hits",
		},
	)

	// IterationsTotal counts workload iterations.
	IterationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iterations_total",
			Help:      "Total number of iterations by result",
		},
		[]string{"result"},
	)

	// ChecksTotal counts check evaluations.
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Total number of check evaluations by result",
		},
		[]string{"check", "result"},
	)

	// TargetVUs reports the virtual users the current stage asks for.
	TargetVUs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_vus",
			Help:      "Virtual users targeted by the current stage",
		},
	)
)

// RecordRequest records one HTTP request.
func RecordRequest(endpoint string, code uint16, latency time.Duration) {
	RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(int(code))).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(latency.Seconds())
}

// RecordHandshake records a handshake outcome.
func RecordHandshake(outcome string) {
	HandshakesTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheHit records an auth cache hit.
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordIteration records a completed or skipped iteration.
func RecordIteration(skipped bool) {
	result := "completed"
	if skipped {
		result = "skipped"
	}
	IterationsTotal.WithLabelValues(result).Inc()
}

// RecordCheck records one check evaluation.
func RecordCheck(name string, passed bool) {
	result := "fail"
	if passed {
		result = "pass"
	}
	ChecksTotal.WithLabelValues(name, result).Inc()
}

// SetTargetVUs sets the current target VU gauge.
func SetTargetVUs(vus float64) {
	TargetVUs.Set(vus)
}
