// Package metrics provides Prometheus metrics for script generation,
// sign-up runs and the HTTP API.
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
	// HTTPRequestsTotal counts total HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// ScriptsGeneratedTotal counts generated scripts by framework and source.
	ScriptsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scripts_generated_total",
			Help: "Total number of generated test scripts",
		},
		[]string{"framework", "source"},
	)

	// GenerationErrorsTotal counts failed generations by provider.
	GenerationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "script_generation_errors_total",
			Help: "Total number of failed script generations",
		},
		[]string{"provider"},
	)

	// GenerationDuration measures provider latency.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "script_generation_duration_seconds",
			Help:    "Script generation duration in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	// CacheHitsTotal counts generation cache hits.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMissesTotal counts generation cache misses.
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// SignupRunsTotal counts finished sign-up runs by status.
	SignupRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_runs_total",
			Help: "Total number of finished sign-up runs",
		},
		[]string{"status"},
	)

	// SignupStepDuration measures each sign-up step.
	SignupStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signup_step_duration_seconds",
			Help:    "Sign-up step duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"step"},
	)

	// ActiveBrowsers tracks open browser sessions.
	ActiveBrowsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_browser_sessions",
			Help: "Number of open browser sessions",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records an HTTP request metric.
func RecordRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGeneration records a produced script.
func RecordGeneration(framework, source string) {
	ScriptsGeneratedTotal.WithLabelValues(framework, source).Inc()
}

// RecordGenerationError records a failed provider call.
func RecordGenerationError(provider string) {
	GenerationErrorsTotal.WithLabelValues(provider).Inc()
}

// RecordGenerationDuration records provider latency.
func RecordGenerationDuration(provider string, d time.Duration) {
	GenerationDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordCacheHit records a cache hit.
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss.
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordSignupRun records a finished sign-up run.
func RecordSignupRun(status string) {
	SignupRunsTotal.WithLabelValues(status).Inc()
}

// RecordSignupStep records the duration of one step.
func RecordSignupStep(step string, d time.Duration) {
	SignupStepDuration.WithLabelValues(step).Observe(d.Seconds())
}
