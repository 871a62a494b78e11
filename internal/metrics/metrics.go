// Package metrics exposes Prometheus instrumentation for the HTTP layer, the
// stale-while-revalidate cache and the task scheduler.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dashboard/internal/cache"
)

const namespace = "dashboard"

// Collector owns a private registry so tests and multiple servers in one
// process do not collide on global state.
type Collector struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheOutcomes   *prometheus.CounterVec
	taskRuns        *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec
	rateLimited     prometheus.Counter
}

// New creates a Collector with the Go runtime and process collectors
// registered alongside the service metrics.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests.",
		}, []string{"method", "endpoint", "status_code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request duration in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "endpoint"}),
		cacheOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_fetch_total",
			Help:      "Cached fetches by resource and outcome.",
		}, []string{"resource", "outcome"}),
		taskRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_task_runs_total",
			Help:      "Scheduled task executions by type and result.",
		}, []string{"task_type", "result"}),
		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_task_duration_seconds",
			Help:      "Scheduled task execution time in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task_type"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
}

// RecordRequest implements core.MetricsCollector. endpoint is the route
// pattern, not the raw path, to keep label cardinality bounded.
func (c *Collector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	c.requests.WithLabelValues(method, endpoint, status).Inc()
	c.requestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRateLimited counts a request rejected by the rate limiter.
func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

// ObserveCache implements cache.Recorder.
func (c *Collector) ObserveCache(resource string, outcome cache.Outcome) {
	c.cacheOutcomes.WithLabelValues(resource, string(outcome)).Inc()
}

// ObserveTaskRun implements scheduler.Recorder.
func (c *Collector) ObserveTaskRun(taskType string, success bool, d time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.taskRuns.WithLabelValues(taskType, result).Inc()
	c.taskDuration.WithLabelValues(taskType).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// StatusLabel renders an HTTP status code as a metric label.
func StatusLabel(code int) string {
	return strconv.Itoa(code)
}

var _ cache.Recorder = (*Collector)(nil)
