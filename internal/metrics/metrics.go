package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "actiontracker"

// Registry owns the process collectors. Tests build their own so counts stay isolated.
type Registry struct {
	registry        *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	identityEvents  *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	resetsCleared   prometheus.Counter
	seededTemplates prometheus.Counter
}

func New() *Registry {
	registry := prometheus.NewRegistry()
	metrics := &Registry{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		identityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_events_total",
			Help:      "Identity lifecycle transitions by kind",
		}, []string{"event"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the auth rate limiter",
		}, []string{"route"}),
		resetsCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_password_resets_cleared_total",
			Help:      "Expired password reset grants removed by the sweeper",
		}),
		seededTemplates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builtin_templates_seeded_total",
			Help:      "Built-in templates created at startup",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.httpRequests,
		metrics.httpDuration,
		metrics.identityEvents,
		metrics.rateLimited,
		metrics.resetsCleared,
		metrics.seededTemplates,
	)
	return metrics
}

func (metrics *Registry) ObserveHTTPRequest(method string, route string, status int, duration time.Duration) {
	metrics.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	metrics.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (metrics *Registry) RecordIdentityEvent(event string) {
	metrics.identityEvents.WithLabelValues(event).Inc()
}

func (metrics *Registry) RecordRateLimited(route string) {
	metrics.rateLimited.WithLabelValues(route).Inc()
}

func (metrics *Registry) AddResetsCleared(count int64) {
	if count > 0 {
		metrics.resetsCleared.Add(float64(count))
	}
}

func (metrics *Registry) AddSeededTemplates(count int) {
	if count > 0 {
		metrics.seededTemplates.Add(float64(count))
	}
}

func (metrics *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{Registry: metrics.registry})
}

func (metrics *Registry) Gatherer() prometheus.Gatherer {
	return metrics.registry
}
