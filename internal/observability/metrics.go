package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate per route. Watch for: sudden drops (service down) or spikes.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per route. Watch for: p95/p99 increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// Forecast lookups by outcome. Error vs success ratio is the headline signal.
	ForecastRequestsTotal *prometheus.CounterVec

	// Forecast latency including the upstream call. Watch for: p95 > 2s.
	ForecastRequestDuration *prometheus.HistogramVec

	// Forecast requests that failed, injected demo failures included.
	FailedRequestsTotal prometheus.Counter

	// Zone cache hits and misses per cache name. Hit rate = hits/(hits+misses).
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Cache backend errors by operation and category (timeout, connection, unknown).
	CacheErrorsTotal *prometheus.CounterVec

	// Zone mirror upserts by outcome. Errors here never fail the request.
	ZoneDBUpsertsTotal *prometheus.CounterVec

	// Zone index refreshes (file load, filter, dedupe) by outcome.
	ZoneRefreshTotal *prometheus.CounterVec

	// Rate limit denials on the forecast route.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	ForecastRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecast_requests_total",
			Help: "Total number of forecast requests by outcome",
		},
		[]string{"status"},
	)
	ForecastRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forecast_request_duration_seconds",
			Help:    "Forecast request latency in seconds, upstream call included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	FailedRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "failed_requests_total",
			Help: "Total number of failed forecast requests, injected failures included",
		},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)
	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Total number of cache backend errors",
		},
		[]string{"operation", "category"},
	)
	ZoneDBUpsertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zone_db_upserts_total",
			Help: "Total number of zone mirror upsert batches by outcome",
		},
		[]string{"status"},
	)
	ZoneRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zone_refresh_total",
			Help: "Total number of zone index refreshes by outcome",
		},
		[]string{"status"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_denied_total",
			Help: "Total number of requests denied by the rate limiter",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPRequestsInFlight,
		ForecastRequestsTotal,
		ForecastRequestDuration,
		FailedRequestsTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		CacheErrorsTotal,
		ZoneDBUpsertsTotal,
		ZoneRefreshTotal,
		RateLimitDeniedTotal,
	)
}

// MetricsHandler returns the Prometheus exposition handler backed by the
// service registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
