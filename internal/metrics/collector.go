// Package metrics exposes Prometheus counters and histograms for the place
// cache, the provider client and the HTTP layer. All methods are safe on a nil
// *Collector so components can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache tiers.
const (
	TierSearch = "search"
	TierDetail = "detail"
)

// Collector holds all Prometheus metrics for the application.
type Collector struct {
	registry *prometheus.Registry

	CacheHits         *prometheus.CounterVec
	CacheMisses       *prometheus.CounterVec
	CacheSaveFailures *prometheus.CounterVec
	CacheEvictions    prometheus.Counter

	ProviderCalls    *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a collector registered on its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache lookups served from storage.",
		}, []string{"tier"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache lookups that fell through to the provider.",
		}, []string{"tier"}),
		CacheSaveFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_save_failures_total",
			Help:      "Best-effort cache writes that failed.",
		}, []string{"tier"}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Search keys removed by the cleanup job.",
		}),
		ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Calls to the external places provider.",
		}, []string{"endpoint", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_seconds",
			Help:      "Latency of external places provider calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		c.CacheHits,
		c.CacheMisses,
		c.CacheSaveFailures,
		c.CacheEvictions,
		c.ProviderCalls,
		c.ProviderDuration,
		c.HTTPRequests,
		c.HTTPDuration,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// CacheHit counts a lookup served from storage.
func (c *Collector) CacheHit(tier string) {
	if c != nil {
		c.CacheHits.WithLabelValues(tier).Inc()
	}
}

// CacheMiss counts a lookup that fell through to the provider.
func (c *Collector) CacheMiss(tier string) {
	if c != nil {
		c.CacheMisses.WithLabelValues(tier).Inc()
	}
}

// CacheSaveFailed counts a dropped best-effort write.
func (c *Collector) CacheSaveFailed(tier string) {
	if c != nil {
		c.CacheSaveFailures.WithLabelValues(tier).Inc()
	}
}

// Evicted adds n removed search keys.
func (c *Collector) Evicted(n int) {
	if c != nil && n > 0 {
		c.CacheEvictions.Add(float64(n))
	}
}

// ProviderCall records one provider round trip.
func (c *Collector) ProviderCall(endpoint, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.ProviderCalls.WithLabelValues(endpoint, outcome).Inc()
	c.ProviderDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// HTTPRequest records one served request.
func (c *Collector) HTTPRequest(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
