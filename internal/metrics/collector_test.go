package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.CacheHit(TierSearch)
		c.CacheMiss(TierDetail)
		c.CacheSaveFailed(TierSearch)
		c.Evicted(3)
		c.ProviderCall("textsearch", "ok", time.Millisecond)
		c.HTTPRequest("GET", "/health", "200", time.Millisecond)
	})
	assert.Nil(t, c.Registry())

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCollectorCounts(t *testing.T) {
	c := NewCollector("test")
	c.CacheHit(TierSearch)
	c.CacheHit(TierSearch)
	c.CacheMiss(TierDetail)
	c.Evicted(0)
	c.Evicted(4)
	c.ProviderCall("details", "not_found", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheHits.WithLabelValues(TierSearch)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheMisses.WithLabelValues(TierDetail)))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.CacheEvictions))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ProviderCalls.WithLabelValues("details", "not_found")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_cache_hits_total{tier="search"} 2`)
}
