package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/renderinc/prolocator/internal/metrics"
	"github.com/renderinc/prolocator/internal/places"
	"github.com/renderinc/prolocator/internal/storage"
)

// SearchEntry is one freshly fetched search to persist.
type SearchEntry struct {
	Category string
	Location string
	Metro    string
	Places   []places.Place // provider order
}

// SearchMeta describes a cached search.
type SearchMeta struct {
	Metro    string
	Count    int
	CachedAt time.Time
}

// SearchHit is a search served from storage.
type SearchHit struct {
	Places []places.Place
	Meta   SearchMeta
}

// SearchCache maps a search key to an ordered list of places.
type SearchCache struct {
	store Store
	options
}

// NewSearchCache creates a search cache over store. A nil or unavailable store
// turns every read into a miss and every write into a no-op.
func NewSearchCache(store Store, opts ...Option) *SearchCache {
	return &SearchCache{
		store:   usable(store),
		options: newOptions(SearchTTL, "search_cache", opts),
	}
}

// ShouldRefresh reports whether key must be fetched from the provider.
func (c *SearchCache) ShouldRefresh(ctx context.Context, key string) bool {
	entry, err := c.store.GetSearchCache(ctx, key)
	if err != nil {
		c.logger.Warn("check search cache failed", zap.String("key", key), zap.Error(err))
		return true
	}
	if entry == nil {
		return true
	}
	return IsStale(&entry.LastFetchedAt, c.ttl, c.now())
}

// Get returns the places cached under key in rank order. Empty result sets are
// never served. Every call records the read against the key's metadata.
func (c *SearchCache) Get(ctx context.Context, key string) (*SearchHit, bool) {
	if err := c.store.TouchSearchCache(ctx, key, c.now()); err != nil {
		c.logger.Debug("touch search cache failed", zap.String("key", key), zap.Error(err))
	}

	rows, err := c.store.ListSearchResults(ctx, key)
	if err != nil {
		c.logger.Warn("read search results failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if len(rows) == 0 {
		return nil, false
	}

	hit := &SearchHit{Places: make([]places.Place, 0, len(rows))}
	for _, row := range rows {
		p, err := FromBusiness(row)
		if err != nil {
			c.logger.Warn("malformed cached business", zap.String("key", key), zap.Error(err))
			return nil, false
		}
		hit.Places = append(hit.Places, p)
	}
	hit.Meta.Count = len(hit.Places)

	entry, err := c.store.GetSearchCache(ctx, key)
	if err != nil {
		c.logger.Warn("read search metadata failed", zap.String("key", key), zap.Error(err))
	} else if entry != nil {
		hit.Meta.Metro = entry.Metro
		hit.Meta.CachedAt = entry.LastFetchedAt
	}
	return hit, true
}

// Save persists a fresh search under key. It is best-effort: failures are
// logged and never reach the caller.
func (c *SearchCache) Save(ctx context.Context, key string, entry SearchEntry) {
	snap := storage.SearchSnapshot{
		Key:        key,
		Category:   entry.Category,
		Location:   entry.Location,
		Metro:      entry.Metro,
		Businesses: make([]storage.Business, 0, len(entry.Places)),
		FetchedAt:  c.now(),
	}
	for _, p := range entry.Places {
		b, err := ToBusiness(p)
		if err != nil {
			c.saveFailed(key, err)
			return
		}
		snap.Businesses = append(snap.Businesses, b)
	}

	if err := c.store.SaveSearch(ctx, snap); err != nil {
		c.saveFailed(key, err)
		return
	}
	c.logger.Info("saved search results", zap.String("key", key), zap.Int("count", len(snap.Businesses)))
}

func (c *SearchCache) saveFailed(key string, err error) {
	c.metrics.CacheSaveFailed(metrics.TierSearch)
	c.logger.Error("save search results failed (non-fatal)", zap.String("key", key), zap.Error(err))
}
