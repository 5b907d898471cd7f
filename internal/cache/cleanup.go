package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Cleaner evicts search cache entries older than the search TTL. Businesses
// and reviews are never removed.
type Cleaner struct {
	store Store
	options
}

// NewCleaner creates a cleaner over store.
func NewCleaner(store Store, opts ...Option) *Cleaner {
	return &Cleaner{
		store:   usable(store),
		options: newOptions(SearchTTL, "cleanup", opts),
	}
}

// Evict removes every search key last fetched more than one TTL ago.
func (c *Cleaner) Evict(ctx context.Context) int {
	return c.EvictOlderThan(ctx, c.now().Add(-c.ttl))
}

// EvictOlderThan removes the ranks and metadata of keys last fetched before
// cutoff and returns how many keys went away. Storage errors yield 0.
func (c *Cleaner) EvictOlderThan(ctx context.Context, cutoff time.Time) int {
	n, err := c.store.EvictSearchCache(ctx, cutoff)
	if err != nil {
		c.logger.Error("evict search cache failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0
	}
	c.metrics.Evicted(n)
	if n > 0 {
		c.logger.Info("evicted search cache entries", zap.Int("count", n), zap.Time("cutoff", cutoff))
	}
	return n
}
