package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/renderinc/prolocator/internal/metrics"
	"github.com/renderinc/prolocator/internal/places"
)

// DetailHit is a place detail record served from storage.
type DetailHit struct {
	Details  places.PlaceDetails
	CachedAt time.Time
}

// DetailCache maps a place id to its extended detail record and reviews.
type DetailCache struct {
	store Store
	options
}

// NewDetailCache creates a detail cache over store.
func NewDetailCache(store Store, opts ...Option) *DetailCache {
	return &DetailCache{
		store:   usable(store),
		options: newOptions(DetailTTL, "detail_cache", opts),
	}
}

// Get returns the cached details of placeID when they were fetched within the
// detail TTL. Unreadable stored data is a miss.
func (c *DetailCache) Get(ctx context.Context, placeID string) (*DetailHit, bool) {
	b, err := c.store.GetBusiness(ctx, placeID)
	if err != nil {
		c.logger.Warn("read business failed", zap.String("place_id", placeID), zap.Error(err))
		return nil, false
	}
	if b == nil || IsStale(b.DetailsUpdatedAt, c.ttl, c.now()) {
		return nil, false
	}

	reviews, err := c.store.ListReviews(ctx, placeID)
	if err != nil {
		c.logger.Warn("read reviews failed", zap.String("place_id", placeID), zap.Error(err))
		return nil, false
	}

	details, err := FromDetails(*b, reviews)
	if err != nil {
		c.logger.Warn("malformed cached details", zap.String("place_id", placeID), zap.Error(err))
		return nil, false
	}
	return &DetailHit{Details: details, CachedAt: *b.DetailsUpdatedAt}, true
}

// Save persists a fresh detail payload for placeID, replacing the stored
// reviews when the payload carries any. Failures are logged and swallowed.
func (c *DetailCache) Save(ctx context.Context, placeID string, details places.PlaceDetails) {
	snap, err := ToDetailSnapshot(placeID, details, c.now())
	if err != nil {
		c.saveFailed(placeID, err)
		return
	}
	if err := c.store.SaveDetails(ctx, snap); err != nil {
		c.saveFailed(placeID, err)
		return
	}
	c.logger.Info("saved place details", zap.String("place_id", placeID), zap.Int("reviews", len(snap.Reviews)))
}

func (c *DetailCache) saveFailed(placeID string, err error) {
	c.metrics.CacheSaveFailed(metrics.TierDetail)
	c.logger.Error("save place details failed (non-fatal)", zap.String("place_id", placeID), zap.Error(err))
}
