package cache

import (
	"context"
	"time"

	"github.com/renderinc/prolocator/internal/storage"
)

// Store is the entity store the caches read and write. Lookups of absent rows
// return nil with a nil error.
type Store interface {
	Available() bool

	GetSearchCache(ctx context.Context, key string) (*storage.SearchCacheEntry, error)
	TouchSearchCache(ctx context.Context, key string, at time.Time) error
	ListSearchResults(ctx context.Context, key string) ([]storage.Business, error)
	SaveSearch(ctx context.Context, snap storage.SearchSnapshot) error

	GetBusiness(ctx context.Context, placeID string) (*storage.Business, error)
	ListReviews(ctx context.Context, placeID string) ([]storage.Review, error)
	SaveDetails(ctx context.Context, snap storage.DetailSnapshot) error

	EvictSearchCache(ctx context.Context, cutoff time.Time) (int, error)
}

// usable returns store, or a store that misses on every read and drops every
// write when store is nil or reports itself unavailable.
func usable(store Store) Store {
	if store == nil || !store.Available() {
		return nopStore{}
	}
	return store
}

type nopStore struct{}

func (nopStore) Available() bool { return false }

func (nopStore) GetSearchCache(context.Context, string) (*storage.SearchCacheEntry, error) {
	return nil, nil
}

func (nopStore) TouchSearchCache(context.Context, string, time.Time) error { return nil }

func (nopStore) ListSearchResults(context.Context, string) ([]storage.Business, error) {
	return nil, nil
}

func (nopStore) SaveSearch(context.Context, storage.SearchSnapshot) error { return nil }

func (nopStore) GetBusiness(context.Context, string) (*storage.Business, error) { return nil, nil }

func (nopStore) ListReviews(context.Context, string) ([]storage.Review, error) { return nil, nil }

func (nopStore) SaveDetails(context.Context, storage.DetailSnapshot) error { return nil }

func (nopStore) EvictSearchCache(context.Context, time.Time) (int, error) { return 0, nil }
