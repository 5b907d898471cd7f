// Package lookup answers search, detail and photo requests, serving fresh
// cached data when it exists and falling back to the places provider.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/renderinc/prolocator/internal/cache"
	"github.com/renderinc/prolocator/internal/metrics"
	"github.com/renderinc/prolocator/internal/places"
	"github.com/renderinc/prolocator/internal/region"
)

var (
	// ErrInvalidRequest marks missing or malformed caller input.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrOutsideRegion is returned for locations outside Texas.
	ErrOutsideRegion = errors.New("location must be in Texas")
)

// Provider is the paid places directory.
type Provider interface {
	Configured() bool
	TextSearch(ctx context.Context, category, location string, radius float64) ([]places.Place, error)
	Details(ctx context.Context, placeID string) (*places.PlaceDetails, error)
	Photo(ctx context.Context, reference string, maxWidth int) (*places.Photo, error)
}

// Indexer receives every freshly fetched search result.
type Indexer interface {
	IndexPlaces(ctx context.Context, ps []places.Place) error
}

// SearchRequest is one category + location search.
type SearchRequest struct {
	Category string
	Location string
	Radius   float64
}

// SearchMeta describes where a search answer came from.
type SearchMeta struct {
	Category string     `json:"category"`
	Location string     `json:"location"`
	Metro    string     `json:"metro,omitempty"`
	Count    int        `json:"count"`
	Cached   bool       `json:"cached"`
	CachedAt *time.Time `json:"cachedAt,omitempty"`
}

// SearchResponse is the answer to a SearchRequest.
type SearchResponse struct {
	Results []places.Place `json:"results"`
	Meta    SearchMeta     `json:"meta"`
}

// DetailMeta describes where a detail answer came from.
type DetailMeta struct {
	Cached   bool       `json:"cached"`
	CachedAt *time.Time `json:"cachedAt,omitempty"`
}

// DetailResponse is a place detail record with its provenance.
type DetailResponse struct {
	places.PlaceDetails
	Meta DetailMeta `json:"meta"`
}

// Service coordinates the caches and the provider.
type Service struct {
	provider Provider
	searches *cache.SearchCache
	details  *cache.DetailCache
	index    Indexer
	inflight *singleflight.Group
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics records cache hits and misses on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

// WithIndexer indexes every fetched search result. Index failures are logged.
func WithIndexer(idx Indexer) Option {
	return func(s *Service) { s.index = idx }
}

// WithDedupe makes concurrent misses on one key share a single provider
// fetch and save. The shared fetch is not cut short when one caller goes
// away; the provider client's own timeout bounds it.
func WithDedupe() Option {
	return func(s *Service) { s.inflight = &singleflight.Group{} }
}

// NewService creates a lookup service.
func NewService(provider Provider, searches *cache.SearchCache, details *cache.DetailCache, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		searches: searches,
		details:  details,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("lookup")
	return s
}

// Search returns the places for req, from the cache when its entry is fresh.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	category := strings.TrimSpace(req.Category)
	location := strings.TrimSpace(req.Location)
	if category == "" || location == "" {
		return nil, fmt.Errorf("%w: category and location are required", ErrInvalidRequest)
	}
	if req.Radius < 0 {
		return nil, fmt.Errorf("%w: radius must be positive", ErrInvalidRequest)
	}
	where := region.Validate(location)
	if !where.Valid {
		return nil, ErrOutsideRegion
	}
	if !s.provider.Configured() {
		return nil, places.ErrNotConfigured
	}

	key := cache.Key(category, location)
	if !s.searches.ShouldRefresh(ctx, key) {
		if hit, ok := s.searches.Get(ctx, key); ok {
			s.metrics.CacheHit(metrics.TierSearch)
			s.logger.Debug("search cache hit", zap.String("key", key))

			metro := hit.Meta.Metro
			if metro == "" {
				metro = where.Metro
			}
			resp := &SearchResponse{
				Results: hit.Places,
				Meta: SearchMeta{
					Category: category,
					Location: location,
					Metro:    metro,
					Count:    len(hit.Places),
					Cached:   true,
				},
			}
			if !hit.Meta.CachedAt.IsZero() {
				cachedAt := hit.Meta.CachedAt
				resp.Meta.CachedAt = &cachedAt
			}
			return resp, nil
		}
	}
	s.metrics.CacheMiss(metrics.TierSearch)
	s.logger.Debug("search cache miss", zap.String("key", key))

	results, err := s.fetchSearch(ctx, key, category, location, where.Metro, req.Radius)
	if err != nil {
		return nil, err
	}
	return &SearchResponse{
		Results: results,
		Meta: SearchMeta{
			Category: category,
			Location: location,
			Metro:    where.Metro,
			Count:    len(results),
		},
	}, nil
}

func (s *Service) fetchSearch(ctx context.Context, key, category, location, metro string, radius float64) ([]places.Place, error) {
	v, err := s.shared(ctx, "search:"+key, func(ctx context.Context) (any, error) {
		results, err := s.provider.TextSearch(ctx, category, location, radius)
		if err != nil {
			return nil, err
		}
		s.searches.Save(ctx, key, cache.SearchEntry{
			Category: category,
			Location: location,
			Metro:    metro,
			Places:   results,
		})
		if s.index != nil {
			if err := s.index.IndexPlaces(ctx, results); err != nil {
				s.logger.Warn("index search results failed", zap.String("key", key), zap.Error(err))
			}
		}
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]places.Place), nil
}

// shared runs fn directly, or once per key across concurrent callers when
// de-duplication is on. A shared fn runs on a context that outlives any one
// caller's cancellation; each caller still stops waiting when its own ctx ends.
func (s *Service) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	if s.inflight == nil {
		return fn(ctx)
	}

	ch := s.inflight.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("shared in-flight fetch", zap.String("key", key))
		}
		return res.Val, res.Err
	}
}

// Details returns the detail record of placeID, from the cache when fresh.
func (s *Service) Details(ctx context.Context, placeID string) (*DetailResponse, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, fmt.Errorf("%w: place id is required", ErrInvalidRequest)
	}
	if !s.provider.Configured() {
		return nil, places.ErrNotConfigured
	}

	if hit, ok := s.details.Get(ctx, placeID); ok {
		s.metrics.CacheHit(metrics.TierDetail)
		cachedAt := hit.CachedAt
		return &DetailResponse{
			PlaceDetails: hit.Details,
			Meta:         DetailMeta{Cached: true, CachedAt: &cachedAt},
		}, nil
	}
	s.metrics.CacheMiss(metrics.TierDetail)

	v, err := s.shared(ctx, "details:"+placeID, func(ctx context.Context) (any, error) {
		d, err := s.provider.Details(ctx, placeID)
		if err != nil {
			return nil, err
		}
		s.details.Save(ctx, placeID, *d)
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	d := v.(*places.PlaceDetails)
	return &DetailResponse{PlaceDetails: *d}, nil
}

// Photo proxies one provider photo. Photos are never cached locally.
func (s *Service) Photo(ctx context.Context, reference string, maxWidth int) (*places.Photo, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: photo reference is required", ErrInvalidRequest)
	}
	if maxWidth == 0 {
		maxWidth = places.DefaultPhotoWidth
	}
	if maxWidth < 1 || maxWidth > MaxPhotoWidth {
		return nil, fmt.Errorf("%w: maxWidth must be between 1 and %d", ErrInvalidRequest, MaxPhotoWidth)
	}
	if !s.provider.Configured() {
		return nil, places.ErrNotConfigured
	}
	return s.provider.Photo(ctx, reference, maxWidth)
}

// MaxPhotoWidth is the widest photo the provider serves.
const MaxPhotoWidth = 1600
