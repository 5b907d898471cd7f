// Package supabase stores the place cache in a hosted Postgres database through
// the Supabase PostgREST API.
//
// PostgREST offers no multi-statement transactions, so every save runs
// stepwise: a reader can briefly observe a search key with no ranks while a
// save replaces them.
package supabase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"github.com/renderinc/prolocator/internal/storage"
)

const (
	tableBusinesses    = "businesses"
	tableReviews       = "reviews"
	tableSearchCache   = "search_cache"
	tableSearchResults = "search_results"
)

// Store is a PostgREST-backed place cache.
type Store struct {
	client *supa.Client
}

// Open connects to the Supabase project at url with a service role key.
// Missing credentials return an unavailable store rather than an error.
func Open(url, serviceRoleKey string) (*Store, error) {
	if strings.TrimSpace(url) == "" || strings.TrimSpace(serviceRoleKey) == "" {
		return &Store{}, nil
	}
	client, err := supa.NewClient(url, serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Store{client: client}, nil
}

// Available reports whether credentials were supplied.
func (s *Store) Available() bool {
	return s != nil && s.client != nil
}

// Close is a no-op; the PostgREST client holds no pooled connections.
func (s *Store) Close() error { return nil }

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.Available() {
		return storage.ErrUnavailable
	}
	return nil
}

// GetSearchCache retrieves the metadata row for key, nil when absent.
func (s *Store) GetSearchCache(ctx context.Context, key string) (*storage.SearchCacheEntry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var rows []searchCacheRow
	if _, err := s.client.From(tableSearchCache).
		Select("*", "", false).
		Eq("search_key", key).
		ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("get search cache: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toEntry()
}

// TouchSearchCache records a read of key. The counter update is a
// read-modify-write; concurrent touches may lose increments.
func (s *Store) TouchSearchCache(ctx context.Context, key string, at time.Time) error {
	entry, err := s.GetSearchCache(ctx, key)
	if err != nil || entry == nil {
		return err
	}
	update := map[string]any{
		"last_queried_at": storage.FormatTime(at),
		"total_queries":   entry.TotalQueries + 1,
	}
	if _, _, err := s.client.From(tableSearchCache).
		Update(update, "minimal", "").
		Eq("search_key", key).
		Execute(); err != nil {
		return fmt.Errorf("touch search cache: %w", err)
	}
	return nil
}

// ListSearchResults retrieves the businesses ranked under key, rank ascending.
func (s *Store) ListSearchResults(ctx context.Context, key string) ([]storage.Business, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var rows []rankedBusinessRow
	if _, err := s.client.From(tableSearchResults).
		Select("rank, businesses(*)", "", false).
		Eq("search_key", key).
		Order("rank", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("list search results: %w", err)
	}

	out := make([]storage.Business, 0, len(rows))
	for _, row := range rows {
		if row.Businesses == nil {
			continue
		}
		b, err := row.Businesses.toBusiness()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// SaveSearch upserts each business, replaces the key's ranks and upserts its metadata.
func (s *Store) SaveSearch(ctx context.Context, snap storage.SearchSnapshot) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	fetched := storage.FormatTime(snap.FetchedAt)

	for _, b := range snap.Businesses {
		if _, _, err := s.client.From(tableBusinesses).
			Upsert(toBasicsRow(b, fetched), "place_id", "minimal", "").
			Execute(); err != nil {
			return fmt.Errorf("upsert business %s: %w", b.PlaceID, err)
		}
	}

	if _, _, err := s.client.From(tableSearchResults).
		Delete("minimal", "").
		Eq("search_key", snap.Key).
		Execute(); err != nil {
		return fmt.Errorf("delete ranks: %w", err)
	}
	if len(snap.Businesses) > 0 {
		ranks := make([]rankRow, 0, len(snap.Businesses))
		for i, b := range snap.Businesses {
			ranks = append(ranks, rankRow{SearchKey: snap.Key, Rank: i + 1, PlaceID: b.PlaceID})
		}
		if _, _, err := s.client.From(tableSearchResults).
			Insert(ranks, false, "", "minimal", "").
			Execute(); err != nil {
			return fmt.Errorf("insert ranks: %w", err)
		}
	}

	total := 1
	if prev, err := s.GetSearchCache(ctx, snap.Key); err == nil && prev != nil {
		total = prev.TotalQueries + 1
	}
	row := searchCacheRow{
		SearchKey:     snap.Key,
		Category:      snap.Category,
		Location:      snap.Location,
		Metro:         optional(snap.Metro),
		ResultCount:   len(snap.Businesses),
		LastFetchedAt: fetched,
		LastQueriedAt: fetched,
		TotalQueries:  total,
	}
	if _, _, err := s.client.From(tableSearchCache).
		Upsert(row, "search_key", "minimal", "").
		Execute(); err != nil {
		return fmt.Errorf("upsert search cache: %w", err)
	}
	return nil
}

// GetBusiness retrieves a business by place id, nil when unknown.
func (s *Store) GetBusiness(ctx context.Context, placeID string) (*storage.Business, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var rows []businessRow
	if _, err := s.client.From(tableBusinesses).
		Select("*", "", false).
		Eq("place_id", placeID).
		ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("get business: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	b, err := rows[0].toBusiness()
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBusinesses retrieves every stored business ordered by name.
func (s *Store) ListBusinesses(ctx context.Context) ([]storage.Business, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var rows []businessRow
	if _, err := s.client.From(tableBusinesses).
		Select("*", "", false).
		Order("name", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("list businesses: %w", err)
	}
	out := make([]storage.Business, 0, len(rows))
	for _, row := range rows {
		b, err := row.toBusiness()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// ListReviews retrieves the reviews of a place in insertion order.
func (s *Store) ListReviews(ctx context.Context, placeID string) ([]storage.Review, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var rows []reviewRow
	if _, err := s.client.From(tableReviews).
		Select("*", "", false).
		Eq("place_id", placeID).
		Order("id", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	out := make([]storage.Review, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toReview())
	}
	return out, nil
}

// SaveDetails creates the place if needed, updates its extended columns and
// replaces its reviews when snap carries any.
func (s *Store) SaveDetails(ctx context.Context, snap storage.DetailSnapshot) error {
	placeID := snap.Basics.PlaceID
	existing, err := s.GetBusiness(ctx, placeID)
	if err != nil {
		return err
	}
	updated := storage.FormatTime(snap.UpdatedAt)
	if existing == nil {
		if _, _, err := s.client.From(tableBusinesses).
			Insert(toBasicsRow(snap.Basics, updated), false, "", "minimal", "").
			Execute(); err != nil {
			return fmt.Errorf("insert business %s: %w", placeID, err)
		}
	}

	row := detailsRow{
		FormattedPhoneNumber:     optional(snap.Details.FormattedPhoneNumber),
		InternationalPhoneNumber: optional(snap.Details.InternationalPhoneNumber),
		Website:                  optional(snap.Details.Website),
		URL:                      optional(snap.Details.URL),
		PriceLevel:               snap.Details.PriceLevel,
		WeekdayText:              snap.Details.WeekdayText,
		Periods:                  optional(snap.Details.Periods),
		Photos:                   optional(snap.Photos),
		DetailsUpdatedAt:         updated,
	}
	if _, _, err := s.client.From(tableBusinesses).
		Update(row, "minimal", "").
		Eq("place_id", placeID).
		Execute(); err != nil {
		return fmt.Errorf("update details: %w", err)
	}

	if len(snap.Reviews) == 0 {
		return nil
	}
	if _, _, err := s.client.From(tableReviews).
		Delete("minimal", "").
		Eq("place_id", placeID).
		Execute(); err != nil {
		return fmt.Errorf("delete reviews: %w", err)
	}
	rows := make([]reviewRow, 0, len(snap.Reviews))
	for _, r := range snap.Reviews {
		rows = append(rows, toReviewRow(placeID, r))
	}
	if _, _, err := s.client.From(tableReviews).
		Insert(rows, false, "", "minimal", "").
		Execute(); err != nil {
		return fmt.Errorf("insert reviews: %w", err)
	}
	return nil
}

// EvictSearchCache removes the ranks, then the metadata, of keys fetched before cutoff.
func (s *Store) EvictSearchCache(ctx context.Context, cutoff time.Time) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var rows []struct {
		SearchKey string `json:"search_key"`
	}
	if _, err := s.client.From(tableSearchCache).
		Select("search_key", "", false).
		Lt("last_fetched_at", storage.FormatTime(cutoff)).
		ExecuteTo(&rows); err != nil {
		return 0, fmt.Errorf("find expired keys: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.SearchKey)
	}
	if _, _, err := s.client.From(tableSearchResults).
		Delete("minimal", "").
		In("search_key", keys).
		Execute(); err != nil {
		return 0, fmt.Errorf("delete ranks: %w", err)
	}
	if _, _, err := s.client.From(tableSearchCache).
		Delete("minimal", "").
		In("search_key", keys).
		Execute(); err != nil {
		return 0, fmt.Errorf("delete search cache: %w", err)
	}
	return len(keys), nil
}

// Count returns exact table sizes.
func (s *Store) Count(ctx context.Context) (storage.Counts, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Counts{}, err
	}
	count := func(table string) (int, error) {
		_, n, err := s.client.From(table).Select("*", "exact", true).Execute()
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", table, err)
		}
		return int(n), nil
	}

	var c storage.Counts
	var err error
	if c.Businesses, err = count(tableBusinesses); err != nil {
		return storage.Counts{}, err
	}
	if c.Reviews, err = count(tableReviews); err != nil {
		return storage.Counts{}, err
	}
	if c.SearchKeys, err = count(tableSearchCache); err != nil {
		return storage.Counts{}, err
	}
	if c.RankRows, err = count(tableSearchResults); err != nil {
		return storage.Counts{}, err
	}
	return c, nil
}
