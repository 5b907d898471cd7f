package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderinc/prolocator/internal/places"
	"github.com/renderinc/prolocator/internal/storage"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func openTempStore(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func place(id string) places.Place {
	rating := 4.2
	open := true
	return places.Place{
		PlaceID:          id,
		Name:             "Biz " + id,
		FormattedAddress: id + " Main St, Katy, TX",
		Rating:           &rating,
		Geometry:         places.Geometry{Location: places.LatLng{Lat: 29.78, Lng: -95.82}},
		BusinessStatus:   "OPERATIONAL",
		OpeningHours:     &places.OpeningHours{OpenNow: &open},
		Photos:           []places.PhotoRef{{PhotoReference: "ref-" + id, Height: 100, Width: 200}},
		Types:            []string{"plumber"},
		PlusCode:         &places.PlusCode{GlobalCode: "G-" + id, CompoundCode: "C-" + id},
	}
}

func placeIDs(ps []places.Place) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.PlaceID)
	}
	return out
}

// failingStore reports itself available and fails every operation.
type failingStore struct{}

var errBroken = errors.New("storage is down")

func (failingStore) Available() bool { return true }
func (failingStore) GetSearchCache(context.Context, string) (*storage.SearchCacheEntry, error) {
	return nil, errBroken
}
func (failingStore) TouchSearchCache(context.Context, string, time.Time) error { return errBroken }
func (failingStore) ListSearchResults(context.Context, string) ([]storage.Business, error) {
	return nil, errBroken
}
func (failingStore) SaveSearch(context.Context, storage.SearchSnapshot) error { return errBroken }
func (failingStore) GetBusiness(context.Context, string) (*storage.Business, error) {
	return nil, errBroken
}
func (failingStore) ListReviews(context.Context, string) ([]storage.Review, error) {
	return nil, errBroken
}
func (failingStore) SaveDetails(context.Context, storage.DetailSnapshot) error { return errBroken }
func (failingStore) EvictSearchCache(context.Context, time.Time) (int, error) {
	return 0, errBroken
}

func TestIsStale(t *testing.T) {
	refreshed := t0
	tests := []struct {
		name string
		last *time.Time
		ttl  time.Duration
		now  time.Time
		want bool
	}{
		{"never refreshed", nil, SearchTTL, t0, true},
		{"zero time", &time.Time{}, SearchTTL, t0, true},
		{"just refreshed", &refreshed, SearchTTL, t0, false},
		{"six days", &refreshed, SearchTTL, t0.Add(6 * 24 * time.Hour), false},
		{"exactly seven days", &refreshed, SearchTTL, t0.Add(SearchTTL), true},
		{"eight days", &refreshed, SearchTTL, t0.Add(8 * 24 * time.Hour), true},
		{"twenty nine days detail", &refreshed, DetailTTL, t0.Add(29 * 24 * time.Hour), false},
		{"just under thirty days detail", &refreshed, DetailTTL, t0.Add(DetailTTL - time.Nanosecond), false},
		{"exactly thirty days detail", &refreshed, DetailTTL, t0.Add(DetailTTL), true},
		{"thirty one days detail", &refreshed, DetailTTL, t0.Add(31 * 24 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStale(tt.last, tt.ttl, tt.now))
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "Plumbing:katy", Key("Plumbing", "Katy"))
	assert.Equal(t, Key("Plumbing", "Katy"), Key("Plumbing", "  KATY "))
	assert.NotEqual(t, Key("Plumbing", "katy"), Key("Roofing", "katy"))
}

func TestSearchCacheNeverSavedKey(t *testing.T) {
	c := NewSearchCache(openTempStore(t))
	ctx := context.Background()

	assert.True(t, c.ShouldRefresh(ctx, "Plumbing:nowhere"))
	_, ok := c.Get(ctx, "Plumbing:nowhere")
	assert.False(t, ok)
}

func TestSearchCacheFreshnessWindow(t *testing.T) {
	clk := &clock{now: t0}
	c := NewSearchCache(openTempStore(t), WithClock(clk.Now))
	ctx := context.Background()
	key := Key("Plumbing", "Katy")

	c.Save(ctx, key, SearchEntry{Category: "Plumbing", Location: "Katy", Metro: "Houston Metro", Places: []places.Place{place("A"), place("B"), place("C")}})

	assert.False(t, c.ShouldRefresh(ctx, key))
	hit, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B", "C"}, placeIDs(hit.Places))
	assert.Equal(t, "Houston Metro", hit.Meta.Metro)
	assert.Equal(t, 3, hit.Meta.Count)
	assert.True(t, hit.Meta.CachedAt.Equal(t0))

	clk.Advance(6 * 24 * time.Hour)
	assert.False(t, c.ShouldRefresh(ctx, key))

	clk.Advance(2 * 24 * time.Hour)
	assert.True(t, c.ShouldRefresh(ctx, key))
}

func TestSearchCachePreservesPayload(t *testing.T) {
	c := NewSearchCache(openTempStore(t), WithClock(func() time.Time { return t0 }))
	ctx := context.Background()

	want := place("A")
	c.Save(ctx, "k", SearchEntry{Category: "Plumbing", Location: "katy", Places: []places.Place{want}})

	hit, ok := c.Get(ctx, "k")
	require.True(t, ok)
	require.Len(t, hit.Places, 1)
	assert.Equal(t, want, hit.Places[0])
}

func TestSearchCacheRefreshReorders(t *testing.T) {
	clk := &clock{now: t0}
	c := NewSearchCache(openTempStore(t), WithClock(clk.Now))
	ctx := context.Background()

	c.Save(ctx, "k", SearchEntry{Category: "Roofing", Location: "austin", Places: []places.Place{place("A"), place("B"), place("C")}})
	clk.Advance(8 * 24 * time.Hour)
	c.Save(ctx, "k", SearchEntry{Category: "Roofing", Location: "austin", Places: []places.Place{place("C"), place("A")}})

	hit, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []string{"C", "A"}, placeIDs(hit.Places))
	assert.False(t, c.ShouldRefresh(ctx, "k"))
}

func TestSearchCacheEmptyResultIsMiss(t *testing.T) {
	c := NewSearchCache(openTempStore(t))
	ctx := context.Background()

	c.Save(ctx, "k", SearchEntry{Category: "Pool Services", Location: "hays"})
	assert.False(t, c.ShouldRefresh(ctx, "k"))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestSearchCacheCountsQueries(t *testing.T) {
	db := openTempStore(t)
	c := NewSearchCache(db)
	ctx := context.Background()

	c.Save(ctx, "k", SearchEntry{Category: "Plumbing", Location: "katy", Places: []places.Place{place("A")}})
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "k")

	entry, err := db.GetSearchCache(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 3, entry.TotalQueries)
}

func TestSearchCacheSurvivesFailingStore(t *testing.T) {
	c := NewSearchCache(failingStore{})
	ctx := context.Background()

	assert.True(t, c.ShouldRefresh(ctx, "k"))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.NotPanics(t, func() {
		c.Save(ctx, "k", SearchEntry{Places: []places.Place{place("A")}})
	})
}

func TestUnavailableStoreIsNoop(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]Store{"nil": nil, "closed sqlite": &storage.DB{}} {
		t.Run(name, func(t *testing.T) {
			sc := NewSearchCache(store)
			sc.Save(ctx, "k", SearchEntry{Places: []places.Place{place("A")}})
			assert.True(t, sc.ShouldRefresh(ctx, "k"))
			_, ok := sc.Get(ctx, "k")
			assert.False(t, ok)

			dc := NewDetailCache(store)
			dc.Save(ctx, "A", places.PlaceDetails{Place: place("A")})
			_, ok = dc.Get(ctx, "A")
			assert.False(t, ok)

			assert.Zero(t, NewCleaner(store).Evict(ctx))
		})
	}
}

func details(id string, reviews ...string) places.PlaceDetails {
	level := 2
	d := places.PlaceDetails{
		Place:                place(id),
		FormattedPhoneNumber: "(281) 555-0101",
		Website:              "https://" + id + ".example",
		URL:                  "https://maps.example/?cid=" + id,
		PriceLevel:           &level,
	}
	open := true
	d.OpeningHours = &places.OpeningHours{
		OpenNow:     &open,
		WeekdayText: []string{"Monday: 7:00 AM - 6:00 PM"},
		Periods:     []places.Period{{Open: places.DayTime{Day: 1, Time: "0700"}, Close: &places.DayTime{Day: 1, Time: "1800"}}},
	}
	for i, author := range reviews {
		d.Reviews = append(d.Reviews, places.Review{AuthorName: author, Language: "en", Rating: 5, Text: "fine", Time: int64(i + 1)})
	}
	return d
}

func TestDetailCacheFreshnessWindow(t *testing.T) {
	clk := &clock{now: t0}
	c := NewDetailCache(openTempStore(t), WithClock(clk.Now))
	ctx := context.Background()

	_, ok := c.Get(ctx, "A")
	assert.False(t, ok)

	want := details("A", "r1", "r2")
	c.Save(ctx, "A", want)

	clk.Advance(29 * 24 * time.Hour)
	hit, ok := c.Get(ctx, "A")
	require.True(t, ok)
	assert.Equal(t, want, hit.Details)
	assert.True(t, hit.CachedAt.Equal(t0))

	clk.Advance(24*time.Hour - time.Nanosecond)
	_, ok = c.Get(ctx, "A")
	assert.True(t, ok)

	clk.Advance(time.Nanosecond)
	_, ok = c.Get(ctx, "A")
	assert.False(t, ok, "a record exactly one TTL old is stale")

	clk.Advance(24 * time.Hour)
	_, ok = c.Get(ctx, "A")
	assert.False(t, ok)
}

func TestDetailCacheSearchOnlyPlaceIsMiss(t *testing.T) {
	db := openTempStore(t)
	ctx := context.Background()
	NewSearchCache(db).Save(ctx, "k", SearchEntry{Places: []places.Place{place("A")}})

	_, ok := NewDetailCache(db).Get(ctx, "A")
	assert.False(t, ok)
}

func TestDetailCacheReplacesReviews(t *testing.T) {
	c := NewDetailCache(openTempStore(t))
	ctx := context.Background()

	c.Save(ctx, "A", details("A", "r1", "r2", "r3"))
	c.Save(ctx, "A", details("A", "r4"))

	hit, ok := c.Get(ctx, "A")
	require.True(t, ok)
	require.Len(t, hit.Details.Reviews, 1)
	assert.Equal(t, "r4", hit.Details.Reviews[0].AuthorName)
}

func TestDetailCacheSurvivesFailingStore(t *testing.T) {
	c := NewDetailCache(failingStore{})
	ctx := context.Background()

	_, ok := c.Get(ctx, "A")
	assert.False(t, ok)
	assert.NotPanics(t, func() { c.Save(ctx, "A", details("A")) })
}

func TestCleanerEvictsExpiredKeys(t *testing.T) {
	clk := &clock{now: t0}
	db := openTempStore(t)
	sc := NewSearchCache(db, WithClock(clk.Now))
	ctx := context.Background()

	sc.Save(ctx, "old", SearchEntry{Places: []places.Place{place("A")}})
	clk.Advance(5 * 24 * time.Hour)
	sc.Save(ctx, "new", SearchEntry{Places: []places.Place{place("B")}})
	clk.Advance(3 * 24 * time.Hour)

	cleaner := NewCleaner(db, WithClock(clk.Now))
	assert.Equal(t, 1, cleaner.Evict(ctx))
	assert.Zero(t, cleaner.Evict(ctx))

	assert.True(t, sc.ShouldRefresh(ctx, "old"))
	assert.False(t, sc.ShouldRefresh(ctx, "new"))

	b, err := db.GetBusiness(ctx, "A")
	require.NoError(t, err)
	assert.NotNil(t, b, "eviction keeps businesses")
}

func TestCleanerFailingStore(t *testing.T) {
	assert.Zero(t, NewCleaner(failingStore{}).EvictOlderThan(context.Background(), t0))
}
