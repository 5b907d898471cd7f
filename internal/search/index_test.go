package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderinc/prolocator/internal/places"
	"github.com/renderinc/prolocator/internal/storage"
)

func newMemoryIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestIndexPlacesAndSearch(t *testing.T) {
	idx := newMemoryIndex(t)
	rating := 4.8

	err := idx.IndexPlaces(context.Background(), []places.Place{
		{PlaceID: "a", Name: "Bayou City Plumbing", FormattedAddress: "1 Main St, Houston, TX", Rating: &rating, Types: []string{"plumber"}},
		{PlaceID: "b", Name: "Lone Star Roofing", FormattedAddress: "9 Congress Ave, Austin, TX", Types: []string{"roofing_contractor"}},
	})
	require.NoError(t, err)

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	results, err := idx.Search("plumbing", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "Bayou City Plumbing", results[0].Name)
	assert.Equal(t, 4.8, results[0].Rating)

	results, err = idx.Search("contractor", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestIndexPlacesUpdatesInPlace(t *testing.T) {
	idx := newMemoryIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexPlaces(ctx, []places.Place{{PlaceID: "a", Name: "Old Name"}}))
	require.NoError(t, idx.IndexPlaces(ctx, []places.Place{{PlaceID: "a", Name: "Sparky Electrical"}}))

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	results, err := idx.Search("sparky", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.NoError(t, idx.Delete("a"))
	n, err = idx.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIndexFromStorage(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now()
	require.NoError(t, db.UpsertBusiness(ctx, storage.Business{PlaceID: "p1", Name: "Hill Country Pools"}, now))
	require.NoError(t, db.UpsertBusiness(ctx, storage.Business{PlaceID: "p2", Name: "Metroplex Painting"}, now))

	path := filepath.Join(t.TempDir(), "businesses.bleve")
	idx, err := Open(path)
	require.NoError(t, err)

	n, err := idx.IndexFromStorage(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, idx.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	results, err := reopened.Search("pools", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].ID)
}
