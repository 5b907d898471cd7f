package supabase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderinc/prolocator/internal/storage"
)

func TestOpenWithoutCredentialsIsUnavailable(t *testing.T) {
	s, err := Open("", "")
	require.NoError(t, err)
	assert.False(t, s.Available())

	ctx := context.Background()
	_, err = s.GetSearchCache(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.ErrorIs(t, s.SaveSearch(ctx, storage.SearchSnapshot{Key: "k"}), storage.ErrUnavailable)
	_, err = s.EvictSearchCache(ctx, time.Now())
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.NoError(t, s.Close())
}

func TestReadyHonoursCancelledContext(t *testing.T) {
	s := &Store{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.ready(ctx), context.Canceled)
}

func TestBasicsRowOmitsEmptyPhotos(t *testing.T) {
	row := toBasicsRow(storage.Business{PlaceID: "A", Name: "Alpha"}, "2025-01-01T00:00:00.000000000Z")
	data, err := json.Marshal(row)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.NotContains(t, fields, "photos")
	assert.Contains(t, fields, "business_status")
	assert.Nil(t, fields["business_status"])
}

func TestBusinessRowFromPostgres(t *testing.T) {
	payload := `[{
		"rank": 1,
		"businesses": {
			"place_id": "A", "name": "Alpha", "formatted_address": "1 Main St",
			"rating": 4.5, "user_ratings_total": 10, "lat": 29.7, "lng": -95.3,
			"business_status": "OPERATIONAL", "types": ["plumber"], "open_now": true,
			"photos": "[{\"photo_reference\":\"p\"}]",
			"basic_info_updated_at": "2025-01-02T03:04:05.123456+00:00",
			"formatted_phone_number": "(713) 555-0100", "price_level": 2,
			"opening_hours_weekday_text": ["Monday: 8AM-5PM"],
			"details_updated_at": null
		}
	}]`

	var rows []rankedBusinessRow
	require.NoError(t, json.Unmarshal([]byte(payload), &rows))
	require.Len(t, rows, 1)

	b, err := rows[0].Businesses.toBusiness()
	require.NoError(t, err)
	assert.Equal(t, "A", b.PlaceID)
	assert.Equal(t, []string{"plumber"}, b.Types)
	assert.Equal(t, "(713) 555-0100", b.Details.FormattedPhoneNumber)
	assert.Equal(t, []string{"Monday: 8AM-5PM"}, b.Details.WeekdayText)
	assert.Nil(t, b.DetailsUpdatedAt)
	assert.True(t, b.BasicInfoUpdatedAt.Equal(time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC)))
}

func TestBusinessRowBadTimestamp(t *testing.T) {
	_, err := businessRow{basicsRow: basicsRow{PlaceID: "A", BasicInfoUpdatedAt: "soon"}}.toBusiness()
	assert.Error(t, err)
}

func TestSearchCacheRowToEntry(t *testing.T) {
	metro := "Austin Metro"
	e, err := searchCacheRow{
		SearchKey:     "Roofing:austin",
		Metro:         &metro,
		ResultCount:   3,
		LastFetchedAt: "2025-01-01T00:00:00Z",
		LastQueriedAt: "2025-01-02T00:00:00Z",
		TotalQueries:  4,
	}.toEntry()
	require.NoError(t, err)
	assert.Equal(t, "Austin Metro", e.Metro)
	assert.Equal(t, 4, e.TotalQueries)
	assert.True(t, e.LastQueriedAt.After(e.LastFetchedAt))
}

func TestReviewRowDefaultsLanguage(t *testing.T) {
	row := toReviewRow("A", storage.Review{AuthorName: "sam", Rating: 5, Time: 1})
	assert.Equal(t, "en", row.Language)
	assert.Nil(t, row.AuthorURL)

	r := row.toReview()
	assert.Equal(t, "A", r.PlaceID)
	assert.Equal(t, "", r.AuthorURL)
}
