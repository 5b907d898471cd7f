package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderinc/prolocator/internal/lookup"
	"github.com/renderinc/prolocator/internal/metrics"
	"github.com/renderinc/prolocator/internal/places"
	"github.com/renderinc/prolocator/internal/search"
)

type fakeLookup struct {
	searchErr error
	detailErr error
	lastReq   lookup.SearchRequest
	lastWidth int
}

func (f *fakeLookup) Search(_ context.Context, req lookup.SearchRequest) (*lookup.SearchResponse, error) {
	f.lastReq = req
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	cachedAt := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	return &lookup.SearchResponse{
		Results: []places.Place{{PlaceID: "A", Name: "Alpha"}},
		Meta: lookup.SearchMeta{
			Category: req.Category, Location: req.Location, Metro: "Houston Metro",
			Count: 1, Cached: true, CachedAt: &cachedAt,
		},
	}, nil
}

func (f *fakeLookup) Details(_ context.Context, id string) (*lookup.DetailResponse, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return &lookup.DetailResponse{
		PlaceDetails: places.PlaceDetails{Place: places.Place{PlaceID: id, Name: "Alpha"}, Website: "https://a.example"},
		Meta:         lookup.DetailMeta{Cached: false},
	}, nil
}

func (f *fakeLookup) Photo(_ context.Context, ref string, width int) (*places.Photo, error) {
	f.lastWidth = width
	return &places.Photo{Data: []byte("jpeg"), ContentType: "image/jpeg"}, nil
}

type fakeFinder struct{}

func (fakeFinder) Search(q string, limit int) ([]*search.SearchResult, error) {
	return []*search.SearchResult{{ID: "A", Name: "Alpha " + q}}, nil
}

func (fakeFinder) Count() (uint64, error) { return 7, nil }

func serve(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSearchEndpoint(t *testing.T) {
	l := &fakeLookup{}
	s := NewServer(l, nil, Health{}, nil, nil)

	rec := serve(t, s, "/api/search?category=Plumbing&location=Katy&radius=5000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, 5000.0, l.lastReq.Radius)

	body := decode(t, rec)
	meta := body["meta"].(map[string]any)
	assert.Equal(t, true, meta["cached"])
	assert.Equal(t, "Houston Metro", meta["metro"])
	assert.Equal(t, "2025-04-01T00:00:00Z", meta["cachedAt"])
	assert.Len(t, body["results"], 1)
}

func TestSearchEndpointValidation(t *testing.T) {
	s := NewServer(&fakeLookup{}, nil, Health{}, nil, nil)

	assert.Equal(t, http.StatusBadRequest, serve(t, s, "/api/search?category=Plumbing").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, s, "/api/search?category=Plumbing&location=Katy&radius=far").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, s, "/api/search?category=Plumbing&location=Katy&radius=900000").Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{lookup.ErrOutsideRegion, http.StatusBadRequest},
		{places.ErrNotConfigured, http.StatusServiceUnavailable},
		{places.ErrCircuitOpen, http.StatusServiceUnavailable},
		{&places.StatusError{Endpoint: "textsearch", Status: "REQUEST_DENIED"}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		s := NewServer(&fakeLookup{searchErr: tt.err}, nil, Health{}, nil, nil)
		rec := serve(t, s, "/api/search?category=Plumbing&location=Katy")
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}

func TestOutsideRegionMessage(t *testing.T) {
	s := NewServer(&fakeLookup{searchErr: lookup.ErrOutsideRegion}, nil, Health{}, nil, nil)
	body := decode(t, serve(t, s, "/api/search?category=Plumbing&location=Denver"))
	assert.Equal(t, "Location must be in Texas", body["error"])
}

func TestPlaceEndpoint(t *testing.T) {
	s := NewServer(&fakeLookup{}, nil, Health{}, nil, nil)
	rec := serve(t, s, "/api/place/ChIJ123")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "ChIJ123", body["place_id"])
	assert.Equal(t, "https://a.example", body["website"])
	assert.Equal(t, false, body["meta"].(map[string]any)["cached"])

	s = NewServer(&fakeLookup{detailErr: places.ErrNotFound}, nil, Health{}, nil, nil)
	rec = serve(t, s, "/api/place/gone")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Place not found", decode(t, rec)["error"])
}

func TestPhotoEndpoint(t *testing.T) {
	l := &fakeLookup{}
	s := NewServer(l, nil, Health{}, nil, nil)

	rec := serve(t, s, "/api/photo?reference=abc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "jpeg", rec.Body.String())
	assert.Equal(t, 400, l.lastWidth)

	assert.Equal(t, http.StatusBadRequest, serve(t, s, "/api/photo").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, s, "/api/photo?reference=abc&maxWidth=0").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, s, "/api/photo?reference=abc&maxWidth=1601").Code)
	assert.Equal(t, http.StatusOK, serve(t, s, "/api/photo?reference=abc&maxWidth=1600").Code)
}

func TestBusinessesEndpoint(t *testing.T) {
	s := NewServer(&fakeLookup{}, nil, Health{}, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, s, "/api/businesses?q=roof").Code)

	s = NewServer(&fakeLookup{}, fakeFinder{}, Health{}, nil, nil)
	assert.Equal(t, http.StatusBadRequest, serve(t, s, "/api/businesses").Code)

	rec := serve(t, s, "/api/businesses?q=roof")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])
}

func TestCategoriesEndpoint(t *testing.T) {
	s := NewServer(&fakeLookup{}, nil, Health{}, nil, nil)
	body := decode(t, serve(t, s, "/api/categories"))
	assert.Len(t, body["categories"], 8)
}

func TestHealthAndMetrics(t *testing.T) {
	m := metrics.NewCollector("prolocator")
	s := NewServer(&fakeLookup{}, fakeFinder{}, Health{StoreAvailable: true}, nil, m)

	body := decode(t, serve(t, s, "/health"))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["cache_available"])
	assert.Equal(t, false, body["provider_configured"])
	assert.Equal(t, float64(7), body["businesses_in_index"])

	rec := serve(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `prolocator_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := NewServer(&fakeLookup{}, nil, Health{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
