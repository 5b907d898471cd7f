// Package web serves the locator's JSON API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/renderinc/prolocator/internal/catalog"
	"github.com/renderinc/prolocator/internal/lookup"
	"github.com/renderinc/prolocator/internal/metrics"
	"github.com/renderinc/prolocator/internal/places"
	"github.com/renderinc/prolocator/internal/search"
)

// Lookup is the request path the handlers delegate to.
type Lookup interface {
	Search(ctx context.Context, req lookup.SearchRequest) (*lookup.SearchResponse, error)
	Details(ctx context.Context, placeID string) (*lookup.DetailResponse, error)
	Photo(ctx context.Context, reference string, maxWidth int) (*places.Photo, error)
}

// Finder searches the local business index.
type Finder interface {
	Search(query string, limit int) ([]*search.SearchResult, error)
	Count() (uint64, error)
}

// Health reports readiness facts for /health.
type Health struct {
	StoreAvailable     bool
	ProviderConfigured bool
}

// Server serves the JSON API.
type Server struct {
	lookup   Lookup
	finder   Finder
	health   Health
	logger   *zap.Logger
	metrics  *metrics.Collector
	validate *validator.Validate
}

type searchParams struct {
	Category string  `validate:"required,max=100"`
	Location string  `validate:"required,max=200"`
	Radius   float64 `validate:"gte=0,lte=50000"`
}

type photoParams struct {
	Reference string `validate:"required,max=1024"`
	MaxWidth  int    `validate:"min=1,max=1600"`
}

type findParams struct {
	Query string `validate:"required,max=200"`
	Limit int    `validate:"min=1,max=100"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewServer creates the API server. finder may be nil when no index is kept.
func NewServer(l Lookup, finder Finder, health Health, logger *zap.Logger, m *metrics.Collector) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		lookup:   l,
		finder:   finder,
		health:   health,
		logger:   logger.Named("web"),
		metrics:  m,
		validate: validator.New(),
	}
}

// Handler returns the router with middleware and all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.observe)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/place/{id}", s.handlePlace)
		r.Get("/photo", s.handlePhoto)
		r.Get("/businesses", s.handleFind)
		r.Get("/categories", s.handleCategories)
	})
	return r
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := searchParams{Category: q.Get("category"), Location: q.Get("location")}
	if raw := q.Get("radius"); raw != "" {
		radius, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid radius parameter"})
			return
		}
		params.Radius = radius
	}
	if err := s.validate.Struct(params); err != nil {
		msg := "Invalid search parameters"
		if params.Category == "" || params.Location == "" {
			msg = "Missing required parameters: category and location"
		}
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Message: err.Error()})
		return
	}

	resp, err := s.lookup.Search(r.Context(), lookup.SearchRequest{
		Category: params.Category,
		Location: params.Location,
		Radius:   params.Radius,
	})
	if err != nil {
		s.writeError(w, r, "Failed to search places", err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	resp, err := s.lookup.Details(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, "Failed to get place details", err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := photoParams{Reference: q.Get("reference"), MaxWidth: places.DefaultPhotoWidth}
	if raw := q.Get("maxWidth"); raw != "" {
		width, err := strconv.Atoi(raw)
		if err != nil {
			width = 0
		}
		params.MaxWidth = width
	}
	if err := s.validate.Struct(params); err != nil {
		msg := "Invalid maxWidth parameter (must be between 1 and 1600)"
		if params.Reference == "" {
			msg = "Missing required parameter: reference"
		}
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	photo, err := s.lookup.Photo(r.Context(), params.Reference, params.MaxWidth)
	if err != nil {
		s.writeError(w, r, "Failed to fetch photo", err)
		return
	}
	w.Header().Set("Content-Type", photo.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(photo.Data)
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	if s.finder == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Business index is disabled"})
		return
	}
	params := findParams{Query: r.URL.Query().Get("q"), Limit: 20}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil {
			params.Limit = l
		}
	}
	if err := s.validate.Struct(params); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid query", Message: err.Error()})
		return
	}

	results, err := s.finder.Search(params.Query, params.Limit)
	if err != nil {
		s.writeError(w, r, "Business search failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"query":   params.Query,
		"count":   len(results),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"categories": catalog.All()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":              "ok",
		"cache_available":     s.health.StoreAvailable,
		"provider_configured": s.health.ProviderConfigured,
	}
	if s.finder != nil {
		if n, err := s.finder.Count(); err == nil {
			body["businesses_in_index"] = n
		}
	}
	s.writeJSON(w, http.StatusOK, body)
}

// statusFor maps lookup errors onto HTTP status codes.
func statusFor(err error) int {
	var statusErr *places.StatusError
	switch {
	case errors.Is(err, lookup.ErrInvalidRequest), errors.Is(err, lookup.ErrOutsideRegion):
		return http.StatusBadRequest
	case errors.Is(err, places.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, places.ErrNotConfigured), errors.Is(err, places.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, summary string, err error) {
	status := statusFor(err)
	body := errorResponse{Error: summary, Message: err.Error()}
	switch {
	case errors.Is(err, lookup.ErrOutsideRegion):
		body = errorResponse{
			Error:   "Location must be in Texas",
			Message: "Please enter a Texas city, county, or zip code (e.g., Houston, Harris County, 77024)",
		}
	case errors.Is(err, places.ErrNotFound):
		body.Error = "Place not found"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error(summary,
			zap.String("path", r.URL.Path),
			zap.String("request_id", w.Header().Get(requestIDHeader)),
			zap.Error(err))
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response failed", zap.Error(err))
	}
}

// observe records per-route request metrics and logs each request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.HTTPRequest(r.Method, route, strconv.Itoa(status), elapsed)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
			zap.String("request_id", ww.Header().Get(requestIDHeader)))
	})
}
