package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/renderinc/prolocator/internal/metrics"
)

const (
	// DefaultBaseURL is the legacy Places web service root.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"

	// DefaultRadius is ten miles in meters.
	DefaultRadius = 16093.4

	// MaxResults caps a text search.
	MaxResults = 20

	// DefaultPhotoWidth is used when the caller asks for no particular width.
	DefaultPhotoWidth = 400

	maxPhotoBytes = 10 << 20
)

// Provider statuses.
const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"
	StatusNotFound    = "NOT_FOUND"
)

// DetailFields is the field mask requested from the detail endpoint.
var DetailFields = []string{
	"place_id", "name", "formatted_address", "formatted_phone_number",
	"international_phone_number", "website", "rating", "user_ratings_total",
	"reviews", "opening_hours", "photos", "geometry", "business_status",
	"types", "url", "price_level", "plus_code",
}

var (
	// ErrNotConfigured is returned by every call when no API key was supplied.
	ErrNotConfigured = errors.New("places API key is not configured")

	// ErrNotFound is returned by Details when the provider knows no such place.
	ErrNotFound = errors.New("place not found")

	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("places provider temporarily unavailable")
)

// StatusError reports a non-success answer from the provider.
type StatusError struct {
	Endpoint   string
	Status     string
	HTTPStatus int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("places %s: unexpected HTTP status %d", e.Endpoint, e.HTTPStatus)
	}
	if e.Message != "" {
		return fmt.Sprintf("places %s: status %s: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("places %s: status %s", e.Endpoint, e.Status)
}

// BreakerConfig tunes the circuit breaker in front of the provider.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig trips after 5 requests with at least 80% failures.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Client is a Places API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
	metrics    *metrics.Collector
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another Places root, such as a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default 30 second HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records provider calls on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithBreaker replaces the default breaker settings.
func WithBreaker(cfg BreakerConfig) Option {
	return func(c *Client) { c.breaker = newBreaker(cfg, c) }
}

// NewClient creates a new Places API client
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = newBreaker(DefaultBreakerConfig(), c)
	}
	return c
}

func newBreaker(cfg BreakerConfig, c *Client) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "places",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
	})
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type envelope struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message"`
	Results      json.RawMessage `json:"results"`
	Result       json.RawMessage `json:"result"`
}

// call runs fn through the breaker and records its outcome.
func (c *Client) call(endpoint string, fn func() error) error {
	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
		err = fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	c.metrics.ProviderCall(endpoint, outcome, time.Since(start))
	return err
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values) (*envelope, error) {
	params.Set("key", c.apiKey)
	reqURL := fmt.Sprintf("%s/%s/json?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Endpoint: endpoint, HTTPStatus: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &env, nil
}

// TextSearch finds up to MaxResults places for a category near location.
// ZERO_RESULTS is an empty, successful answer.
func (c *Client) TextSearch(ctx context.Context, category, location string, radius float64) ([]Place, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if radius <= 0 {
		radius = DefaultRadius
	}

	params := url.Values{}
	params.Set("query", fmt.Sprintf("%s contractor in %s, Texas", category, location))
	params.Set("radius", strconv.FormatFloat(radius, 'f', -1, 64))

	var results []Place
	err := c.call("textsearch", func() error {
		env, err := c.getJSON(ctx, "textsearch", params)
		if err != nil {
			return err
		}
		switch env.Status {
		case StatusZeroResults:
			results = []Place{}
			return nil
		case StatusOK:
		default:
			return &StatusError{Endpoint: "textsearch", Status: env.Status, HTTPStatus: http.StatusOK, Message: env.ErrorMessage}
		}
		if len(env.Results) > 0 {
			if err := json.Unmarshal(env.Results, &results); err != nil {
				return fmt.Errorf("unmarshal results: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		c.logger.Error("text search failed",
			zap.String("category", category),
			zap.String("location", location),
			zap.Error(err))
		return nil, fmt.Errorf("text search: %w", err)
	}

	if results == nil {
		results = []Place{}
	}
	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	return results, nil
}

// Details fetches the full record of one place. NOT_FOUND yields ErrNotFound.
func (c *Client) Details(ctx context.Context, placeID string) (*PlaceDetails, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", strings.Join(DetailFields, ","))

	var details PlaceDetails
	err := c.call("details", func() error {
		env, err := c.getJSON(ctx, "details", params)
		if err != nil {
			return err
		}
		switch env.Status {
		case StatusOK:
		case StatusNotFound:
			return ErrNotFound
		default:
			return &StatusError{Endpoint: "details", Status: env.Status, HTTPStatus: http.StatusOK, Message: env.ErrorMessage}
		}
		if err := json.Unmarshal(env.Result, &details); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Error("place details failed", zap.String("place_id", placeID), zap.Error(err))
		}
		return nil, fmt.Errorf("get details %s: %w", placeID, err)
	}
	if details.PlaceID == "" {
		details.PlaceID = placeID
	}
	return &details, nil
}

// Photo downloads the image behind a photo reference.
func (c *Client) Photo(ctx context.Context, reference string, maxWidth int) (*Photo, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if maxWidth <= 0 {
		maxWidth = DefaultPhotoWidth
	}

	params := url.Values{}
	params.Set("photoreference", reference)
	params.Set("maxwidth", strconv.Itoa(maxWidth))
	params.Set("key", c.apiKey)
	reqURL := fmt.Sprintf("%s/photo?%s", c.baseURL, params.Encode())

	var photo Photo
	err := c.call("photo", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return &StatusError{Endpoint: "photo", HTTPStatus: resp.StatusCode}
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
		if err != nil {
			return fmt.Errorf("read photo: %w", err)
		}
		photo.Data = data
		photo.ContentType = resp.Header.Get("Content-Type")
		return nil
	})
	if err != nil {
		c.logger.Error("photo fetch failed", zap.Error(err))
		return nil, fmt.Errorf("fetch photo: %w", err)
	}
	if photo.ContentType == "" {
		photo.ContentType = "image/jpeg"
	}
	return &photo, nil
}
