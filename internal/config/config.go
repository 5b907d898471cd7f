// Package config loads runtime settings from code defaults, an optional YAML
// file and the environment, in that order, then validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/renderinc/prolocator/internal/places"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
	BackendNone     = "none"
)

// Consistency modes for multi-step cache writes.
const (
	ConsistencyAtomic   = "atomic"
	ConsistencyStepwise = "stepwise"
)

// Config is the full application configuration.
type Config struct {
	Places  Places  `yaml:"places"`
	Store   Store   `yaml:"store"`
	Cache   Cache   `yaml:"cache"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
	Breaker Breaker `yaml:"breaker"`
}

// Places configures the provider client.
type Places struct {
	APIKey  string        `yaml:"api_key" env:"GOOGLE_PLACES_API_KEY"`
	BaseURL string        `yaml:"base_url" env:"PLACES_BASE_URL" validate:"required,url"`
	Radius  float64       `yaml:"radius" env:"PLACES_RADIUS" validate:"gt=0,lte=50000"`
	Timeout time.Duration `yaml:"timeout" env:"PLACES_TIMEOUT" validate:"gt=0"`
}

// Store selects and configures the cache backend.
type Store struct {
	Backend     string `yaml:"backend" env:"STORE_BACKEND" validate:"oneof=sqlite supabase none"`
	DataDir     string `yaml:"data_dir" env:"DATA_DIR" validate:"required"`
	SupabaseURL string `yaml:"supabase_url" env:"SUPABASE_URL" validate:"omitempty,url"`
	SupabaseKey string `yaml:"supabase_service_role_key" env:"SUPABASE_SERVICE_ROLE_KEY"`
}

// Cache tunes freshness windows and background work.
type Cache struct {
	SearchTTL       time.Duration `yaml:"search_ttl" env:"SEARCH_CACHE_TTL" validate:"gt=0"`
	DetailsTTL      time.Duration `yaml:"details_ttl" env:"DETAILS_CACHE_TTL" validate:"gt=0"`
	Consistency     string        `yaml:"consistency" env:"CACHE_CONSISTENCY" validate:"oneof=atomic stepwise"`
	DedupeInflight  bool          `yaml:"dedupe_inflight" env:"CACHE_DEDUPE_INFLIGHT"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CLEANUP_INTERVAL" validate:"gte=0"`
	IndexBusinesses bool          `yaml:"index_businesses" env:"INDEX_BUSINESSES"`
}

// Server configures the HTTP listener.
type Server struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// Logging configures the zap logger.
type Logging struct {
	Level       string `yaml:"level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT"`
}

// Breaker tunes the provider circuit breaker.
type Breaker struct {
	MaxRequests      uint32        `yaml:"max_requests" env:"BREAKER_MAX_REQUESTS" validate:"min=1"`
	Interval         time.Duration `yaml:"interval" env:"BREAKER_INTERVAL" validate:"gte=0"`
	Timeout          time.Duration `yaml:"timeout" env:"BREAKER_TIMEOUT" validate:"gt=0"`
	FailureThreshold float64       `yaml:"failure_threshold" env:"BREAKER_FAILURE_THRESHOLD" validate:"gt=0,lte=1"`
	MinRequests      uint32        `yaml:"min_requests" env:"BREAKER_MIN_REQUESTS" validate:"min=1"`
}

// Default returns the built-in configuration.
func Default() *Config {
	b := places.DefaultBreakerConfig()
	return &Config{
		Places: Places{
			BaseURL: places.DefaultBaseURL,
			Radius:  places.DefaultRadius,
			Timeout: 30 * time.Second,
		},
		Store: Store{
			Backend: BackendSQLite,
			DataDir: "./data",
		},
		Cache: Cache{
			SearchTTL:       7 * 24 * time.Hour,
			DetailsTTL:      30 * 24 * time.Hour,
			Consistency:     ConsistencyAtomic,
			CleanupInterval: 24 * time.Hour,
			IndexBusinesses: true,
		},
		Server: Server{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: Logging{Level: "info"},
		Breaker: Breaker{
			MaxRequests:      b.MaxRequests,
			Interval:         b.Interval,
			Timeout:          b.Timeout,
			FailureThreshold: b.FailureThreshold,
			MinRequests:      b.MinRequests,
		},
	}
}

// Load builds the configuration. path may be empty; a named file that does
// not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	// PostgREST has no multi-statement transactions.
	if cfg.Store.Backend == BackendSupabase {
		cfg.Cache.Consistency = ConsistencyStepwise
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Store.Backend == BackendSupabase && (c.Store.SupabaseURL == "") != (c.Store.SupabaseKey == "") {
		return errors.New("supabase url and service role key must be set together")
	}
	return nil
}

// SQLitePath is the cache database file under the data directory.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Store.DataDir, "prolocator.db")
}

// IndexPath is the business index directory under the data directory.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Store.DataDir, "businesses.bleve")
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// BreakerConfig converts the breaker settings for the places client.
func (c *Config) BreakerConfig() places.BreakerConfig {
	return places.BreakerConfig{
		MaxRequests:      c.Breaker.MaxRequests,
		Interval:         c.Breaker.Interval,
		Timeout:          c.Breaker.Timeout,
		FailureThreshold: c.Breaker.FailureThreshold,
		MinRequests:      c.Breaker.MinRequests,
	}
}
