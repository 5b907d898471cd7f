package cache

import (
	"time"

	"go.uber.org/zap"

	"github.com/renderinc/prolocator/internal/metrics"
)

type options struct {
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option configures a cache component.
type Option func(*options)

// WithTTL overrides the component's default time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the component logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records save failures and evictions on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) { o.metrics = m }
}

func newOptions(ttl time.Duration, name string, opts []Option) options {
	o := options{
		ttl:    ttl,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.Named(name)
	return o
}
