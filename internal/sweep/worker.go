// Package sweep runs the background jobs of a serving process: periodic
// eviction of expired search keys and warming of popular searches.
package sweep

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/renderinc/prolocator/internal/lookup"
)

// Evicter removes expired search cache entries and reports how many went away.
type Evicter interface {
	Evict(ctx context.Context) int
}

// Searcher runs one cached search.
type Searcher interface {
	Search(ctx context.Context, req lookup.SearchRequest) (*lookup.SearchResponse, error)
}

// Target is one (category, location) pair to keep warm.
type Target struct {
	Category string
	Location string
}

// Worker handles cleanup and warm-up jobs
type Worker struct {
	evicter     Evicter
	searcher    Searcher
	concurrency int
	logger      *zap.Logger
}

// NewWorker creates a new sweep worker
func NewWorker(evicter Evicter, searcher Searcher, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		evicter:     evicter,
		searcher:    searcher,
		concurrency: 5,
		logger:      logger.Named("sweep"),
	}
}

// Run evicts expired keys once immediately and then on every tick of
// interval until ctx is done. A non-positive interval runs once.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	w.sweep(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("cleanup loop stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	start := time.Now()
	n := w.evicter.Evict(ctx)
	w.logger.Info("cleanup pass complete", zap.Int("evicted", n), zap.Duration("duration", time.Since(start)))
}

// Stats holds warm-up statistics
type Stats struct {
	Total    int
	Fetched  int
	Cached   int
	Errors   int
	Duration time.Duration
}

// Warm runs a search for each target with a small worker pool. Searches
// whose cache entry is still fresh cost nothing; stale ones are refetched.
func (w *Worker) Warm(ctx context.Context, targets []Target) *Stats {
	start := time.Now()
	stats := &Stats{Total: len(targets)}

	jobs := make(chan Target, len(targets))
	for _, t := range targets {
		jobs <- t
	}
	close(jobs)

	var wg sync.WaitGroup
	var mu sync.Mutex
	for range w.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				if ctx.Err() != nil {
					mu.Lock()
					stats.Errors++
					mu.Unlock()
					continue
				}
				resp, err := w.searcher.Search(ctx, lookup.SearchRequest{Category: t.Category, Location: t.Location})

				mu.Lock()
				switch {
				case err != nil:
					stats.Errors++
				case resp.Meta.Cached:
					stats.Cached++
				default:
					stats.Fetched++
				}
				mu.Unlock()

				if err != nil {
					w.logger.Warn("warm search failed",
						zap.String("category", t.Category),
						zap.String("location", t.Location),
						zap.Error(err))
				}
			}
		}()
	}
	wg.Wait()

	stats.Duration = time.Since(start)
	w.logger.Info("warm-up complete",
		zap.Int("fetched", stats.Fetched),
		zap.Int("cached", stats.Cached),
		zap.Int("errors", stats.Errors),
		zap.Duration("duration", stats.Duration))
	return stats
}
