package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/renderinc/prolocator/internal/cache"
	"github.com/renderinc/prolocator/internal/config"
	"github.com/renderinc/prolocator/internal/logging"
	"github.com/renderinc/prolocator/internal/lookup"
	"github.com/renderinc/prolocator/internal/metrics"
	"github.com/renderinc/prolocator/internal/places"
	"github.com/renderinc/prolocator/internal/search"
	"github.com/renderinc/prolocator/internal/storage"
	"github.com/renderinc/prolocator/internal/storage/supabase"
	"github.com/renderinc/prolocator/internal/sweep"
	"github.com/renderinc/prolocator/internal/web"
)

func main() {
	// Parse global flags
	globalFlags := flag.NewFlagSet("global", flag.ExitOnError)
	configPath := globalFlags.String("config", "", "Optional YAML config file")
	dataDir := globalFlags.String("data-dir", "", "Directory for database and index files (overrides DATA_DIR)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Find where the command starts (skip global flags)
	commandIdx := 1
	for i := 1; i < len(os.Args); i++ {
		if !strings.HasPrefix(os.Args[i], "-") {
			commandIdx = i
			break
		}
	}
	if commandIdx > 1 {
		_ = globalFlags.Parse(os.Args[1:commandIdx])
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Store.DataDir = *dataDir
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := os.Args[commandIdx]
	args := os.Args[commandIdx+1:]

	switch command {
	case "serve":
		serveFlags := flag.NewFlagSet("serve", flag.ExitOnError)
		port := serveFlags.Int("port", cfg.Server.Port, "Port to listen on")
		host := serveFlags.String("host", cfg.Server.Host, "Host to bind to")
		_ = serveFlags.Parse(args)
		cfg.Server.Port = *port
		cfg.Server.Host = *host
		err = runServe(ctx, cfg, logger)
	case "search":
		searchFlags := flag.NewFlagSet("search", flag.ExitOnError)
		radius := searchFlags.Float64("radius", cfg.Places.Radius, "Search radius in meters")
		_ = searchFlags.Parse(args)
		if searchFlags.NArg() < 2 {
			fmt.Println("Error: category and location required")
			fmt.Println("Usage: prolocator [global-flags] search [-radius=<m>] <category> <location>")
			os.Exit(1)
		}
		location := strings.Join(searchFlags.Args()[1:], " ")
		err = runSearch(ctx, cfg, logger, searchFlags.Arg(0), location, *radius)
	case "details":
		if len(args) < 1 {
			fmt.Println("Error: place ID required")
			fmt.Println("Usage: prolocator [global-flags] details <place-id>")
			os.Exit(1)
		}
		err = runDetails(ctx, cfg, logger, args[0])
	case "cleanup":
		err = runCleanup(ctx, cfg, logger)
	case "reindex":
		err = runReindex(ctx, cfg, logger)
	case "find":
		if len(args) < 1 {
			fmt.Println("Error: search query required")
			fmt.Println("Usage: prolocator [global-flags] find <query>")
			os.Exit(1)
		}
		err = runFind(cfg, strings.Join(args, " "))
	case "stats":
		err = runStats(ctx, cfg, logger)
	case "warm":
		if len(args) < 2 {
			fmt.Println("Error: category and at least one location required")
			fmt.Println("Usage: prolocator [global-flags] warm <category> <location>...")
			os.Exit(1)
		}
		err = runWarm(ctx, cfg, logger, args[0], args[1:])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("prolocator - Find Texas home-service pros with a cached Places lookup")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  prolocator [global-flags] <command> [flags]")
	fmt.Println()
	fmt.Println("Global Flags:")
	fmt.Println("  --config=<file>    YAML config file (environment variables override it)")
	fmt.Println("  --data-dir=<dir>   Directory for database and index files (default: ./data)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve [flags]                  Start the HTTP API")
	fmt.Println("  search <category> <location>   Search for businesses (cached for 7 days)")
	fmt.Println("  details <place-id>             Show one business (cached for 30 days)")
	fmt.Println("  cleanup                        Evict expired search cache entries")
	fmt.Println("  reindex                        Rebuild the local business index from the cache")
	fmt.Println("  find <query>                   Search the local business index")
	fmt.Println("  stats                          Show cache and index statistics")
	fmt.Println("  warm <category> <location>...  Refresh stale searches for several locations")
	fmt.Println()
	fmt.Println("Serve Flags:")
	fmt.Println("  -port=<port>  Port to listen on (default: 8080)")
	fmt.Println("  -host=<host>  Host to bind to (default: all interfaces)")
}

// backend is a cache store that can also report its size and enumerate
// businesses for the index.
type backend interface {
	cache.Store
	ListBusinesses(ctx context.Context) ([]storage.Business, error)
	Count(ctx context.Context) (storage.Counts, error)
	Close() error
}

// openStore opens the configured cache backend. It returns nil when caching
// is disabled.
func openStore(cfg *config.Config, logger *zap.Logger) (backend, error) {
	switch cfg.Store.Backend {
	case config.BackendNone:
		logger.Warn("caching disabled by configuration")
		return nil, nil
	case config.BackendSupabase:
		store, err := supabase.Open(cfg.Store.SupabaseURL, cfg.Store.SupabaseKey)
		if err != nil {
			return nil, err
		}
		if !store.Available() {
			logger.Warn("supabase credentials missing, caching disabled")
			return nil, nil
		}
		return store, nil
	default:
		if err := os.MkdirAll(cfg.Store.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		var opts []storage.Option
		if cfg.Cache.Consistency == config.ConsistencyStepwise {
			opts = append(opts, storage.WithStepwiseWrites())
		}
		db, err := storage.Open(cfg.SQLitePath(), opts...)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

// app is everything a provider-backed command needs.
type app struct {
	store   backend
	index   *search.Index
	client  *places.Client
	service *lookup.Service
	cleaner *cache.Cleaner
	metrics *metrics.Collector
}

func (a *app) Close() {
	if a.index != nil {
		_ = a.index.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &app{store: store, metrics: metrics.NewCollector("prolocator")}

	if cfg.Cache.IndexBusinesses {
		if err := os.MkdirAll(cfg.Store.DataDir, 0o755); err != nil {
			a.Close()
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		idx, err := search.Open(cfg.IndexPath())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open index: %w", err)
		}
		a.index = idx
	}

	a.client = places.NewClient(cfg.Places.APIKey,
		places.WithBaseURL(cfg.Places.BaseURL),
		places.WithHTTPClient(&http.Client{Timeout: cfg.Places.Timeout}),
		places.WithLogger(logger.Named("places")),
		places.WithMetrics(a.metrics),
		places.WithBreaker(cfg.BreakerConfig()),
	)
	if !a.client.Configured() {
		logger.Warn("GOOGLE_PLACES_API_KEY is not set; provider lookups will fail")
	}

	var cacheStore cache.Store
	if store != nil {
		cacheStore = store
	}
	common := []cache.Option{cache.WithLogger(logger), cache.WithMetrics(a.metrics)}
	searches := cache.NewSearchCache(cacheStore, append(common, cache.WithTTL(cfg.Cache.SearchTTL))...)
	details := cache.NewDetailCache(cacheStore, append(common, cache.WithTTL(cfg.Cache.DetailsTTL))...)
	a.cleaner = cache.NewCleaner(cacheStore, append(common, cache.WithTTL(cfg.Cache.SearchTTL))...)

	opts := []lookup.Option{lookup.WithLogger(logger), lookup.WithMetrics(a.metrics)}
	if a.index != nil {
		opts = append(opts, lookup.WithIndexer(a.index))
	}
	if cfg.Cache.DedupeInflight {
		opts = append(opts, lookup.WithDedupe())
	}
	a.service = lookup.NewService(a.client, searches, details, opts...)
	return a, nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var finder web.Finder
	if a.index != nil {
		finder = a.index
	}
	server := web.NewServer(a.service, finder, web.Health{
		StoreAvailable:     a.store != nil,
		ProviderConfigured: a.client.Configured(),
	}, logger, a.metrics)

	worker := sweep.NewWorker(a.cleaner, a.service, logger)
	if a.store != nil && cfg.Cache.CleanupInterval > 0 {
		go worker.Run(ctx, cfg.Cache.CleanupInterval)
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runSearch(ctx context.Context, cfg *config.Config, logger *zap.Logger, category, location string, radius float64) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.service.Search(ctx, lookup.SearchRequest{Category: category, Location: location, Radius: radius})
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runDetails(ctx context.Context, cfg *config.Config, logger *zap.Logger, placeID string) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.service.Details(ctx, placeID)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runCleanup(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if store == nil {
		fmt.Println("Caching is disabled; nothing to clean up.")
		return nil
	}
	defer store.Close()

	cleaner := cache.NewCleaner(store, cache.WithTTL(cfg.Cache.SearchTTL), cache.WithLogger(logger))
	n := cleaner.Evict(ctx)
	fmt.Printf("Evicted %d search cache entries older than %v\n", n, cfg.Cache.SearchTTL)
	return nil
}

func runReindex(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	fmt.Println("Rebuilding business index...")

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if store == nil {
		return errors.New("caching is disabled; there is nothing to index")
	}
	defer store.Close()

	if err := os.MkdirAll(cfg.Store.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	idx, err := search.Open(cfg.IndexPath())
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()

	start := time.Now()
	n, err := idx.IndexFromStorage(ctx, store)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("=== Reindex Complete ===")
	fmt.Printf("Businesses indexed: %d\n", n)
	fmt.Printf("Duration:           %v\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func runFind(cfg *config.Config, query string) error {
	idx, err := search.Open(cfg.IndexPath())
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()

	results, err := idx.Search(query, 20)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Printf("No businesses found for %q\n", query)
		return nil
	}
	fmt.Printf("Found %d businesses for %q:\n\n", len(results), query)
	for i, r := range results {
		fmt.Printf("%2d. %s (%s)\n", i+1, r.Name, r.ID)
		if r.Address != "" {
			fmt.Printf("    %s\n", r.Address)
		}
		fmt.Printf("    score: %.3f\n", r.Score)
	}
	return nil
}

func runStats(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	fmt.Println("=== prolocator Statistics ===")
	fmt.Printf("Backend:             %s\n", cfg.Store.Backend)
	if store != nil {
		defer store.Close()
		counts, err := store.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Businesses:          %d\n", counts.Businesses)
		fmt.Printf("Reviews:             %d\n", counts.Reviews)
		fmt.Printf("Cached searches:     %d\n", counts.SearchKeys)
		fmt.Printf("Ranked results:      %d\n", counts.RankRows)
	} else {
		fmt.Println("Caching:             disabled")
	}

	if _, err := os.Stat(cfg.IndexPath()); err == nil {
		idx, err := search.Open(cfg.IndexPath())
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
		n, err := idx.Count()
		if err != nil {
			return err
		}
		fmt.Printf("Indexed businesses:  %d\n", n)
	}
	return nil
}

func runWarm(ctx context.Context, cfg *config.Config, logger *zap.Logger, category string, locations []string) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	targets := make([]sweep.Target, 0, len(locations))
	for _, loc := range locations {
		targets = append(targets, sweep.Target{Category: category, Location: loc})
	}
	stats := sweep.NewWorker(a.cleaner, a.service, logger).Warm(ctx, targets)

	fmt.Println("=== Warm-up Complete ===")
	fmt.Printf("Searches:  %d\n", stats.Total)
	fmt.Printf("Fetched:   %d\n", stats.Fetched)
	fmt.Printf("Cached:    %d\n", stats.Cached)
	fmt.Printf("Errors:    %d\n", stats.Errors)
	fmt.Printf("Duration:  %v\n", stats.Duration.Round(time.Millisecond))
	return nil
}
