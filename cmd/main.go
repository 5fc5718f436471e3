package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/kunstquiz/internal/adapters/http/api"
	"github.com/okian/kunstquiz/internal/adapters/repository"
	"github.com/okian/kunstquiz/internal/adapters/source"
	app "github.com/okian/kunstquiz/internal/app"
	"github.com/okian/kunstquiz/internal/config"
	"github.com/okian/kunstquiz/internal/domain/filter"
	"github.com/okian/kunstquiz/internal/domain/model"
	"github.com/okian/kunstquiz/pkg/logger"
	"github.com/okian/kunstquiz/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Our metrics live on a custom registry; keep the default one quiet.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> .env -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "server exited", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the catalog, rating store, service and HTTP server, and blocks
// until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	items, lookup, err := loadCatalog(ctx, cfg, log)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	svc := app.New(serviceOptions(cfg, store, lookup, log)...)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
	}()

	if len(items) > 0 {
		stats, err := svc.LoadCatalog(ctx, items)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		log.Info(ctx, "catalog loaded",
			logger.Int("usable", stats.Usable),
			logger.Int("rejected", stats.Rejected),
			logger.Int64("version", int64(stats.Version)))
	} else {
		log.Warn(ctx, "no catalog_path configured; rounds fail until a catalog is loaded")
	}

	// Start metrics updaters
	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(svc, cfg.CORSOrigins, log.Named("http")).Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// loadCatalog reads the configured catalog and lookup files. No catalog path
// yields no items.
func loadCatalog(ctx context.Context, cfg *config.Config, log logger.Logger) ([]model.Item, filter.Lookup, error) {
	if cfg.CatalogPath == "" {
		return nil, nil, nil
	}
	items, lookup, err := source.LoadFile(ctx, log.Named("source"), cfg.CatalogFormat, cfg.CatalogPath, cfg.LookupPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read catalog: %w", err)
	}
	return items, lookup, nil
}

// openStore opens the rating snapshot store selected by store_driver.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		store, err := repository.NewSQLiteStore(ctx, cfg.StoreDSN)
		if err != nil {
			return nil, fmt.Errorf("open rating store: %w", err)
		}
		return store, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

// serviceOptions maps configuration onto service options.
func serviceOptions(cfg *config.Config, store repository.Store, lookup filter.Lookup, log logger.Logger) []app.Option {
	return []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithStore(store),
		app.WithLookup(lookup),
		app.WithFilters(cfg.FilterSpecs()...),
		app.WithDimensions(cfg.Dimensions...),
		app.WithRoundLength(cfg.RoundLength),
		app.WithRecencySize(cfg.RecencySize),
		app.WithWeighting(cfg.WeightCap, cfg.RareBonus),
		app.WithMaxRebuilds(cfg.MaxRebuilds),
		app.WithRating(cfg.InitialRating, cfg.KCorrect, cfg.KIncorrect, cfg.Baseline),
		app.WithPrefetch(cfg.PrefetchWorkers, cfg.PrefetchQueueSize, time.Duration(cfg.PrefetchTimeoutMS)*time.Millisecond),
		app.WithSeed(cfg.Seed),
	}
}

// startSystemMetricsUpdater periodically records memory and goroutine gauges.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater periodically refreshes service gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats refreshes the session and prefetch queue gauges.
			_ = svc.GetStats()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
