// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/siteprobe/internal/analysis"
	"github.com/JakeFAU/siteprobe/internal/clock/system"
	"github.com/JakeFAU/siteprobe/internal/config"
	"github.com/JakeFAU/siteprobe/internal/coordinator"
	collyfetcher "github.com/JakeFAU/siteprobe/internal/fetcher/colly"
	"github.com/JakeFAU/siteprobe/internal/fetcher/headless"
	"github.com/JakeFAU/siteprobe/internal/metrics"
	"github.com/JakeFAU/siteprobe/internal/probe"
	"github.com/JakeFAU/siteprobe/internal/ratelimit"
	"github.com/JakeFAU/siteprobe/internal/storage/memory"
	"github.com/JakeFAU/siteprobe/internal/storage/postgres"
	"github.com/JakeFAU/siteprobe/internal/storage/sqlite"
	"github.com/JakeFAU/siteprobe/internal/telemetry"
)

// App holds the shared, long-lived services for one process: the configured
// result store and the coordinator that analyses are run through.
type App struct {
	cfg         config.Config
	logger      *zap.Logger
	store       analysis.ResultStore
	coordinator *coordinator.Coordinator
	shutdown    telemetry.ShutdownFunc
}

// Config returns the configuration the app was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Store returns the configured result store.
func (a *App) Store() analysis.ResultStore {
	return a.store
}

// Coordinator returns the analysis coordinator.
func (a *App) Coordinator() *coordinator.Coordinator {
	return a.coordinator
}

// New creates and initializes an App from cfg. It fails fast if the store
// cannot be opened or the renderer cannot be configured.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	shutdown, err := telemetry.InitTracerProvider(ctx, cfg.Tracing, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	logger.Info("result store opened", zap.String("driver", cfg.Store.Driver))

	probes, err := BuildProbes(cfg, logger)
	if err != nil {
		_ = store.Close()
		_ = shutdown(ctx)
		return nil, err
	}
	coord, err := coordinator.New(probes, store, system.New(), logger)
	if err != nil {
		_ = store.Close()
		_ = shutdown(ctx)
		return nil, fmt.Errorf("init coordinator: %w", err)
	}

	return &App{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		coordinator: coord,
		shutdown:    shutdown,
	}, nil
}

// OpenStore opens the result store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (analysis.ResultStore, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.Path, Table: cfg.Table})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, postgres.Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	case config.DriverMemory:
		return memory.NewResultStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}

// BuildProbes wires the three probes. Every plain HTTP check gets its own
// fetcher so no two checks share a transport; all of them share one per-host
// rate limiter.
func BuildProbes(cfg config.Config, logger *zap.Logger) (coordinator.Probes, error) {
	limiter := ratelimit.New(ratelimit.Config{RPS: cfg.HTTP.MaxRPS, Burst: cfg.HTTP.Burst})
	newFetcher := func(timeout time.Duration) analysis.Fetcher {
		return ratelimit.Wrap(collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.HTTP.UserAgent,
			Timeout:   timeout,
		}), limiter, timeout)
	}

	renderer, err := buildRenderer(cfg, logger)
	if err != nil {
		return coordinator.Probes{}, err
	}

	policy := probe.NewPolicyAnalyzer(newFetcher(cfg.Policy.Timeout), logger)
	content := probe.NewContentExtractor(
		newFetcher(cfg.Content.Timeout),
		logger,
		probe.WithRetryPolicy(probe.RetryPolicy{
			MaxAttempts: cfg.Content.MaxAttempts,
			BaseDelay:   cfg.Content.BackoffBase,
		}),
	)
	access := probe.NewAccessProbe(
		probe.AccessConfig{
			RenderRatio: cfg.Render.Ratio,
			FeedPath:    cfg.Feed.Path,
			APIPaths:    cfg.API.Paths,
		},
		renderer,
		probe.AccessFetchers{
			Page: newFetcher(cfg.Content.Timeout),
			Feed: newFetcher(cfg.Feed.Timeout),
			API:  newFetcher(cfg.API.Timeout),
		},
		logger,
	)
	return coordinator.Probes{Policy: policy, Content: content, Access: access}, nil
}

func buildRenderer(cfg config.Config, logger *zap.Logger) (analysis.Renderer, error) {
	if !cfg.Render.Enabled {
		logger.Info("browser rendering disabled")
		return headless.NewDisabled(), nil
	}
	renderer, err := headless.NewChromedp(headless.Config{
		MaxParallel:       cfg.Render.MaxParallel,
		UserAgent:         cfg.HTTP.UserAgent,
		NavigationTimeout: cfg.Render.Timeout,
		ExecPath:          cfg.Render.ExecPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}
	return renderer, nil
}

// Close releases the result store and flushes the logger.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	if err := a.store.Close(); err != nil {
		a.logger.Warn("error closing result store", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("error flushing traces", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// Analyze runs one analysis through the coordinator.
func (a *App) Analyze(ctx context.Context, rawURL string) (analysis.Record, error) {
	return a.coordinator.Analyze(ctx, rawURL)
}
