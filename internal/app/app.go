// Package app wires the engine, metastore, services and HTTP handler of the
// tables server from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"duck-tables/internal/api"
	"duck-tables/internal/config"
	"duck-tables/internal/db"
	"duck-tables/internal/engine"
	"duck-tables/internal/middleware"
	"duck-tables/internal/mockdata"
	"duck-tables/internal/repository"
	"duck-tables/internal/service/comparison"
	"duck-tables/internal/service/preset"
	"duck-tables/internal/service/refresh"
	"duck-tables/internal/service/table"
)

// metastoreReaders is the size of the SQLite read pool.
const metastoreReaders = 4

// Deps holds what main must provide.
type Deps struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// App holds the fully-wired application. Refresher and Scheduler are nil
// when datasets come from a manifest.
type App struct {
	Engine    *engine.Engine
	Metastore *db.Metastore
	Refresher *refresh.Refresher
	Scheduler *refresh.Scheduler
	Services  api.Services
	Handler   *api.APIHandler

	cfg    *config.Config
	logger *slog.Logger
}

// New opens the engine and metastore, loads datasets and builds every
// service. On error everything opened so far is closed again.
func New(ctx context.Context, deps Deps) (_ *App, err error) {
	cfg, logger := deps.Cfg, deps.Logger
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	// === Engine ===
	a.Engine, err = engine.Open(ctx, engine.Options{
		Path:        cfg.DuckDBPath,
		Threads:     cfg.DuckDBThreads,
		MemoryLimit: cfg.DuckDBMemoryLimit,
	}, logger.With("component", "engine"))
	if err != nil {
		return nil, err
	}

	// === Datasets ===
	if cfg.UsesMockData() {
		a.Refresher = refresh.NewRefresher(cfg.MockDataDir, mockdata.Options{Seed: cfg.MockSeed, Rows: cfg.MockRows},
			a.Engine, logger.With("component", "refresh"))
		a.Scheduler = refresh.NewScheduler(a.Refresher, logger.With("component", "refresh-scheduler"))
	}
	if err := a.restoreDatasets(ctx); err != nil {
		return nil, err
	}

	// === Metastore ===
	a.Metastore, err = db.Open(ctx, cfg.MetaDBPath, metastoreReaders)
	if err != nil {
		return nil, err
	}

	// === Services ===
	tableSvc := table.NewService(a.Engine, logger.With("component", "tables"))
	presetSvc := preset.NewService(repository.NewPresetRepo(a.Metastore), tableSvc, logger.With("component", "presets"))
	a.Services = api.Services{
		Catalog:     a.Engine,
		Tables:      tableSvc,
		Comparisons: comparison.NewService(a.Engine, logger.With("component", "comparisons")),
		Presets:     presetSvc,
	}
	if a.Refresher != nil {
		a.Services.Refresher = a.Refresher
		if err := seedPresets(ctx, presetSvc); err != nil {
			logger.Warn("seed presets failed", "error", err)
		}
	}
	a.Handler = api.NewHandler(a.Services, logger.With("component", "api"))
	return a, nil
}

// Router returns the HTTP handler. ctx bounds background middleware work.
func (a *App) Router(ctx context.Context) http.Handler {
	return api.NewRouter(ctx, a.Handler, api.RouterConfig{
		CORSAllowedOrigins: a.cfg.CORSAllowedOrigins,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: a.cfg.RateLimitRPS,
			Burst:             a.cfg.RateLimitBurst,
		},
		RequestTimeout: a.cfg.QueryTimeout,
	})
}

// Start launches the mock refresh schedule, if any.
func (a *App) Start(ctx context.Context) error {
	if a.Scheduler == nil || a.cfg.MockRefreshCron == "" {
		return nil
	}
	if err := a.Scheduler.Start(ctx, a.cfg.MockRefreshCron); err != nil {
		return fmt.Errorf("start refresh scheduler: %w", err)
	}
	a.logger.Info("mock data refresh scheduled", "cron", a.cfg.MockRefreshCron, "next", a.Scheduler.Next())
	return nil
}

// Close stops the scheduler and closes the metastore and engine.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	var errs []error
	if a.Metastore != nil {
		errs = append(errs, a.Metastore.Close())
	}
	if a.Engine != nil {
		errs = append(errs, a.Engine.Close())
	}
	return errors.Join(errs...)
}
