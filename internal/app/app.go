// Package app wires configuration into the store, fetcher, ingest runner,
// detector and publisher shared by the binaries.
package app

import (
	"context"

	"github.com/mohamedkhairy/golden-cross/internal/config"
	"github.com/mohamedkhairy/golden-cross/internal/crossover"
	"github.com/mohamedkhairy/golden-cross/internal/fetcher"
	"github.com/mohamedkhairy/golden-cross/internal/ingest"
	"github.com/mohamedkhairy/golden-cross/internal/notify"
	"github.com/mohamedkhairy/golden-cross/internal/storage"
	"github.com/mohamedkhairy/golden-cross/pkg/indicator"
	"github.com/mohamedkhairy/golden-cross/pkg/logger"
	"github.com/mohamedkhairy/golden-cross/pkg/retry"
)

// App owns the open store and builds the components that use it
type App struct {
	Config *config.Config
	Store  storage.BarStore
}

// Open connects to the configured store and ensures the bar table exists
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := storage.Open(ctx, cfg.Database, RetryPolicy(cfg.Database.Connect))
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return &App{Config: cfg, Store: store}, nil
}

// Close releases the store
func (a *App) Close() error {
	return a.Store.Close()
}

// Ready reports whether the store answers a single ping
func (a *App) Ready(ctx context.Context) error {
	if p, ok := a.Store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Runner builds an ingest runner for the configured provider
func (a *App) Runner(progress ingest.Progress) (*ingest.Runner, error) {
	f, err := fetcher.NewFetcher(a.Config.MarketData)
	if err != nil {
		return nil, err
	}
	return ingest.NewRunner(f, a.Store, ingest.Config{
		LookbackDays: a.Config.Ingest.LookbackDays,
		Workers:      a.Config.Ingest.Workers,
		Progress:     progress,
	}), nil
}

// Detector builds a crossover detector over the store
func (a *App) Detector() (*crossover.Detector, error) {
	return NewDetector(a.Store, a.Config.Scanner)
}

// Publisher connects to Redis when it is configured
func (a *App) Publisher(ctx context.Context) (notify.Publisher, error) {
	return notify.New(ctx, a.Config.Redis)
}

// NewDetector resolves the configured engine and comparison
func NewDetector(store storage.BarStore, cfg config.ScannerConfig) (*crossover.Detector, error) {
	engine, err := indicator.DefaultRegistry().Get(cfg.Engine)
	if err != nil {
		return nil, err
	}
	prev, err := crossover.ParseComparison(cfg.PrevComparison)
	if err != nil {
		return nil, err
	}

	logger.Debug("Detector configured",
		logger.String("engine", engine.Name()),
		logger.String("prev_comparison", string(prev)),
		logger.Int("workers", cfg.Workers),
	)

	return crossover.NewDetector(store, crossover.DetectorConfig{
		Engine:  engine,
		Prev:    prev,
		Workers: cfg.Workers,
	}), nil
}

// RetryPolicy converts connection retry settings to a retry.Policy
func RetryPolicy(c config.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts: c.MaxAttempts,
		Delay:       c.Delay,
		Backoff:     c.Backoff,
		MaxDelay:    c.MaxDelay,
	}
}
