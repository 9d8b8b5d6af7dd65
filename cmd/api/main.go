package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohamedkhairy/golden-cross/internal/api"
	"github.com/mohamedkhairy/golden-cross/internal/app"
	"github.com/mohamedkhairy/golden-cross/internal/config"
	"github.com/mohamedkhairy/golden-cross/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting golden cross API service",
		logger.Int("port", cfg.API.Port),
		logger.String("db_driver", cfg.Database.Driver),
		logger.String("provider", cfg.MarketData.Provider),
		logger.String("engine", cfg.Scanner.Engine),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open bar store", logger.ErrorField(err))
	}
	defer a.Close()

	runner, err := a.Runner(nil)
	if err != nil {
		logger.Fatal("Failed to initialize fetcher", logger.ErrorField(err))
	}

	detector, err := a.Detector()
	if err != nil {
		logger.Fatal("Failed to initialize detector", logger.ErrorField(err))
	}

	publisher, err := a.Publisher(ctx)
	if err != nil {
		logger.Fatal("Failed to initialize crossover publisher", logger.ErrorField(err))
	}
	defer publisher.Close()

	handler := api.NewRouter(api.Handlers{
		Symbols:    api.NewSymbolHandler(a.Store),
		Crossovers: api.NewCrossoverHandler(detector, cfg.Scanner, publisher),
		Ingest:     api.NewIngestHandler(runner, cfg.MarketData),
		Ready:      a.Ready,
	})

	// Start HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", logger.ErrorField(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("Shutting down golden cross API service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", logger.ErrorField(err))
	}

	logger.Info("Golden cross API service stopped")
}
