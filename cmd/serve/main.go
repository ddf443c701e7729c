// Command serve runs the feature pipeline on a schedule and exposes the
// HTTP API: health, readiness, metrics, zones, and risk assessments built
// from the latest feature matrix.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	httpadapter "avalanche-feature-etl/internal/adapter/http"
	"avalanche-feature-etl/internal/adapter/sqlite"
	"avalanche-feature-etl/internal/config"
	"avalanche-feature-etl/internal/observability"
	"avalanche-feature-etl/internal/pipeline"
	"avalanche-feature-etl/internal/risk"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store, err := sqlite.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	p := pipeline.New(store, store, cfg, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, risk.NewWeightedScorer(), cfg.Zones, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Build once at startup so the API has data before the first tick.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("initial run failed", "error", err)
		}
	}()

	var scheduler *cron.Cron
	if cfg.Schedule != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.Schedule, func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("scheduled run failed", "error", err)
			}
		})
		if err != nil {
			logger.Error("invalid schedule", "schedule", cfg.Schedule, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		logger.Info("scheduler started", "schedule", cfg.Schedule)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
