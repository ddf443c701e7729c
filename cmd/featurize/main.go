// Command featurize runs one feature-engineering pass: optionally ingest
// weather and avalanche CSV exports into the observation store, then build
// and persist a feature matrix.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"avalanche-feature-etl/internal/adapter/csvsource"
	"avalanche-feature-etl/internal/adapter/sqlite"
	"avalanche-feature-etl/internal/config"
	"avalanche-feature-etl/internal/observability"
	"avalanche-feature-etl/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to YAML config (optional)")
	weatherCSV := flag.String("weather", "", "weather CSV to ingest before the run")
	eventsCSV := flag.String("events", "", "avalanche event CSV to ingest before the run")
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ingest(ctx, store, *weatherCSV, *eventsCSV, logger); err != nil {
		logger.Error("ingest failed", "error", err)
		os.Exit(1)
	}

	p := pipeline.New(store, store, cfg, logger, metrics)
	if err := p.Run(ctx); err != nil {
		os.Exit(1)
	}

	// With a schedule configured, keep rebuilding until interrupted.
	if cfg.Schedule != "" {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.Schedule, func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("scheduled run failed", "error", err)
			}
		}); err != nil {
			logger.Error("invalid schedule", "schedule", cfg.Schedule, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		logger.Info("scheduler started", "schedule", cfg.Schedule)

		<-ctx.Done()
		<-scheduler.Stop().Done()
	}
}

func ingest(ctx context.Context, store *sqlite.Store, weatherCSV, eventsCSV string, logger *slog.Logger) error {
	if weatherCSV != "" {
		f, err := os.Open(weatherCSV)
		if err != nil {
			return err
		}
		obs, err := csvsource.ReadObservations(f)
		f.Close()
		if err != nil {
			return err
		}
		if err := store.PutObservations(ctx, obs); err != nil {
			return err
		}
		logger.Info("ingested weather observations", "file", weatherCSV, "observations", len(obs))
	}

	if eventsCSV != "" {
		f, err := os.Open(eventsCSV)
		if err != nil {
			return err
		}
		events, err := csvsource.ReadEvents(f)
		f.Close()
		if err != nil {
			return err
		}
		if err := store.PutEvents(ctx, events); err != nil {
			return err
		}
		logger.Info("ingested avalanche events", "file", eventsCSV, "events", len(events))
	}
	return nil
}
