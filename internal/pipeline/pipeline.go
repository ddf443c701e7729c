// Package pipeline orchestrates one feature-engineering pass: extract raw
// observations, align them onto the zone calendar, compute rolling and
// derived features, encode calendar context, impute gaps, and load the
// assembled matrix.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"avalanche-feature-etl/internal/config"
	"avalanche-feature-etl/internal/domain"
	"avalanche-feature-etl/internal/feature"
	"avalanche-feature-etl/internal/observability"
)

// Extractor reads every raw observation available for a run.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.Observation, error)
}

// Loader persists a finished feature matrix.
type Loader interface {
	Load(ctx context.Context, m domain.FeatureMatrix) error
}

// Pipeline runs the feature build end to end. A Pipeline is safe for
// concurrent use: Run may execute on a scheduler goroutine while HTTP
// handlers call Latest and CheckReadiness.
type Pipeline struct {
	extractor Extractor
	loader    Loader
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.Metrics

	ready atomic.Bool

	mu     sync.RWMutex
	latest *domain.FeatureMatrix
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, l Loader, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor: e,
		loader:    l,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no feature matrix built yet")
	}
	return nil
}

// Latest returns the most recently built matrix, or false before the first
// successful run.
func (p *Pipeline) Latest() (domain.FeatureMatrix, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return domain.FeatureMatrix{}, false
	}
	return *p.latest, true
}

// Run executes one full pass. Any stage error aborts the run; a partial
// matrix is never loaded.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	m, err := p.run(ctx)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		p.logger.Error("run failed", "error", err)
		return err
	}

	p.mu.Lock()
	p.latest = &m
	p.mu.Unlock()
	p.ready.Store(true)

	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.metrics.LastSuccessTimestamp.SetToCurrentTime()
	p.metrics.MatrixRows.Set(float64(len(m.Rows)))
	p.metrics.MatrixColumns.Set(float64(len(m.Columns)))

	p.logger.Info("run complete",
		"run_id", m.RunID,
		"rows", len(m.Rows),
		"columns", len(m.Columns),
		"duration", time.Since(start))
	return nil
}

func (p *Pipeline) run(ctx context.Context) (domain.FeatureMatrix, error) {
	obs, err := p.timedExtract(ctx)
	if err != nil {
		return domain.FeatureMatrix{}, err
	}

	aligned, report, err := p.timedAlign(obs)
	if err != nil {
		return domain.FeatureMatrix{}, err
	}
	p.logger.Info("aligned observations",
		"observations", report.Observations,
		"out_of_range", report.OutOfRange,
		"duplicates", report.Duplicates,
		"zones", len(aligned))

	tables := make([]*domain.ZoneSeries, 0, 4*len(aligned))
	stageStart := time.Now()
	for _, raw := range aligned {
		if err := ctx.Err(); err != nil {
			return domain.FeatureMatrix{}, err
		}

		rolling, err := feature.BuildRolling(raw, p.cfg.Windows, p.cfg.Lags)
		if err != nil {
			return domain.FeatureMatrix{}, err
		}
		derived, err := feature.BuildDerived(raw, rolling, p.cfg.Derived)
		if err != nil {
			return domain.FeatureMatrix{}, err
		}
		calendar, err := feature.EncodeCalendar(raw)
		if err != nil {
			return domain.FeatureMatrix{}, err
		}

		zoneTables := []*domain.ZoneSeries{raw, rolling, derived}
		for i, t := range zoneTables {
			filled, err := feature.Impute(t, p.cfg.Impute)
			if err != nil {
				return domain.FeatureMatrix{}, err
			}
			zoneTables[i] = filled
		}
		tables = append(tables, zoneTables[0], zoneTables[1], zoneTables[2], calendar)
	}
	p.metrics.StageDuration.WithLabelValues("features").Observe(time.Since(stageStart).Seconds())

	stageStart = time.Now()
	m, err := feature.Assemble(tables, domain.Now())
	if err != nil {
		return domain.FeatureMatrix{}, err
	}
	p.metrics.StageDuration.WithLabelValues("assemble").Observe(time.Since(stageStart).Seconds())

	stageStart = time.Now()
	if err := p.loader.Load(ctx, m); err != nil {
		return domain.FeatureMatrix{}, err
	}
	p.metrics.StageDuration.WithLabelValues("load").Observe(time.Since(stageStart).Seconds())

	return m, nil
}

func (p *Pipeline) timedExtract(ctx context.Context) ([]domain.Observation, error) {
	start := time.Now()
	obs, err := p.extractor.Extract(ctx)
	if err != nil {
		return nil, err
	}
	p.metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())
	p.metrics.ObservationsRead.Add(float64(len(obs)))
	return obs, nil
}

func (p *Pipeline) timedAlign(obs []domain.Observation) ([]*domain.ZoneSeries, feature.AlignReport, error) {
	start := time.Now()
	aligned, report, err := feature.Align(obs, p.cfg.Zones, p.cfg.Ranges)
	if err != nil {
		return nil, feature.AlignReport{}, err
	}
	p.metrics.StageDuration.WithLabelValues("align").Observe(time.Since(start).Seconds())
	p.metrics.ObservationsDiscard.WithLabelValues("out_of_range").Add(float64(report.OutOfRange))
	p.metrics.ObservationsDiscard.WithLabelValues("duplicate").Add(float64(report.Duplicates))
	return aligned, report, nil
}
