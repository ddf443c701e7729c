// Package sqlite persists raw observations, avalanche event logs, and built
// feature matrices in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"avalanche-feature-etl/internal/domain"
)

const dateLayout = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS observations (
	zone_id TEXT NOT NULL,
	date    TEXT NOT NULL,
	metric  TEXT NOT NULL,
	value   REAL NOT NULL,
	PRIMARY KEY (zone_id, date, metric)
);

CREATE TABLE IF NOT EXISTS avalanche_events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	zone_id TEXT NOT NULL,
	date    TEXT NOT NULL,
	dsize   TEXT NOT NULL DEFAULT '',
	type    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_avalanche_events_zone_date
	ON avalanche_events (zone_id, date);

CREATE TABLE IF NOT EXISTS feature_runs (
	run_id   TEXT PRIMARY KEY,
	built_at TEXT NOT NULL,
	columns  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS feature_rows (
	run_id  TEXT NOT NULL REFERENCES feature_runs (run_id),
	zone_id TEXT NOT NULL,
	date    TEXT NOT NULL,
	vals    TEXT NOT NULL,
	PRIMARY KEY (run_id, zone_id, date)
);
`

// Store wraps the SQLite database. It serves as both the pipeline's
// extractor (observations plus rolled-up avalanche events) and its loader.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open connects to the SQLite file at path, creating it if absent, and
// ensures the schema exists.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type observationRow struct {
	ZoneID string  `db:"zone_id"`
	Date   string  `db:"date"`
	Metric string  `db:"metric"`
	Value  float64 `db:"value"`
}

type eventRow struct {
	ZoneID string `db:"zone_id"`
	Date   string `db:"date"`
	DSize  string `db:"dsize"`
	Type   string `db:"type"`
}

// PutObservations upserts station observations. Re-ingesting a day replaces
// the stored value.
func (s *Store) PutObservations(ctx context.Context, obs []domain.Observation) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `INSERT INTO observations (zone_id, date, metric, value)
		VALUES (:zone_id, :date, :metric, :value)
		ON CONFLICT (zone_id, date, metric) DO UPDATE SET value = excluded.value`
	for _, o := range obs {
		v, ok := o.Value.Get()
		if !ok {
			continue
		}
		row := observationRow{
			ZoneID: o.ZoneID,
			Date:   domain.Day(o.Date).Format(dateLayout),
			Metric: o.Metric,
			Value:  v,
		}
		if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
			return fmt.Errorf("insert observation: %w", err)
		}
	}
	return tx.Commit()
}

// PutEvents appends avalanche event log entries.
func (s *Store) PutEvents(ctx context.Context, events []domain.AvalancheEvent) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `INSERT INTO avalanche_events (zone_id, date, dsize, type)
		VALUES (:zone_id, :date, :dsize, :type)`
	for _, e := range events {
		row := eventRow{
			ZoneID: e.ZoneID,
			Date:   domain.Day(e.Date).Format(dateLayout),
			DSize:  e.DSize,
			Type:   e.Type,
		}
		if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return tx.Commit()
}

// Extract reads every stored observation and rolls avalanche events up into
// daily metrics: avalanche_count, avalanche_slab, avalanche_wet, and
// avalanche_dsize_max.
func (s *Store) Extract(ctx context.Context) ([]domain.Observation, error) {
	var rows []observationRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT zone_id, date, metric, value FROM observations ORDER BY zone_id, date, metric`); err != nil {
		return nil, fmt.Errorf("select observations: %w", err)
	}

	obs := make([]domain.Observation, 0, len(rows))
	for _, r := range rows {
		d, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return nil, &domain.DataIntegrityError{Zone: r.ZoneID, Reason: fmt.Sprintf("bad observation date %q", r.Date)}
		}
		obs = append(obs, domain.Observation{
			ZoneID: r.ZoneID,
			Date:   d,
			Metric: r.Metric,
			Value:  domain.Present(r.Value),
		})
	}

	eventObs, err := s.extractEvents(ctx)
	if err != nil {
		return nil, err
	}
	return append(obs, eventObs...), nil
}

func (s *Store) extractEvents(ctx context.Context) ([]domain.Observation, error) {
	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT zone_id, date, dsize, type FROM avalanche_events ORDER BY zone_id, date, id`); err != nil {
		return nil, fmt.Errorf("select avalanche events: %w", err)
	}

	type dayKey struct {
		zone string
		date string
	}
	type rollup struct {
		count, slab, wet int
		dsizeMax         domain.Value
	}

	days := make(map[dayKey]*rollup)
	order := make([]dayKey, 0, len(rows))
	for _, r := range rows {
		k := dayKey{zone: r.ZoneID, date: r.Date}
		ru, seen := days[k]
		if !seen {
			ru = &rollup{dsizeMax: domain.Missing()}
			days[k] = ru
			order = append(order, k)
		}
		ru.count++
		switch strings.ToUpper(r.Type) {
		case "SLAB":
			ru.slab++
		case "WET":
			ru.wet++
		}
		if size, ok := domain.ParseDScale(r.DSize).Get(); ok {
			if cur, has := ru.dsizeMax.Get(); !has || size > cur {
				ru.dsizeMax = domain.Present(size)
			}
		}
	}

	obs := make([]domain.Observation, 0, 4*len(order))
	for _, k := range order {
		d, err := time.Parse(dateLayout, k.date)
		if err != nil {
			return nil, &domain.DataIntegrityError{Zone: k.zone, Reason: fmt.Sprintf("bad event date %q", k.date)}
		}
		ru := days[k]
		obs = append(obs,
			domain.Observation{ZoneID: k.zone, Date: d, Metric: "avalanche_count", Value: domain.Present(float64(ru.count))},
			domain.Observation{ZoneID: k.zone, Date: d, Metric: "avalanche_slab", Value: domain.Present(float64(ru.slab))},
			domain.Observation{ZoneID: k.zone, Date: d, Metric: "avalanche_wet", Value: domain.Present(float64(ru.wet))},
		)
		if _, ok := ru.dsizeMax.Get(); ok {
			obs = append(obs, domain.Observation{ZoneID: k.zone, Date: d, Metric: "avalanche_dsize_max", Value: ru.dsizeMax})
		}
	}
	return obs, nil
}

// Load writes a finished feature matrix as one run.
func (s *Store) Load(ctx context.Context, m domain.FeatureMatrix) error {
	cols, err := json.Marshal(m.Columns)
	if err != nil {
		return fmt.Errorf("marshal columns: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO feature_runs (run_id, built_at, columns) VALUES (?, ?, ?)`,
		m.RunID, m.BuiltAt.UTC().Format(time.RFC3339), string(cols)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	const q = `INSERT INTO feature_rows (run_id, zone_id, date, vals) VALUES (?, ?, ?, ?)`
	for _, row := range m.Rows {
		vals, err := json.Marshal(row.Values)
		if err != nil {
			return fmt.Errorf("marshal row: %w", err)
		}
		if _, err := tx.ExecContext(ctx, q,
			m.RunID, row.ZoneID, domain.Day(row.Date).Format(dateLayout), string(vals)); err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Info("feature matrix stored", "run_id", m.RunID, "rows", len(m.Rows))
	return nil
}

// LatestMatrix reads back the most recently built run. The second return is
// false when no run has been stored yet.
func (s *Store) LatestMatrix(ctx context.Context) (domain.FeatureMatrix, bool, error) {
	var run struct {
		RunID   string `db:"run_id"`
		BuiltAt string `db:"built_at"`
		Columns string `db:"columns"`
	}
	err := s.db.GetContext(ctx, &run,
		`SELECT run_id, built_at, columns FROM feature_runs ORDER BY built_at DESC, run_id LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FeatureMatrix{}, false, nil
	}
	if err != nil {
		return domain.FeatureMatrix{}, false, fmt.Errorf("select run: %w", err)
	}

	builtAt, err := time.Parse(time.RFC3339, run.BuiltAt)
	if err != nil {
		return domain.FeatureMatrix{}, false, fmt.Errorf("parse built_at: %w", err)
	}
	m := domain.FeatureMatrix{RunID: run.RunID, BuiltAt: builtAt}
	if err := json.Unmarshal([]byte(run.Columns), &m.Columns); err != nil {
		return domain.FeatureMatrix{}, false, fmt.Errorf("unmarshal columns: %w", err)
	}

	var rows []struct {
		ZoneID string `db:"zone_id"`
		Date   string `db:"date"`
		Vals   string `db:"vals"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT zone_id, date, vals FROM feature_rows WHERE run_id = ? ORDER BY zone_id, date`, run.RunID); err != nil {
		return domain.FeatureMatrix{}, false, fmt.Errorf("select rows: %w", err)
	}

	m.Rows = make([]domain.FeatureRow, 0, len(rows))
	for _, r := range rows {
		d, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return domain.FeatureMatrix{}, false, fmt.Errorf("parse row date: %w", err)
		}
		fr := domain.FeatureRow{ZoneID: r.ZoneID, Date: d}
		if err := json.Unmarshal([]byte(r.Vals), &fr.Values); err != nil {
			return domain.FeatureMatrix{}, false, fmt.Errorf("unmarshal row: %w", err)
		}
		if len(fr.Values) != len(m.Columns) {
			return domain.FeatureMatrix{}, false, &domain.DataIntegrityError{
				Zone:   r.ZoneID,
				Reason: fmt.Sprintf("row has %d values for %d columns", len(fr.Values), len(m.Columns)),
			}
		}
		m.Rows = append(m.Rows, fr)
	}
	return m, true, nil
}
