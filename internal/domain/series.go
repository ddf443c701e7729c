package domain

import (
	"fmt"
	"time"
)

// ZoneSeries is a calendar-aligned daily table for one zone: a contiguous run
// of days starting at Start, with one Value per day per column. Column length
// always equals Days, so a gap in the source data is a Missing cell, never a
// skipped row.
//
// A ZoneSeries is built once and not mutated afterwards; stages that add or
// change columns construct a new table.
type ZoneSeries struct {
	ZoneID string
	Start  time.Time
	Days   int

	cols  map[string][]Value
	order []string
}

// NewZoneSeries creates an empty aligned table covering days days from start.
func NewZoneSeries(zoneID string, start time.Time, days int) *ZoneSeries {
	return &ZoneSeries{
		ZoneID: zoneID,
		Start:  Day(start),
		Days:   days,
		cols:   make(map[string][]Value),
	}
}

// Date returns the calendar date of row i.
func (s *ZoneSeries) Date(i int) time.Time {
	return s.Start.AddDate(0, 0, i)
}

// SetColumn adds a column. The column must be new and exactly Days long.
func (s *ZoneSeries) SetColumn(name string, vals []Value) error {
	if len(vals) != s.Days {
		return &ComputationError{
			Zone:   s.ZoneID,
			Reason: fmt.Sprintf("column %s has %d rows, table has %d", name, len(vals), s.Days),
		}
	}
	if _, exists := s.cols[name]; exists {
		return &ComputationError{Zone: s.ZoneID, Reason: fmt.Sprintf("column %s already set", name)}
	}
	s.cols[name] = vals
	s.order = append(s.order, name)
	return nil
}

// Column returns the named column, or false if absent.
func (s *ZoneSeries) Column(name string) ([]Value, bool) {
	c, ok := s.cols[name]
	return c, ok
}

// Columns returns the column names in insertion order.
func (s *ZoneSeries) Columns() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// FeatureMatrix is the model-ready output of a pipeline run: one row per
// (zone, date), sorted ascending by both, with a shared ordered column list.
type FeatureMatrix struct {
	RunID   string
	BuiltAt time.Time
	Columns []string
	Rows    []FeatureRow
}

// FeatureRow holds the feature values for one (zone, date); Values is parallel
// to the matrix Columns.
type FeatureRow struct {
	ZoneID string
	Date   time.Time
	Values []float64
}

// ColumnIndex returns the position of a column name, or -1.
func (m *FeatureMatrix) ColumnIndex(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}
