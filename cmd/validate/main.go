// Command validate checks the integrity of the most recently stored feature
// matrix: row ordering, per-zone calendar contiguity, column consistency,
// finite values, and calendar-encoding correctness.
//
// Usage:
//
//	go run ./cmd/validate -db data/avalanche.db
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"time"

	"avalanche-feature-etl/internal/adapter/sqlite"
	"avalanche-feature-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dbPath := flag.String("db", "", "path to the SQLite feature store")
	flag.Parse()

	if *dbPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dbPath); code != 0 {
		os.Exit(code)
	}
}

func run(dbPath string) int {
	store, err := sqlite.Open(dbPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open store: %v\n", err)
		return 1
	}
	defer store.Close()

	m, found, err := store.LatestMatrix(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load matrix: %v\n", err)
		return 1
	}
	if !found {
		fmt.Fprintln(os.Stderr, "FATAL: no feature matrix stored")
		return 1
	}

	fmt.Println("=== Feature Matrix Integrity Validation ===")
	fmt.Printf("run %s built %s: %d rows x %d columns\n\n",
		m.RunID, m.BuiltAt.Format(time.RFC3339), len(m.Rows), len(m.Columns))

	phases := []*phase{
		validateColumns(m),
		validateRowOrder(m),
		validateZoneCalendars(m),
		validateValues(m),
		validateCalendarEncoding(m),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == 20 {
				fmt.Printf("  ... %d more\n", len(p.errors)-i)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateColumns(m domain.FeatureMatrix) *phase {
	p := &phase{name: "column names sorted and unique"}

	if len(m.Columns) == 0 {
		p.errorf("matrix has no columns")
		return p
	}
	if !sort.StringsAreSorted(m.Columns) {
		p.errorf("columns are not sorted")
	}
	seen := make(map[string]bool)
	for _, c := range m.Columns {
		if seen[c] {
			p.errorf("duplicate column %q", c)
		}
		seen[c] = true
	}
	for _, row := range m.Rows {
		if len(row.Values) != len(m.Columns) {
			p.errorf("%s %s: %d values for %d columns",
				row.ZoneID, row.Date.Format(time.DateOnly), len(row.Values), len(m.Columns))
		}
	}
	return p
}

func validateRowOrder(m domain.FeatureMatrix) *phase {
	p := &phase{name: "rows sorted by zone then date"}

	for i := 1; i < len(m.Rows); i++ {
		prev, cur := m.Rows[i-1], m.Rows[i]
		if cur.ZoneID < prev.ZoneID {
			p.errorf("row %d: zone %s follows %s", i, cur.ZoneID, prev.ZoneID)
		}
		if cur.ZoneID == prev.ZoneID && !cur.Date.After(prev.Date) {
			p.errorf("row %d: %s %s follows %s", i, cur.ZoneID,
				cur.Date.Format(time.DateOnly), prev.Date.Format(time.DateOnly))
		}
	}
	return p
}

// validateZoneCalendars checks that every zone covers the same contiguous
// daily span. Alignment spans the union of all zones' dates, so a zone with a
// different row count means rows were lost after assembly.
func validateZoneCalendars(m domain.FeatureMatrix) *phase {
	p := &phase{name: "zone calendars contiguous and aligned"}

	type span struct {
		start, end time.Time
		count      int
	}
	spans := make(map[string]*span)
	var zoneOrder []string

	for _, row := range m.Rows {
		s, ok := spans[row.ZoneID]
		if !ok {
			spans[row.ZoneID] = &span{start: row.Date, end: row.Date, count: 1}
			zoneOrder = append(zoneOrder, row.ZoneID)
			continue
		}
		if got := row.Date.Sub(s.end); got != 24*time.Hour {
			p.errorf("%s: gap between %s and %s", row.ZoneID,
				s.end.Format(time.DateOnly), row.Date.Format(time.DateOnly))
		}
		s.end = row.Date
		s.count++
	}

	if len(zoneOrder) == 0 {
		p.errorf("matrix has no rows")
		return p
	}
	first := spans[zoneOrder[0]]
	for _, z := range zoneOrder[1:] {
		s := spans[z]
		if !s.start.Equal(first.start) || !s.end.Equal(first.end) || s.count != first.count {
			p.errorf("%s spans %s..%s (%d rows), %s spans %s..%s (%d rows)",
				z, s.start.Format(time.DateOnly), s.end.Format(time.DateOnly), s.count,
				zoneOrder[0], first.start.Format(time.DateOnly), first.end.Format(time.DateOnly), first.count)
		}
	}
	return p
}

func validateValues(m domain.FeatureMatrix) *phase {
	p := &phase{name: "all values finite"}

	for _, row := range m.Rows {
		for c, v := range row.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				col := "?"
				if c < len(m.Columns) {
					col = m.Columns[c]
				}
				p.errorf("%s %s: column %s is %v", row.ZoneID, row.Date.Format(time.DateOnly), col, v)
			}
		}
	}
	return p
}

// validateCalendarEncoding recomputes the calendar columns from each row's
// date and compares. Skipped columns simply mean the run was configured
// without calendar encoding.
func validateCalendarEncoding(m domain.FeatureMatrix) *phase {
	p := &phase{name: "calendar columns match row dates"}

	checks := map[string]func(t time.Time) float64{
		"water_year":       func(t time.Time) float64 { return float64(domain.WaterYear(t)) },
		"water_year_month": func(t time.Time) float64 { return float64(domain.WaterYearMonth(t.Month())) },
		"water_year_day":   func(t time.Time) float64 { return float64(domain.WaterYearDay(t)) },
		"month":            func(t time.Time) float64 { return float64(t.Month()) },
		"is_winter":        seasonFlag("winter"),
		"is_spring":        seasonFlag("spring"),
		"is_summer":        seasonFlag("summer"),
		"is_fall":          seasonFlag("fall"),
		"is_early_season":  phaseFlag("early"),
		"is_mid_season":    phaseFlag("mid"),
		"is_late_season":   phaseFlag("late"),
		"is_weekend": func(t time.Time) float64 {
			if domain.IsWeekend(t) {
				return 1
			}
			return 0
		},
	}

	for name, want := range checks {
		c := m.ColumnIndex(name)
		if c < 0 {
			continue
		}
		for _, row := range m.Rows {
			if c >= len(row.Values) {
				continue
			}
			if got, expected := row.Values[c], want(row.Date); got != expected {
				p.errorf("%s %s: %s = %v, want %v",
					row.ZoneID, row.Date.Format(time.DateOnly), name, got, expected)
			}
		}
	}
	return p
}

func seasonFlag(season string) func(time.Time) float64 {
	return func(t time.Time) float64 {
		if domain.Season(t) == season {
			return 1
		}
		return 0
	}
}

func phaseFlag(phase string) func(time.Time) float64 {
	return func(t time.Time) float64 {
		if domain.SeasonPhase(t) == phase {
			return 1
		}
		return 0
	}
}
