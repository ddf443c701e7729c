package feature

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"avalanche-feature-etl/internal/domain"
)

// Assemble inner-joins all per-zone feature tables into the final matrix.
// tables may hold several tables per zone (one per pipeline stage); all tables
// for a zone must cover exactly the same days with disjoint column names, and
// every zone must end up with the same column set. Any mismatch is a
// ComputationError: after imputation a row present in one table but not
// another means a pipeline bug, and dropping it silently would corrupt the
// training set.
//
// A leftover Missing cell is also a ComputationError here, since imputation
// declared the table complete. Output rows are sorted by (zone_id, date)
// ascending so downstream train/validation splits are reproducible.
func Assemble(tables []*domain.ZoneSeries, builtAt time.Time) (domain.FeatureMatrix, error) {
	if len(tables) == 0 {
		return domain.FeatureMatrix{}, &domain.ComputationError{Reason: "no feature tables to assemble"}
	}

	byZone := make(map[string][]*domain.ZoneSeries)
	zoneIDs := make([]string, 0)
	for _, t := range tables {
		if _, seen := byZone[t.ZoneID]; !seen {
			zoneIDs = append(zoneIDs, t.ZoneID)
		}
		byZone[t.ZoneID] = append(byZone[t.ZoneID], t)
	}
	sort.Strings(zoneIDs)

	var columns []string
	matrix := domain.FeatureMatrix{
		RunID:   uuid.NewString(),
		BuiltAt: builtAt,
	}

	for _, zoneID := range zoneIDs {
		group := byZone[zoneID]
		first := group[0]

		zoneCols := make([]string, 0)
		colSource := make(map[string][]domain.Value)
		for _, t := range group {
			if !t.Start.Equal(first.Start) || t.Days != first.Days {
				return domain.FeatureMatrix{}, &domain.ComputationError{
					Zone: zoneID,
					Reason: fmt.Sprintf("join mismatch: table spans %d rows from %s, expected %d from %s",
						t.Days, t.Start.Format(time.DateOnly), first.Days, first.Start.Format(time.DateOnly)),
				}
			}
			for _, name := range t.Columns() {
				if _, dup := colSource[name]; dup {
					return domain.FeatureMatrix{}, &domain.ComputationError{
						Zone:   zoneID,
						Reason: fmt.Sprintf("column %s produced by two tables", name),
					}
				}
				col, _ := t.Column(name)
				colSource[name] = col
				zoneCols = append(zoneCols, name)
			}
		}
		sort.Strings(zoneCols)

		if columns == nil {
			columns = zoneCols
		} else if !equalStrings(columns, zoneCols) {
			return domain.FeatureMatrix{}, &domain.ComputationError{
				Zone:   zoneID,
				Reason: fmt.Sprintf("column set differs from other zones: [%s] vs [%s]", strings.Join(zoneCols, " "), strings.Join(columns, " ")),
			}
		}

		for i := 0; i < first.Days; i++ {
			row := domain.FeatureRow{
				ZoneID: zoneID,
				Date:   first.Date(i),
				Values: make([]float64, len(columns)),
			}
			for c, name := range columns {
				v, ok := colSource[name][i].Get()
				if !ok {
					return domain.FeatureMatrix{}, &domain.ComputationError{
						Zone:   zoneID,
						Reason: fmt.Sprintf("column %s still missing on %s after imputation", name, row.Date.Format(time.DateOnly)),
					}
				}
				row.Values[c] = v
			}
			matrix.Rows = append(matrix.Rows, row)
		}
	}

	matrix.Columns = columns
	return matrix, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
