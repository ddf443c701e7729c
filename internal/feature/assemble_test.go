package feature

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avalanche-feature-etl/internal/domain"
)

var builtAt = time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)

func fullTable(t *testing.T, zone string, start time.Time, days int, col string, base float64) *domain.ZoneSeries {
	t.Helper()
	s := domain.NewZoneSeries(zone, start, days)
	vals := make([]domain.Value, days)
	for i := range vals {
		vals[i] = domain.Present(base + float64(i))
	}
	require.NoError(t, s.SetColumn(col, vals))
	return s
}

func TestAssemble_SortedByZoneAndDate(t *testing.T) {
	// Deliberately out of order: gunnison before aspen.
	tables := []*domain.ZoneSeries{
		fullTable(t, "gunnison", day(1), 3, "snow_depth", 80),
		fullTable(t, "aspen", day(1), 3, "snow_depth", 100),
		fullTable(t, "gunnison", day(1), 3, "wind_speed_max", 20),
		fullTable(t, "aspen", day(1), 3, "wind_speed_max", 10),
	}

	m, err := Assemble(tables, builtAt)
	require.NoError(t, err)

	require.Len(t, m.Rows, 6)
	assert.Equal(t, []string{"snow_depth", "wind_speed_max"}, m.Columns)
	assert.Equal(t, builtAt, m.BuiltAt)
	assert.NotEmpty(t, m.RunID)

	assert.Equal(t, "aspen", m.Rows[0].ZoneID)
	assert.Equal(t, day(1), m.Rows[0].Date)
	assert.Equal(t, "aspen", m.Rows[2].ZoneID)
	assert.Equal(t, day(3), m.Rows[2].Date)
	assert.Equal(t, "gunnison", m.Rows[3].ZoneID)

	// Values land under the right column.
	assert.Equal(t, 100.0, m.Rows[0].Values[m.ColumnIndex("snow_depth")])
	assert.Equal(t, 10.0, m.Rows[0].Values[m.ColumnIndex("wind_speed_max")])
}

func TestAssemble_RowCountMismatchFails(t *testing.T) {
	// 9 rows in one feature table, 10 in the other for the same zone.
	tables := []*domain.ZoneSeries{
		fullTable(t, "aspen", day(1), 10, "snow_depth", 100),
		fullTable(t, "aspen", day(1), 9, "wind_speed_max", 10),
	}

	_, err := Assemble(tables, builtAt)
	var cerr *domain.ComputationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "aspen", cerr.Zone)
	assert.Contains(t, cerr.Reason, "join mismatch")
}

func TestAssemble_StartMismatchFails(t *testing.T) {
	tables := []*domain.ZoneSeries{
		fullTable(t, "aspen", day(1), 3, "snow_depth", 100),
		fullTable(t, "aspen", day(2), 3, "wind_speed_max", 10),
	}

	_, err := Assemble(tables, builtAt)
	var cerr *domain.ComputationError
	require.ErrorAs(t, err, &cerr)
}

func TestAssemble_ColumnSetDiffersAcrossZones(t *testing.T) {
	tables := []*domain.ZoneSeries{
		fullTable(t, "aspen", day(1), 3, "snow_depth", 100),
		fullTable(t, "gunnison", day(1), 3, "wind_speed_max", 10),
	}

	_, err := Assemble(tables, builtAt)
	var cerr *domain.ComputationError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Reason, "column set differs")
}

func TestAssemble_DuplicateColumnFails(t *testing.T) {
	tables := []*domain.ZoneSeries{
		fullTable(t, "aspen", day(1), 3, "snow_depth", 100),
		fullTable(t, "aspen", day(1), 3, "snow_depth", 200),
	}

	_, err := Assemble(tables, builtAt)
	var cerr *domain.ComputationError
	require.ErrorAs(t, err, &cerr)
}

func TestAssemble_MissingCellAfterImputationFails(t *testing.T) {
	s := domain.NewZoneSeries("aspen", day(1), 2)
	require.NoError(t, s.SetColumn("snow_depth", []domain.Value{domain.Present(100), domain.Missing()}))

	_, err := Assemble([]*domain.ZoneSeries{s}, builtAt)
	var cerr *domain.ComputationError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Reason, "after imputation")
}

func TestAssemble_Empty(t *testing.T) {
	_, err := Assemble(nil, builtAt)
	var cerr *domain.ComputationError
	require.ErrorAs(t, err, &cerr)
}
