package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDay(t *testing.T) {
	got := Day(time.Date(2024, time.February, 3, 17, 45, 12, 999, time.FixedZone("MST", -7*3600)))
	assert.Equal(t, time.Date(2024, time.February, 4, 0, 0, 0, 0, time.UTC), got)

	midnight := time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, midnight, Day(midnight))
}

func TestParseDScale(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		present bool
	}{
		{"whole size", "D2", 2, true},
		{"half size", "D2.5", 2.5, true},
		{"lowercase", "d3", 3, true},
		{"bare number", "1.5", 1.5, true},
		{"unknown sentinel", "UNKNOWN", 0, false},
		{"unk sentinel", "UNK", 0, false},
		{"empty", "", 0, false},
		{"below scale", "D0.5", 0, false},
		{"above scale", "D6", 0, false},
		{"garbage", "big", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ParseDScale(tt.input)
			got, ok := v.Get()
			require.Equal(t, tt.present, ok)
			if tt.present {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestValue(t *testing.T) {
	assert.False(t, Missing().IsPresent())
	assert.Equal(t, 7.0, Missing().Or(7))
	assert.Equal(t, 3.5, Present(3.5).Or(7))
	assert.Equal(t, "missing", Missing().String())
	assert.Equal(t, "3.5", Present(3.5).String())

	var zero Value
	assert.False(t, zero.IsPresent())
}

func TestZoneSeries_SetColumn(t *testing.T) {
	s := NewZoneSeries("aspen", date(2024, time.January, 1), 3)

	require.NoError(t, s.SetColumn("snow_depth", []Value{Present(100), Missing(), Present(104)}))
	assert.Equal(t, date(2024, time.January, 3), s.Date(2))

	t.Run("wrong length", func(t *testing.T) {
		err := s.SetColumn("short", []Value{Present(1)})
		var cerr *ComputationError
		require.ErrorAs(t, err, &cerr)
	})

	t.Run("duplicate name", func(t *testing.T) {
		err := s.SetColumn("snow_depth", []Value{Present(1), Present(2), Present(3)})
		var cerr *ComputationError
		require.ErrorAs(t, err, &cerr)
	})

	col, ok := s.Column("snow_depth")
	require.True(t, ok)
	assert.False(t, col[1].IsPresent())
	assert.Equal(t, []string{"snow_depth"}, s.Columns())
}
