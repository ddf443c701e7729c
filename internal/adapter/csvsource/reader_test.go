package csvsource

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avalanche-feature-etl/internal/domain"
)

func TestReadObservations(t *testing.T) {
	csv := `Date,Zone,Snow_Depth,New_Snow,Temp_Max,Ignored
2024-01-01,aspen,120,10,-3,foo
2024-01-02,aspen,NA,0,-1,bar
01/03/2024,vail_summit,95,,2,baz
`
	obs, err := ReadObservations(strings.NewReader(csv))
	require.NoError(t, err)

	// row 1: 3 metrics, row 2: NA skipped -> 2, row 3: empty new_snow -> 2
	require.Len(t, obs, 7)

	assert.Equal(t, domain.Observation{
		ZoneID: "aspen",
		Date:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Metric: "snow_depth",
		Value:  domain.Present(120),
	}, obs[0])

	last := obs[len(obs)-1]
	assert.Equal(t, "vail_summit", last.ZoneID)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), last.Date)

	for _, o := range obs {
		assert.True(t, o.Value.IsPresent())
	}
}

func TestReadObservationsErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"missing zone column", "Date,Snow_Depth\n2024-01-01,120\n"},
		{"bad date", "Date,Zone,Snow_Depth\nyesterday,aspen,120\n"},
		{"bad value", "Date,Zone,Snow_Depth\n2024-01-01,aspen,deep\n"},
		{"empty zone", "Date,Zone,Snow_Depth\n2024-01-01,,120\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadObservations(strings.NewReader(tt.csv))
			assert.Error(t, err)
		})
	}
}

func TestReadEvents(t *testing.T) {
	csv := `Date,Zone,D_Size,Type
2024-01-05,aspen,D2,SLAB
2024-01-05,aspen,UNKNOWN,
2024-01-06,gunnison,,WET
`
	events, err := ReadEvents(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, domain.AvalancheEvent{
		ZoneID: "aspen",
		Date:   time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		DSize:  "D2",
		Type:   "SLAB",
	}, events[0])

	assert.Equal(t, "gunnison", events[2].ZoneID)
	assert.Empty(t, events[2].DSize)
	assert.Equal(t, "WET", events[2].Type)
}

func TestReadEventsMissingColumns(t *testing.T) {
	_, err := ReadEvents(strings.NewReader("Zone,D_Size\naspen,D2\n"))
	assert.Error(t, err)
}
