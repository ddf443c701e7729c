package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avalanche-feature-etl/internal/domain"
)

func seriesWith(t *testing.T, metric string, vals []domain.Value) *domain.ZoneSeries {
	t.Helper()
	s := domain.NewZoneSeries("aspen", day(1), len(vals))
	require.NoError(t, s.SetColumn(metric, vals))
	return s
}

func present(vs ...float64) []domain.Value {
	out := make([]domain.Value, len(vs))
	for i, v := range vs {
		out[i] = domain.Present(v)
	}
	return out
}

func rollingColumn(t *testing.T, s *domain.ZoneSeries, w WindowSpec) []domain.Value {
	t.Helper()
	out, err := BuildRolling(s, []WindowSpec{w}, nil)
	require.NoError(t, err)
	col, ok := out.Column(w.OutputName())
	require.True(t, ok)
	return col
}

func TestBuildRolling_SumMatchesBruteForce(t *testing.T) {
	// Cross-check against a naive sliding-window sum on fully present data.
	vals := present(3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8)
	s := seriesWith(t, "new_snow", vals)

	const window = 5
	col := rollingColumn(t, s, WindowSpec{Metric: "new_snow", Days: window, Agg: AggSum})

	for i := window - 1; i < len(vals); i++ {
		naive := 0.0
		for j := i - window + 1; j <= i; j++ {
			naive += vals[j].Or(0)
		}
		got, ok := col[i].Get()
		require.True(t, ok, "day %d", i)
		assert.InDelta(t, naive, got, 1e-9, "day %d", i)
	}
}

func TestBuildRolling_WeightedSnowLoading(t *testing.T) {
	// 4-day loading with weights most-recent-first; fully present window.
	s := seriesWith(t, "new_snow", present(2, 8, 4, 10)) // d3=2 d2=8 d1=4 d0=10
	w := WindowSpec{
		Metric:  "new_snow",
		Days:    4,
		Agg:     AggSum,
		Weights: []float64{1.0, 0.75, 0.5, 0.25},
		Name:    "snow_loading_4d",
	}

	col := rollingColumn(t, s, w)
	got, ok := col[3].Get()
	require.True(t, ok)
	assert.InDelta(t, 1.0*10+0.75*4+0.5*8+0.25*2, got, 1e-9)
}

func TestBuildRolling_WeightedPartialWindowRescales(t *testing.T) {
	s := seriesWith(t, "new_snow", []domain.Value{
		domain.Present(2), domain.Missing(), domain.Present(4), domain.Present(10),
	})
	w := WindowSpec{
		Metric:  "new_snow",
		Days:    4,
		Agg:     AggSum,
		Weights: []float64{1.0, 0.75, 0.5, 0.25},
	}

	col := rollingColumn(t, s, w)
	got, ok := col[3].Get()
	require.True(t, ok)

	// Missing day carried weight 0.5; remaining mass 2.0 of 2.5 total.
	raw := 1.0*10 + 0.75*4 + 0.25*2
	assert.InDelta(t, raw*2.5/2.0, got, 1e-9)
}

func TestBuildRolling_LinearDecayGeneratesWeights(t *testing.T) {
	s := seriesWith(t, "new_snow", present(2, 8, 4, 10))
	w := WindowSpec{Metric: "new_snow", Days: 4, Agg: AggSum, Weighting: WeightLinearDecay}

	col := rollingColumn(t, s, w)
	got, ok := col[3].Get()
	require.True(t, ok)
	assert.InDelta(t, 1.0*10+0.75*4+0.5*8+0.25*2, got, 1e-9)
}

func TestBuildRolling_MinFraction(t *testing.T) {
	// 6-day window with 2 present days: below the default 50% threshold.
	vals := []domain.Value{
		domain.Present(5), domain.Missing(), domain.Missing(),
		domain.Missing(), domain.Missing(), domain.Present(3),
	}
	s := seriesWith(t, "precipitation", vals)

	t.Run("default threshold suppresses sparse windows", func(t *testing.T) {
		col := rollingColumn(t, s, WindowSpec{Metric: "precipitation", Days: 6, Agg: AggMean})
		assert.False(t, col[5].IsPresent())
	})

	t.Run("lowered threshold admits them", func(t *testing.T) {
		col := rollingColumn(t, s, WindowSpec{Metric: "precipitation", Days: 6, Agg: AggMean, MinFraction: 0.25})
		got, ok := col[5].Get()
		require.True(t, ok)
		assert.InDelta(t, 4.0, got, 1e-9) // mean of present values only
	})

	t.Run("threshold at 1/Days disables the minimum", func(t *testing.T) {
		// A single present day in the window passes; only a fully-empty
		// window stays missing.
		col := rollingColumn(t, s, WindowSpec{Metric: "precipitation", Days: 6, Agg: AggMean, MinFraction: 1.0 / 6})
		got, ok := col[4].Get()
		require.True(t, ok, "one present day out of five")
		assert.InDelta(t, 5.0, got, 1e-9)
	})
}

func TestBuildRolling_SlopeTwoPoints(t *testing.T) {
	s := seriesWith(t, "temp_max", present(-4, 1))
	col := rollingColumn(t, s, WindowSpec{Metric: "temp_max", Days: 2, Agg: AggSlope})

	got, ok := col[1].Get()
	require.True(t, ok)
	assert.InDelta(t, 5.0, got, 1e-9) // v1 - v0

	// Day 0 has a single point in its window: no slope.
	assert.False(t, col[0].IsPresent())
}

func TestBuildRolling_SlopeSkipsMissing(t *testing.T) {
	// Perfect line with a hole still recovers the true slope.
	vals := []domain.Value{
		domain.Present(0), domain.Present(2), domain.Missing(), domain.Present(6),
	}
	s := seriesWith(t, "snow_depth", vals)
	col := rollingColumn(t, s, WindowSpec{Metric: "snow_depth", Days: 4, Agg: AggSlope})

	got, ok := col[3].Get()
	require.True(t, ok)
	assert.InDelta(t, 2.0, got, 1e-9)
}

func TestBuildRolling_CountAlwaysPresent(t *testing.T) {
	vals := []domain.Value{domain.Missing(), domain.Missing(), domain.Present(1)}
	s := seriesWith(t, "avalanche_count", vals)
	col := rollingColumn(t, s, WindowSpec{Metric: "avalanche_count", Days: 3, Agg: AggCount})

	assert.Equal(t, 0.0, col[1].Or(-1))
	assert.Equal(t, 1.0, col[2].Or(-1))
}

func TestBuildRolling_Lag(t *testing.T) {
	s := seriesWith(t, "snow_depth", present(100, 104, 110))
	out, err := BuildRolling(s, nil, []LagSpec{{Metric: "snow_depth", Days: 1}})
	require.NoError(t, err)

	col, ok := out.Column("snow_depth_lag_1d")
	require.True(t, ok)
	assert.False(t, col[0].IsPresent())
	assert.Equal(t, 100.0, col[1].Or(-1))
	assert.Equal(t, 104.0, col[2].Or(-1))
}

func TestWindowSpec_Validate(t *testing.T) {
	tests := []struct {
		name string
		spec WindowSpec
	}{
		{"zero days", WindowSpec{Metric: "x", Days: 0, Agg: AggSum}},
		{"unknown agg", WindowSpec{Metric: "x", Days: 3, Agg: "median"}},
		{"weight count mismatch", WindowSpec{Metric: "x", Days: 4, Agg: AggSum, Weights: []float64{1, 0.5}}},
		{"weighted slope", WindowSpec{Metric: "x", Days: 4, Agg: AggSlope, Weighting: WeightLinearDecay}},
		{"missing metric", WindowSpec{Days: 3, Agg: AggSum}},
		{"bad min fraction", WindowSpec{Metric: "x", Days: 3, Agg: AggSum, MinFraction: 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			var cerr *domain.ConfigurationError
			require.ErrorAs(t, err, &cerr)
		})
	}

	assert.NoError(t, WindowSpec{Metric: "x", Days: 3, Agg: AggSum}.Validate())
}

func TestBuildRolling_UnknownMetric(t *testing.T) {
	s := seriesWith(t, "snow_depth", present(1, 2))
	_, err := BuildRolling(s, []WindowSpec{{Metric: "wind", Days: 2, Agg: AggSum}}, nil)
	var cerr *domain.ConfigurationError
	require.ErrorAs(t, err, &cerr)
}
