package feature

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"avalanche-feature-etl/internal/domain"
)

// AggKind is a rolling-window aggregation.
type AggKind string

const (
	AggSum   AggKind = "sum"
	AggMean  AggKind = "mean"
	AggSlope AggKind = "slope"
	AggCount AggKind = "count"
)

// Weighting selects how window weights are generated when none are given
// explicitly.
type Weighting string

const (
	WeightUniform     Weighting = "uniform"
	WeightLinearDecay Weighting = "linear-decay"
)

// DefaultMinFraction is the minimum share of a window that must hold data for
// sum/mean to produce a value.
const DefaultMinFraction = 0.5

// WindowSpec describes one rolling feature column.
type WindowSpec struct {
	Metric    string    `mapstructure:"metric"`
	Days      int       `mapstructure:"days"`
	Agg       AggKind   `mapstructure:"agg"`
	Weighting Weighting `mapstructure:"weighting"`
	// Weights, when set, override Weighting. Index 0 applies to the most
	// recent day in the window.
	Weights []float64 `mapstructure:"weights"`
	// MinFraction is the share of window days that must be present for
	// sum/mean to produce a value. Zero means DefaultMinFraction, not "no
	// minimum"; to disable the threshold configure any positive value at or
	// below 1/Days, which admits every window that holds data at all.
	MinFraction float64 `mapstructure:"min_fraction"`
	// Name overrides the generated output column name.
	Name string `mapstructure:"name"`
}

// OutputName returns the output column name, e.g. "new_snow_sum_4d".
func (w WindowSpec) OutputName() string {
	if w.Name != "" {
		return w.Name
	}
	return fmt.Sprintf("%s_%s_%dd", w.Metric, w.Agg, w.Days)
}

// Validate checks the spec; violations are ConfigurationErrors.
func (w WindowSpec) Validate() error {
	if w.Metric == "" {
		return &domain.ConfigurationError{Field: "window.metric", Reason: "required"}
	}
	if w.Days < 1 {
		return &domain.ConfigurationError{Field: w.OutputName(), Reason: "window length must be >= 1 day"}
	}
	switch w.Agg {
	case AggSum, AggMean:
	case AggSlope, AggCount:
		if len(w.Weights) > 0 || w.Weighting == WeightLinearDecay {
			return &domain.ConfigurationError{Field: w.OutputName(), Reason: fmt.Sprintf("%s does not support weighting", w.Agg)}
		}
	default:
		return &domain.ConfigurationError{Field: w.OutputName(), Reason: fmt.Sprintf("unknown aggregation %q", w.Agg)}
	}
	switch w.Weighting {
	case "", WeightUniform, WeightLinearDecay:
	default:
		return &domain.ConfigurationError{Field: w.OutputName(), Reason: fmt.Sprintf("unknown weighting %q", w.Weighting)}
	}
	if len(w.Weights) > 0 && len(w.Weights) != w.Days {
		return &domain.ConfigurationError{
			Field:  w.OutputName(),
			Reason: fmt.Sprintf("%d weights for a %d-day window", len(w.Weights), w.Days),
		}
	}
	if w.MinFraction < 0 || w.MinFraction > 1 {
		return &domain.ConfigurationError{Field: w.OutputName(), Reason: "min_fraction must be in [0, 1]"}
	}
	return nil
}

// weights materializes the per-day weights, most recent day first, or nil for
// an unweighted window.
func (w WindowSpec) weights() []float64 {
	if len(w.Weights) > 0 {
		out := make([]float64, len(w.Weights))
		copy(out, w.Weights)
		return out
	}
	if w.Weighting != WeightLinearDecay {
		return nil
	}
	out := make([]float64, w.Days)
	for k := range out {
		out[k] = float64(w.Days-k) / float64(w.Days)
	}
	return out
}

// LagSpec describes one lagged copy of a metric: the value from Days earlier.
type LagSpec struct {
	Metric string `mapstructure:"metric"`
	Days   int    `mapstructure:"days"`
}

// OutputName returns the lag column name, e.g. "snow_depth_lag_1d".
func (l LagSpec) OutputName() string {
	return fmt.Sprintf("%s_lag_%dd", l.Metric, l.Days)
}

// Validate checks the spec.
func (l LagSpec) Validate() error {
	if l.Metric == "" {
		return &domain.ConfigurationError{Field: "lag.metric", Reason: "required"}
	}
	if l.Days < 1 {
		return &domain.ConfigurationError{Field: l.OutputName(), Reason: "lag must be >= 1 day"}
	}
	return nil
}

// BuildRolling computes all window and lag columns for one aligned zone table.
// The result is a new table holding only the rolling outputs; the input is not
// modified. Referencing a metric the input lacks is a ConfigurationError.
func BuildRolling(s *domain.ZoneSeries, windows []WindowSpec, lags []LagSpec) (*domain.ZoneSeries, error) {
	out := domain.NewZoneSeries(s.ZoneID, s.Start, s.Days)

	for _, w := range windows {
		if err := w.Validate(); err != nil {
			return nil, err
		}
		src, ok := s.Column(w.Metric)
		if !ok {
			return nil, &domain.ConfigurationError{Field: w.OutputName(), Reason: fmt.Sprintf("metric %q not in aligned data", w.Metric)}
		}
		col := make([]domain.Value, s.Days)
		for i := range col {
			col[i] = applyWindow(src, i, w)
		}
		if err := out.SetColumn(w.OutputName(), col); err != nil {
			return nil, err
		}
	}

	for _, l := range lags {
		if err := l.Validate(); err != nil {
			return nil, err
		}
		src, ok := s.Column(l.Metric)
		if !ok {
			return nil, &domain.ConfigurationError{Field: l.OutputName(), Reason: fmt.Sprintf("metric %q not in aligned data", l.Metric)}
		}
		col := make([]domain.Value, s.Days)
		for i := range col {
			if i >= l.Days {
				col[i] = src[i-l.Days]
			}
		}
		if err := out.SetColumn(l.OutputName(), col); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// applyWindow evaluates one window spec at day i. The window covers days
// [i-Days+1, i]; days before the table start count as missing.
func applyWindow(src []domain.Value, i int, w WindowSpec) domain.Value {
	switch w.Agg {
	case AggSlope:
		return windowSlope(src, i, w.Days)
	case AggCount:
		return windowCount(src, i, w.Days)
	default:
		return windowSumMean(src, i, w)
	}
}

// windowSumMean computes sum or mean over the window, excluding missing days
// rather than zero-filling them. The result is missing when fewer than the
// minimum fraction of the window holds data. Weighted windows renormalize by
// totalWeight/availableWeight so a partially-missing window keeps the scale of
// a full one.
func windowSumMean(src []domain.Value, i int, w WindowSpec) domain.Value {
	minFrac := w.MinFraction
	if minFrac == 0 {
		minFrac = DefaultMinFraction
	}
	weights := w.weights()

	var sum, weightSum, totalWeight float64
	present := 0
	for k := 0; k < w.Days; k++ {
		weight := 1.0
		if weights != nil {
			weight = weights[k]
		}
		totalWeight += weight

		j := i - k
		if j < 0 {
			continue
		}
		v, ok := src[j].Get()
		if !ok {
			continue
		}
		sum += weight * v
		weightSum += weight
		present++
	}

	if float64(present) < minFrac*float64(w.Days) || weightSum == 0 {
		return domain.Missing()
	}

	switch w.Agg {
	case AggSum:
		if weights == nil {
			// Unweighted: missing days are simply excluded.
			return domain.Present(sum)
		}
		// Weighted: rescale so a partially-missing window keeps the scale
		// of a full one instead of silently underweighting.
		return domain.Present(sum * totalWeight / weightSum)
	default: // AggMean
		return domain.Present(sum / weightSum)
	}
}

// windowSlope fits an ordinary least-squares line of value against day offset
// (oldest day in the window is offset 0) and returns its slope. Missing days
// are excluded; fewer than 2 points yields missing.
func windowSlope(src []domain.Value, i int, days int) domain.Value {
	xs := make([]float64, 0, days)
	ys := make([]float64, 0, days)
	for k := days - 1; k >= 0; k-- {
		j := i - k
		if j < 0 {
			continue
		}
		if v, ok := src[j].Get(); ok {
			xs = append(xs, float64(days-1-k))
			ys = append(ys, v)
		}
	}
	if len(xs) < 2 {
		return domain.Missing()
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return domain.Present(slope)
}

// windowCount counts present days in the window. Always present: an empty
// window counts zero.
func windowCount(src []domain.Value, i int, days int) domain.Value {
	n := 0
	for k := 0; k < days; k++ {
		j := i - k
		if j >= 0 && src[j].IsPresent() {
			n++
		}
	}
	return domain.Present(float64(n))
}
