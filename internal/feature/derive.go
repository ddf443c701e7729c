package feature

import (
	"fmt"
	"math"

	"avalanche-feature-etl/internal/domain"
)

// DeriveKind names a composite feature formula. Formulas and their weight
// tables are versioned constants in this file, never configuration, so a
// matrix built from identical inputs is reproducible byte for byte.
type DeriveKind string

const (
	// DeriveFreezeThaw counts freeze-thaw cycles in a trailing window: the
	// number of consecutive-day transitions from below 0°C to above 0°C.
	DeriveFreezeThaw DeriveKind = "freeze_thaw"
	// DeriveDayDelta is the day-over-day change of a column.
	DeriveDayDelta DeriveKind = "day_delta"
	// DeriveLoadingRate is the per-day change of a cumulative metric over a
	// trailing window: (value[i] - value[i-days]) / days.
	DeriveLoadingRate DeriveKind = "loading_rate"
	// DeriveStabilityIndex is the fixed-weight snowpack stability composite,
	// formula version 1.
	DeriveStabilityIndex DeriveKind = "stability_index"
)

// Stability index v1: index = clamp(stabilityBiasV1 + Σ w_i * input_i, 0, 10).
// The weight table is ordered and applies positionally to the spec's inputs;
// changing weights or inputs requires a new version, not an edit.
var stabilityWeightsV1 = []float64{
	-0.12, // recent snow loading (cm, 4-day weighted sum scale)
	-0.25, // day-over-day temperature change (°C)
	-0.08, // maximum wind speed (mph)
	-0.50, // freeze-thaw cycles in the past week
}

const stabilityBiasV1 = 10.0

// DeriveSpec selects a composite feature and binds its input columns. Inputs
// may come from the aligned metrics, the rolling stage, or an earlier derived
// column in the same list.
type DeriveSpec struct {
	Kind   DeriveKind `mapstructure:"kind"`
	Metric string     `mapstructure:"metric"` // input column for single-input kinds
	Days   int        `mapstructure:"days"`   // window for freeze_thaw and loading_rate
	Inputs []string   `mapstructure:"inputs"` // ordered inputs for stability_index
	Name   string     `mapstructure:"name"`
}

// OutputName returns the derived column name.
func (d DeriveSpec) OutputName() string {
	if d.Name != "" {
		return d.Name
	}
	switch d.Kind {
	case DeriveFreezeThaw:
		return fmt.Sprintf("freeze_thaw_%dd", d.Days)
	case DeriveDayDelta:
		return fmt.Sprintf("%s_change_24h", d.Metric)
	case DeriveLoadingRate:
		return fmt.Sprintf("%s_loading_rate_%dd", d.Metric, d.Days)
	case DeriveStabilityIndex:
		return "stability_index"
	default:
		return string(d.Kind)
	}
}

// Validate checks the spec shape against its kind.
func (d DeriveSpec) Validate() error {
	switch d.Kind {
	case DeriveFreezeThaw, DeriveLoadingRate:
		if d.Metric == "" {
			return &domain.ConfigurationError{Field: d.OutputName(), Reason: "metric required"}
		}
		if d.Days < 1 {
			return &domain.ConfigurationError{Field: d.OutputName(), Reason: "window length must be >= 1 day"}
		}
	case DeriveDayDelta:
		if d.Metric == "" {
			return &domain.ConfigurationError{Field: d.OutputName(), Reason: "metric required"}
		}
	case DeriveStabilityIndex:
		if len(d.Inputs) != len(stabilityWeightsV1) {
			return &domain.ConfigurationError{
				Field:  d.OutputName(),
				Reason: fmt.Sprintf("stability index v1 takes %d inputs, got %d", len(stabilityWeightsV1), len(d.Inputs)),
			}
		}
	default:
		return &domain.ConfigurationError{Field: "derived.kind", Reason: fmt.Sprintf("unknown kind %q", d.Kind)}
	}
	return nil
}

// BuildDerived computes all composite columns for one zone. Inputs resolve
// against the aligned table, the rolling table, and derived columns computed
// earlier in the list, in that order. The result holds only the derived
// columns.
func BuildDerived(base, rolling *domain.ZoneSeries, specs []DeriveSpec) (*domain.ZoneSeries, error) {
	out := domain.NewZoneSeries(base.ZoneID, base.Start, base.Days)

	lookup := func(name string) ([]domain.Value, bool) {
		if c, ok := base.Column(name); ok {
			return c, true
		}
		if c, ok := rolling.Column(name); ok {
			return c, true
		}
		return out.Column(name)
	}

	for _, d := range specs {
		if err := d.Validate(); err != nil {
			return nil, err
		}

		var col []domain.Value
		switch d.Kind {
		case DeriveFreezeThaw:
			src, ok := lookup(d.Metric)
			if !ok {
				return nil, unknownInput(d.OutputName(), d.Metric)
			}
			col = freezeThawColumn(src, d.Days)
		case DeriveDayDelta:
			src, ok := lookup(d.Metric)
			if !ok {
				return nil, unknownInput(d.OutputName(), d.Metric)
			}
			col = dayDeltaColumn(src)
		case DeriveLoadingRate:
			src, ok := lookup(d.Metric)
			if !ok {
				return nil, unknownInput(d.OutputName(), d.Metric)
			}
			col = loadingRateColumn(src, d.Days)
		case DeriveStabilityIndex:
			inputs := make([][]domain.Value, len(d.Inputs))
			for i, name := range d.Inputs {
				src, ok := lookup(name)
				if !ok {
					return nil, unknownInput(d.OutputName(), name)
				}
				inputs[i] = src
			}
			col = stabilityColumn(inputs, base.Days)
		}

		if err := out.SetColumn(d.OutputName(), col); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func unknownInput(feature, input string) error {
	return &domain.ConfigurationError{Field: feature, Reason: fmt.Sprintf("input column %q not available", input)}
}

// freezeThawColumn counts thaw crossings (below 0°C one day, above 0°C the
// next) between consecutive present days in the trailing window. Missing when
// the window holds fewer than two present days.
func freezeThawColumn(src []domain.Value, days int) []domain.Value {
	out := make([]domain.Value, len(src))
	for i := range src {
		lo := i - days + 1
		if lo < 0 {
			lo = 0
		}

		crossings := 0
		present := 0
		prev, havePrev := 0.0, false
		for j := lo; j <= i; j++ {
			v, ok := src[j].Get()
			if !ok {
				continue
			}
			present++
			if havePrev && prev < 0 && v > 0 {
				crossings++
			}
			prev, havePrev = v, true
		}
		if present < 2 {
			out[i] = domain.Missing()
			continue
		}
		out[i] = domain.Present(float64(crossings))
	}
	return out
}

// dayDeltaColumn is x[i] - x[i-1]; missing when either side is missing.
func dayDeltaColumn(src []domain.Value) []domain.Value {
	out := make([]domain.Value, len(src))
	for i := 1; i < len(src); i++ {
		cur, okCur := src[i].Get()
		prev, okPrev := src[i-1].Get()
		if okCur && okPrev {
			out[i] = domain.Present(cur - prev)
		}
	}
	return out
}

// loadingRateColumn is (x[i] - x[i-days]) / days; missing when either
// endpoint is missing or the window extends past the table start.
func loadingRateColumn(src []domain.Value, days int) []domain.Value {
	out := make([]domain.Value, len(src))
	for i := days; i < len(src); i++ {
		cur, okCur := src[i].Get()
		old, okOld := src[i-days].Get()
		if okCur && okOld {
			out[i] = domain.Present((cur - old) / float64(days))
		}
	}
	return out
}

// stabilityColumn applies the v1 weight table positionally to the inputs and
// clamps to [0, 10]. Missing when any input is missing that day.
func stabilityColumn(inputs [][]domain.Value, days int) []domain.Value {
	out := make([]domain.Value, days)
	for i := 0; i < days; i++ {
		idx := stabilityBiasV1
		ok := true
		for k, src := range inputs {
			v, present := src[i].Get()
			if !present {
				ok = false
				break
			}
			idx += stabilityWeightsV1[k] * v
		}
		if !ok {
			out[i] = domain.Missing()
			continue
		}
		out[i] = domain.Present(math.Min(10, math.Max(0, idx)))
	}
	return out
}
