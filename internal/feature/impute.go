package feature

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"avalanche-feature-etl/internal/domain"
)

// PolicyKind is a gap-filling strategy for one feature column.
type PolicyKind string

const (
	// PolicyMean fills with the mean of the column's present values in the
	// current run only; no state crosses runs.
	PolicyMean PolicyKind = "mean"
	// PolicyConstant fills with a configured constant.
	PolicyConstant PolicyKind = "constant"
	// PolicyForwardFill carries the last present value forward. Days before
	// the first present value stay missing and are caught by the assembler.
	PolicyForwardFill PolicyKind = "ffill"
	// PolicyZero fills with 0.
	PolicyZero PolicyKind = "zero"
)

// Policy is one column's declared imputation rule.
type Policy struct {
	Kind     PolicyKind `mapstructure:"kind"`
	Constant float64    `mapstructure:"constant"`
}

// Policies maps feature column name to its policy. A column that still has
// missing values and no entry here fails the run; silent defaulting would
// mask upstream bugs.
type Policies map[string]Policy

// Validate rejects unknown policy kinds.
func (p Policies) Validate() error {
	for col, policy := range p {
		switch policy.Kind {
		case PolicyMean, PolicyConstant, PolicyForwardFill, PolicyZero:
		default:
			return &domain.ConfigurationError{Field: col, Reason: fmt.Sprintf("unknown imputation policy %q", policy.Kind)}
		}
	}
	return nil
}

// Impute returns a copy of the table with every column's gaps filled per its
// declared policy. Imputation runs only after all rolling and derived features
// are computed, so fills never fabricate trends upstream. A column containing
// missing values without a declared policy is a ConfigurationError; a fully
// present column needs no policy.
func Impute(s *domain.ZoneSeries, policies Policies) (*domain.ZoneSeries, error) {
	out := domain.NewZoneSeries(s.ZoneID, s.Start, s.Days)

	for _, name := range s.Columns() {
		src, _ := s.Column(name)

		hasMissing := false
		for _, v := range src {
			if !v.IsPresent() {
				hasMissing = true
				break
			}
		}

		col := src
		if hasMissing {
			policy, declared := policies[name]
			if !declared {
				return nil, &domain.ConfigurationError{
					Field:  name,
					Reason: fmt.Sprintf("column has missing values in zone %s and no imputation policy", s.ZoneID),
				}
			}
			col = fillColumn(src, policy)
		}

		if err := out.SetColumn(name, col); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func fillColumn(src []domain.Value, policy Policy) []domain.Value {
	out := make([]domain.Value, len(src))
	copy(out, src)

	switch policy.Kind {
	case PolicyMean:
		present := make([]float64, 0, len(src))
		for _, v := range src {
			if f, ok := v.Get(); ok {
				present = append(present, f)
			}
		}
		if len(present) == 0 {
			return out // nothing to average; assembler reports the gap
		}
		mean := stat.Mean(present, nil)
		for i, v := range out {
			if !v.IsPresent() {
				out[i] = domain.Present(mean)
			}
		}
	case PolicyConstant:
		for i, v := range out {
			if !v.IsPresent() {
				out[i] = domain.Present(policy.Constant)
			}
		}
	case PolicyZero:
		for i, v := range out {
			if !v.IsPresent() {
				out[i] = domain.Present(0)
			}
		}
	case PolicyForwardFill:
		last, have := 0.0, false
		for i, v := range out {
			if f, ok := v.Get(); ok {
				last, have = f, true
				continue
			}
			if have {
				out[i] = domain.Present(last)
			}
		}
	}

	return out
}

// EncodeCalendar builds the seasonal and categorical indicator table for one
// zone. Every column is a pure function of the date, so none is ever missing
// and none needs an imputation policy.
func EncodeCalendar(s *domain.ZoneSeries) (*domain.ZoneSeries, error) {
	out := domain.NewZoneSeries(s.ZoneID, s.Start, s.Days)

	cols := map[string]func(i int) float64{
		"water_year":       func(i int) float64 { return float64(domain.WaterYear(s.Date(i))) },
		"water_year_month": func(i int) float64 { return float64(domain.WaterYearMonth(s.Date(i).Month())) },
		"water_year_day":   func(i int) float64 { return float64(domain.WaterYearDay(s.Date(i))) },
		"month":            func(i int) float64 { return float64(s.Date(i).Month()) },
		"is_winter":        flag(s, "winter"),
		"is_spring":        flag(s, "spring"),
		"is_summer":        flag(s, "summer"),
		"is_fall":          flag(s, "fall"),
		"is_early_season":  phaseFlag(s, "early"),
		"is_mid_season":    phaseFlag(s, "mid"),
		"is_late_season":   phaseFlag(s, "late"),
		"is_weekend": func(i int) float64 {
			if domain.IsWeekend(s.Date(i)) {
				return 1
			}
			return 0
		},
	}

	for _, name := range sortedKeys(cols) {
		fn := cols[name]
		col := make([]domain.Value, s.Days)
		for i := range col {
			col[i] = domain.Present(fn(i))
		}
		if err := out.SetColumn(name, col); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func flag(s *domain.ZoneSeries, season string) func(int) float64 {
	return func(i int) float64 {
		if domain.Season(s.Date(i)) == season {
			return 1
		}
		return 0
	}
}

func phaseFlag(s *domain.ZoneSeries, phase string) func(int) float64 {
	return func(i int) float64 {
		if domain.SeasonPhase(s.Date(i)) == phase {
			return 1
		}
		return 0
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
