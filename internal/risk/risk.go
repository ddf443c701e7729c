// Package risk maps feature matrices to per-zone avalanche risk assessments.
//
// Model fitting and prediction are external collaborators behind the
// [Classifier] interface; the pipeline only guarantees the feature matrix
// contract. The shipped [WeightedScorer] is the demonstration model the
// dashboard runs with: a fixed-weight linear score squashed to a probability,
// with the weight table frozen as versioned constants so identical inputs
// produce identical output.
package risk

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"avalanche-feature-etl/internal/domain"
)

// Classifier is the external model collaborator contract.
type Classifier interface {
	// Fit trains on the matrix against a binary target column.
	Fit(ctx context.Context, m domain.FeatureMatrix, target string) error
	// PredictProba returns one probability per matrix row.
	PredictProba(ctx context.Context, m domain.FeatureMatrix) ([]float64, error)
}

// Level is the five-step North American danger scale label.
type Level string

const (
	LevelLow          Level = "low"
	LevelModerate     Level = "moderate"
	LevelConsiderable Level = "considerable"
	LevelHigh         Level = "high"
	LevelExtreme      Level = "extreme"
)

// LevelFor maps a probability to its danger level. Thresholds are the
// dashboard's fixed 0.2 / 0.4 / 0.6 / 0.8 bands.
func LevelFor(p float64) Level {
	switch {
	case p < 0.2:
		return LevelLow
	case p < 0.4:
		return LevelModerate
	case p < 0.6:
		return LevelConsiderable
	case p < 0.8:
		return LevelHigh
	default:
		return LevelExtreme
	}
}

// Assessment is one zone's latest risk estimate, the unit the serving layer
// returns as JSON.
type Assessment struct {
	ZoneID      string    `json:"zone_id"`
	ZoneName    string    `json:"zone_name"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Date        time.Time `json:"date"`
	Probability float64   `json:"probability"`
	Level       Level     `json:"risk_level"`
}

// Scorer weight table, version 1. Weights apply to the named feature columns;
// the score is squashed through a logistic so the output is a probability.
// Changing any entry requires a new version.
var scorerWeightsV1 = map[string]float64{
	"snow_loading_4d":     0.055,
	"temp_max_change_24h": 0.040,
	"wind_speed_max":      0.018,
	"stability_index":     -0.380,
	"avalanche_count_7d":  0.210,
}

const scorerBiasV1 = 0.45

// WeightedScorer is the fixed-weight demonstration model. Fit is a no-op:
// nothing is learned, so scoring is reproducible across runs by construction.
type WeightedScorer struct{}

// NewWeightedScorer returns the v1 scorer.
func NewWeightedScorer() *WeightedScorer { return &WeightedScorer{} }

// Fit implements Classifier. The weight table is frozen, so Fit only checks
// that the target column exists.
func (s *WeightedScorer) Fit(_ context.Context, m domain.FeatureMatrix, target string) error {
	if m.ColumnIndex(target) < 0 {
		return &domain.ConfigurationError{Field: target, Reason: "target column not in matrix"}
	}
	return nil
}

// PredictProba implements Classifier. Every weighted column must exist in the
// matrix; a gap means the pipeline configuration and the scorer version have
// drifted apart.
func (s *WeightedScorer) PredictProba(_ context.Context, m domain.FeatureMatrix) ([]float64, error) {
	// Accumulate in sorted column order: float addition is not associative,
	// so map iteration order would wobble the last ULPs between runs.
	names := make([]string, 0, len(scorerWeightsV1))
	for name := range scorerWeightsV1 {
		names = append(names, name)
	}
	sort.Strings(names)

	idx := make([]int, len(names))
	for k, name := range names {
		i := m.ColumnIndex(name)
		if i < 0 {
			return nil, &domain.ConfigurationError{Field: name, Reason: "scorer input column not in matrix"}
		}
		idx[k] = i
	}

	probs := make([]float64, len(m.Rows))
	for r, row := range m.Rows {
		score := scorerBiasV1
		for k, name := range names {
			score += scorerWeightsV1[name] * row.Values[idx[k]]
		}
		probs[r] = 1 / (1 + math.Exp(-score))
	}
	return probs, nil
}

// Assess scores the matrix and returns the latest assessment per zone, sorted
// by zone ID. Zones absent from the matrix are skipped; zone metadata comes
// from the reference zone list.
func Assess(ctx context.Context, m domain.FeatureMatrix, zones []domain.Zone, c Classifier) ([]Assessment, error) {
	probs, err := c.PredictProba(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	// Rows are sorted (zone, date) ascending, so the last row per zone is the
	// latest.
	latest := make(map[string]int)
	for i, row := range m.Rows {
		latest[row.ZoneID] = i
	}

	out := make([]Assessment, 0, len(latest))
	for _, z := range zones {
		i, ok := latest[z.ID]
		if !ok {
			continue
		}
		out = append(out, Assessment{
			ZoneID:      z.ID,
			ZoneName:    z.Name,
			Lat:         z.Lat,
			Lng:         z.Lng,
			Date:        m.Rows[i].Date,
			Probability: probs[i],
			Level:       LevelFor(probs[i]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZoneID < out[j].ZoneID })
	return out, nil
}
