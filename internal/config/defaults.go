package config

import "avalanche-feature-etl/internal/feature"

// DefaultRanges are the physical plausibility bounds applied during
// alignment. Depths are centimeters, temperatures Celsius, wind km/h,
// precipitation millimeters of water.
func DefaultRanges() map[string]feature.Range {
	return map[string]feature.Range{
		"snow_depth":            {Min: 0, Max: 500},
		"new_snow":              {Min: 0, Max: 120},
		"snow_water_equivalent": {Min: 0, Max: 250},
		"temp_min":              {Min: -60, Max: 40},
		"temp_max":              {Min: -50, Max: 50},
		"wind_speed_avg":        {Min: 0, Max: 150},
		"wind_speed_max":        {Min: 0, Max: 250},
		"precipitation":         {Min: 0, Max: 100},
		"avalanche_count":       {Min: 0, Max: 200},
		"avalanche_slab":        {Min: 0, Max: 200},
		"avalanche_wet":         {Min: 0, Max: 200},
		"avalanche_dsize_max":   {Min: 0, Max: 5},
	}
}

// DefaultWindows is the stock rolling-feature definition. The 4-day snow
// loading window front-weights recent snowfall; everything else is uniform.
func DefaultWindows() []feature.WindowSpec {
	return []feature.WindowSpec{
		{Name: "snow_loading_4d", Metric: "new_snow", Days: 4, Agg: feature.AggSum,
			Weights: []float64{1.0, 0.75, 0.5, 0.25}},
		{Metric: "new_snow", Days: 3, Agg: feature.AggSum},
		{Metric: "new_snow", Days: 7, Agg: feature.AggSum},
		{Metric: "temp_max", Days: 7, Agg: feature.AggMean},
		{Metric: "temp_min", Days: 7, Agg: feature.AggMean},
		{Metric: "snow_depth", Days: 5, Agg: feature.AggSlope},
		{Metric: "temp_max", Days: 5, Agg: feature.AggSlope},
		{Metric: "wind_speed_avg", Days: 3, Agg: feature.AggMean},
		{Name: "avalanche_count_7d", Metric: "avalanche_count", Days: 7, Agg: feature.AggSum},
		{Name: "avalanche_count_30d", Metric: "avalanche_count", Days: 30, Agg: feature.AggSum},
		{Metric: "new_snow", Days: 7, Agg: feature.AggCount},
	}
}

func DefaultLags() []feature.LagSpec {
	return []feature.LagSpec{
		{Metric: "snow_depth", Days: 1},
		{Metric: "temp_max", Days: 1},
		{Metric: "new_snow", Days: 1},
	}
}

func DefaultDerived() []feature.DeriveSpec {
	return []feature.DeriveSpec{
		{Kind: feature.DeriveDayDelta, Metric: "temp_max"},
		{Kind: feature.DeriveFreezeThaw, Metric: "temp_max", Days: 7},
		{Kind: feature.DeriveLoadingRate, Metric: "snow_depth", Days: 3},
		{Kind: feature.DeriveStabilityIndex, Name: "stability_index",
			Inputs: []string{"snow_loading_4d", "temp_max_change_24h", "wind_speed_max", "freeze_thaw_7d"}},
	}
}

// DefaultPolicies covers every default column that can carry gaps. Counts and
// calendar flags are always present and need no entry.
func DefaultPolicies() feature.Policies {
	return feature.Policies{
		"snow_depth":            {Kind: feature.PolicyForwardFill},
		"new_snow":              {Kind: feature.PolicyZero},
		"snow_water_equivalent": {Kind: feature.PolicyForwardFill},
		"temp_min":              {Kind: feature.PolicyMean},
		"temp_max":              {Kind: feature.PolicyMean},
		"wind_speed_avg":        {Kind: feature.PolicyMean},
		"wind_speed_max":        {Kind: feature.PolicyMean},
		"precipitation":         {Kind: feature.PolicyZero},
		"avalanche_count":       {Kind: feature.PolicyZero},
		"avalanche_slab":        {Kind: feature.PolicyZero},
		"avalanche_wet":         {Kind: feature.PolicyZero},
		"avalanche_dsize_max":   {Kind: feature.PolicyZero},

		"snow_loading_4d":        {Kind: feature.PolicyZero},
		"new_snow_sum_3d":        {Kind: feature.PolicyZero},
		"new_snow_sum_7d":        {Kind: feature.PolicyZero},
		"temp_max_mean_7d":       {Kind: feature.PolicyMean},
		"temp_min_mean_7d":       {Kind: feature.PolicyMean},
		"snow_depth_slope_5d":    {Kind: feature.PolicyZero},
		"temp_max_slope_5d":      {Kind: feature.PolicyZero},
		"wind_speed_avg_mean_3d": {Kind: feature.PolicyMean},
		"avalanche_count_7d":     {Kind: feature.PolicyZero},
		"avalanche_count_30d":    {Kind: feature.PolicyZero},

		"snow_depth_lag_1d": {Kind: feature.PolicyForwardFill},
		"temp_max_lag_1d":   {Kind: feature.PolicyMean},
		"new_snow_lag_1d":   {Kind: feature.PolicyZero},

		"temp_max_change_24h":        {Kind: feature.PolicyZero},
		"freeze_thaw_7d":             {Kind: feature.PolicyZero},
		"snow_depth_loading_rate_3d": {Kind: feature.PolicyZero},
		"stability_index":            {Kind: feature.PolicyConstant, Constant: 5.0},
	}
}
