// Package domain models daily avalanche and weather observation data for
// Colorado backcountry zones.
//
// # Data Sources
//
// Observations come from three record series, all keyed by zone and day:
//
//	Snow station records: snow_depth (cm), new_snow (cm), snow_water_equivalent (mm).
//	Airport weather records: temp_min, temp_max (°C), wind_speed_avg, wind_speed_max (mph), precipitation (mm).
//	Avalanche event logs: one row per observed avalanche with a D-scale size and
//	a type code (SLAB, WET, ...). Events are rolled up into daily metrics
//	(avalanche_count, avalanche_slab, avalanche_wet, avalanche_dsize_max)
//	before entering the pipeline.
//
// # Calendar Conventions
//
// All dates are UTC midnights. Seasonal features use the water year, the
// accounting period running October 1 through September 30: October is water
// year month 1 and October 1 is water year day 1. See [WaterYear] and friends.
//
// # Missing Values
//
// Every cell in an aligned table is a [Value], an explicit Present/Missing
// pair. Aggregations over a window decide per rule whether Missing cells are
// excluded or disqualify the result; nothing in the pipeline relies on NaN
// propagation. Cells only become plain float64 when the assembler emits the
// final feature matrix, at which point a leftover Missing is an error.
//
// # D-Scale
//
// Avalanche destructive size is reported on the D scale as "D1" through "D5",
// with half sizes like "D2.5". [ParseDScale] strips the prefix and parses the
// numeric part; "UNKNOWN" and malformed values parse as Missing.
//
// # Cleaning Policies
//
// Duplicate (zone, date, metric) raw records resolve last-write-wins by ingest
// order. Values outside a metric's configured physical range are discarded as
// Missing, never clamped. Both policies are applied by the alignment stage and
// are deliberate defaults inferred from upstream data conventions.
package domain
