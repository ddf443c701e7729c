// Package feature implements the five pipeline stages that turn raw daily
// observations into a model-ready feature matrix: calendar alignment and
// cleaning, rolling/lag window features, derived composites, imputation and
// calendar encoding, and final assembly.
package feature

import (
	"fmt"
	"sort"
	"time"

	"avalanche-feature-etl/internal/domain"
)

// Range is the physically plausible interval for a metric. Values outside it
// are discarded as missing, never clamped.
type Range struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// Contains reports whether v lies inside the range, inclusive.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// AlignReport counts what the cleaning pass did, for logging and metrics.
type AlignReport struct {
	Observations int
	OutOfRange   int
	Duplicates   int
}

// Align produces one calendar-aligned table per zone from raw observations.
// Every zone's table spans the same range, the full observed [min, max] date
// span across all zones, one row per day, with gaps represented as Missing.
//
// Duplicate (zone, date, metric) records resolve last-write-wins in slice
// order, which is ingest order. This is a deliberate and possibly surprising
// policy: a corrected re-submission silently replaces the original.
//
// ranges maps metric name to its physical range; metrics without an entry are
// passed through unfiltered. A zone with no in-range observations yields a
// DataIntegrityError. Output is sorted by zone ID ascending.
func Align(obs []domain.Observation, zones []domain.Zone, ranges map[string]Range) ([]*domain.ZoneSeries, AlignReport, error) {
	report := AlignReport{Observations: len(obs)}
	if len(obs) == 0 {
		return nil, report, &domain.DataIntegrityError{Reason: "no observations in requested range"}
	}

	var start, end time.Time
	kept := make(map[string]map[string]map[time.Time]float64) // zone -> metric -> day -> value
	metrics := make(map[string]struct{})

	for _, o := range obs {
		day := domain.Day(o.Date)
		v, ok := o.Value.Get()
		if !ok {
			continue
		}
		if r, ok := ranges[o.Metric]; ok && !r.Contains(v) {
			report.OutOfRange++
			continue
		}
		if start.IsZero() || day.Before(start) {
			start = day
		}
		if end.IsZero() || day.After(end) {
			end = day
		}

		byMetric, ok := kept[o.ZoneID]
		if !ok {
			byMetric = make(map[string]map[time.Time]float64)
			kept[o.ZoneID] = byMetric
		}
		byDay, ok := byMetric[o.Metric]
		if !ok {
			byDay = make(map[time.Time]float64)
			byMetric[o.Metric] = byDay
		}
		if _, dup := byDay[day]; dup {
			report.Duplicates++
		}
		byDay[day] = v
		metrics[o.Metric] = struct{}{}
	}

	if start.IsZero() {
		return nil, report, &domain.DataIntegrityError{Reason: "all observations discarded as out of range"}
	}
	days := int(end.Sub(start).Hours()/24) + 1

	metricNames := make([]string, 0, len(metrics))
	for m := range metrics {
		metricNames = append(metricNames, m)
	}
	sort.Strings(metricNames)

	out := make([]*domain.ZoneSeries, 0, len(zones))
	for _, z := range zones {
		byMetric := kept[z.ID]
		if len(byMetric) == 0 {
			return nil, report, &domain.DataIntegrityError{
				Zone:   z.ID,
				Reason: fmt.Sprintf("no observations between %s and %s", start.Format(time.DateOnly), end.Format(time.DateOnly)),
			}
		}

		s := domain.NewZoneSeries(z.ID, start, days)
		for _, metric := range metricNames {
			col := make([]domain.Value, days)
			byDay := byMetric[metric]
			for i := 0; i < days; i++ {
				if v, ok := byDay[s.Date(i)]; ok {
					col[i] = domain.Present(v)
				}
			}
			if err := s.SetColumn(metric, col); err != nil {
				return nil, report, err
			}
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ZoneID < out[j].ZoneID })
	return out, report, nil
}
