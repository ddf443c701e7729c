// Package csvsource parses station weather exports and avalanche event logs
// from CSV for ingestion into the observation store.
package csvsource

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"avalanche-feature-etl/internal/domain"
)

// weatherColumns maps CSV header names to canonical metric names. Headers
// match case-insensitively; unknown columns are ignored.
var weatherColumns = map[string]string{
	"snow_depth":            "snow_depth",
	"new_snow":              "new_snow",
	"snow_water_equivalent": "snow_water_equivalent",
	"swe":                   "snow_water_equivalent",
	"temp_min":              "temp_min",
	"temp_max":              "temp_max",
	"wind_speed_avg":        "wind_speed_avg",
	"wind_speed_max":        "wind_speed_max",
	"precipitation":         "precipitation",
	"precip":                "precipitation",
}

// missing markers commonly found in station exports
var missingMarkers = map[string]bool{
	"": true, "na": true, "n/a": true, "nan": true, "null": true, "-9999": true,
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return domain.Day(d), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ReadObservations parses a wide-format weather CSV. The header must contain
// Date and Zone columns; each recognized metric column yields one observation
// per row unless the cell is a missing marker.
func ReadObservations(r io.Reader) ([]domain.Observation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateIdx, zoneIdx := -1, -1
	type boundColumn struct {
		idx    int
		metric string
	}
	var metricCols []boundColumn
	for i, h := range header {
		switch key := strings.ToLower(strings.TrimSpace(h)); key {
		case "date":
			dateIdx = i
		case "zone", "zone_id", "station":
			zoneIdx = i
		default:
			if metric, ok := weatherColumns[key]; ok {
				metricCols = append(metricCols, boundColumn{idx: i, metric: metric})
			}
		}
	}
	if dateIdx < 0 || zoneIdx < 0 {
		return nil, fmt.Errorf("header missing Date or Zone column")
	}

	var obs []domain.Observation
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := parseDate(rec[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		zone := strings.TrimSpace(rec[zoneIdx])
		if zone == "" {
			return nil, fmt.Errorf("line %d: empty zone", line)
		}

		for _, col := range metricCols {
			cell := strings.TrimSpace(rec[col.idx])
			if missingMarkers[strings.ToLower(cell)] {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad %s value %q", line, col.metric, cell)
			}
			obs = append(obs, domain.Observation{
				ZoneID: zone,
				Date:   date,
				Metric: col.metric,
				Value:  domain.Present(v),
			})
		}
	}
	return obs, nil
}

// ReadEvents parses an avalanche event log CSV with Date, Zone, DSize, and
// Type columns. DSize and Type may be empty.
func ReadEvents(r io.Reader) ([]domain.AvalancheEvent, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateIdx, zoneIdx, dsizeIdx, typeIdx := -1, -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date":
			dateIdx = i
		case "zone", "zone_id":
			zoneIdx = i
		case "dsize", "d_size", "destructive_size":
			dsizeIdx = i
		case "type", "avalanche_type":
			typeIdx = i
		}
	}
	if dateIdx < 0 || zoneIdx < 0 {
		return nil, fmt.Errorf("header missing Date or Zone column")
	}

	var events []domain.AvalancheEvent
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := parseDate(rec[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		zone := strings.TrimSpace(rec[zoneIdx])
		if zone == "" {
			return nil, fmt.Errorf("line %d: empty zone", line)
		}

		e := domain.AvalancheEvent{ZoneID: zone, Date: date}
		if dsizeIdx >= 0 {
			e.DSize = strings.TrimSpace(rec[dsizeIdx])
		}
		if typeIdx >= 0 {
			e.Type = strings.TrimSpace(rec[typeIdx])
		}
		events = append(events, e)
	}
	return events, nil
}
