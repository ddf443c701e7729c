package domain

import (
	"strconv"
	"strings"
	"time"
)

// Observation is one raw daily record: a single metric value for a zone on a
// day. Dates are UTC midnights; Day normalizes arbitrary timestamps. Value is
// a [Value] so a source can report a cell it failed to measure; alignment
// skips Missing observations.
type Observation struct {
	ZoneID string
	Date   time.Time
	Metric string
	Value  Value
}

// Day truncates t to its UTC midnight.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Zone is immutable reference data for a backcountry forecast zone.
type Zone struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// DefaultZones returns the ten Colorado backcountry zones the system covers.
// Config may override this set.
func DefaultZones() []Zone {
	return []Zone{
		{ID: "aspen", Name: "Aspen", Lat: 39.1911, Lng: -106.8175},
		{ID: "vail_summit", Name: "Vail & Summit County", Lat: 39.6403, Lng: -106.3742},
		{ID: "front_range", Name: "Front Range", Lat: 39.7392, Lng: -105.9903},
		{ID: "steamboat_flat_tops", Name: "Steamboat & Flat Tops", Lat: 40.4850, Lng: -106.8317},
		{ID: "sawatch_range", Name: "Sawatch Range", Lat: 39.1175, Lng: -106.4453},
		{ID: "gunnison", Name: "Gunnison", Lat: 38.5458, Lng: -107.0323},
		{ID: "grand_mesa", Name: "Grand Mesa", Lat: 39.0644, Lng: -108.1103},
		{ID: "northern_san_juan", Name: "Northern San Juan", Lat: 37.8136, Lng: -107.6631},
		{ID: "southern_san_juan", Name: "Southern San Juan", Lat: 37.2753, Lng: -106.9603},
		{ID: "sangre_de_cristo", Name: "Sangre de Cristo", Lat: 37.5831, Lng: -105.4903},
	}
}

// AvalancheEvent is one row from an avalanche event log. Events are rolled up
// into daily metrics by the extraction layer before alignment.
type AvalancheEvent struct {
	ZoneID string
	Date   time.Time
	DSize  string // D-scale, e.g. "D2" or "D2.5"
	Type   string // SLAB, WET, LOOSE, ...
}

// ParseDScale parses a D-scale size string ("D2", "d2.5", "2") into its
// numeric value. "UNKNOWN", empty, out-of-scale, and malformed input parse as
// Missing.
func ParseDScale(s string) Value {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" || s == "UNKNOWN" || s == "UNK" {
		return Missing()
	}
	s = strings.TrimPrefix(s, "D")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 1 || v > 5 {
		return Missing()
	}
	return Present(v)
}
