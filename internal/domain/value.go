package domain

import "strconv"

// Value is a single observation cell: either a present float64 or missing.
// The zero Value is Missing.
type Value struct {
	v       float64
	present bool
}

// Present wraps a float64 as a present Value.
func Present(v float64) Value { return Value{v: v, present: true} }

// Missing returns the missing Value.
func Missing() Value { return Value{} }

// IsPresent reports whether the cell holds a value.
func (v Value) IsPresent() bool { return v.present }

// Get returns the underlying float64 and whether it is present.
func (v Value) Get() (float64, bool) { return v.v, v.present }

// Or returns the underlying float64, or def when missing.
func (v Value) Or(def float64) float64 {
	if !v.present {
		return def
	}
	return v.v
}

func (v Value) String() string {
	if !v.present {
		return "missing"
	}
	return strconv.FormatFloat(v.v, 'g', -1, 64)
}
