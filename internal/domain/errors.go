package domain

import "fmt"

// DataIntegrityError reports source data that is missing or invalid beyond
// recoverable thresholds. Fatal to the run.
type DataIntegrityError struct {
	Zone   string
	Reason string
}

func (e *DataIntegrityError) Error() string {
	if e.Zone == "" {
		return fmt.Sprintf("data integrity: %s", e.Reason)
	}
	return fmt.Sprintf("data integrity: zone %s: %s", e.Zone, e.Reason)
}

// ConfigurationError reports an invalid or incomplete pipeline configuration,
// such as an undeclared imputation policy or a malformed window spec.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration: %s", e.Reason)
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// ComputationError reports an internal inconsistency detected while computing
// or assembling features, such as a join mismatch between per-zone tables.
// It always indicates a pipeline bug, never bad input data.
type ComputationError struct {
	Zone   string
	Reason string
}

func (e *ComputationError) Error() string {
	if e.Zone == "" {
		return fmt.Sprintf("computation: %s", e.Reason)
	}
	return fmt.Sprintf("computation: zone %s: %s", e.Zone, e.Reason)
}
