// Package errs defines the error taxonomy shared by the analytics pipeline.
//
// DataError and ConfigurationError are fatal: the affected series (or the
// whole run) stops. InsufficientHistoryError and NumericalInstabilityError
// are absorbed by the owning stage and surfaced as decision diagnostics.
package errs

import (
	"errors"
	"fmt"
)

// DataError indicates malformed price input (non-monotonic timestamps,
// non-positive prices). The series is aborted, never retried.
type DataError struct {
	Series string
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error in series %s: %s", e.Series, e.Reason)
}

// InsufficientHistoryError indicates too few observations to initialize a
// filter or rolling window. Resolved locally by emitting REFUSE.
type InsufficientHistoryError struct {
	Stage  string
	Needed int
	Got    int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("%s: insufficient history: need %d observations, have %d", e.Stage, e.Needed, e.Got)
}

// NumericalInstabilityError indicates a guarded numerical failure (variance
// collapse, expired contract, degenerate volatility). The affected
// timestamp's decision is forced to REFUSE.
type NumericalInstabilityError struct {
	Stage  string
	Reason string
}

func (e *NumericalInstabilityError) Error() string {
	return fmt.Sprintf("%s: numerical instability: %s", e.Stage, e.Reason)
}

// ConfigurationError indicates an out-of-range parameter. Fatal at startup;
// parameters are never silently clamped.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// IsFatal reports whether err must stop processing of the series.
func IsFatal(err error) bool {
	var de *DataError
	var ce *ConfigurationError
	return errors.As(err, &de) || errors.As(err, &ce)
}
