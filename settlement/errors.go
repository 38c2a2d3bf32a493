/*
errors.go - Centralized error types for the settlement engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers wrap these with context and test them with errors.Is/errors.As.

ERROR CATEGORIES:
  1. Fetch errors - a reference directory could not be read (fatal for a run)
  2. Run errors - a run was superseded or asked for an invalid range
  3. Lookup errors - a row or configuration is not available

Per-entry problems (unknown worker, unknown team, bad date) are NOT errors:
the entry is dropped and counted in Diagnostics. Missing bank fields are NOT
errors either: the row is kept and marked invalid.

SEE ALSO:
  - runner.go: returns FetchError
  - session.go: returns ErrStaleRun
  - api/handlers.go: maps these onto HTTP status codes
*/
package settlement

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrFetchFailed is returned when any reference directory fetch fails.
	// The whole run is aborted; the previous result stays in place.
	ErrFetchFailed = errors.New("reference data fetch failed")

	// ErrStaleRun is returned when a newer run started before this one
	// finished. Its result is discarded.
	ErrStaleRun = errors.New("settlement run superseded by a newer run")

	// ErrInvalidRange is returned when a date range is malformed.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrRowNotFound is returned when a row key is not part of a result.
	ErrRowNotFound = errors.New("transfer row not found")

	// ErrNoResult is returned when no run has completed yet.
	ErrNoResult = errors.New("no settlement result available")

	// ErrConfigUnavailable is returned when neither the config store nor the
	// cache can supply a payroll configuration.
	ErrConfigUnavailable = errors.New("payroll configuration unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// Source names a reference directory fetched before a run.
type Source string

const (
	SourceReports   Source = "reports"
	SourceWorkers   Source = "workers"
	SourceTeams     Source = "teams"
	SourceCompanies Source = "companies"
	SourceAdvances  Source = "advances"
	SourceConfig    Source = "config"
)

// FetchError records which directory failed.
type FetchError struct {
	Source Source
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailed, e.Err}
}

// RangeError describes a rejected date range.
type RangeError struct {
	Start  string
	End    string
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid date range [%s, %s]: %s", e.Start, e.End, e.Reason)
}

func (e *RangeError) Unwrap() error {
	return ErrInvalidRange
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRowNotFound) ||
		errors.Is(err, ErrNoResult)
}

// IsUpstream returns true if the error came from a reference directory.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrFetchFailed) ||
		errors.Is(err, ErrConfigUnavailable)
}
