/*
errors.go - Centralized error types for the billing core

PURPOSE:

	All billing error values in one place. The compute core never fails a
	whole computation over missing historical data; it degrades to the
	documented fallbacks (drop-in pricing, zero rate, "Unknown client")
	so a dashboard always renders. These errors exist for the WRITE
	boundary (rate tables, pricing edits) and for callers that want to
	know a fallback was taken.

ERROR CATEGORIES:
 1. Configuration gaps - no rates configured, no bracket coverage
 2. Referential gaps   - client/package ids that no longer resolve
 3. Invalid input      - malformed rate tables rejected at the edit boundary

USAGE:

	if errors.Is(err, billing.ErrNoRatesConfigured) {
	    // render summary with "no rates configured", not a 500
	}
*/
package billing

import (
	"errors"
	"fmt"

	"github.com/pulsefit/income-engine/engine"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoRatesConfigured is returned when a trainer has no income-rate
	// rows at all. Distinct from a configured rate of zero.
	ErrNoRatesConfigured = errors.New("no income rates configured for trainer")

	// ErrRateGap is returned when a trainer's rate table exists but no
	// bracket covers the class count. The resolver degrades to rate 0 and
	// surfaces this so the table can be corrected.
	ErrRateGap = errors.New("income-rate table does not cover class count")

	// ErrClientNotFound is returned when a session or package references a
	// client id that no longer resolves.
	ErrClientNotFound = errors.New("client not found")

	// ErrTrainerNotFound is returned when a trainer id does not resolve.
	ErrTrainerNotFound = errors.New("trainer not found")

	// ErrPackageNotFound is returned when a session links a package id
	// that no longer resolves.
	ErrPackageNotFound = errors.New("package not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RateGapError reports which class count fell outside a trainer's
// configured brackets.
type RateGapError struct {
	TrainerID  TrainerID
	ClassCount int
	Brackets   []engine.Bracket
}

func (e *RateGapError) Error() string {
	return fmt.Sprintf("income-rate gap: trainer %s has no bracket for %d classes", e.TrainerID, e.ClassCount)
}

func (e *RateGapError) Unwrap() error { return ErrRateGap }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigGap reports whether the error is a configuration gap the
// caller should surface for correction rather than treat as fatal.
func IsConfigGap(err error) bool {
	return errors.Is(err, ErrNoRatesConfigured) || errors.Is(err, ErrRateGap)
}

// IsNotFound reports whether the error is a referential gap.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrTrainerNotFound) ||
		errors.Is(err, ErrPackageNotFound)
}
