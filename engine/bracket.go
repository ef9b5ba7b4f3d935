/*
Package engine provides the domain-agnostic building blocks for the
income engine.

PURPOSE:

	Two lookup shapes recur everywhere in this system:
	1. Bracket tables: "a count between Min and Max maps to a value"
	   (session-count price brackets, class-count pay-rate brackets)
	2. Effective-dated versions: "the latest version effective on or
	   before a target date applies"
	   (client price history, trainer income-rate tables)

	This package implements both ONCE so the billing package never
	duplicates a scan.

KEY CONCEPTS IN THIS FILE (bracket.go):
  - Bracket: An inclusive [Min, Max] count range; Max == nil means
    unbounded ("21+", "13+").
  - ValidateBrackets: The edit-boundary rule set: brackets start at 1,
    are contiguous, and exactly one (the last) is unbounded. Tables
    that pass validation cover every positive count exactly once.

DESIGN PRINCIPLES:
 1. Brackets are value types; validation returns sentinel-wrapped errors
 2. A validated table has no gaps and no overlaps by construction
 3. Lookup over an unvalidated table degrades (not found), never panics

SEE ALSO:
  - effective.go: Effective-dated version selection
  - week.go: Monday-anchored week arithmetic
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrBracketGap is returned when a bracket table does not cover some
	// positive count (gap, overlap, wrong start, or missing unbounded tail).
	ErrBracketGap = errors.New("bracket table has invalid coverage")

	// ErrNoBracket is returned by lookups when no bracket contains the count.
	ErrNoBracket = errors.New("no bracket matches count")

	// ErrNotMonday is returned when an effective week is not a Monday.
	ErrNotMonday = errors.New("effective week must be a Monday")
)

// =============================================================================
// BRACKET - Inclusive count range, optionally unbounded
// =============================================================================

// Bracket is an inclusive count range [Min, Max].
// Max == nil means the bracket is unbounded above.
type Bracket struct {
	Min int
	Max *int // nil = unbounded
}

// NewBracket builds a bounded bracket.
func NewBracket(min, max int) Bracket {
	return Bracket{Min: min, Max: &max}
}

// NewOpenBracket builds an unbounded bracket starting at min.
func NewOpenBracket(min int) Bracket {
	return Bracket{Min: min}
}

// Contains reports whether n falls inside the bracket.
func (b Bracket) Contains(n int) bool {
	if n < b.Min {
		return false
	}
	return b.Max == nil || n <= *b.Max
}

// Unbounded reports whether the bracket has no upper limit.
func (b Bracket) Unbounded() bool { return b.Max == nil }

func (b Bracket) String() string {
	if b.Max == nil {
		return fmt.Sprintf("%d+", b.Min)
	}
	return fmt.Sprintf("%d-%d", b.Min, *b.Max)
}

// =============================================================================
// VALIDATION - Edit-boundary rules for bracket tables
// =============================================================================

// ValidateBrackets enforces the rules a bracket table must satisfy before
// it is accepted from an editor:
//   - the first bracket starts at 1
//   - each bracket's Min is the previous bracket's Max + 1
//   - exactly one bracket is unbounded, and it is the last
//
// A table that passes covers every count >= 1 exactly once.
func ValidateBrackets(brackets []Bracket) error {
	if len(brackets) == 0 {
		return fmt.Errorf("%w: empty table", ErrBracketGap)
	}
	if brackets[0].Min != 1 {
		return fmt.Errorf("%w: first bracket starts at %d, want 1", ErrBracketGap, brackets[0].Min)
	}
	for i, b := range brackets {
		last := i == len(brackets)-1
		if b.Unbounded() != last {
			if last {
				return fmt.Errorf("%w: last bracket %s must be unbounded", ErrBracketGap, b)
			}
			return fmt.Errorf("%w: bracket %s is unbounded but not last", ErrBracketGap, b)
		}
		if last {
			continue
		}
		if *b.Max < b.Min {
			return fmt.Errorf("%w: bracket %s is inverted", ErrBracketGap, b)
		}
		if next := brackets[i+1]; next.Min != *b.Max+1 {
			return fmt.Errorf("%w: bracket %s followed by %s", ErrBracketGap, b, next)
		}
	}
	return nil
}

// FindBracket returns the index of the bracket containing n, or ErrNoBracket.
// On an unvalidated table with overlaps the first match wins, which keeps
// the lookup deterministic for malformed input handed to the compute core.
func FindBracket(brackets []Bracket, n int) (int, error) {
	for i, b := range brackets {
		if b.Contains(n) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %d", ErrNoBracket, n)
}
