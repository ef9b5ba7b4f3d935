/*
week.go - Monday-anchored week arithmetic

PURPOSE:

	Every weekly computation in this system is keyed by the Monday that
	starts the week: income summaries run per trainer per week, and
	income-rate tables are versioned by "effective week" (which must be
	a Monday). This file owns all of that calendar math so nothing else
	reimplements "which week does this date fall in".

KEY CONCEPTS:
  - Date: A calendar day, normalized to UTC midnight. Sessions, package
    starts, and late fees are day-granular; times of day never matter.
  - Week: The half-open-free inclusive range [Monday, Sunday].

EXAMPLE:

	week := engine.WeekOf(engine.NewDate(2026, time.March, 12)) // a Thursday
	week.Monday                     // 2026-03-09
	week.Contains(someSessionDate)  // true for Mon..Sun of that week
*/
package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day at UTC midnight
// =============================================================================

// NewDate builds a day-granular date in UTC.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOnly strips any time-of-day component, keeping the UTC calendar day.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.UTC().Format("2006-01-02") }

// =============================================================================
// WEEK - Inclusive [Monday, Sunday] range
// =============================================================================

// Week is the inclusive Monday..Sunday range containing a date.
type Week struct {
	Monday time.Time
}

// WeekOf returns the week containing t.
func WeekOf(t time.Time) Week {
	return Week{Monday: MondayOf(t)}
}

// MondayOf returns the Monday on or before t.
func MondayOf(t time.Time) time.Time {
	d := DateOnly(t)
	// time.Weekday puts Sunday at 0; shift so Monday is 0.
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// IsMonday reports whether t falls on a Monday.
func IsMonday(t time.Time) bool { return t.UTC().Weekday() == time.Monday }

// RequireMonday returns ErrNotMonday unless t is a Monday. Income-rate
// effective weeks are rejected at the edit boundary with this check.
func RequireMonday(t time.Time) error {
	if !IsMonday(t) {
		return fmt.Errorf("%w: %s is a %s", ErrNotMonday, FormatDate(t), t.UTC().Weekday())
	}
	return nil
}

// Start returns the first day of the week (the Monday).
func (w Week) Start() time.Time { return w.Monday }

// End returns the last day of the week (the Sunday).
func (w Week) End() time.Time { return w.Monday.AddDate(0, 0, 6) }

// Contains reports whether t falls within the week.
func (w Week) Contains(t time.Time) bool {
	d := DateOnly(t)
	return !d.Before(w.Start()) && !d.After(w.End())
}

// Next returns the following week.
func (w Week) Next() Week { return Week{Monday: w.Monday.AddDate(0, 0, 7)} }

// Prev returns the preceding week.
func (w Week) Prev() Week { return Week{Monday: w.Monday.AddDate(0, 0, -7)} }

func (w Week) String() string {
	return "[" + FormatDate(w.Start()) + ", " + FormatDate(w.End()) + "]"
}
