package engine

import (
	"sort"
	"time"
)

// =============================================================================
// EFFECTIVE-DATED LOOKUP - "latest version effective <= target"
// =============================================================================

// LatestEffective selects the item with the greatest effective date that is
// on or before target. This is the single versioning rule for price history
// and income-rate tables.
//
// The input does not need to be sorted. Ties on effective date are broken by
// slice position: the later item wins, matching "most recent edit applies".
// Returns ok=false when no item is effective at or before target.
func LatestEffective[T any](items []T, effectiveAt func(T) time.Time, target time.Time) (best T, ok bool) {
	for _, item := range items {
		at := effectiveAt(item)
		if at.After(target) {
			continue
		}
		if !ok || !at.Before(effectiveAt(best)) {
			best = item
			ok = true
		}
	}
	return best, ok
}

// SortByEffective orders items ascending by effective date, stably, so
// insertion order survives as the tiebreak for equal dates.
func SortByEffective[T any](items []T, effectiveAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return effectiveAt(items[i]).Before(effectiveAt(items[j]))
	})
}
