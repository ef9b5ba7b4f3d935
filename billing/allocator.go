/*
allocator.go - Session-to-package assignment

PURPOSE:

	Decides which package each of a client's sessions is billed against,
	so usage/remaining counts and pricing are correct without manual
	correction when sessions are logged out of order relative to
	purchases. Runs after any new package is inserted for a
	client+trainer pair.

ALGORITHM (two phases over one client+trainer pair):
 1. Overflow cascade: walk packages oldest -> second-newest. Any
    package holding more sessions than it sold moves its MOST RECENT
    excess sessions to the next package in age order. Once a client
    buys their next package, their latest sessions count against it
    instead of overflowing the prior one.
 2. Drop-in absorption: unlinked sessions, in date order, each go to
    the OLDEST package that still has spare capacity at that point in
    the scan. A drop-in that fits nowhere stays unlinked.

INVARIANTS:
  - After allocation, no package except possibly the newest is over
    capacity
  - Drop-ins always land on the oldest package with room
  - Idempotent: re-running on a balanced state changes nothing

POLICY:

	The traversal orders (package age, session recency, overflow victim
	selection) live behind AllocationPolicy so an alternate policy can be
	substituted and tested without touching call sites. OldestFirstPolicy
	is the production behavior described above.

FAILURE SEMANTICS:

	Best-effort heuristic, not a transactional guarantee. The store's
	RelinkSessions applies the result as one logical unit per
	client+trainer; interleaved purchases are last-writer-wins.
*/
package billing

import (
	"sort"
)

// =============================================================================
// ALLOCATION POLICY - named traversal orders
// =============================================================================

// AllocationPolicy fixes the orderings the allocator walks: package age,
// session chronology, and which linked sessions a full package gives up.
type AllocationPolicy interface {
	// OrderPackages returns the packages in age order, oldest first.
	OrderPackages(packages []Package) []Package

	// OrderSessions returns the sessions in chronological order.
	OrderSessions(sessions []Session) []Session

	// OverflowVictims picks which of a package's linked sessions (given
	// in chronological order) move to the next package when the package
	// holds `excess` too many.
	OverflowVictims(linked []Session, excess int) []Session
}

// OldestFirstPolicy is the production policy: packages age by start date
// (ties by insertion order), sessions order by date then id, and the
// most recent sessions are the ones an over-capacity package gives up.
type OldestFirstPolicy struct{}

func (OldestFirstPolicy) OrderPackages(packages []Package) []Package {
	out := make([]Package, len(packages))
	copy(out, packages)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

func (OldestFirstPolicy) OrderSessions(sessions []Session) []Session {
	out := make([]Session, len(sessions))
	copy(out, sessions)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (OldestFirstPolicy) OverflowVictims(linked []Session, excess int) []Session {
	if excess > len(linked) {
		excess = len(linked)
	}
	return linked[len(linked)-excess:]
}

// =============================================================================
// ALLOCATOR
// =============================================================================

// Allocator reassigns session-to-package links for one client+trainer
// pair. Inputs are never mutated; revised session copies come back in
// AllocationResult.
type Allocator struct {
	Policy AllocationPolicy
}

// NewAllocator returns an allocator with the production policy.
func NewAllocator() *Allocator {
	return &Allocator{Policy: OldestFirstPolicy{}}
}

// AllocationResult is the outcome of one allocation run.
type AllocationResult struct {
	// Sessions holds revised copies of every input session, input order
	// preserved. Only PackageID links may differ from the input.
	Sessions []Session

	// Overflowed counts sessions the cascade moved to a newer package.
	Overflowed int

	// Absorbed counts drop-ins linked into a package.
	Absorbed int
}

// Changed reports whether any link was revised.
func (r AllocationResult) Changed() bool { return r.Overflowed+r.Absorbed > 0 }

// Allocate runs the overflow cascade and drop-in absorption over one
// client+trainer pair's packages and sessions. Sessions linked to a
// package outside the given set are left untouched.
func (a *Allocator) Allocate(packages []Package, sessions []Session) AllocationResult {
	policy := a.Policy
	if policy == nil {
		policy = OldestFirstPolicy{}
	}

	aged := policy.OrderPackages(packages)
	known := make(map[PackageID]bool, len(aged))
	for _, p := range aged {
		known[p.ID] = true
	}

	// Revised link for every session, keyed by id.
	links := make(map[SessionID]PackageID, len(sessions))
	for _, s := range sessions {
		links[s.ID] = s.PackageID
	}

	// Phase 1: overflow cascade, oldest -> second-newest. Each package's
	// linked sessions are re-read per step so cascaded sessions keep
	// flowing forward.
	result := AllocationResult{}
	for i := 0; i+1 < len(aged); i++ {
		pkg := aged[i]
		linked := policy.OrderSessions(linkedTo(sessions, links, pkg.ID))
		excess := len(linked) - pkg.SessionsPurchased
		if excess <= 0 {
			continue
		}
		next := aged[i+1]
		for _, victim := range policy.OverflowVictims(linked, excess) {
			links[victim.ID] = next.ID
			result.Overflowed++
		}
	}

	// Phase 2: drop-in absorption, oldest session first into the oldest
	// package with spare capacity at that point in the scan.
	used := make(map[PackageID]int, len(aged))
	for _, s := range sessions {
		if id := links[s.ID]; id != "" && known[id] {
			used[id]++
		}
	}
	var dropIns []Session
	for _, s := range sessions {
		if links[s.ID] == "" {
			dropIns = append(dropIns, s)
		}
	}
	for _, s := range policy.OrderSessions(dropIns) {
		for _, pkg := range aged {
			if used[pkg.ID] < pkg.SessionsPurchased {
				links[s.ID] = pkg.ID
				used[pkg.ID]++
				result.Absorbed++
				break
			}
		}
	}

	// Materialize revised copies in input order.
	result.Sessions = make([]Session, len(sessions))
	for i, s := range sessions {
		s.PackageID = links[s.ID]
		result.Sessions[i] = s
	}
	return result
}

// linkedTo collects the sessions currently linked to a package, under the
// revised link map.
func linkedTo(sessions []Session, links map[SessionID]PackageID, id PackageID) []Session {
	var out []Session
	for _, s := range sessions {
		if links[s.ID] == id {
			out = append(out, s)
		}
	}
	return out
}
