/*
realloc.go - Serialized read-compute-write allocation runs

PURPOSE:

	The allocator itself is pure, but applying its result is the one
	place persisted state is revised. Correctness depends on observing a
	consistent snapshot of "which packages exist" and "which sessions are
	currently linked", so each client+trainer pair gets a serialization
	point: concurrent runs for the same pair queue up, runs for different
	pairs proceed in parallel. Interleaved purchases remain
	last-writer-wins on the link set; this is a best-effort heuristic,
	not a transaction.
*/
package billing

import (
	"context"
	"sync"
)

// Reallocator loads a client+trainer pair's packages and sessions, runs
// the allocator, and writes the revised links back, serialized per pair.
type Reallocator struct {
	store Store
	alloc *Allocator

	mu    sync.Mutex
	locks map[pairKey]*sync.Mutex
}

type pairKey struct {
	Client  ClientID
	Trainer TrainerID
}

// NewReallocator builds a Reallocator with the production policy.
func NewReallocator(store Store) *Reallocator {
	return &Reallocator{
		store: store,
		alloc: NewAllocator(),
		locks: make(map[pairKey]*sync.Mutex),
	}
}

func (r *Reallocator) lockFor(k pairKey) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.locks[k]; ok {
		return l
	}
	l := &sync.Mutex{}
	r.locks[k] = l
	return l
}

// Run executes one allocation for a client+trainer pair and persists any
// revised links. Returns the allocation result for logging.
func (r *Reallocator) Run(ctx context.Context, clientID ClientID, trainerID TrainerID) (AllocationResult, error) {
	lock := r.lockFor(pairKey{Client: clientID, Trainer: trainerID})
	lock.Lock()
	defer lock.Unlock()

	packages, err := r.store.PackagesFor(ctx, clientID, trainerID)
	if err != nil {
		return AllocationResult{}, err
	}
	sessions, err := r.store.SessionsFor(ctx, clientID, trainerID)
	if err != nil {
		return AllocationResult{}, err
	}

	result := r.alloc.Allocate(packages, sessions)
	if !result.Changed() {
		return result, nil
	}

	links := make(map[SessionID]PackageID, len(result.Sessions))
	for _, s := range result.Sessions {
		links[s.ID] = s.PackageID
	}
	if err := r.store.RelinkSessions(ctx, links); err != nil {
		return AllocationResult{}, err
	}
	return result, nil
}
