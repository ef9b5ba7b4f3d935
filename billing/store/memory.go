// Package store provides the in-memory billing.Store implementation,
// used by tests, development, and the demo scenarios.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pulsefit/income-engine/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	trainers map[billing.TrainerID]billing.Trainer
	clients  map[billing.ClientID]billing.Client
	packages map[billing.PackageID]billing.Package
	sessions map[billing.SessionID]billing.Session
	lateFees map[billing.LateFeeID]billing.LateFee
	history  []billing.PriceHistoryEntry
	rates    []billing.IncomeRate

	packageSeq int64
}

var _ billing.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		trainers: make(map[billing.TrainerID]billing.Trainer),
		clients:  make(map[billing.ClientID]billing.Client),
		packages: make(map[billing.PackageID]billing.Package),
		sessions: make(map[billing.SessionID]billing.Session),
		lateFees: make(map[billing.LateFeeID]billing.LateFee),
	}
}

// -----------------------------------------------------------------------------
// Trainers
// -----------------------------------------------------------------------------

func (m *Memory) SaveTrainer(_ context.Context, t billing.Trainer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainers[t.ID] = t
	return nil
}

func (m *Memory) Trainer(_ context.Context, id billing.TrainerID) (billing.Trainer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trainers[id]
	if !ok {
		return billing.Trainer{}, fmt.Errorf("trainer %s: %w", id, billing.ErrNotFound)
	}
	return t, nil
}

func (m *Memory) Trainers(_ context.Context) ([]billing.Trainer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Trainer, 0, len(m.trainers))
	for _, t := range m.trainers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// -----------------------------------------------------------------------------
// Clients
// -----------------------------------------------------------------------------

func (m *Memory) SaveClient(_ context.Context, c billing.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = c
	return nil
}

func (m *Memory) Client(_ context.Context, id billing.ClientID) (billing.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return billing.Client{}, fmt.Errorf("client %s: %w", id, billing.ErrNotFound)
	}
	return c, nil
}

func (m *Memory) Clients(_ context.Context) ([]billing.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// -----------------------------------------------------------------------------
// Packages
// -----------------------------------------------------------------------------

func (m *Memory) SavePackage(_ context.Context, p billing.Package) (billing.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.packages[p.ID]; ok {
		p.Seq = existing.Seq
	} else {
		m.packageSeq++
		p.Seq = m.packageSeq
	}
	m.packages[p.ID] = p
	return p, nil
}

func (m *Memory) Packages(_ context.Context) ([]billing.Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Package, 0, len(m.packages))
	for _, p := range m.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *Memory) PackagesFor(_ context.Context, clientID billing.ClientID, trainerID billing.TrainerID) ([]billing.Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.Package
	for _, p := range m.packages {
		if p.ClientID == clientID && p.TrainerID == trainerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// -----------------------------------------------------------------------------
// Sessions
// -----------------------------------------------------------------------------

func (m *Memory) SaveSession(_ context.Context, s billing.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *Memory) Sessions(_ context.Context) ([]billing.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sortSessions(out)
	return out, nil
}

func (m *Memory) SessionsFor(_ context.Context, clientID billing.ClientID, trainerID billing.TrainerID) ([]billing.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.Session
	for _, s := range m.sessions {
		if s.ClientID == clientID && s.TrainerID == trainerID {
			out = append(out, s)
		}
	}
	sortSessions(out)
	return out, nil
}

func sortSessions(out []billing.Session) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
}

// -----------------------------------------------------------------------------
// Late fees
// -----------------------------------------------------------------------------

func (m *Memory) SaveLateFee(_ context.Context, f billing.LateFee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lateFees[f.ID] = f
	return nil
}

func (m *Memory) LateFees(_ context.Context) ([]billing.LateFee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.LateFee, 0, len(m.lateFees))
	for _, f := range m.lateFees {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// -----------------------------------------------------------------------------
// Price history
// -----------------------------------------------------------------------------

func (m *Memory) AppendPriceHistory(_ context.Context, e billing.PriceHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, e)
	return nil
}

func (m *Memory) PriceHistory(_ context.Context) ([]billing.PriceHistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.PriceHistoryEntry, len(m.history))
	copy(out, m.history)
	return out, nil
}

// -----------------------------------------------------------------------------
// Income rates
// -----------------------------------------------------------------------------

func (m *Memory) ReplaceRateTable(_ context.Context, trainerID billing.TrainerID, effectiveWeek time.Time, rows []billing.IncomeRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rates[:0]
	for _, r := range m.rates {
		if r.TrainerID == trainerID && r.EffectiveWeek.Equal(effectiveWeek) {
			continue
		}
		kept = append(kept, r)
	}
	m.rates = append(kept, rows...)
	return nil
}

func (m *Memory) IncomeRates(_ context.Context) ([]billing.IncomeRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.IncomeRate, len(m.rates))
	copy(out, m.rates)
	return out, nil
}

// -----------------------------------------------------------------------------
// Session relinking (allocator write-back)
// -----------------------------------------------------------------------------

func (m *Memory) RelinkSessions(_ context.Context, links map[billing.SessionID]billing.PackageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, pkgID := range links {
		s, ok := m.sessions[id]
		if !ok {
			continue
		}
		s.PackageID = pkgID
		m.sessions[id] = s
	}
	return nil
}
