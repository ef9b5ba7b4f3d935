/*
store.go - Persistence interface for the billing records

PURPOSE:

	The compute core is pure; everything it consumes lives behind this
	interface. Implementations:
	- billing/store (memory): tests, dev, demo scenarios
	- store/sqlite:           application persistence

	The one write with compute-visible semantics is RelinkSessions: it
	applies an allocator result as a single logical unit. Everything else
	is plain typed CRUD.
*/
package billing

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is the store-level miss; implementations wrap it with the
// specific record sentinel (ErrClientNotFound etc.) where they can.
var ErrNotFound = errors.New("record not found")

// Store is the persistence boundary for all billing records.
type Store interface {
	// Trainers
	SaveTrainer(ctx context.Context, t Trainer) error
	Trainer(ctx context.Context, id TrainerID) (Trainer, error)
	Trainers(ctx context.Context) ([]Trainer, error)

	// Clients
	SaveClient(ctx context.Context, c Client) error
	Client(ctx context.Context, id ClientID) (Client, error)
	Clients(ctx context.Context) ([]Client, error)

	// Packages. SavePackage assigns the insertion sequence and returns
	// the stored record.
	SavePackage(ctx context.Context, p Package) (Package, error)
	Packages(ctx context.Context) ([]Package, error)
	PackagesFor(ctx context.Context, clientID ClientID, trainerID TrainerID) ([]Package, error)

	// Sessions
	SaveSession(ctx context.Context, s Session) error
	Sessions(ctx context.Context) ([]Session, error)
	SessionsFor(ctx context.Context, clientID ClientID, trainerID TrainerID) ([]Session, error)

	// Late fees
	SaveLateFee(ctx context.Context, f LateFee) error
	LateFees(ctx context.Context) ([]LateFee, error)

	// Price history (append-only per client)
	AppendPriceHistory(ctx context.Context, e PriceHistoryEntry) error
	PriceHistory(ctx context.Context) ([]PriceHistoryEntry, error)

	// Income rates. ReplaceRateTable swaps the trainer's table version
	// for the given effective week atomically.
	ReplaceRateTable(ctx context.Context, trainerID TrainerID, effectiveWeek time.Time, rows []IncomeRate) error
	IncomeRates(ctx context.Context) ([]IncomeRate, error)

	// RelinkSessions applies revised session->package links as one
	// logical unit. Links for session ids the store does not know are
	// ignored.
	RelinkSessions(ctx context.Context, links map[SessionID]PackageID) error
}
