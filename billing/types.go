/*
Package billing implements the session/package allocation and weekly
income computation core for a personal-training business.

PURPOSE:

	Trainers log sessions against clients; clients buy prepaid packages
	of sessions. This package decides which package each session is
	billed against, resolves the historical price of every session, and
	produces the two weekly views of a trainer's earnings:
	- IncomeSummary: the scalar aggregates (classes, rate, totals)
	- BreakdownRow list: the line items that sum to the same total

KEY CONCEPTS IN THIS FILE (types.go):
  - Client/Package/Session/LateFee: immutable input snapshots owned by
    the persistence layer
  - PriceSnapshot: the three session-count bracket prices plus the
    semi-private per-class premium that applied at a point in time
  - IncomeRate: one class-count bracket of a trainer's pay-rate table,
    versioned by effective week (a Monday)

DESIGN PRINCIPLES:
 1. Pure compute: no I/O, no clocks; callers hand in ordered record
    collections and receive derived records back
 2. Inputs are never mutated; the allocator returns a revised session
    list instead of editing in place
 3. Money is decimal.Decimal end to end; totals are exact

SEE ALSO:
  - pricing.go:    PricingResolver (tier x bracket x mode x date)
  - rates.go:      IncomeRateResolver (effective-week versioned)
  - allocator.go:  Session-to-package assignment
  - summary.go:    Weekly income aggregates
  - breakdown.go:  Weekly line items (consistency law with summary.go)
*/
package billing

import (
	"time"

	"github.com/pulsefit/income-engine/engine"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TrainerID string
type ClientID string
type PackageID string
type SessionID string
type LateFeeID string

// Tier is a trainer's pricing level (1-3). It selects the base
// price-per-class brackets for that trainer's clients.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// TrainingMode distinguishes how sessions are delivered and priced.
type TrainingMode string

const (
	ModePrivate     TrainingMode = "private"
	ModeSemiPrivate TrainingMode = "semi_private"
	ModeShared      TrainingMode = "shared"
)

// =============================================================================
// SESSION-COUNT BRACKETS - shared by pricing tables and snapshots
// =============================================================================

// SessionBrackets are the three package-size price brackets. Every
// positive session count maps to exactly one of them.
var SessionBrackets = []engine.Bracket{
	engine.NewBracket(1, 12),
	engine.NewBracket(13, 20),
	engine.NewOpenBracket(21),
}

// DefaultSemiPrivatePremium is the per-class surcharge for semi-private
// training when a client has no override.
var DefaultSemiPrivatePremium = decimal.NewFromInt(20)

// PriceSnapshot captures the per-class prices that applied at a point in
// time: one price per session-count bracket, plus the semi-private
// per-class premium. Clients carry their current snapshot; the price
// history ledger carries older ones.
type PriceSnapshot struct {
	// Parallel to SessionBrackets: [1-12, 13-20, 21+]
	BracketPrices [3]decimal.Decimal

	// Per-class surcharge applied in semi-private mode.
	SemiPrivatePremium decimal.Decimal
}

// PriceFor returns the per-class price for a package of the given size in
// the given mode.
func (ps PriceSnapshot) PriceFor(sessionCount int, mode TrainingMode) (decimal.Decimal, error) {
	i, err := engine.FindBracket(SessionBrackets, sessionCount)
	if err != nil {
		return decimal.Zero, err
	}
	price := ps.BracketPrices[i]
	if mode == ModeSemiPrivate {
		price = price.Add(ps.SemiPrivatePremium)
	}
	return price, nil
}

// DropInPrice is the single-class price: the 1-12 bracket price, which is
// the highest per-class rate.
func (ps PriceSnapshot) DropInPrice(mode TrainingMode) decimal.Decimal {
	price, _ := ps.PriceFor(1, mode)
	return price
}

// =============================================================================
// RECORDS - Immutable input snapshots
// =============================================================================

// Trainer is the owner of clients, packages, and sessions.
type Trainer struct {
	ID       TrainerID
	Name     string
	Tier     Tier
	Archived bool
}

// Client is a training client on a trainer's roster.
type Client struct {
	ID        ClientID
	Name      string
	TrainerID TrainerID

	// SecondaryTrainerID is set for shared-package clients coached by two
	// trainers. Empty otherwise.
	SecondaryTrainerID TrainerID

	Mode TrainingMode
	Tier Tier

	// Pricing is the snapshot taken at signup or most recent edit.
	// Historical sessions must be priced through the price history
	// ledger, not this snapshot.
	Pricing PriceSnapshot

	// IsPersonalClient grants the trainer a +10% pay-rate boost on this
	// client's sessions.
	IsPersonalClient bool

	Archived bool
	Location string
}

// Package is a prepaid bundle of sessions. Immutable after purchase
// except for session-link side effects owned by the allocator.
type Package struct {
	ID        PackageID
	ClientID  ClientID
	TrainerID TrainerID

	SessionsPurchased int
	StartDate         time.Time
	SalesBonus        decimal.Decimal
	Mode              TrainingMode

	// Seq is the insertion order, the tiebreak when two packages share a
	// start date.
	Seq int64
}

// Session is one training class. PackageID == "" marks a drop-in; the
// allocator may later absorb it into a package.
type Session struct {
	ID        SessionID
	ClientID  ClientID
	TrainerID TrainerID
	Date      time.Time
	PackageID PackageID // "" = unassigned drop-in
	Mode      TrainingMode
	Location  string
}

// Linked reports whether the session is billed against a package.
func (s Session) Linked() bool { return s.PackageID != "" }

// LateFee is a fixed charge independent of packages.
type LateFee struct {
	ID        LateFeeID
	ClientID  ClientID
	TrainerID TrainerID
	Date      time.Time
	Amount    decimal.Decimal
}

// PriceHistoryEntry is one entry of a client's price ledger: the snapshot
// that took effect on EffectiveDate.
type PriceHistoryEntry struct {
	ClientID      ClientID
	EffectiveDate time.Time
	Pricing       PriceSnapshot
}

// IncomeRate is one class-count bracket of a trainer's pay-rate table.
// All rows sharing (TrainerID, EffectiveWeek) form one table version;
// the version with the greatest effective week on or before the target
// week applies. EffectiveWeek must be a Monday.
type IncomeRate struct {
	TrainerID     TrainerID
	EffectiveWeek time.Time
	Bracket       engine.Bracket
	Rate          decimal.Decimal // pay fraction, e.g. 0.46
}

// =============================================================================
// DEFAULT PRICE TABLE - fallback when no client snapshot resolves
// =============================================================================

// PriceTable maps a trainer tier to its base price snapshot. It seeds
// client snapshots at signup and is the deterministic fallback when a
// session references a client that no longer resolves.
type PriceTable struct {
	Tiers map[Tier]PriceSnapshot
}

// SnapshotFor returns the snapshot for a tier, falling back to Tier1 for
// unknown tiers so pricing always resolves.
func (pt PriceTable) SnapshotFor(tier Tier) PriceSnapshot {
	if ps, ok := pt.Tiers[tier]; ok {
		return ps
	}
	return pt.Tiers[Tier1]
}

// DefaultPriceTable returns the standard studio pricing.
func DefaultPriceTable() PriceTable {
	row := func(a, b, c int64) PriceSnapshot {
		return PriceSnapshot{
			BracketPrices: [3]decimal.Decimal{
				decimal.NewFromInt(a),
				decimal.NewFromInt(b),
				decimal.NewFromInt(c),
			},
			SemiPrivatePremium: DefaultSemiPrivatePremium,
		}
	}
	return PriceTable{Tiers: map[Tier]PriceSnapshot{
		Tier1: row(150, 140, 130),
		Tier2: row(170, 160, 150),
		Tier3: row(190, 180, 170),
	}}
}
