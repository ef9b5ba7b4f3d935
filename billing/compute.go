/*
compute.go - Shared context for the weekly computations

PURPOSE:

	IncomeSummary and the breakdown rows must agree to the cent: the sum
	of the session/bonus/lateFee rows always equals finalWeeklyIncome +
	backfillAdjustment. The safest way to keep that law is to compute
	per-session amounts in exactly one place. WeekCompute carries the
	indexed inputs and owns that shared arithmetic; summary.go and
	breakdown.go are thin aggregations over it.
*/
package billing

import (
	"fmt"

	"github.com/pulsefit/income-engine/engine"
	"github.com/shopspring/decimal"
)

// =============================================================================
// WEEK INPUT - everything one weekly computation consumes
// =============================================================================

// WeekInput is the full record set for one trainer-week computation.
// Collections are all-time; the computation filters to the target week
// itself. Sessions are expected to be post-allocation.
type WeekInput struct {
	Trainer Trainer
	Week    engine.Week

	Clients  []Client
	Packages []Package
	Sessions []Session
	LateFees []LateFee

	PriceTable PriceTable
	History    []PriceHistoryEntry // optional
	Rates      []IncomeRate
}

// =============================================================================
// WEEK COMPUTE - indexed inputs + shared per-session arithmetic
// =============================================================================

// WeekCompute is the prepared form of a WeekInput.
type WeekCompute struct {
	in       WeekInput
	pricing  *PricingResolver
	rates    *IncomeRateResolver
	packages map[PackageID]Package

	baseRate       decimal.Decimal
	rateConfigured bool
	warnings       []string
}

// NewWeekCompute indexes the input and resolves the trainer's base rate
// for the week. Configuration gaps degrade (rate 0) and are recorded as
// warnings rather than failing the computation.
func NewWeekCompute(in WeekInput) *WeekCompute {
	wc := &WeekCompute{
		in:       in,
		pricing:  NewPricingResolver(in.PriceTable, in.Clients, in.History),
		rates:    NewIncomeRateResolver(in.Rates),
		packages: make(map[PackageID]Package, len(in.Packages)),
	}
	for _, p := range in.Packages {
		wc.packages[p.ID] = p
	}

	// Sessions referencing a client with no record bill at the tier-1
	// default snapshot; the referential gap is worth a warning.
	flagged := make(map[ClientID]bool)
	for _, s := range wc.WeekSessions() {
		if _, known := wc.pricing.Client(s.ClientID); known || flagged[s.ClientID] {
			continue
		}
		flagged[s.ClientID] = true
		wc.warnings = append(wc.warnings,
			fmt.Sprintf("referential gap: client %s not found, billed at default pricing", s.ClientID))
	}

	// Validated bracket tables start at 1, so a week with no classes has
	// no bracket to resolve. That is not a configuration gap: rate stays
	// zero and configured reflects whether the trainer has a table at all.
	count := wc.TotalClasses()
	if count == 0 {
		wc.baseRate = decimal.Zero
		wc.rateConfigured = wc.rates.HasRates(in.Trainer.ID)
		return wc
	}

	rate, err := wc.rates.Resolve(in.Trainer.ID, count, in.Week)
	wc.baseRate = rate
	wc.rateConfigured = err == nil
	if err != nil {
		wc.warnings = append(wc.warnings, err.Error())
	}
	return wc
}

// WeekSessions returns the trainer's sessions in the target week.
func (wc *WeekCompute) WeekSessions() []Session {
	var out []Session
	for _, s := range wc.in.Sessions {
		if s.TrainerID == wc.in.Trainer.ID && wc.in.Week.Contains(s.Date) {
			out = append(out, s)
		}
	}
	return out
}

// WeekPackages returns the trainer's packages purchased in the target
// week. Packages sold by another trainer on a shared roster stay out.
func (wc *WeekCompute) WeekPackages() []Package {
	var out []Package
	for _, p := range wc.in.Packages {
		if p.TrainerID == wc.in.Trainer.ID && wc.in.Week.Contains(p.StartDate) {
			out = append(out, p)
		}
	}
	return out
}

// WeekLateFees returns the trainer's late fees in the target week.
func (wc *WeekCompute) WeekLateFees() []LateFee {
	var out []LateFee
	for _, f := range wc.in.LateFees {
		if f.TrainerID == wc.in.Trainer.ID && wc.in.Week.Contains(f.Date) {
			out = append(out, f)
		}
	}
	return out
}

// TotalClasses is the trainer's class count for the week.
func (wc *WeekCompute) TotalClasses() int { return len(wc.WeekSessions()) }

// BaseRate is the week's resolved pay fraction (zero on any gap).
func (wc *WeekCompute) BaseRate() decimal.Decimal { return wc.baseRate }

// RateConfigured distinguishes "zero because no classes or low bracket"
// from "no rate configuration exists".
func (wc *WeekCompute) RateConfigured() bool { return wc.rateConfigured }

// Warnings lists configuration and referential gaps encountered while
// computing.
func (wc *WeekCompute) Warnings() []string { return wc.warnings }

// governingCount is the sessions-purchased count of a session's linked
// package, or 1 when the session is a drop-in or the link is dangling.
func (wc *WeekCompute) governingCount(s Session) int {
	if !s.Linked() {
		return 1
	}
	pkg, ok := wc.packages[s.PackageID]
	if !ok {
		return 1
	}
	return pkg.SessionsPurchased
}

// effectiveRateFor returns the pay rate for one session: the weekly base
// rate, boosted when the session's client is a personal client.
func (wc *WeekCompute) effectiveRateFor(s Session) decimal.Decimal {
	client, known := wc.pricing.Client(s.ClientID)
	return EffectiveRate(client, known, wc.baseRate)
}

// SessionAmount is the single source of a session's line amount:
// per-class price (by governing package size, mode, and point-in-time
// snapshot) times the session's effective pay rate. Summary and
// breakdown both call this, which is what keeps them consistent.
func (wc *WeekCompute) SessionAmount(s Session) decimal.Decimal {
	price, _ := wc.pricing.PricePerClass(s.ClientID, s.Date, wc.governingCount(s), s.Mode)
	return price.Mul(wc.effectiveRateFor(s))
}

// ClientName resolves a display name, with the documented fallback for
// referential gaps.
func (wc *WeekCompute) ClientName(id ClientID) string {
	if c, ok := wc.pricing.Client(id); ok {
		return c.Name
	}
	return "Unknown client"
}
