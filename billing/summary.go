/*
summary.go - Weekly income aggregates for one trainer

PURPOSE:

	Produces the scalar view of a trainer's week:

	  finalWeeklyIncome = classIncome + bonusIncome + lateFeeIncome
	                      - backfillAdjustment

	classIncome    sum over this week's sessions of price x effective rate
	bonusIncome    sales bonuses on packages this trainer sold this week
	lateFeeIncome  late fees recorded this week
	backfill       correction for prior-week sessions retroactively
	               absorbed into a package purchased this week; those were
	               already credited at the higher drop-in rate in an
	               earlier week's breakdown, so the difference comes back
	               out. Backfill has no visible breakdown row.

CONSISTENCY LAW (enforced by the test suite):

	finalWeeklyIncome + backfillAdjustment
	  == sum of breakdown rows of type session/bonus/lateFee
*/
package billing

import (
	"github.com/pulsefit/income-engine/engine"
	"github.com/shopspring/decimal"
)

// =============================================================================
// INCOME SUMMARY
// =============================================================================

// IncomeSummary is the weekly aggregate view for one trainer.
type IncomeSummary struct {
	TrainerID TrainerID
	Week      engine.Week

	TotalClasses int

	// Rate is the resolved base pay fraction for the week. When
	// RateConfigured is false no rate rows exist for the trainer and
	// Rate is zero by fallback, not by configuration.
	Rate           decimal.Decimal
	RateConfigured bool

	ClassIncome        decimal.Decimal
	BonusIncome        decimal.Decimal
	LateFeeIncome      decimal.Decimal
	BackfillAdjustment decimal.Decimal
	FinalWeeklyIncome  decimal.Decimal

	// Warnings surfaces configuration gaps (missing rate table, bracket
	// gaps) so the edit boundary can be corrected. The summary still
	// renders.
	Warnings []string
}

// ComputeIncomeSummary builds the weekly aggregates from one input set.
func ComputeIncomeSummary(in WeekInput) IncomeSummary {
	return NewWeekCompute(in).Summary()
}

// Summary aggregates the prepared week.
func (wc *WeekCompute) Summary() IncomeSummary {
	s := IncomeSummary{
		TrainerID:      wc.in.Trainer.ID,
		Week:           wc.in.Week,
		TotalClasses:   wc.TotalClasses(),
		Rate:           wc.baseRate,
		RateConfigured: wc.rateConfigured,
		Warnings:       wc.warnings,
	}

	for _, session := range wc.WeekSessions() {
		s.ClassIncome = s.ClassIncome.Add(wc.SessionAmount(session))
	}
	for _, pkg := range wc.WeekPackages() {
		s.BonusIncome = s.BonusIncome.Add(pkg.SalesBonus)
	}
	for _, fee := range wc.WeekLateFees() {
		s.LateFeeIncome = s.LateFeeIncome.Add(fee.Amount)
	}
	s.BackfillAdjustment = wc.backfillAdjustment()

	s.FinalWeeklyIncome = s.ClassIncome.
		Add(s.BonusIncome).
		Add(s.LateFeeIncome).
		Sub(s.BackfillAdjustment)
	return s
}

// backfillAdjustment sums the over-credit on sessions from earlier weeks
// that a package purchased this week retroactively absorbed: they were
// paid out at the drop-in price when they happened, and now bill at the
// package price. The difference, at the session's effective pay rate,
// is clawed back.
//
// Sessions inside the target week are excluded even when they predate
// the package start: they are credited this week at the package price
// already, so there is nothing to correct.
func (wc *WeekCompute) backfillAdjustment() decimal.Decimal {
	total := decimal.Zero
	for _, s := range wc.in.Sessions {
		if s.TrainerID != wc.in.Trainer.ID || !s.Linked() {
			continue
		}
		if !s.Date.Before(wc.in.Week.Start()) {
			continue
		}
		pkg, ok := wc.packages[s.PackageID]
		if !ok || !wc.in.Week.Contains(pkg.StartDate) {
			continue
		}
		if !s.Date.Before(pkg.StartDate) {
			continue
		}

		dropIn, _ := wc.pricing.DropInPrice(s.ClientID, s.Date, s.Mode)
		packaged, _ := wc.pricing.PricePerClass(s.ClientID, s.Date, pkg.SessionsPurchased, s.Mode)
		diff := dropIn.Sub(packaged)
		if diff.IsZero() {
			continue
		}
		total = total.Add(diff.Mul(wc.effectiveRateFor(s)))
	}
	return total
}
