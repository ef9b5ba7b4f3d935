/*
rates.go - Trainer pay-rate resolution

PURPOSE:

	A trainer's pay is a fraction of each class's price, and the fraction
	depends on how many classes they taught that week (e.g. 1-12 classes
	at 46%, 13+ at 51%). Tables are versioned by effective week (always a
	Monday): the version with the greatest effective week on or before
	the target week applies.

DEGRADATION:
  - No rows at all for the trainer: ErrNoRatesConfigured, rate 0.
    Callers must distinguish this from a configured zero rate so the
    summary can render "no rates configured" instead of $0 earnings.
  - Rows exist but no bracket covers the class count: RateGapError,
    rate 0. Validation at the edit boundary (ValidateRateTable) makes
    this unreachable for accepted tables, but the resolver never
    trusts its input.

PERSONAL-CLIENT BOOST:

	EffectiveRate applies the +0.10 per-session boost for personal
	clients. The boost is scoped to the session's client, never folded
	into the weekly base rate.
*/
package billing

import (
	"time"

	"github.com/pulsefit/income-engine/engine"
	"github.com/shopspring/decimal"
)

// PersonalClientBoost is added to the base rate for sessions taught to
// clients the trainer personally recruited.
var PersonalClientBoost = decimal.NewFromFloat(0.10)

// =============================================================================
// INCOME RATE RESOLVER
// =============================================================================

// IncomeRateResolver resolves a trainer's weekly pay-rate fraction from
// effective-week versioned bracket tables.
type IncomeRateResolver struct {
	byTrainer map[TrainerID][]IncomeRate
}

// NewIncomeRateResolver indexes rate rows by trainer.
func NewIncomeRateResolver(rates []IncomeRate) *IncomeRateResolver {
	r := &IncomeRateResolver{byTrainer: make(map[TrainerID][]IncomeRate)}
	for _, row := range rates {
		r.byTrainer[row.TrainerID] = append(r.byTrainer[row.TrainerID], row)
	}
	return r
}

// Resolve returns the pay fraction for a trainer teaching classCount
// classes in the given week.
//
// The returned rate is always usable (zero on any gap); the error
// reports ErrNoRatesConfigured or a RateGapError when a fallback was
// taken.
func (r *IncomeRateResolver) Resolve(trainerID TrainerID, classCount int, week engine.Week) (decimal.Decimal, error) {
	rows := r.byTrainer[trainerID]
	if len(rows) == 0 {
		return decimal.Zero, ErrNoRatesConfigured
	}

	// Pick the greatest effective week <= the target week.
	latest, ok := engine.LatestEffective(rows, func(ir IncomeRate) time.Time {
		return ir.EffectiveWeek
	}, week.Monday)
	if !ok {
		// Every version postdates the target week: nothing applied yet.
		return decimal.Zero, ErrNoRatesConfigured
	}

	var version []IncomeRate
	var brackets []engine.Bracket
	for _, row := range rows {
		if row.EffectiveWeek.Equal(latest.EffectiveWeek) {
			version = append(version, row)
			brackets = append(brackets, row.Bracket)
		}
	}

	i, err := engine.FindBracket(brackets, classCount)
	if err != nil {
		return decimal.Zero, &RateGapError{TrainerID: trainerID, ClassCount: classCount, Brackets: brackets}
	}
	return version[i].Rate, nil
}

// HasRates reports whether any rate rows exist for a trainer.
func (r *IncomeRateResolver) HasRates(trainerID TrainerID) bool {
	return len(r.byTrainer[trainerID]) > 0
}

// EffectiveRate applies the personal-client boost to a base rate for one
// session. Scoped per session: the boost depends on the session's
// client, not the trainer's week.
func EffectiveRate(client Client, clientKnown bool, baseRate decimal.Decimal) decimal.Decimal {
	if clientKnown && client.IsPersonalClient {
		return baseRate.Add(PersonalClientBoost)
	}
	return baseRate
}

// =============================================================================
// EDIT-BOUNDARY VALIDATION
// =============================================================================

// ValidateRateTable checks one table version before it is accepted from
// an editor: the effective week must be a Monday and the brackets must
// start at 1, be contiguous, and end with exactly one unbounded bracket.
func ValidateRateTable(effectiveWeek time.Time, rows []IncomeRate) error {
	if err := engine.RequireMonday(effectiveWeek); err != nil {
		return err
	}
	brackets := make([]engine.Bracket, len(rows))
	for i, row := range rows {
		brackets[i] = row.Bracket
	}
	return engine.ValidateBrackets(brackets)
}
