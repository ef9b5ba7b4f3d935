/*
Package factory provides JSON to Go configuration conversion.

PURPOSE:

	Converts JSON pricing-table and income-rate documents into billing
	types. Studio owners edit pricing and pay rates without code changes;
	the factory validates at this boundary so the compute core never sees
	a malformed table.

JSON SCHEMA (price table):

	{
	  "semi_private_premium": 20,
	  "tiers": [
	    {"tier": 1, "prices": [150, 140, 130]},
	    {"tier": 2, "prices": [170, 160, 150]},
	    {"tier": 3, "prices": [190, 180, 170]}
	  ]
	}
	"prices" is parallel to the session-count brackets 1-12 / 13-20 / 21+.

JSON SCHEMA (income-rate table, one version):

	{
	  "trainer_id": "t-100",
	  "effective_week": "2026-01-05",
	  "brackets": [
	    {"min": 1, "max": 12, "rate": 0.46},
	    {"min": 13, "rate": 0.51}
	  ]
	}
	"effective_week" must be a Monday. Brackets must start at 1, be
	contiguous, and end with exactly one unbounded bracket (no "max").

SEE ALSO:
  - billing/rates.go:   ValidateRateTable (rules enforced here)
  - engine/bracket.go:  ValidateBrackets
  - api/handlers.go:    Accepts these documents on the write endpoints
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/pulsefit/income-engine/billing"
	"github.com/pulsefit/income-engine/engine"
	"github.com/shopspring/decimal"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PriceTableJSON is the JSON form of a tiered price table.
type PriceTableJSON struct {
	SemiPrivatePremium *float64      `json:"semi_private_premium,omitempty"`
	Tiers              []TierRowJSON `json:"tiers"`
}

// TierRowJSON is one tier's bracket prices, parallel to 1-12 / 13-20 / 21+.
type TierRowJSON struct {
	Tier   int       `json:"tier"`
	Prices []float64 `json:"prices"`
}

// RateTableJSON is the JSON form of one income-rate table version.
type RateTableJSON struct {
	TrainerID     string            `json:"trainer_id"`
	EffectiveWeek string            `json:"effective_week"`
	Brackets      []RateBracketJSON `json:"brackets"`
}

// RateBracketJSON is one class-count bracket. Max omitted = unbounded.
type RateBracketJSON struct {
	Min  int     `json:"min"`
	Max  *int    `json:"max,omitempty"`
	Rate float64 `json:"rate"`
}

// =============================================================================
// PRICE TABLE CONVERSION
// =============================================================================

// ParsePriceTable converts a JSON document into a validated PriceTable.
func ParsePriceTable(data []byte) (billing.PriceTable, error) {
	var doc PriceTableJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return billing.PriceTable{}, fmt.Errorf("invalid price table JSON: %w", err)
	}
	return doc.ToTable()
}

// ToTable validates and converts the document.
func (doc PriceTableJSON) ToTable() (billing.PriceTable, error) {
	if len(doc.Tiers) == 0 {
		return billing.PriceTable{}, fmt.Errorf("price table has no tiers")
	}
	premium := billing.DefaultSemiPrivatePremium
	if doc.SemiPrivatePremium != nil {
		premium = decimal.NewFromFloat(*doc.SemiPrivatePremium)
	}

	table := billing.PriceTable{Tiers: make(map[billing.Tier]billing.PriceSnapshot, len(doc.Tiers))}
	for _, row := range doc.Tiers {
		if row.Tier < 1 || row.Tier > 3 {
			return billing.PriceTable{}, fmt.Errorf("tier %d out of range 1-3", row.Tier)
		}
		if len(row.Prices) != len(billing.SessionBrackets) {
			return billing.PriceTable{}, fmt.Errorf("tier %d has %d prices, want %d", row.Tier, len(row.Prices), len(billing.SessionBrackets))
		}
		snapshot := billing.PriceSnapshot{SemiPrivatePremium: premium}
		for i, p := range row.Prices {
			if p < 0 {
				return billing.PriceTable{}, fmt.Errorf("tier %d bracket %s: negative price", row.Tier, billing.SessionBrackets[i])
			}
			snapshot.BracketPrices[i] = decimal.NewFromFloat(p)
		}
		table.Tiers[billing.Tier(row.Tier)] = snapshot
	}
	if _, ok := table.Tiers[billing.Tier1]; !ok {
		return billing.PriceTable{}, fmt.Errorf("price table must define tier 1 (fallback tier)")
	}
	return table, nil
}

// =============================================================================
// INCOME-RATE TABLE CONVERSION
// =============================================================================

// ParseRateTable converts a JSON document into validated rate rows.
func ParseRateTable(data []byte) ([]billing.IncomeRate, error) {
	var doc RateTableJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid rate table JSON: %w", err)
	}
	return doc.ToRows()
}

// ToRows validates and converts the document. Enforced here, at the edit
// boundary: Monday effective week; brackets from 1, contiguous, exactly
// one unbounded and last; rates within [0, 1].
func (doc RateTableJSON) ToRows() ([]billing.IncomeRate, error) {
	if doc.TrainerID == "" {
		return nil, fmt.Errorf("rate table missing trainer_id")
	}
	week, err := engine.ParseDate(doc.EffectiveWeek)
	if err != nil {
		return nil, err
	}

	rows := make([]billing.IncomeRate, len(doc.Brackets))
	for i, b := range doc.Brackets {
		if b.Rate < 0 || b.Rate > 1 {
			return nil, fmt.Errorf("bracket %d: rate %v outside [0, 1]", i, b.Rate)
		}
		rows[i] = billing.IncomeRate{
			TrainerID:     billing.TrainerID(doc.TrainerID),
			EffectiveWeek: week,
			Bracket:       engine.Bracket{Min: b.Min, Max: b.Max},
			Rate:          decimal.NewFromFloat(b.Rate),
		}
	}
	if err := billing.ValidateRateTable(week, rows); err != nil {
		return nil, err
	}
	return rows, nil
}
