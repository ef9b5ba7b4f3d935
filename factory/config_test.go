/*
config_test.go - JSON configuration boundary tests

PURPOSE:

	The factory is the only gate between editor-supplied JSON and the
	compute core, so every rejection rule earns a test: tier ranges, price
	counts, Monday effective weeks, bracket contiguity, and rate bounds.
*/
package factory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefit/income-engine/billing"
	"github.com/pulsefit/income-engine/engine"
	"github.com/pulsefit/income-engine/factory"
)

// =============================================================================
// PRICE TABLES
// =============================================================================

const fullPriceTableJSON = `{
	"semi_private_premium": 25,
	"tiers": [
		{"tier": 1, "prices": [150, 140, 130]},
		{"tier": 2, "prices": [170, 160, 150]},
		{"tier": 3, "prices": [190, 180, 170]}
	]
}`

func TestParsePriceTable_FullDocument(t *testing.T) {
	table, err := factory.ParsePriceTable([]byte(fullPriceTableJSON))
	require.NoError(t, err)
	require.Len(t, table.Tiers, 3)

	t2 := table.Tiers[billing.Tier2]
	assert.True(t, t2.BracketPrices[0].Equal(decimal.NewFromInt(170)))
	assert.True(t, t2.BracketPrices[2].Equal(decimal.NewFromInt(150)))
	assert.True(t, t2.SemiPrivatePremium.Equal(decimal.NewFromInt(25)),
		"premium override applies to every tier")
}

func TestParsePriceTable_PremiumDefaultsWhenOmitted(t *testing.T) {
	table, err := factory.ParsePriceTable([]byte(`{"tiers": [{"tier": 1, "prices": [150, 140, 130]}]}`))
	require.NoError(t, err)
	assert.True(t, table.Tiers[billing.Tier1].SemiPrivatePremium.Equal(billing.DefaultSemiPrivatePremium))
}

func TestParsePriceTable_Rejections(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"malformed JSON", `{"tiers": [`},
		{"no tiers", `{"tiers": []}`},
		{"tier out of range", `{"tiers": [{"tier": 4, "prices": [1, 2, 3]}]}`},
		{"wrong price count", `{"tiers": [{"tier": 1, "prices": [150, 140]}]}`},
		{"negative price", `{"tiers": [{"tier": 1, "prices": [150, -1, 130]}]}`},
		{"missing tier 1", `{"tiers": [{"tier": 2, "prices": [170, 160, 150]}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := factory.ParsePriceTable([]byte(tc.json))
			assert.Error(t, err)
		})
	}
}

// =============================================================================
// INCOME-RATE TABLES
// =============================================================================

const fullRateTableJSON = `{
	"trainer_id": "t-100",
	"effective_week": "2026-01-05",
	"brackets": [
		{"min": 1, "max": 12, "rate": 0.46},
		{"min": 13, "rate": 0.51}
	]
}`

func TestParseRateTable_FullDocument(t *testing.T) {
	rows, err := factory.ParseRateTable([]byte(fullRateTableJSON))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, billing.TrainerID("t-100"), rows[0].TrainerID)
	assert.True(t, rows[0].EffectiveWeek.Equal(engine.NewDate(2026, time.January, 5)))
	assert.True(t, rows[0].Rate.Equal(decimal.NewFromFloat(0.46)))
	assert.False(t, rows[0].Bracket.Unbounded())
	assert.True(t, rows[1].Bracket.Unbounded(), "omitted max means unbounded")
}

func TestParseRateTable_RejectsNonMondayEffectiveWeek(t *testing.T) {
	// 2026-01-06 is a Tuesday.
	doc := `{"trainer_id": "t-1", "effective_week": "2026-01-06",
		"brackets": [{"min": 1, "rate": 0.5}]}`

	_, err := factory.ParseRateTable([]byte(doc))
	assert.True(t, errors.Is(err, engine.ErrNotMonday), "got: %v", err)
}

func TestParseRateTable_RejectsGappedBrackets(t *testing.T) {
	doc := `{"trainer_id": "t-1", "effective_week": "2026-01-05",
		"brackets": [{"min": 1, "max": 12, "rate": 0.46}, {"min": 14, "rate": 0.51}]}`

	_, err := factory.ParseRateTable([]byte(doc))
	assert.True(t, errors.Is(err, engine.ErrBracketGap), "got: %v", err)
}

func TestParseRateTable_Rejections(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"missing trainer_id", `{"effective_week": "2026-01-05", "brackets": [{"min": 1, "rate": 0.5}]}`},
		{"bad date", `{"trainer_id": "t-1", "effective_week": "Jan 5", "brackets": [{"min": 1, "rate": 0.5}]}`},
		{"rate above one", `{"trainer_id": "t-1", "effective_week": "2026-01-05", "brackets": [{"min": 1, "rate": 1.5}]}`},
		{"negative rate", `{"trainer_id": "t-1", "effective_week": "2026-01-05", "brackets": [{"min": 1, "rate": -0.1}]}`},
		{"no unbounded tail", `{"trainer_id": "t-1", "effective_week": "2026-01-05", "brackets": [{"min": 1, "max": 12, "rate": 0.5}]}`},
		{"empty brackets", `{"trainer_id": "t-1", "effective_week": "2026-01-05", "brackets": []}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := factory.ParseRateTable([]byte(tc.json))
			assert.Error(t, err)
		})
	}
}

// TestParseRateTable_RoundTripsThroughResolver ties the boundary to the
// resolver: a parsed table resolves the rates it declares.
func TestParseRateTable_RoundTripsThroughResolver(t *testing.T) {
	rows, err := factory.ParseRateTable([]byte(fullRateTableJSON))
	require.NoError(t, err)

	r := billing.NewIncomeRateResolver(rows)
	week := engine.WeekOf(engine.NewDate(2026, time.March, 9))

	got, err := r.Resolve("t-100", 13, week)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromFloat(0.51)))
}
