/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario creates trainers, clients,
	rate tables, packages, and sessions that demonstrate specific
	behaviors of the weekly income computation.

AVAILABLE SCENARIOS:

	starter-week:     One trainer, two clients, a clean week of sessions
	overflow-cascade: Oversubscribed package spilling into the next one
	backfill:         Pre-purchase sessions rebilled when a package lands

HOW SCENARIOS WORK:
 1. Create trainer and publish a rate-table version
 2. Create clients (price snapshots from the default price table)
 3. Purchase packages and log sessions
 4. Run the allocator so session links reflect the final state

USAGE VIA API:

	POST /api/scenarios/load
	{"id": "overflow-cascade"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenario records use fixed IDs, so reloading a scenario overwrites
	its own prior records. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Store access and reallocation wiring
  - billing/compute.go: The weekly views the scenarios feed
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pulsefit/income-engine/billing"
	"github.com/pulsefit/income-engine/engine"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// scenarioMonday anchors all demo data so the weekly views are reproducible.
var scenarioMonday = engine.NewDate(2026, time.March, 2)

var scenarios = []ScenarioDTO{
	{
		ID:          "starter-week",
		Name:        "Starter Week",
		Description: "One trainer, two clients, packaged and drop-in sessions in a single week",
	},
	{
		ID:          "overflow-cascade",
		Name:        "Overflow Cascade",
		Description: "More sessions than the oldest package holds; excess cascades into the next package",
	},
	{
		ID:          "backfill",
		Name:        "Backfill Adjustment",
		Description: "Drop-ins from a prior week absorbed into a package purchased this week",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario seeds the store with a named scenario's records.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := h.decode(r, &req); err != nil {
		h.writeBadRequest(w, err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ID {
	case "starter-week":
		err = loadStarterWeek(ctx, h)
	case "overflow-cascade":
		err = loadOverflowCascade(ctx, h)
	case "backfill":
		err = loadBackfill(ctx, h)
	default:
		h.writeBadRequest(w, fmt.Errorf("unknown scenario %q", req.ID))
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.currentScenario = req.ID
	h.Log.Info().Str("scenario", req.ID).Msg("scenario loaded")
	h.writeJSON(w, http.StatusOK, map[string]string{
		"loaded": req.ID,
		"monday": engine.FormatDate(scenarioMonday),
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// standardRates is the studio's usual split: 46% through 12 classes a
// week, 51% above.
func standardRates(trainerID billing.TrainerID) []billing.IncomeRate {
	return []billing.IncomeRate{
		{TrainerID: trainerID, EffectiveWeek: scenarioMonday, Bracket: engine.NewBracket(1, 12), Rate: decimal.NewFromFloat(0.46)},
		{TrainerID: trainerID, EffectiveWeek: scenarioMonday, Bracket: engine.NewOpenBracket(13), Rate: decimal.NewFromFloat(0.51)},
	}
}

func seedTrainer(ctx context.Context, h *Handler, id billing.TrainerID, name string, tier billing.Tier) error {
	if err := h.Store.SaveTrainer(ctx, billing.Trainer{ID: id, Name: name, Tier: tier}); err != nil {
		return err
	}
	return h.Store.ReplaceRateTable(ctx, id, scenarioMonday, standardRates(id))
}

func seedClient(ctx context.Context, h *Handler, c billing.Client) error {
	c.Pricing = h.PriceTable.SnapshotFor(c.Tier)
	if err := h.Store.SaveClient(ctx, c); err != nil {
		return err
	}
	return h.Store.AppendPriceHistory(ctx, billing.PriceHistoryEntry{
		ClientID:      c.ID,
		EffectiveDate: scenarioMonday.AddDate(0, -6, 0),
		Pricing:       c.Pricing,
	})
}

func seedPackage(ctx context.Context, h *Handler, p billing.Package) error {
	if _, err := h.Store.SavePackage(ctx, p); err != nil {
		return err
	}
	return nil
}

func seedSessions(ctx context.Context, h *Handler, sessions []billing.Session) error {
	for _, s := range sessions {
		if err := h.Store.SaveSession(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// loadStarterWeek: trainer Dana, client Alice on a 10-pack with three
// sessions this week, client Ben dropping in once.
func loadStarterWeek(ctx context.Context, h *Handler) error {
	const trainer = billing.TrainerID("t-dana")
	if err := seedTrainer(ctx, h, trainer, "Dana Reyes", billing.Tier1); err != nil {
		return err
	}

	alice := billing.Client{ID: "c-alice", Name: "Alice Kim", TrainerID: trainer, Mode: billing.ModePrivate, Tier: billing.Tier1}
	ben := billing.Client{ID: "c-ben", Name: "Ben Ortiz", TrainerID: trainer, Mode: billing.ModeSemiPrivate, Tier: billing.Tier1}
	for _, c := range []billing.Client{alice, ben} {
		if err := seedClient(ctx, h, c); err != nil {
			return err
		}
	}

	if err := seedPackage(ctx, h, billing.Package{
		ID:                "p-alice-10",
		ClientID:          alice.ID,
		TrainerID:         trainer,
		SessionsPurchased: 10,
		StartDate:         scenarioMonday,
		SalesBonus:        decimal.NewFromInt(25),
		Mode:              billing.ModePrivate,
	}); err != nil {
		return err
	}

	if err := seedSessions(ctx, h, []billing.Session{
		{ID: "s-alice-1", ClientID: alice.ID, TrainerID: trainer, Date: scenarioMonday, Mode: billing.ModePrivate},
		{ID: "s-alice-2", ClientID: alice.ID, TrainerID: trainer, Date: scenarioMonday.AddDate(0, 0, 2), Mode: billing.ModePrivate},
		{ID: "s-alice-3", ClientID: alice.ID, TrainerID: trainer, Date: scenarioMonday.AddDate(0, 0, 4), Mode: billing.ModePrivate},
		{ID: "s-ben-1", ClientID: ben.ID, TrainerID: trainer, Date: scenarioMonday.AddDate(0, 0, 1), Mode: billing.ModeSemiPrivate},
	}); err != nil {
		return err
	}

	if _, err := h.Realloc.Run(ctx, alice.ID, trainer); err != nil {
		return err
	}
	_, err := h.Realloc.Run(ctx, ben.ID, trainer)
	return err
}

// loadOverflowCascade: one client, a 5-pack already holding five older
// sessions, then three more sessions this week that must spill into the
// newer 10-pack.
func loadOverflowCascade(ctx context.Context, h *Handler) error {
	const trainer = billing.TrainerID("t-marco")
	if err := seedTrainer(ctx, h, trainer, "Marco Liu", billing.Tier2); err != nil {
		return err
	}

	cara := billing.Client{ID: "c-cara", Name: "Cara Walsh", TrainerID: trainer, Mode: billing.ModePrivate, Tier: billing.Tier2}
	if err := seedClient(ctx, h, cara); err != nil {
		return err
	}

	oldStart := scenarioMonday.AddDate(0, 0, -28)
	if err := seedPackage(ctx, h, billing.Package{
		ID: "p-cara-5", ClientID: cara.ID, TrainerID: trainer,
		SessionsPurchased: 5, StartDate: oldStart, Mode: billing.ModePrivate,
	}); err != nil {
		return err
	}
	if err := seedPackage(ctx, h, billing.Package{
		ID: "p-cara-10", ClientID: cara.ID, TrainerID: trainer,
		SessionsPurchased: 10, StartDate: scenarioMonday, SalesBonus: decimal.NewFromInt(40), Mode: billing.ModePrivate,
	}); err != nil {
		return err
	}

	var sessions []billing.Session
	for i := 0; i < 5; i++ {
		sessions = append(sessions, billing.Session{
			ID:       billing.SessionID(fmt.Sprintf("s-cara-old-%d", i+1)),
			ClientID: cara.ID, TrainerID: trainer,
			Date: oldStart.AddDate(0, 0, i),
			Mode: billing.ModePrivate,
		})
	}
	for i := 0; i < 3; i++ {
		sessions = append(sessions, billing.Session{
			ID:       billing.SessionID(fmt.Sprintf("s-cara-new-%d", i+1)),
			ClientID: cara.ID, TrainerID: trainer,
			Date: scenarioMonday.AddDate(0, 0, i),
			Mode: billing.ModePrivate,
		})
	}
	if err := seedSessions(ctx, h, sessions); err != nil {
		return err
	}

	_, err := h.Realloc.Run(ctx, cara.ID, trainer)
	return err
}

// loadBackfill: two drop-ins last week, package purchased this week
// starting this Monday. The allocator absorbs the drop-ins and the weekly
// summary carries a backfill adjustment for the prior-week rebilling.
func loadBackfill(ctx context.Context, h *Handler) error {
	const trainer = billing.TrainerID("t-ivy")
	if err := seedTrainer(ctx, h, trainer, "Ivy Tran", billing.Tier1); err != nil {
		return err
	}

	noah := billing.Client{ID: "c-noah", Name: "Noah Park", TrainerID: trainer, Mode: billing.ModePrivate, Tier: billing.Tier1, IsPersonalClient: true}
	if err := seedClient(ctx, h, noah); err != nil {
		return err
	}

	if err := seedSessions(ctx, h, []billing.Session{
		{ID: "s-noah-pre-1", ClientID: noah.ID, TrainerID: trainer, Date: scenarioMonday.AddDate(0, 0, -5), Mode: billing.ModePrivate},
		{ID: "s-noah-pre-2", ClientID: noah.ID, TrainerID: trainer, Date: scenarioMonday.AddDate(0, 0, -3), Mode: billing.ModePrivate},
		{ID: "s-noah-1", ClientID: noah.ID, TrainerID: trainer, Date: scenarioMonday.AddDate(0, 0, 1), Mode: billing.ModePrivate},
	}); err != nil {
		return err
	}

	if err := seedPackage(ctx, h, billing.Package{
		ID: "p-noah-20", ClientID: noah.ID, TrainerID: trainer,
		SessionsPurchased: 20, StartDate: scenarioMonday, SalesBonus: decimal.NewFromInt(50), Mode: billing.ModePrivate,
	}); err != nil {
		return err
	}

	_, err := h.Realloc.Run(ctx, noah.ID, trainer)
	return err
}
