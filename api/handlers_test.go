/*
handlers_test.go - HTTP API tests

PURPOSE:

	Exercises the API surface end to end against the in-memory store:
	roster CRUD, rate-table replacement with its 400-level rejections,
	the purchase/log/reallocate flow, and the weekly view endpoints with
	real money numbers.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefit/income-engine/billing"
	"github.com/pulsefit/income-engine/billing/store"
	"github.com/pulsefit/income-engine/engine"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *Handler) {
	t.Helper()
	h := NewHandler(store.NewMemory(), zerolog.Nop())
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, h
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// createTrainer posts a trainer and returns its id.
func createTrainer(t *testing.T, srv *httptest.Server, name string, tier int) string {
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/trainers", CreateTrainerRequest{Name: name, Tier: tier})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[TrainerDTO](t, resp).ID
}

// createClient posts a client for a trainer and returns its id.
func createClient(t *testing.T, srv *httptest.Server, trainerID, name string) string {
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/clients", CreateClientRequest{
		Name: name, TrainerID: trainerID, Mode: "private", Tier: 1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[ClientDTO](t, resp).ID
}

// putStandardRates installs the 46%/51% split effective 2026-03-02.
func putStandardRates(t *testing.T, srv *httptest.Server, trainerID string) {
	body := map[string]any{
		"effective_week": "2026-03-02",
		"brackets": []map[string]any{
			{"min": 1, "max": 12, "rate": 0.46},
			{"min": 13, "rate": 0.51},
		},
	}
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/trainers/"+trainerID+"/rates", body)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

// =============================================================================
// ROSTER ENDPOINTS
// =============================================================================

func TestCreateAndGetTrainer(t *testing.T) {
	srv, _ := newTestServer(t)

	id := createTrainer(t, srv, "Dana Reyes", 2)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/trainers/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[TrainerDTO](t, resp)
	assert.Equal(t, "Dana Reyes", got.Name)
	assert.Equal(t, 2, got.Tier)
}

func TestCreateTrainer_ValidationFailures(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []CreateTrainerRequest{
		{Name: "", Tier: 1},
		{Name: "Dana", Tier: 0},
		{Name: "Dana", Tier: 4},
	}
	for _, req := range cases {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/trainers", req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "req %+v", req)
	}
}

func TestGetTrainer_UnknownIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/trainers/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateClient_SeedsSnapshotAndHistory(t *testing.T) {
	// Client creation snapshots the tier prices and opens the price
	// history ledger at signup.
	srv, h := newTestServer(t)
	old := timeNow
	timeNow = func() time.Time { return engine.NewDate(2026, time.March, 4) }
	t.Cleanup(func() { timeNow = old })

	trainerID := createTrainer(t, srv, "Dana", 1)
	clientID := createClient(t, srv, trainerID, "Alice")

	ctx := context.Background()
	c, err := h.Store.Client(ctx, billing.ClientID(clientID))
	require.NoError(t, err)
	assert.True(t, c.Pricing.BracketPrices[0].Equal(decimal.NewFromInt(150)))

	history, err := h.Store.PriceHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, billing.ClientID(clientID), history[0].ClientID)
	assert.True(t, history[0].EffectiveDate.Equal(engine.NewDate(2026, time.March, 4)))
}

func TestCreateClient_UnknownTrainerIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/clients", CreateClientRequest{
		Name: "Alice", TrainerID: "ghost", Mode: "private", Tier: 1,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// RATE TABLE ENDPOINT
// =============================================================================

func TestReplaceRates_RejectsNonMonday(t *testing.T) {
	srv, _ := newTestServer(t)
	trainerID := createTrainer(t, srv, "Dana", 1)

	body := map[string]any{
		"effective_week": "2026-03-03", // a Tuesday
		"brackets":       []map[string]any{{"min": 1, "rate": 0.5}},
	}
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/trainers/"+trainerID+"/rates", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReplaceRates_RejectsGappedBrackets(t *testing.T) {
	srv, _ := newTestServer(t)
	trainerID := createTrainer(t, srv, "Dana", 1)

	body := map[string]any{
		"effective_week": "2026-03-02",
		"brackets": []map[string]any{
			{"min": 1, "max": 12, "rate": 0.46},
			{"min": 14, "rate": 0.51},
		},
	}
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/trainers/"+trainerID+"/rates", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReplaceRates_PathTrainerWinsOverBody(t *testing.T) {
	srv, h := newTestServer(t)
	trainerID := createTrainer(t, srv, "Dana", 1)

	body := map[string]any{
		"trainer_id":     "someone-else",
		"effective_week": "2026-03-02",
		"brackets":       []map[string]any{{"min": 1, "rate": 0.5}},
	}
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/trainers/"+trainerID+"/rates", body)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	rates, err := h.Store.IncomeRates(context.Background())
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, billing.TrainerID(trainerID), rates[0].TrainerID)
}

// =============================================================================
// PURCHASE AND SESSION FLOW
// =============================================================================

func TestCreateSession_DropInThenPackageAbsorption(t *testing.T) {
	// GIVEN: A logged drop-in session
	// WHEN: The client then buys a package
	// THEN: The persisted session ends up linked to that package
	srv, h := newTestServer(t)
	trainerID := createTrainer(t, srv, "Dana", 1)
	clientID := createClient(t, srv, trainerID, "Alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/clients/"+clientID+"/sessions", CreateSessionRequest{
		TrainerID: trainerID, Date: "2026-03-02", Mode: "private",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	session := decodeBody[SessionDTO](t, resp)
	assert.Empty(t, session.PackageID, "no package yet: stays a drop-in")

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/clients/"+clientID+"/packages", CreatePackageRequest{
		TrainerID: trainerID, SessionsPurchased: 10, StartDate: "2026-03-04", Mode: "private",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	pkg := decodeBody[PackageDTO](t, resp)

	stored, err := h.Store.SessionsFor(context.Background(), billing.ClientID(clientID), billing.TrainerID(trainerID))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, billing.PackageID(pkg.ID), stored[0].PackageID)
}

func TestCreateSession_WithOpenPackageLinksImmediately(t *testing.T) {
	srv, _ := newTestServer(t)
	trainerID := createTrainer(t, srv, "Dana", 1)
	clientID := createClient(t, srv, trainerID, "Alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/clients/"+clientID+"/packages", CreatePackageRequest{
		TrainerID: trainerID, SessionsPurchased: 10, StartDate: "2026-03-02", Mode: "private",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	pkg := decodeBody[PackageDTO](t, resp)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/clients/"+clientID+"/sessions", CreateSessionRequest{
		TrainerID: trainerID, Date: "2026-03-03", Mode: "private",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	session := decodeBody[SessionDTO](t, resp)
	assert.Equal(t, pkg.ID, session.PackageID, "response reflects the assigned package")
}

func TestCreatePackage_BadDateIs400(t *testing.T) {
	srv, _ := newTestServer(t)
	trainerID := createTrainer(t, srv, "Dana", 1)
	clientID := createClient(t, srv, trainerID, "Alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/clients/"+clientID+"/packages", CreatePackageRequest{
		TrainerID: trainerID, SessionsPurchased: 10, StartDate: "03/02/2026", Mode: "private",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// WEEKLY VIEWS
// =============================================================================

func TestWeeklySummary_EndToEnd(t *testing.T) {
	// GIVEN: Standard rates, a 10-pack purchased Monday with a $25 bonus,
	//        and two sessions that week
	// THEN: summary = 2 * 150 * 0.46 + 25 = 163.00
	srv, _ := newTestServer(t)
	trainerID := createTrainer(t, srv, "Dana", 1)
	putStandardRates(t, srv, trainerID)
	clientID := createClient(t, srv, trainerID, "Alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/clients/"+clientID+"/packages", CreatePackageRequest{
		TrainerID: trainerID, SessionsPurchased: 10, StartDate: "2026-03-02", SalesBonus: 25, Mode: "private",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	for _, date := range []string{"2026-03-02", "2026-03-04"} {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/clients/"+clientID+"/sessions", CreateSessionRequest{
			TrainerID: trainerID, Date: date, Mode: "private",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/trainers/"+trainerID+"/weeks/2026-03-02/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decodeBody[IncomeSummaryDTO](t, resp)

	assert.Equal(t, 2, summary.TotalClasses)
	assert.True(t, summary.RateConfigured)
	assert.InDelta(t, 0.46, summary.Rate, 1e-9)
	assert.InDelta(t, 138.0, summary.ClassIncome, 1e-9)
	assert.InDelta(t, 25.0, summary.BonusIncome, 1e-9)
	assert.InDelta(t, 163.0, summary.FinalWeeklyIncome, 1e-9)
}

func TestWeeklyBreakdown_MatchesSummary(t *testing.T) {
	srv, _ := newTestServer(t)
	trainerID := createTrainer(t, srv, "Dana", 1)
	putStandardRates(t, srv, trainerID)
	clientID := createClient(t, srv, trainerID, "Alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/clients/"+clientID+"/packages", CreatePackageRequest{
		TrainerID: trainerID, SessionsPurchased: 10, StartDate: "2026-03-02", SalesBonus: 25, Mode: "private",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/clients/"+clientID+"/sessions", CreateSessionRequest{
		TrainerID: trainerID, Date: "2026-03-03", Mode: "private",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/trainers/"+trainerID+"/weeks/2026-03-02/breakdown", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := decodeBody[[]BreakdownRowDTO](t, resp)

	// package + bonus + session
	require.Len(t, rows, 3)
	var lawSum float64
	for _, row := range rows {
		if row.Type != "package" {
			lawSum += row.Amount
		}
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/trainers/"+trainerID+"/weeks/2026-03-02/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decodeBody[IncomeSummaryDTO](t, resp)
	assert.InDelta(t, summary.FinalWeeklyIncome+summary.BackfillAdjustment, lawSum, 1e-6)
}

func TestWeeklyClients_ShowsRosterRows(t *testing.T) {
	srv, _ := newTestServer(t)
	trainerID := createTrainer(t, srv, "Dana", 1)
	clientID := createClient(t, srv, trainerID, "Alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/clients/"+clientID+"/packages", CreatePackageRequest{
		TrainerID: trainerID, SessionsPurchased: 10, StartDate: "2026-03-02", Mode: "private",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/clients/"+clientID+"/sessions", CreateSessionRequest{
		TrainerID: trainerID, Date: "2026-03-03", Mode: "private",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/trainers/"+trainerID+"/weeks/2026-03-02/clients", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := decodeBody[[]WeeklyClientRowDTO](t, resp)

	require.Len(t, rows, 1)
	assert.Equal(t, "Alice", rows[0].Name)
	assert.Equal(t, "10", rows[0].PurchasedDisplay)
	assert.Equal(t, "1", rows[0].UsedDisplay)
	assert.Equal(t, "9", rows[0].RemainingDisplay)
	assert.Equal(t, 1, rows[0].WeekClassCount)
}

func TestWeeklySummary_NoRatesStillRenders(t *testing.T) {
	// Configuration gaps degrade to a rendered summary with warnings.
	srv, _ := newTestServer(t)
	trainerID := createTrainer(t, srv, "Dana", 1)
	clientID := createClient(t, srv, trainerID, "Alice")
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/clients/"+clientID+"/sessions", CreateSessionRequest{
		TrainerID: trainerID, Date: "2026-03-03", Mode: "private",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/trainers/"+trainerID+"/weeks/2026-03-02/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decodeBody[IncomeSummaryDTO](t, resp)

	assert.False(t, summary.RateConfigured)
	assert.Zero(t, summary.FinalWeeklyIncome)
	assert.NotEmpty(t, summary.Warnings)
}

func TestWeeklySummary_BadWeekIs400_UnknownTrainerIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	trainerID := createTrainer(t, srv, "Dana", 1)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/trainers/"+trainerID+"/weeks/not-a-date/summary", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/trainers/ghost/weeks/2026-03-02/summary", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
