/*
handlers.go - HTTP API handlers for the income engine

PURPOSE:

	Exposes the billing core via REST API. Handles HTTP request/response,
	JSON serialization, and delegates to domain logic.

ENDPOINTS:

	Trainers:
	  GET    /api/trainers                                    List trainers
	  POST   /api/trainers                                    Create trainer
	  GET    /api/trainers/{id}                               Get trainer
	  PUT    /api/trainers/{id}/rates                         Replace a rate table version
	  GET    /api/trainers/{id}/weeks/{monday}/summary        Weekly income summary
	  GET    /api/trainers/{id}/weeks/{monday}/breakdown      Weekly line items
	  GET    /api/trainers/{id}/weeks/{monday}/clients        Weekly client rows

	Clients:
	  GET    /api/clients                                     List clients
	  POST   /api/clients                                     Create client
	  GET    /api/clients/{id}                                Get client
	  POST   /api/clients/{id}/packages                       Purchase package (runs allocator)
	  POST   /api/clients/{id}/sessions                       Log session (runs allocator)
	  POST   /api/clients/{id}/latefees                       Record late fee
	  PUT    /api/clients/{id}/pricing                        Append price-history entry

	Scenarios:
	  GET    /api/scenarios                                   List demo scenarios
	  POST   /api/scenarios/load                              Load a demo scenario

ERROR HANDLING:

	Errors are returned as JSON with appropriate HTTP status:
	- 400: Validation errors, malformed tables, non-Monday weeks
	- 404: Record not found
	- 500: Internal errors
	The weekly views themselves never 500 on configuration gaps; the
	billing core degrades and reports warnings instead.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pulsefit/income-engine/billing"
	"github.com/pulsefit/income-engine/engine"
	"github.com/pulsefit/income-engine/factory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      billing.Store
	Realloc    *billing.Reallocator
	PriceTable billing.PriceTable
	Validate   *validator.Validate
	Log        zerolog.Logger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store billing.Store, log zerolog.Logger) *Handler {
	return &Handler{
		Store:      store,
		Realloc:    billing.NewReallocator(store),
		PriceTable: billing.DefaultPriceTable(),
		Validate:   validator.New(),
		Log:        log,
	}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.Error().Err(err).Msg("encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, billing.ErrNotFound) || billing.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrBracketGap),
		errors.Is(err, engine.ErrNotMonday),
		isValidationError(err):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.Log.Error().Err(err).Msg("request failed")
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func isValidationError(err error) bool {
	var ve validator.ValidationErrors
	return errors.As(err, &ve)
}

func (h *Handler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return h.Validate.Struct(v)
}

// badRequest wraps decode/parse failures so writeError maps them to 400.
type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }

func (h *Handler) writeBadRequest(w http.ResponseWriter, err error) {
	h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

// =============================================================================
// TRAINER HANDLERS
// =============================================================================

func (h *Handler) ListTrainers(w http.ResponseWriter, r *http.Request) {
	trainers, err := h.Store.Trainers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]TrainerDTO, len(trainers))
	for i, t := range trainers {
		out[i] = trainerDTO(t)
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateTrainer(w http.ResponseWriter, r *http.Request) {
	var req CreateTrainerRequest
	if err := h.decode(r, &req); err != nil {
		h.writeBadRequest(w, err)
		return
	}
	t := billing.Trainer{
		ID:   billing.TrainerID(uuid.NewString()),
		Name: req.Name,
		Tier: billing.Tier(req.Tier),
	}
	if err := h.Store.SaveTrainer(r.Context(), t); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, trainerDTO(t))
}

func (h *Handler) GetTrainer(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.Trainer(r.Context(), billing.TrainerID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trainerDTO(t))
}

// ReplaceRates accepts one income-rate table version. The factory does
// the structural validation (Monday week, contiguous brackets from 1,
// single unbounded tail); malformed tables never reach the store.
func (h *Handler) ReplaceRates(w http.ResponseWriter, r *http.Request) {
	trainerID := billing.TrainerID(chi.URLParam(r, "id"))
	if _, err := h.Store.Trainer(r.Context(), trainerID); err != nil {
		h.writeError(w, err)
		return
	}

	var doc factory.RateTableJSON
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		h.writeBadRequest(w, err)
		return
	}
	doc.TrainerID = string(trainerID) // path wins over body
	rows, err := doc.ToRows()
	if err != nil {
		h.writeError(w, err)
		return
	}
	week := rows[0].EffectiveWeek
	if err := h.Store.ReplaceRateTable(r.Context(), trainerID, week, rows); err != nil {
		h.writeError(w, err)
		return
	}
	h.Log.Info().Str("trainer", string(trainerID)).Str("week", engine.FormatDate(week)).
		Int("brackets", len(rows)).Msg("rate table replaced")
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// WEEKLY VIEW HANDLERS
// =============================================================================

// weekInput materializes everything one weekly computation consumes.
func (h *Handler) weekInput(ctx context.Context, trainerID billing.TrainerID, monday string) (billing.WeekInput, error) {
	day, err := engine.ParseDate(monday)
	if err != nil {
		return billing.WeekInput{}, badRequestError{err}
	}
	trainer, err := h.Store.Trainer(ctx, trainerID)
	if err != nil {
		return billing.WeekInput{}, err
	}
	clients, err := h.Store.Clients(ctx)
	if err != nil {
		return billing.WeekInput{}, err
	}
	packages, err := h.Store.Packages(ctx)
	if err != nil {
		return billing.WeekInput{}, err
	}
	sessions, err := h.Store.Sessions(ctx)
	if err != nil {
		return billing.WeekInput{}, err
	}
	lateFees, err := h.Store.LateFees(ctx)
	if err != nil {
		return billing.WeekInput{}, err
	}
	history, err := h.Store.PriceHistory(ctx)
	if err != nil {
		return billing.WeekInput{}, err
	}
	rates, err := h.Store.IncomeRates(ctx)
	if err != nil {
		return billing.WeekInput{}, err
	}
	return billing.WeekInput{
		Trainer:    trainer,
		Week:       engine.WeekOf(day),
		Clients:    clients,
		Packages:   packages,
		Sessions:   sessions,
		LateFees:   lateFees,
		PriceTable: h.PriceTable,
		History:    history,
		Rates:      rates,
	}, nil
}

func (h *Handler) GetWeeklySummary(w http.ResponseWriter, r *http.Request) {
	in, err := h.weekInput(r.Context(), billing.TrainerID(chi.URLParam(r, "id")), chi.URLParam(r, "monday"))
	if err != nil {
		h.handleWeekErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summaryDTO(billing.ComputeIncomeSummary(in)))
}

func (h *Handler) GetWeeklyBreakdown(w http.ResponseWriter, r *http.Request) {
	in, err := h.weekInput(r.Context(), billing.TrainerID(chi.URLParam(r, "id")), chi.URLParam(r, "monday"))
	if err != nil {
		h.handleWeekErr(w, err)
		return
	}
	rows := billing.ComputeBreakdownRows(in)
	out := make([]BreakdownRowDTO, len(rows))
	for i, row := range rows {
		out[i] = breakdownRowDTO(row)
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetWeeklyClients(w http.ResponseWriter, r *http.Request) {
	in, err := h.weekInput(r.Context(), billing.TrainerID(chi.URLParam(r, "id")), chi.URLParam(r, "monday"))
	if err != nil {
		h.handleWeekErr(w, err)
		return
	}
	// The dashboard shows the trainer's roster, including shared clients
	// where this trainer is secondary.
	var roster []billing.Client
	for _, c := range in.Clients {
		if c.TrainerID == in.Trainer.ID || c.SecondaryTrainerID == in.Trainer.ID {
			roster = append(roster, c)
		}
	}
	rows := billing.ComputeWeeklyClientRows(roster, in.Packages, in.Sessions, in.Week)
	out := make([]WeeklyClientRowDTO, len(rows))
	for i, row := range rows {
		out[i] = clientRowDTO(row)
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleWeekErr(w http.ResponseWriter, err error) {
	var bad badRequestError
	if errors.As(err, &bad) {
		h.writeBadRequest(w, bad.err)
		return
	}
	h.writeError(w, err)
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.Clients(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]ClientDTO, len(clients))
	for i, c := range clients {
		out[i] = clientDTO(c)
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := h.decode(r, &req); err != nil {
		h.writeBadRequest(w, err)
		return
	}
	if _, err := h.Store.Trainer(r.Context(), billing.TrainerID(req.TrainerID)); err != nil {
		h.writeError(w, err)
		return
	}

	pricing := h.PriceTable.SnapshotFor(billing.Tier(req.Tier))
	if req.PremiumOverride != nil {
		pricing.SemiPrivatePremium = decimal.NewFromFloat(*req.PremiumOverride)
	}
	c := billing.Client{
		ID:                 billing.ClientID(uuid.NewString()),
		Name:               req.Name,
		TrainerID:          billing.TrainerID(req.TrainerID),
		SecondaryTrainerID: billing.TrainerID(req.SecondaryTrainerID),
		Mode:               billing.TrainingMode(req.Mode),
		Tier:               billing.Tier(req.Tier),
		Pricing:            pricing,
		IsPersonalClient:   req.IsPersonalClient,
		Location:           req.Location,
	}
	if err := h.Store.SaveClient(r.Context(), c); err != nil {
		h.writeError(w, err)
		return
	}
	// Signup snapshot also opens the price history ledger.
	entry := billing.PriceHistoryEntry{ClientID: c.ID, EffectiveDate: engine.DateOnly(timeNow()), Pricing: pricing}
	if err := h.Store.AppendPriceHistory(r.Context(), entry); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, clientDTO(c))
}

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.Client(r.Context(), billing.ClientID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, clientDTO(c))
}

// CreatePackage records a purchase and reruns allocation for the pair,
// so overflow and retroactive drop-in absorption happen immediately.
func (h *Handler) CreatePackage(w http.ResponseWriter, r *http.Request) {
	clientID := billing.ClientID(chi.URLParam(r, "id"))
	if _, err := h.Store.Client(r.Context(), clientID); err != nil {
		h.writeError(w, err)
		return
	}
	var req CreatePackageRequest
	if err := h.decode(r, &req); err != nil {
		h.writeBadRequest(w, err)
		return
	}
	start, err := engine.ParseDate(req.StartDate)
	if err != nil {
		h.writeBadRequest(w, err)
		return
	}

	p := billing.Package{
		ID:                billing.PackageID(uuid.NewString()),
		ClientID:          clientID,
		TrainerID:         billing.TrainerID(req.TrainerID),
		SessionsPurchased: req.SessionsPurchased,
		StartDate:         start,
		SalesBonus:        decimal.NewFromFloat(req.SalesBonus),
		Mode:              billing.TrainingMode(req.Mode),
	}
	p, err = h.Store.SavePackage(r.Context(), p)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.Realloc.Run(r.Context(), clientID, p.TrainerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.Log.Info().Str("package", string(p.ID)).Int("overflowed", result.Overflowed).
		Int("absorbed", result.Absorbed).Msg("package purchased")
	h.writeJSON(w, http.StatusCreated, packageDTO(p))
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	clientID := billing.ClientID(chi.URLParam(r, "id"))
	client, err := h.Store.Client(r.Context(), clientID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req CreateSessionRequest
	if err := h.decode(r, &req); err != nil {
		h.writeBadRequest(w, err)
		return
	}
	date, err := engine.ParseDate(req.Date)
	if err != nil {
		h.writeBadRequest(w, err)
		return
	}

	s := billing.Session{
		ID:        billing.SessionID(uuid.NewString()),
		ClientID:  clientID,
		TrainerID: billing.TrainerID(req.TrainerID),
		Date:      date,
		Mode:      billing.TrainingMode(req.Mode),
		Location:  firstNonEmpty(req.Location, client.Location),
	}
	if err := h.Store.SaveSession(r.Context(), s); err != nil {
		h.writeError(w, err)
		return
	}

	if _, err := h.Realloc.Run(r.Context(), clientID, s.TrainerID); err != nil {
		h.writeError(w, err)
		return
	}
	// Reread so the response reflects the assigned package.
	stored, err := h.Store.SessionsFor(r.Context(), clientID, s.TrainerID)
	if err == nil {
		for _, candidate := range stored {
			if candidate.ID == s.ID {
				s = candidate
				break
			}
		}
	}
	h.writeJSON(w, http.StatusCreated, sessionDTO(s))
}

func (h *Handler) CreateLateFee(w http.ResponseWriter, r *http.Request) {
	clientID := billing.ClientID(chi.URLParam(r, "id"))
	if _, err := h.Store.Client(r.Context(), clientID); err != nil {
		h.writeError(w, err)
		return
	}
	var req CreateLateFeeRequest
	if err := h.decode(r, &req); err != nil {
		h.writeBadRequest(w, err)
		return
	}
	date, err := engine.ParseDate(req.Date)
	if err != nil {
		h.writeBadRequest(w, err)
		return
	}

	fee := billing.LateFee{
		ID:        billing.LateFeeID(uuid.NewString()),
		ClientID:  clientID,
		TrainerID: billing.TrainerID(req.TrainerID),
		Date:      date,
		Amount:    decimal.NewFromFloat(req.Amount),
	}
	if err := h.Store.SaveLateFee(r.Context(), fee); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"id": string(fee.ID)})
}

// UpdatePricing appends a price-history entry and moves the client's
// current snapshot forward. Past sessions keep resolving through the
// ledger.
func (h *Handler) UpdatePricing(w http.ResponseWriter, r *http.Request) {
	clientID := billing.ClientID(chi.URLParam(r, "id"))
	client, err := h.Store.Client(r.Context(), clientID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req UpdatePricingRequest
	if err := h.decode(r, &req); err != nil {
		h.writeBadRequest(w, err)
		return
	}
	effective, err := engine.ParseDate(req.EffectiveDate)
	if err != nil {
		h.writeBadRequest(w, err)
		return
	}

	pricing := billing.PriceSnapshot{SemiPrivatePremium: client.Pricing.SemiPrivatePremium}
	for i, p := range req.Prices {
		pricing.BracketPrices[i] = decimal.NewFromFloat(p)
	}
	if req.SemiPrivatePremium != nil {
		pricing.SemiPrivatePremium = decimal.NewFromFloat(*req.SemiPrivatePremium)
	}

	entry := billing.PriceHistoryEntry{ClientID: clientID, EffectiveDate: effective, Pricing: pricing}
	if err := h.Store.AppendPriceHistory(r.Context(), entry); err != nil {
		h.writeError(w, err)
		return
	}
	client.Pricing = pricing
	if err := h.Store.SaveClient(r.Context(), client); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// timeNow is a hook so tests can pin price-history timestamps.
var timeNow = time.Now
