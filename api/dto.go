/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:

	Defines the JSON structures for API communication. These types decouple
	the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:

	Request types carry go-playground/validator struct tags; handlers run
	them through Handler.Validate before touching the store. Rate-table
	and pricing documents get their deeper structural validation from the
	factory package (bracket contiguity, Monday effective weeks).

MONEY:

	Amounts cross the wire as JSON numbers (float64) and are converted to
	decimal at the boundary; nothing downstream computes in floats.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/config.go: RateTableJSON / PriceTableJSON documents
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/pulsefit/income-engine/billing"
	"github.com/pulsefit/income-engine/engine"
)

// =============================================================================
// ROSTER TYPES
// =============================================================================

// TrainerDTO represents a trainer in API responses.
type TrainerDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Tier     int    `json:"tier"`
	Archived bool   `json:"archived"`
}

// CreateTrainerRequest is the request to create a trainer.
type CreateTrainerRequest struct {
	Name string `json:"name" validate:"required"`
	Tier int    `json:"tier" validate:"required,min=1,max=3"`
}

// ClientDTO represents a client in API responses.
type ClientDTO struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	TrainerID          string `json:"trainer_id"`
	SecondaryTrainerID string `json:"secondary_trainer_id,omitempty"`
	Mode               string `json:"mode"`
	Tier               int    `json:"tier"`
	IsPersonalClient   bool   `json:"is_personal_client"`
	Archived           bool   `json:"archived"`
	Location           string `json:"location,omitempty"`
}

// CreateClientRequest is the request to create a client. The price
// snapshot is seeded from the studio price table for the given tier;
// a premium override applies to semi-private clients only.
type CreateClientRequest struct {
	Name               string   `json:"name" validate:"required"`
	TrainerID          string   `json:"trainer_id" validate:"required"`
	SecondaryTrainerID string   `json:"secondary_trainer_id,omitempty"`
	Mode               string   `json:"mode" validate:"required,oneof=private semi_private shared"`
	Tier               int      `json:"tier" validate:"required,min=1,max=3"`
	IsPersonalClient   bool     `json:"is_personal_client"`
	Location           string   `json:"location,omitempty"`
	PremiumOverride    *float64 `json:"premium_override,omitempty" validate:"omitempty,gte=0"`
}

// =============================================================================
// RECORD TYPES
// =============================================================================

// CreatePackageRequest records a package purchase. Triggers an
// allocation run for the client+trainer pair.
type CreatePackageRequest struct {
	TrainerID         string  `json:"trainer_id" validate:"required"`
	SessionsPurchased int     `json:"sessions_purchased" validate:"required,min=1"`
	StartDate         string  `json:"start_date" validate:"required"`
	SalesBonus        float64 `json:"sales_bonus" validate:"gte=0"`
	Mode              string  `json:"mode" validate:"required,oneof=private semi_private shared"`
}

// CreateSessionRequest logs a taught session. Triggers an allocation
// run so the session lands on the right package.
type CreateSessionRequest struct {
	TrainerID string `json:"trainer_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Mode      string `json:"mode" validate:"required,oneof=private semi_private shared"`
	Location  string `json:"location,omitempty"`
}

// CreateLateFeeRequest records a late-cancellation fee.
type CreateLateFeeRequest struct {
	TrainerID string  `json:"trainer_id" validate:"required"`
	Date      string  `json:"date" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
}

// UpdatePricingRequest appends a price-history entry for a client and
// replaces their current snapshot from that date forward.
type UpdatePricingRequest struct {
	EffectiveDate      string    `json:"effective_date" validate:"required"`
	Prices             []float64 `json:"prices" validate:"required,len=3,dive,gte=0"`
	SemiPrivatePremium *float64  `json:"semi_private_premium,omitempty" validate:"omitempty,gte=0"`
}

// SessionDTO represents a session in API responses.
type SessionDTO struct {
	ID        string `json:"id"`
	ClientID  string `json:"client_id"`
	TrainerID string `json:"trainer_id"`
	Date      string `json:"date"`
	PackageID string `json:"package_id,omitempty"`
	Mode      string `json:"mode"`
	Location  string `json:"location,omitempty"`
}

// PackageDTO represents a package in API responses.
type PackageDTO struct {
	ID                string  `json:"id"`
	ClientID          string  `json:"client_id"`
	TrainerID         string  `json:"trainer_id"`
	SessionsPurchased int     `json:"sessions_purchased"`
	StartDate         string  `json:"start_date"`
	SalesBonus        float64 `json:"sales_bonus"`
	Mode              string  `json:"mode"`
}

// =============================================================================
// WEEKLY VIEW TYPES
// =============================================================================

// IncomeSummaryDTO is the weekly aggregate view.
type IncomeSummaryDTO struct {
	TrainerID          string   `json:"trainer_id"`
	WeekStart          string   `json:"week_start"`
	WeekEnd            string   `json:"week_end"`
	TotalClasses       int      `json:"total_classes"`
	Rate               float64  `json:"rate"`
	RateConfigured     bool     `json:"rate_configured"`
	ClassIncome        float64  `json:"class_income"`
	BonusIncome        float64  `json:"bonus_income"`
	LateFeeIncome      float64  `json:"late_fee_income"`
	BackfillAdjustment float64  `json:"backfill_adjustment"`
	FinalWeeklyIncome  float64  `json:"final_weekly_income"`
	Warnings           []string `json:"warnings,omitempty"`
}

// BreakdownRowDTO is one weekly line item.
type BreakdownRowDTO struct {
	ID         string  `json:"id"`
	Date       string  `json:"date"`
	ClientName string  `json:"client_name"`
	Type       string  `json:"type"`
	Amount     float64 `json:"amount"`
}

// WeeklyClientRowDTO is one dashboard row per client.
type WeeklyClientRowDTO struct {
	ClientID         string `json:"client_id"`
	Name             string `json:"name"`
	Purchased        int    `json:"purchased"`
	Used             int    `json:"used"`
	Remaining        int    `json:"remaining"`
	PurchasedDisplay string `json:"purchased_display"`
	UsedDisplay      string `json:"used_display"`
	RemainingDisplay string `json:"remaining_display"`
	WeekClassCount   int    `json:"week_class_count"`
}

// AllocationDTO reports an allocation run's effect.
type AllocationDTO struct {
	Overflowed int  `json:"overflowed"`
	Absorbed   int  `json:"absorbed"`
	Changed    bool `json:"changed"`
}

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ID string `json:"id" validate:"required"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func trainerDTO(t billing.Trainer) TrainerDTO {
	return TrainerDTO{ID: string(t.ID), Name: t.Name, Tier: int(t.Tier), Archived: t.Archived}
}

func clientDTO(c billing.Client) ClientDTO {
	return ClientDTO{
		ID:                 string(c.ID),
		Name:               c.Name,
		TrainerID:          string(c.TrainerID),
		SecondaryTrainerID: string(c.SecondaryTrainerID),
		Mode:               string(c.Mode),
		Tier:               int(c.Tier),
		IsPersonalClient:   c.IsPersonalClient,
		Archived:           c.Archived,
		Location:           c.Location,
	}
}

func packageDTO(p billing.Package) PackageDTO {
	return PackageDTO{
		ID:                string(p.ID),
		ClientID:          string(p.ClientID),
		TrainerID:         string(p.TrainerID),
		SessionsPurchased: p.SessionsPurchased,
		StartDate:         engine.FormatDate(p.StartDate),
		SalesBonus:        toFloat(p.SalesBonus),
		Mode:              string(p.Mode),
	}
}

func sessionDTO(s billing.Session) SessionDTO {
	return SessionDTO{
		ID:        string(s.ID),
		ClientID:  string(s.ClientID),
		TrainerID: string(s.TrainerID),
		Date:      engine.FormatDate(s.Date),
		PackageID: string(s.PackageID),
		Mode:      string(s.Mode),
		Location:  s.Location,
	}
}

func summaryDTO(s billing.IncomeSummary) IncomeSummaryDTO {
	return IncomeSummaryDTO{
		TrainerID:          string(s.TrainerID),
		WeekStart:          engine.FormatDate(s.Week.Start()),
		WeekEnd:            engine.FormatDate(s.Week.End()),
		TotalClasses:       s.TotalClasses,
		Rate:               toFloat(s.Rate),
		RateConfigured:     s.RateConfigured,
		ClassIncome:        toFloat(s.ClassIncome),
		BonusIncome:        toFloat(s.BonusIncome),
		LateFeeIncome:      toFloat(s.LateFeeIncome),
		BackfillAdjustment: toFloat(s.BackfillAdjustment),
		FinalWeeklyIncome:  toFloat(s.FinalWeeklyIncome),
		Warnings:           s.Warnings,
	}
}

func breakdownRowDTO(r billing.BreakdownRow) BreakdownRowDTO {
	return BreakdownRowDTO{
		ID:         r.ID,
		Date:       engine.FormatDate(r.Date),
		ClientName: r.ClientName,
		Type:       string(r.Type),
		Amount:     toFloat(r.Amount),
	}
}

func clientRowDTO(r billing.WeeklyClientRow) WeeklyClientRowDTO {
	return WeeklyClientRowDTO{
		ClientID:         string(r.ClientID),
		Name:             r.Name,
		Purchased:        r.Purchased,
		Used:             r.Used,
		Remaining:        r.Remaining,
		PurchasedDisplay: r.PurchasedDisplay,
		UsedDisplay:      r.UsedDisplay,
		RemainingDisplay: r.RemainingDisplay,
		WeekClassCount:   r.WeekClassCount,
	}
}

// toFloat renders a decimal for the wire, rounded to cents.
func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
