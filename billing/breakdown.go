/*
breakdown.go - Itemized weekly line items

PURPOSE:

	The line-item counterpart of the income summary. One row per:
	- package purchased this week (purchase value: per-class price x
	  sessions purchased - what the client paid, not trainer income)
	- sales bonus on a this-week package
	- session taught this week (price x effective rate, computed by the
	  exact same arithmetic as the summary's classIncome)
	- late fee recorded this week

	Rows sort ascending by date; same-date ties keep generation order
	(packages, then bonuses, then sessions, then late fees).

CONSISTENCY:

	sum of session + bonus + lateFee rows
	  == summary.FinalWeeklyIncome + summary.BackfillAdjustment
	Package purchase rows are informational and outside the law; backfill
	deliberately has no row.
*/
package billing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BREAKDOWN ROWS
// =============================================================================

// BreakdownRowType tags what a line item represents.
type BreakdownRowType string

const (
	RowPackage BreakdownRowType = "package"
	RowBonus   BreakdownRowType = "bonus"
	RowSession BreakdownRowType = "session"
	RowLateFee BreakdownRowType = "lateFee"
)

// BreakdownRow is one line item of a trainer's week.
type BreakdownRow struct {
	ID         string
	Date       time.Time
	ClientName string
	Type       BreakdownRowType
	Amount     decimal.Decimal
}

// ComputeBreakdownRows builds the weekly line items from one input set.
func ComputeBreakdownRows(in WeekInput) []BreakdownRow {
	return NewWeekCompute(in).BreakdownRows()
}

// BreakdownRows itemizes the prepared week.
func (wc *WeekCompute) BreakdownRows() []BreakdownRow {
	var rows []BreakdownRow

	// Package purchases, then their bonuses.
	weekPackages := wc.WeekPackages()
	for _, pkg := range weekPackages {
		price, _ := wc.pricing.PricePerClass(pkg.ClientID, pkg.StartDate, pkg.SessionsPurchased, pkg.Mode)
		rows = append(rows, BreakdownRow{
			ID:         string(pkg.ID),
			Date:       pkg.StartDate,
			ClientName: wc.ClientName(pkg.ClientID),
			Type:       RowPackage,
			Amount:     price.Mul(decimal.NewFromInt(int64(pkg.SessionsPurchased))),
		})
	}
	for _, pkg := range weekPackages {
		if pkg.SalesBonus.IsZero() {
			continue
		}
		rows = append(rows, BreakdownRow{
			ID:         string(pkg.ID) + "-bonus",
			Date:       pkg.StartDate,
			ClientName: wc.ClientName(pkg.ClientID),
			Type:       RowBonus,
			Amount:     pkg.SalesBonus,
		})
	}

	for _, session := range wc.WeekSessions() {
		rows = append(rows, BreakdownRow{
			ID:         string(session.ID),
			Date:       session.Date,
			ClientName: wc.ClientName(session.ClientID),
			Type:       RowSession,
			Amount:     wc.SessionAmount(session),
		})
	}

	for _, fee := range wc.WeekLateFees() {
		rows = append(rows, BreakdownRow{
			ID:         string(fee.ID),
			Date:       fee.Date,
			ClientName: wc.ClientName(fee.ClientID),
			Type:       RowLateFee,
			Amount:     fee.Amount,
		})
	}

	// Stable: same-date ties keep the generation order above.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	return rows
}

// SumRows totals the rows that participate in the consistency law
// (session, bonus, lateFee). Package purchase rows are excluded: they
// record client spend, not trainer income.
func SumRows(rows []BreakdownRow) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		switch row.Type {
		case RowSession, RowBonus, RowLateFee:
			total = total.Add(row.Amount)
		}
	}
	return total
}
