/*
clientrows.go - Per-client weekly display rows

PURPOSE:

	One row per client for the weekly dashboard: package purchase / usage
	/ remaining counts plus the client's class count for the target week.

DISPLAY RULES:
  - One or more packages still have sessions remaining: show the most
    recent at most two of them, combined as "X + Y" (older of the two
    first) in each of the purchased/used/remaining columns.
  - Nothing active but the client has purchase history: show only the
    most recent package.
  - No packages ever, but drop-in sessions exist: purchased 0, used =
    lifetime drop-in count, remaining = the negative of that count. A
    negative remaining signals an unpaid balance.
*/
package billing

import (
	"sort"
	"strconv"

	"github.com/pulsefit/income-engine/engine"
)

// =============================================================================
// WEEKLY CLIENT ROW
// =============================================================================

// WeeklyClientRow summarizes one client's package position and weekly
// activity for display.
type WeeklyClientRow struct {
	ClientID ClientID
	Name     string

	// Numeric totals across the displayed packages.
	Purchased int
	Used      int
	Remaining int

	// "X + Y" combined strings when two active packages are shown,
	// otherwise plain numbers.
	PurchasedDisplay string
	UsedDisplay      string
	RemainingDisplay string

	WeekClassCount int
}

// packageUsage pairs a package with its computed usage.
type packageUsage struct {
	pkg  Package
	used int
}

func (pu packageUsage) remaining() int { return pu.pkg.SessionsPurchased - pu.used }

// ComputeWeeklyClientRows builds one row per given client from their full
// package and session history. Sessions and packages for other clients
// are ignored, so callers can pass unfiltered collections.
func ComputeWeeklyClientRows(clients []Client, packages []Package, sessions []Session, week engine.Week) []WeeklyClientRow {
	usedByPackage := make(map[PackageID]int)
	dropInsByClient := make(map[ClientID]int)
	weekCountByClient := make(map[ClientID]int)
	for _, s := range sessions {
		if s.Linked() {
			usedByPackage[s.PackageID]++
		} else {
			dropInsByClient[s.ClientID]++
		}
		if week.Contains(s.Date) {
			weekCountByClient[s.ClientID]++
		}
	}

	packagesByClient := make(map[ClientID][]Package)
	for _, p := range packages {
		packagesByClient[p.ClientID] = append(packagesByClient[p.ClientID], p)
	}

	rows := make([]WeeklyClientRow, 0, len(clients))
	for _, client := range clients {
		row := WeeklyClientRow{
			ClientID:       client.ID,
			Name:           client.Name,
			WeekClassCount: weekCountByClient[client.ID],
		}

		history := (OldestFirstPolicy{}).OrderPackages(packagesByClient[client.ID])
		usages := make([]packageUsage, len(history))
		var active []packageUsage
		for i, pkg := range history {
			usages[i] = packageUsage{pkg: pkg, used: usedByPackage[pkg.ID]}
			if usages[i].remaining() > 0 {
				active = append(active, usages[i])
			}
		}

		var shown []packageUsage
		switch {
		case len(active) >= 2:
			shown = active[len(active)-2:]
		case len(active) == 1:
			shown = active
		case len(usages) > 0:
			shown = usages[len(usages)-1:]
		}

		if len(shown) == 0 {
			// Never purchased. Lifetime drop-ins show as an unpaid balance.
			dropIns := dropInsByClient[client.ID]
			row.Used = dropIns
			row.Remaining = -dropIns
			row.PurchasedDisplay = "0"
			row.UsedDisplay = strconv.Itoa(dropIns)
			row.RemainingDisplay = strconv.Itoa(-dropIns)
			rows = append(rows, row)
			continue
		}

		var purchasedParts, usedParts, remainingParts []string
		for _, pu := range shown {
			row.Purchased += pu.pkg.SessionsPurchased
			row.Used += pu.used
			row.Remaining += pu.remaining()
			purchasedParts = append(purchasedParts, strconv.Itoa(pu.pkg.SessionsPurchased))
			usedParts = append(usedParts, strconv.Itoa(pu.used))
			remainingParts = append(remainingParts, strconv.Itoa(pu.remaining()))
		}
		row.PurchasedDisplay = joinPlus(purchasedParts)
		row.UsedDisplay = joinPlus(usedParts)
		row.RemainingDisplay = joinPlus(remainingParts)
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].ClientID < rows[j].ClientID
	})
	return rows
}

func joinPlus(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " + "
		}
		out += p
	}
	return out
}
