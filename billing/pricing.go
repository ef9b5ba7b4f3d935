/*
pricing.go - Per-class price resolution

PURPOSE:

	Answers "what did one class cost for this client on this date?".
	Three sources, in order:
	1. The client's price history ledger: the latest entry effective on
	   or before the session date
	2. The client's current snapshot, when no history entry applies
	3. The default price table (tier 1), when the client id itself no
	   longer resolves (a referential gap, surfaced but not fatal)

	Bracket selection is by the governing package's purchased session
	count (1-12, 13-20, 21+); drop-ins price at count 1, the highest
	per-class rate. Semi-private mode adds the snapshot's per-class
	premium.

GUARANTEE:

	Deterministic, pure function of its inputs. Every positive session
	count maps to exactly one bracket (SessionBrackets is validated by
	construction), so resolution never has gaps or overlaps.
*/
package billing

import (
	"time"

	"github.com/pulsefit/income-engine/engine"
	"github.com/shopspring/decimal"
)

// =============================================================================
// PRICING RESOLVER
// =============================================================================

// PricingResolver resolves point-in-time per-class prices from a default
// table, a client roster, and an optional price history ledger.
type PricingResolver struct {
	table   PriceTable
	clients map[ClientID]Client
	history map[ClientID][]PriceHistoryEntry
}

// NewPricingResolver indexes the inputs for lookup. The history slice may
// be nil when no point-in-time pricing is needed.
func NewPricingResolver(table PriceTable, clients []Client, history []PriceHistoryEntry) *PricingResolver {
	pr := &PricingResolver{
		table:   table,
		clients: make(map[ClientID]Client, len(clients)),
		history: make(map[ClientID][]PriceHistoryEntry),
	}
	for _, c := range clients {
		pr.clients[c.ID] = c
	}
	for _, h := range history {
		pr.history[h.ClientID] = append(pr.history[h.ClientID], h)
	}
	return pr
}

// SnapshotAt returns the price snapshot governing a client on a date.
//
// A returned ErrClientNotFound still carries a usable snapshot (the
// default tier-1 table row) so callers can degrade instead of aborting.
func (pr *PricingResolver) SnapshotAt(clientID ClientID, date time.Time) (PriceSnapshot, error) {
	client, ok := pr.clients[clientID]
	if !ok {
		return pr.table.SnapshotFor(Tier1), ErrClientNotFound
	}
	if entries := pr.history[clientID]; len(entries) > 0 {
		entry, found := engine.LatestEffective(entries, func(e PriceHistoryEntry) time.Time {
			return e.EffectiveDate
		}, engine.DateOnly(date))
		if found {
			return entry.Pricing, nil
		}
		// All history entries postdate the session: fall through to the
		// stored snapshot.
	}
	return client.Pricing, nil
}

// PricePerClass resolves the per-class price for a session on the given
// date, billed against a package of sessionCount classes in the given
// mode. Use sessionCount = 1 for drop-ins.
func (pr *PricingResolver) PricePerClass(clientID ClientID, date time.Time, sessionCount int, mode TrainingMode) (decimal.Decimal, error) {
	snapshot, gapErr := pr.SnapshotAt(clientID, date)
	price, err := snapshot.PriceFor(sessionCount, mode)
	if err != nil {
		return decimal.Zero, err
	}
	return price, gapErr
}

// DropInPrice resolves the single-class price for a client on a date.
func (pr *PricingResolver) DropInPrice(clientID ClientID, date time.Time, mode TrainingMode) (decimal.Decimal, error) {
	return pr.PricePerClass(clientID, date, 1, mode)
}

// Client returns the roster record for an id, when it resolves.
func (pr *PricingResolver) Client(id ClientID) (Client, bool) {
	c, ok := pr.clients[id]
	return c, ok
}
