// Package pricing computes deterministic line-item breakdowns. A breakdown is
// a pure function of the schema, the slot start and the requested party: the
// manual-booking preview, the RTB quote and the checkout cart all reach
// byte-identical totals for identical inputs. Amounts are minor currency
// units.
package pricing

import (
	"time"

	"kestrel/internal/models"
)

// Line is one priced row of a breakdown.
type Line struct {
	Label     string `json:"label"`
	Slug      string `json:"slug"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"line_total"`
}

// AdjustmentLine is an applied price modifier.
type AdjustmentLine struct {
	Label   string `json:"label"`
	Percent int    `json:"percent"`
	Amount  int64  `json:"amount"`
}

// Breakdown is the full quote for a requested party.
type Breakdown struct {
	Currency    string           `json:"currency"`
	TicketLines []Line           `json:"ticket_lines"`
	AddonLines  []Line           `json:"addon_lines,omitempty"`
	Adjustments []AdjustmentLine `json:"adjustments,omitempty"`
	Subtotal    int64            `json:"subtotal"`
	Total       int64            `json:"total"`
}

// CalculateBreakdown prices the requested party against the experience
// schema. Unknown ticket or addon slugs are ignored, not errors: the client
// may hold a stale schema. Zero-quantity lines are omitted. Adjustments are
// evaluated against slotStart (zero slotStart skips them), never the wall
// clock, so a quote stays reproducible for a given slot.
func CalculateBreakdown(exp *models.Experience, slotStart time.Time, requestedPax map[string]int, requestedAddons map[string]float64) Breakdown {
	b := Breakdown{Currency: exp.Currency}

	totalPax := 0
	for i := range exp.TicketTypes {
		tt := &exp.TicketTypes[i]
		qty := requestedPax[tt.Slug]
		if qty <= 0 {
			continue
		}
		totalPax += qty
		b.TicketLines = append(b.TicketLines, Line{
			Label:     tt.Label,
			Slug:      tt.Slug,
			UnitPrice: tt.Price,
			Quantity:  qty,
			LineTotal: tt.Price * int64(qty),
		})
	}

	for i := range exp.AddonTypes {
		at := &exp.AddonTypes[i]
		if requestedAddons[at.Slug] <= 0 {
			continue
		}
		qty := 1
		if at.PricingMode == models.PricingPerPerson {
			qty = totalPax
		}
		// Per-booking addon "quantity" means selected, not a multiplier.
		if qty <= 0 {
			continue
		}
		b.AddonLines = append(b.AddonLines, Line{
			Label:     at.Label,
			Slug:      at.Slug,
			UnitPrice: at.Price,
			Quantity:  qty,
			LineTotal: at.Price * int64(qty),
		})
	}

	for _, l := range b.TicketLines {
		b.Subtotal += l.LineTotal
	}
	for _, l := range b.AddonLines {
		b.Subtotal += l.LineTotal
	}
	b.Total = b.Subtotal

	if slotStart.IsZero() || b.Subtotal == 0 {
		return b
	}
	for i := range exp.Adjustments {
		adj := &exp.Adjustments[i]
		if !adj.AppliesAt(slotStart) {
			continue
		}
		amount := b.Subtotal * int64(adj.Percent) / 100
		if amount == 0 {
			continue
		}
		b.Adjustments = append(b.Adjustments, AdjustmentLine{
			Label:   adj.Label,
			Percent: adj.Percent,
			Amount:  amount,
		})
		b.Total += amount
	}
	return b
}
