// Package capacity decides whether a requested party fits within the
// remaining capacity of a slot. The check is advisory until it is re-run
// inside the same locked transaction that writes the reservation; a check
// without a subsequent atomic write is a race, not a guarantee.
package capacity

import (
	"fmt"

	"kestrel/internal/models"
)

// Result is the outcome of a capacity check. Message is human-readable and
// safe to show to staff.
type Result struct {
	Allowed          bool
	RemainingTotal   int
	RemainingPerType map[string]int
	// Reason is a stable rejection code: "slot_cancelled", "empty_party",
	// "insufficient_capacity" or "ticket_type_capacity_exceeded".
	Reason  string
	Message string
}

// Check sums the pax of every capacity-consuming reservation on the slot and
// admits requestedPax only if it fits both the aggregate capacity and every
// per-ticket-type cap. Per-type caps are AND-ed with the aggregate, not
// alternatives. blockPending makes pending_request holds consume capacity.
func Check(slot *models.SlotInstance, requestedPax map[string]int, reservations []models.Reservation, blockPending bool) Result {
	consumedTotal := 0
	consumedPerType := make(map[string]int)
	for i := range reservations {
		r := &reservations[i]
		if r.SlotID != slot.ID || !r.Status.Consumes(blockPending) {
			continue
		}
		for slug, n := range r.Pax {
			consumedTotal += n
			consumedPerType[slug] += n
		}
	}

	res := Result{
		RemainingTotal:   slot.CapacityTotal - consumedTotal,
		RemainingPerType: make(map[string]int, len(slot.CapacityPerType)),
	}
	if res.RemainingTotal < 0 {
		res.RemainingTotal = 0
	}
	for slug, typeCap := range slot.CapacityPerType {
		remaining := typeCap - consumedPerType[slug]
		if remaining < 0 {
			remaining = 0
		}
		res.RemainingPerType[slug] = remaining
	}

	if slot.Status != models.SlotScheduled {
		res.Reason = "slot_cancelled"
		res.Message = "slot is cancelled"
		return res
	}

	requestedTotal := 0
	for _, n := range requestedPax {
		requestedTotal += n
	}
	if requestedTotal <= 0 {
		res.Reason = "empty_party"
		res.Message = "at least one seat must be requested"
		return res
	}
	if requestedTotal > res.RemainingTotal {
		res.Reason = "insufficient_capacity"
		res.Message = fmt.Sprintf("requested %d seats but only %d remain", requestedTotal, res.RemainingTotal)
		return res
	}
	for slug, typeCap := range slot.CapacityPerType {
		if consumedPerType[slug]+requestedPax[slug] > typeCap {
			res.Reason = "ticket_type_capacity_exceeded"
			res.Message = fmt.Sprintf("ticket type %q: requested %d but only %d remain",
				slug, requestedPax[slug], res.RemainingPerType[slug])
			return res
		}
	}

	res.Allowed = true
	return res
}

// Remaining computes occupancy for a slot listing without a requested party.
func Remaining(slot *models.SlotInstance, reservations []models.Reservation, blockPending bool) Result {
	res := Check(slot, nil, reservations, blockPending)
	res.Allowed = false
	res.Reason = ""
	res.Message = ""
	return res
}
