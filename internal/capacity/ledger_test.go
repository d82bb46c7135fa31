package capacity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kestrel/internal/models"
)

func slot(total int, perType map[string]int) *models.SlotInstance {
	return &models.SlotInstance{
		ID:              1,
		CapacityTotal:   total,
		CapacityPerType: perType,
		Status:          models.SlotScheduled,
	}
}

func reservation(status models.ReservationStatus, pax map[string]int) models.Reservation {
	return models.Reservation{SlotID: 1, Status: status, Pax: pax}
}

func TestCheck_AdmitsWithinCapacity(t *testing.T) {
	res := Check(slot(20, nil), map[string]int{"adult": 15}, nil, false)
	assert.True(t, res.Allowed)
	assert.Equal(t, 20, res.RemainingTotal)
}

func TestCheck_RejectsWhenFull(t *testing.T) {
	existing := []models.Reservation{
		reservation(models.StatusApprovedConfirmed, map[string]int{"adult": 15}),
	}

	res := Check(slot(20, nil), map[string]int{"adult": 6}, existing, false)
	assert.False(t, res.Allowed)
	assert.Equal(t, "insufficient_capacity", res.Reason)
	assert.Equal(t, 5, res.RemainingTotal)

	// Ровно в остаток - проходит.
	res = Check(slot(20, nil), map[string]int{"adult": 5}, existing, false)
	assert.True(t, res.Allowed)
}

func TestCheck_ReleasedStatusesDoNotConsume(t *testing.T) {
	existing := []models.Reservation{
		reservation(models.StatusCancelled, map[string]int{"adult": 10}),
		reservation(models.StatusDeclined, map[string]int{"adult": 10}),
		reservation(models.StatusPaid, map[string]int{"adult": 4}),
	}

	res := Check(slot(20, nil), map[string]int{"adult": 16}, existing, false)
	assert.True(t, res.Allowed)
	assert.Equal(t, 16, res.RemainingTotal)
}

func TestCheck_PendingConsumesOnlyWhenBlocking(t *testing.T) {
	existing := []models.Reservation{
		reservation(models.StatusPendingRequest, map[string]int{"adult": 8}),
	}

	res := Check(slot(10, nil), map[string]int{"adult": 5}, existing, false)
	assert.True(t, res.Allowed)

	res = Check(slot(10, nil), map[string]int{"adult": 5}, existing, true)
	assert.False(t, res.Allowed)
	assert.Equal(t, 2, res.RemainingTotal)
}

func TestCheck_PerTypeCapIsANDedWithAggregate(t *testing.T) {
	s := slot(20, map[string]int{"child": 4})
	existing := []models.Reservation{
		reservation(models.StatusApprovedConfirmed, map[string]int{"child": 3}),
	}

	// Агрегат позволяет, per-type cap - нет.
	res := Check(s, map[string]int{"child": 2}, existing, false)
	assert.False(t, res.Allowed)
	assert.Equal(t, "ticket_type_capacity_exceeded", res.Reason)
	assert.Equal(t, 1, res.RemainingPerType["child"])

	res = Check(s, map[string]int{"child": 1, "adult": 10}, existing, false)
	assert.True(t, res.Allowed)
}

func TestCheck_CancelledSlotAdmitsNothing(t *testing.T) {
	s := slot(20, nil)
	s.Status = models.SlotCancelled

	res := Check(s, map[string]int{"adult": 1}, nil, false)
	assert.False(t, res.Allowed)
	assert.Equal(t, "slot_cancelled", res.Reason)
}

func TestCheck_EmptyPartyRejected(t *testing.T) {
	res := Check(slot(20, nil), map[string]int{}, nil, false)
	assert.False(t, res.Allowed)
	assert.Equal(t, "empty_party", res.Reason)
}

func TestCheck_IgnoresOtherSlots(t *testing.T) {
	other := reservation(models.StatusPaid, map[string]int{"adult": 20})
	other.SlotID = 99

	res := Check(slot(20, nil), map[string]int{"adult": 20}, []models.Reservation{other}, false)
	assert.True(t, res.Allowed)
}

func TestRemaining(t *testing.T) {
	existing := []models.Reservation{
		reservation(models.StatusPaid, map[string]int{"adult": 7, "child": 2}),
	}

	res := Remaining(slot(20, map[string]int{"child": 4}), existing, false)
	assert.Equal(t, 11, res.RemainingTotal)
	assert.Equal(t, 2, res.RemainingPerType["child"])
}
