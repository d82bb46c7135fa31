package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "kestrel/internal/errors"
	"kestrel/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func saturdayMornings() []ResolvedOccurrence {
	return []ResolvedOccurrence{
		{Weekday: time.Saturday, TimeOfDay: "10:00", DurationMinutes: 120, Capacity: 12},
	}
}

// Сентябрь 2026: субботы 5, 12, 19 и 26 числа.
var september = DateRange{From: date(2026, time.September, 1), To: date(2026, time.September, 30)}

func TestMaterialize_CreatesSlotPerMatchingDate(t *testing.T) {
	plan, err := Materialize(1, saturdayMornings(), september, nil, Options{Now: date(2026, time.August, 31)})
	require.NoError(t, err)

	require.Len(t, plan.Create, 4)
	assert.Empty(t, plan.Update)
	assert.Empty(t, plan.Retire)

	first := plan.Create[0]
	assert.Equal(t, date(2026, time.September, 5).Add(10*time.Hour), first.StartDatetime)
	assert.Equal(t, date(2026, time.September, 5).Add(12*time.Hour), first.EndDatetime)
	assert.Equal(t, 12, first.CapacityTotal)
	assert.Equal(t, models.SlotScheduled, first.Status)
}

func TestMaterialize_SecondRunIsEmpty(t *testing.T) {
	now := date(2026, time.August, 31)
	plan, err := Materialize(1, saturdayMornings(), september, nil, Options{Now: now})
	require.NoError(t, err)

	existing := make([]ExistingSlot, 0, len(plan.Create))
	for i, s := range plan.Create {
		s.ID = int64(i + 1)
		existing = append(existing, ExistingSlot{SlotInstance: s})
	}

	again, err := Materialize(1, saturdayMornings(), september, existing, Options{Now: now})
	require.NoError(t, err)
	assert.True(t, again.Empty())
}

func TestMaterialize_CapacityChangeBecomesUpdate(t *testing.T) {
	now := date(2026, time.August, 31)
	plan, err := Materialize(1, saturdayMornings(), september, nil, Options{Now: now})
	require.NoError(t, err)

	existing := make([]ExistingSlot, 0, len(plan.Create))
	for i, s := range plan.Create {
		s.ID = int64(i + 1)
		existing = append(existing, ExistingSlot{SlotInstance: s})
	}

	bigger := saturdayMornings()
	bigger[0].Capacity = 20

	again, err := Materialize(1, bigger, september, existing, Options{Now: now})
	require.NoError(t, err)
	assert.Empty(t, again.Create)
	assert.Empty(t, again.Retire)
	require.Len(t, again.Update, 4)
	for _, upd := range again.Update {
		assert.Equal(t, 20, upd.CapacityTotal)
		assert.NotZero(t, upd.ID)
	}
}

func TestMaterialize_CandidateOverlapFails(t *testing.T) {
	occurrences := []ResolvedOccurrence{
		{Weekday: time.Saturday, TimeOfDay: "10:00", DurationMinutes: 120, Capacity: 10},
		{Weekday: time.Saturday, TimeOfDay: "11:00", DurationMinutes: 60, Capacity: 10},
	}

	_, err := Materialize(1, occurrences, september, nil, Options{Now: date(2026, time.August, 31)})
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestMaterialize_TouchingWindowsDoNotConflict(t *testing.T) {
	occurrences := []ResolvedOccurrence{
		{Weekday: time.Saturday, TimeOfDay: "10:00", DurationMinutes: 120, Capacity: 10},
		{Weekday: time.Saturday, TimeOfDay: "12:00", DurationMinutes: 60, Capacity: 10},
	}

	plan, err := Materialize(1, occurrences, september, nil, Options{Now: date(2026, time.August, 31)})
	require.NoError(t, err)
	assert.Len(t, plan.Create, 8)
}

func TestMaterialize_BuffersExtendTheWindow(t *testing.T) {
	// Встык по времени, но buffer after первого налезает на второй.
	occurrences := []ResolvedOccurrence{
		{Weekday: time.Saturday, TimeOfDay: "10:00", DurationMinutes: 120, Capacity: 10, BufferAfterMinutes: 15},
		{Weekday: time.Saturday, TimeOfDay: "12:00", DurationMinutes: 60, Capacity: 10},
	}

	_, err := Materialize(1, occurrences, september, nil, Options{Now: date(2026, time.August, 31)})
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestMaterialize_ReplaceRetiresOnlyFreeFutureSlots(t *testing.T) {
	now := date(2026, time.September, 10)
	orphanStart := date(2026, time.September, 16).Add(10 * time.Hour) // среда, вне нового правила

	existing := []ExistingSlot{
		{SlotInstance: models.SlotInstance{
			ID: 1, ExperienceID: 1, Status: models.SlotScheduled,
			StartDatetime: orphanStart, EndDatetime: orphanStart.Add(2 * time.Hour), CapacityTotal: 12,
		}},
		{SlotInstance: models.SlotInstance{
			ID: 2, ExperienceID: 1, Status: models.SlotScheduled,
			StartDatetime: orphanStart.AddDate(0, 0, 7), EndDatetime: orphanStart.AddDate(0, 0, 7).Add(2 * time.Hour), CapacityTotal: 12,
		}, ActiveReservations: 3},
		{SlotInstance: models.SlotInstance{
			ID: 3, ExperienceID: 1, Status: models.SlotScheduled,
			StartDatetime: orphanStart.AddDate(0, 0, -14), EndDatetime: orphanStart.AddDate(0, 0, -14).Add(2 * time.Hour), CapacityTotal: 12,
		}},
	}

	plan, err := Materialize(1, saturdayMornings(), september, existing, Options{
		ReplaceExisting: true,
		Now:             now,
	})
	require.NoError(t, err)

	// Забронированный слот и прошедший слот не трогаем, свободный будущий - в retire.
	assert.Equal(t, []int64{1}, plan.Retire)
}

func TestMaterialize_NewSlotCannotLandOnExistingWindow(t *testing.T) {
	busyStart := date(2026, time.September, 5).Add(9*time.Hour + 30*time.Minute)
	existing := []ExistingSlot{
		{SlotInstance: models.SlotInstance{
			ID: 7, ExperienceID: 1, Status: models.SlotScheduled,
			StartDatetime: busyStart, EndDatetime: busyStart.Add(2 * time.Hour), CapacityTotal: 12,
		}, ActiveReservations: 1},
	}

	_, err := Materialize(1, saturdayMornings(), september, existing, Options{
		ReplaceExisting: true,
		Now:             date(2026, time.August, 31),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestMaterialize_UpdateCannotWidenBuffersIntoKeptSlot(t *testing.T) {
	day := DateRange{From: date(2026, time.September, 5), To: date(2026, time.September, 5)}
	morningStart := date(2026, time.September, 5).Add(10 * time.Hour)
	bookedStart := date(2026, time.September, 5).Add(12*time.Hour + 30*time.Minute)

	existing := []ExistingSlot{
		{SlotInstance: models.SlotInstance{
			ID: 1, ExperienceID: 1, Status: models.SlotScheduled,
			StartDatetime: morningStart, EndDatetime: morningStart.Add(2 * time.Hour), CapacityTotal: 12,
		}},
		{SlotInstance: models.SlotInstance{
			ID: 2, ExperienceID: 1, Status: models.SlotScheduled,
			StartDatetime: bookedStart, EndDatetime: bookedStart.Add(time.Hour), CapacityTotal: 12,
		}, ActiveReservations: 2},
	}

	// Расширение buffer after до 60 минут растягивает окно до 13:00 -
	// поверх забронированного соседа, который никогда не отзывается.
	widened := []ResolvedOccurrence{
		{Weekday: time.Saturday, TimeOfDay: "10:00", DurationMinutes: 120, Capacity: 12, BufferAfterMinutes: 60},
	}
	_, err := Materialize(1, widened, day, existing, Options{Now: date(2026, time.August, 31)})
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))

	// Буфер до 15 минут (окно до 12:15) соседа не касается.
	modest := []ResolvedOccurrence{
		{Weekday: time.Saturday, TimeOfDay: "10:00", DurationMinutes: 120, Capacity: 12, BufferAfterMinutes: 15},
	}
	plan, err := Materialize(1, modest, day, existing, Options{Now: date(2026, time.August, 31)})
	require.NoError(t, err)
	require.Len(t, plan.Update, 1)
	assert.Equal(t, int64(1), plan.Update[0].ID)
	assert.Equal(t, 15, plan.Update[0].BufferAfterMinutes)
}

func TestMaterialize_RetiredSlotFreesItsWindow(t *testing.T) {
	busyStart := date(2026, time.September, 5).Add(9*time.Hour + 30*time.Minute)
	existing := []ExistingSlot{
		{SlotInstance: models.SlotInstance{
			ID: 7, ExperienceID: 1, Status: models.SlotScheduled,
			StartDatetime: busyStart, EndDatetime: busyStart.Add(2 * time.Hour), CapacityTotal: 12,
		}},
	}

	plan, err := Materialize(1, saturdayMornings(), september, existing, Options{
		ReplaceExisting: true,
		Now:             date(2026, time.August, 31),
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, plan.Retire)
	assert.Len(t, plan.Create, 4)
}

func TestCheckMove(t *testing.T) {
	start := date(2026, time.September, 5).Add(10 * time.Hour)
	slot := &models.SlotInstance{
		ID: 1, Status: models.SlotScheduled,
		StartDatetime: start, EndDatetime: start.Add(2 * time.Hour),
	}
	siblings := []models.SlotInstance{
		*slot,
		{
			ID: 2, Status: models.SlotScheduled,
			StartDatetime:       start.Add(3 * time.Hour),
			EndDatetime:         start.Add(4 * time.Hour),
			BufferBeforeMinutes: 30,
		},
	}

	// 11:00-13:00 залезает в буферное окно соседа (12:30-14:00).
	err := CheckMove(slot, start.Add(time.Hour), siblings)
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))

	// Сдвиг назад на час никого не касается.
	require.NoError(t, CheckMove(slot, start.Add(-time.Hour), siblings))

	// Встык к буферному окну соседа (конец ровно 12:30) допустим.
	require.NoError(t, CheckMove(slot, start.Add(30*time.Minute), siblings))
}
