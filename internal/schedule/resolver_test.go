package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "kestrel/internal/errors"
	"kestrel/internal/models"
)

func TestResolve_EmptyRuleIsNotAnError(t *testing.T) {
	occ, err := Resolve(nil, OccurrenceDefaults{Capacity: 10})
	require.NoError(t, err)
	assert.Empty(t, occ)

	occ, err = Resolve(&models.RecurrenceRule{
		Frequency: "weekly",
		Days:      []time.Weekday{time.Monday},
	}, OccurrenceDefaults{Capacity: 10})
	require.NoError(t, err)
	assert.Empty(t, occ)
}

func TestResolve_InheritsDefaults(t *testing.T) {
	rule := &models.RecurrenceRule{
		Frequency:       "weekly",
		Days:            []time.Weekday{time.Saturday},
		DurationMinutes: 90,
		TimeSlots: []models.TimeSlotOverride{
			{TimeOfDay: "10:00"},
		},
	}

	occ, err := Resolve(rule, OccurrenceDefaults{Capacity: 12, BufferBeforeMinutes: 5, BufferAfterMinutes: 10})
	require.NoError(t, err)
	require.Len(t, occ, 1)
	assert.Equal(t, time.Saturday, occ[0].Weekday)
	assert.Equal(t, "10:00", occ[0].TimeOfDay)
	assert.Equal(t, 90, occ[0].DurationMinutes)
	assert.Equal(t, 12, occ[0].Capacity)
	assert.Equal(t, 5, occ[0].BufferBeforeMinutes)
	assert.Equal(t, 10, occ[0].BufferAfterMinutes)
}

func TestResolve_OverrideBeatsDefaults(t *testing.T) {
	capOverride := 20
	bufOverride := 30
	rule := &models.RecurrenceRule{
		Frequency:       "weekly",
		Days:            []time.Weekday{time.Friday},
		DurationMinutes: 60,
		TimeSlots: []models.TimeSlotOverride{
			{TimeOfDay: "18:00", Capacity: &capOverride, BufferAfterMinutes: &bufOverride},
		},
	}

	occ, err := Resolve(rule, OccurrenceDefaults{Capacity: 10})
	require.NoError(t, err)
	require.Len(t, occ, 1)
	assert.Equal(t, 20, occ[0].Capacity)
	assert.Equal(t, 30, occ[0].BufferAfterMinutes)
	assert.Equal(t, 0, occ[0].BufferBeforeMinutes)
}

func TestResolve_OverrideDaysNarrowRuleDays(t *testing.T) {
	rule := &models.RecurrenceRule{
		Frequency:       "weekly",
		Days:            []time.Weekday{time.Wednesday, time.Saturday},
		DurationMinutes: 60,
		TimeSlots: []models.TimeSlotOverride{
			{TimeOfDay: "10:00"},
			// Tuesday не входит в дни правила и молча отбрасывается
			{TimeOfDay: "20:00", Days: []time.Weekday{time.Saturday, time.Tuesday}},
		},
	}

	occ, err := Resolve(rule, OccurrenceDefaults{Capacity: 10})
	require.NoError(t, err)
	require.Len(t, occ, 3)

	var evenings []time.Weekday
	for _, o := range occ {
		if o.TimeOfDay == "20:00" {
			evenings = append(evenings, o.Weekday)
		}
	}
	assert.Equal(t, []time.Weekday{time.Saturday}, evenings)
}

func TestResolve_ConflictingOverride(t *testing.T) {
	rule := &models.RecurrenceRule{
		Frequency:       "weekly",
		Days:            []time.Weekday{time.Saturday},
		DurationMinutes: 60,
		TimeSlots: []models.TimeSlotOverride{
			{TimeOfDay: "10:00"},
			{TimeOfDay: "10:00", Days: []time.Weekday{time.Saturday}},
		},
	}

	_, err := Resolve(rule, OccurrenceDefaults{Capacity: 10})
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestResolve_RejectsBadInput(t *testing.T) {
	base := models.RecurrenceRule{
		Frequency:       "weekly",
		Days:            []time.Weekday{time.Monday},
		DurationMinutes: 60,
		TimeSlots:       []models.TimeSlotOverride{{TimeOfDay: "10:00"}},
	}

	monthly := base
	monthly.Frequency = "monthly"
	_, err := Resolve(&monthly, OccurrenceDefaults{})
	assert.Error(t, err)

	zeroDuration := base
	zeroDuration.DurationMinutes = 0
	_, err = Resolve(&zeroDuration, OccurrenceDefaults{})
	assert.Error(t, err)

	badTime := base
	badTime.TimeSlots = []models.TimeSlotOverride{{TimeOfDay: "25:99"}}
	_, err = Resolve(&badTime, OccurrenceDefaults{})
	assert.Error(t, err)
}

func TestResolve_SortedByDayThenTime(t *testing.T) {
	rule := &models.RecurrenceRule{
		Frequency:       "weekly",
		Days:            []time.Weekday{time.Saturday, time.Wednesday},
		DurationMinutes: 60,
		TimeSlots: []models.TimeSlotOverride{
			{TimeOfDay: "18:00"},
			{TimeOfDay: "09:00"},
		},
	}

	occ, err := Resolve(rule, OccurrenceDefaults{Capacity: 10})
	require.NoError(t, err)
	require.Len(t, occ, 4)
	assert.Equal(t, time.Wednesday, occ[0].Weekday)
	assert.Equal(t, "09:00", occ[0].TimeOfDay)
	assert.Equal(t, time.Wednesday, occ[1].Weekday)
	assert.Equal(t, "18:00", occ[1].TimeOfDay)
	assert.Equal(t, time.Saturday, occ[2].Weekday)
}
