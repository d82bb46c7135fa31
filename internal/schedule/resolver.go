package schedule

import (
	"fmt"
	"sort"
	"time"

	"kestrel/internal/errors"
	"kestrel/internal/models"
)

// OccurrenceDefaults supplies the values an override inherits when it leaves
// capacity or buffers unset. Duration always inherits from the rule itself.
type OccurrenceDefaults struct {
	Capacity            int
	BufferBeforeMinutes int
	BufferAfterMinutes  int
}

// ResolvedOccurrence is one concrete (weekday, time-of-day) slot definition
// ready for materialization.
type ResolvedOccurrence struct {
	Weekday             time.Weekday
	TimeOfDay           string // "15:04"
	DurationMinutes     int
	Capacity            int
	BufferBeforeMinutes int
	BufferAfterMinutes  int
}

// Resolve expands a weekly recurrence rule into concrete occurrences. An
// inactionable rule (no days or no time slots) resolves to an empty list, not
// an error. Two overrides landing on the same (day, time) pair are ambiguous
// configuration and fail with a ConflictingOverride error.
func Resolve(rule *models.RecurrenceRule, defaults OccurrenceDefaults) ([]ResolvedOccurrence, error) {
	if !rule.IsActionable() {
		return []ResolvedOccurrence{}, nil
	}
	if rule.Frequency != "" && rule.Frequency != "weekly" {
		return nil, fmt.Errorf("unsupported recurrence frequency %q", rule.Frequency)
	}
	if rule.DurationMinutes <= 0 {
		return nil, fmt.Errorf("recurrence duration must be positive, got %d", rule.DurationMinutes)
	}

	ruleDays := make(map[time.Weekday]bool, len(rule.Days))
	for _, d := range rule.Days {
		ruleDays[d] = true
	}

	seen := make(map[string]bool)
	var out []ResolvedOccurrence
	for _, slot := range rule.TimeSlots {
		if _, err := time.Parse("15:04", slot.TimeOfDay); err != nil {
			return nil, fmt.Errorf("invalid time of day %q: %w", slot.TimeOfDay, err)
		}

		days := rule.Days
		if len(slot.Days) > 0 {
			// An override may narrow, never widen, the rule's day set.
			days = nil
			for _, d := range slot.Days {
				if ruleDays[d] {
					days = append(days, d)
				}
			}
		}

		for _, day := range days {
			key := fmt.Sprintf("%d@%s", day, slot.TimeOfDay)
			if seen[key] {
				return nil, errors.NewConflictingOverride(
					"two time slot overrides both define %s at %s", day, slot.TimeOfDay)
			}
			seen[key] = true

			occ := ResolvedOccurrence{
				Weekday:             day,
				TimeOfDay:           slot.TimeOfDay,
				DurationMinutes:     rule.DurationMinutes,
				Capacity:            defaults.Capacity,
				BufferBeforeMinutes: defaults.BufferBeforeMinutes,
				BufferAfterMinutes:  defaults.BufferAfterMinutes,
			}
			if slot.Capacity != nil {
				occ.Capacity = *slot.Capacity
			}
			if slot.BufferBeforeMinutes != nil {
				occ.BufferBeforeMinutes = *slot.BufferBeforeMinutes
			}
			if slot.BufferAfterMinutes != nil {
				occ.BufferAfterMinutes = *slot.BufferAfterMinutes
			}
			out = append(out, occ)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		return out[i].TimeOfDay < out[j].TimeOfDay
	})

	return out, nil
}
