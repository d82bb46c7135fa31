package schedule

import (
	"fmt"
	"sort"
	"time"

	"kestrel/internal/errors"
	"kestrel/internal/models"
)

// DateRange is an inclusive window of calendar dates (UTC).
type DateRange struct {
	From time.Time
	To   time.Time
}

// ExistingSlot is a snapshot of a persisted slot plus the number of
// non-cancelled reservations attached to it.
type ExistingSlot struct {
	models.SlotInstance
	ActiveReservations int
}

// Options controls a materialization run. CapacityPerType, when set, is
// stamped onto every created slot from the experience's ticket schema.
type Options struct {
	ReplaceExisting bool
	CapacityPerType map[string]int
	Now             time.Time
}

// MaterializationPlan is the diff between the resolved schedule and the
// existing slot set. Applying it is all-or-nothing.
type MaterializationPlan struct {
	Create []models.SlotInstance
	Update []models.SlotInstance
	Retire []int64
}

// Empty reports whether the plan changes nothing.
func (p *MaterializationPlan) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Retire) == 0
}

// Materialize projects occurrences across every matching calendar date in the
// window and diffs the candidates against the existing slots.
//
// Any two candidates whose buffered windows intersect make the whole run fail
// with a SlotOverlap error: that is a configuration mistake the operator must
// fix, not something to resolve silently. A candidate sharing a start with an
// existing slot becomes an update touching only capacity and buffers. With
// ReplaceExisting, future reservation-free slots missing from the candidate
// set are retired; slots carrying reservations are left scheduled untouched.
func Materialize(experienceID int64, occurrences []ResolvedOccurrence, window DateRange, existing []ExistingSlot, opts Options) (*MaterializationPlan, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	candidates, err := project(experienceID, occurrences, window, opts.CapacityPerType)
	if err != nil {
		return nil, err
	}

	if err := checkCandidateOverlap(candidates); err != nil {
		return nil, err
	}

	byStart := make(map[time.Time]*ExistingSlot, len(existing))
	for i := range existing {
		byStart[existing[i].StartDatetime.UTC()] = &existing[i]
	}
	planned := make(map[time.Time]bool, len(candidates))
	for _, cand := range candidates {
		planned[cand.StartDatetime] = true
	}

	// Retirement is decided before the cross-check below: a retired slot
	// frees its buffered window for new candidates.
	plan := &MaterializationPlan{}
	retiring := make(map[int64]bool)
	if opts.ReplaceExisting {
		for i := range existing {
			ex := &existing[i]
			if planned[ex.StartDatetime.UTC()] || ex.Status != models.SlotScheduled {
				continue
			}
			if !ex.StartDatetime.After(now) {
				continue
			}
			if ex.ActiveReservations > 0 {
				// Never pull a slot out from under booked guests.
				continue
			}
			plan.Retire = append(plan.Retire, ex.ID)
			retiring[ex.ID] = true
		}
	}

	// Every candidate window, created or updated, must clear the buffered
	// windows of slots that survive the plan untouched. Slots whose start is
	// planned are skipped here: their post-plan geometry is a candidate and
	// the candidate sweep above already checked every candidate pair.
	keptConflict := func(slot *models.SlotInstance, selfID int64) *ExistingSlot {
		for i := range existing {
			keep := &existing[i]
			if keep.ID == selfID || keep.Status != models.SlotScheduled || retiring[keep.ID] {
				continue
			}
			if planned[keep.StartDatetime.UTC()] {
				continue
			}
			if overlapsBuffered(slot, &keep.SlotInstance) {
				return keep
			}
		}
		return nil
	}

	for _, cand := range candidates {
		ex, ok := byStart[cand.StartDatetime]
		if !ok {
			if keep := keptConflict(&cand, 0); keep != nil {
				return nil, errors.NewSlotOverlap(
					"new slot %s intersects buffered window of existing slot %d",
					cand.StartDatetime.Format(time.RFC3339), keep.ID)
			}
			plan.Create = append(plan.Create, cand)
			continue
		}

		// Same (experience, start): refresh capacity and buffers only, never
		// reservation-bearing fields. Unchanged slots stay out of the plan so
		// a repeated run produces an empty diff.
		if ex.CapacityTotal != cand.CapacityTotal ||
			ex.BufferBeforeMinutes != cand.BufferBeforeMinutes ||
			ex.BufferAfterMinutes != cand.BufferAfterMinutes ||
			!equalCaps(ex.CapacityPerType, cand.CapacityPerType) {
			upd := ex.SlotInstance
			upd.CapacityTotal = cand.CapacityTotal
			upd.CapacityPerType = cand.CapacityPerType
			upd.BufferBeforeMinutes = cand.BufferBeforeMinutes
			upd.BufferAfterMinutes = cand.BufferAfterMinutes
			if keep := keptConflict(&upd, ex.ID); keep != nil {
				return nil, errors.NewSlotOverlap(
					"updated slot %d would intersect buffered window of existing slot %d",
					ex.ID, keep.ID)
			}
			plan.Update = append(plan.Update, upd)
		}
	}

	return plan, nil
}

// CheckMove validates that a slot moved to newStart keeps clear of the
// buffered windows of its sibling slots.
func CheckMove(slot *models.SlotInstance, newStart time.Time, siblings []models.SlotInstance) error {
	duration := slot.EndDatetime.Sub(slot.StartDatetime)
	moved := *slot
	moved.StartDatetime = newStart.UTC()
	moved.EndDatetime = newStart.UTC().Add(duration)

	for i := range siblings {
		sib := &siblings[i]
		if sib.ID == slot.ID || sib.Status != models.SlotScheduled {
			continue
		}
		if overlapsBuffered(&moved, sib) {
			return errors.NewSlotOverlap(
				"moved slot %d would intersect buffered window of slot %d", slot.ID, sib.ID)
		}
	}
	return nil
}

// checkCandidateOverlap fails fast on the first pair of candidates whose
// buffered windows intersect. Candidates are ordered by window start so a
// running max-end sweep finds every conflict.
func checkCandidateOverlap(candidates []models.SlotInstance) error {
	if len(candidates) < 2 {
		return nil
	}
	idx := make([]int, len(candidates))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		aStart, _ := candidates[idx[i]].BufferedWindow()
		bStart, _ := candidates[idx[j]].BufferedWindow()
		return aStart.Before(bStart)
	})

	prev := idx[0]
	_, maxEnd := candidates[prev].BufferedWindow()
	for _, cur := range idx[1:] {
		start, end := candidates[cur].BufferedWindow()
		if start.Before(maxEnd) {
			return errors.NewSlotOverlap(
				"slot %s and slot %s have intersecting buffered windows",
				candidates[prev].StartDatetime.Format(time.RFC3339),
				candidates[cur].StartDatetime.Format(time.RFC3339))
		}
		if end.After(maxEnd) {
			maxEnd = end
			prev = cur
		}
	}
	return nil
}

func project(experienceID int64, occurrences []ResolvedOccurrence, window DateRange, perType map[string]int) ([]models.SlotInstance, error) {
	from := truncateToDay(window.From)
	to := truncateToDay(window.To)
	if to.Before(from) {
		return nil, fmt.Errorf("materialization window end %s before start %s",
			window.To.Format("2006-01-02"), window.From.Format("2006-01-02"))
	}

	byWeekday := make(map[time.Weekday][]ResolvedOccurrence)
	for _, occ := range occurrences {
		byWeekday[occ.Weekday] = append(byWeekday[occ.Weekday], occ)
	}

	var out []models.SlotInstance
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		for _, occ := range byWeekday[date.Weekday()] {
			tod, err := time.Parse("15:04", occ.TimeOfDay)
			if err != nil {
				return nil, fmt.Errorf("invalid time of day %q: %w", occ.TimeOfDay, err)
			}
			start := date.Add(time.Duration(tod.Hour())*time.Hour + time.Duration(tod.Minute())*time.Minute)
			out = append(out, models.SlotInstance{
				ExperienceID:        experienceID,
				StartDatetime:       start,
				EndDatetime:         start.Add(time.Duration(occ.DurationMinutes) * time.Minute),
				CapacityTotal:       occ.Capacity,
				CapacityPerType:     perType,
				Status:              models.SlotScheduled,
				BufferBeforeMinutes: occ.BufferBeforeMinutes,
				BufferAfterMinutes:  occ.BufferAfterMinutes,
			})
		}
	}
	return out, nil
}

// overlapsBuffered uses half-open interval intersection: windows that merely
// touch at an endpoint do not conflict.
func overlapsBuffered(a, b *models.SlotInstance) bool {
	aStart, aEnd := a.BufferedWindow()
	bStart, bEnd := b.BufferedWindow()
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func equalCaps(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
