package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kestrel/internal/schedule"
)

// Демо-расписание обязано проходить материализацию на любом окне: иначе
// сидер падает на первых же выходных.
func TestDemoScheduleMaterializes(t *testing.T) {
	req := demoSchedule()

	occ, err := schedule.Resolve(req.Recurrence, schedule.OccurrenceDefaults{Capacity: 10})
	require.NoError(t, err)
	require.NotEmpty(t, occ)

	window := schedule.DateRange{
		From: time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC),
	}
	plan, err := schedule.Materialize(1, occ, window, nil, schedule.Options{
		Now: time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, plan.Create)
}
