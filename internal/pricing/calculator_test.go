package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kestrel/internal/models"
)

func kayakTour() *models.Experience {
	return &models.Experience{
		ID:       1,
		Currency: "EUR",
		TicketTypes: []models.TicketType{
			{Slug: "adult", Label: "Adult", Price: 4500},
			{Slug: "child", Label: "Child", Price: 2500},
		},
		AddonTypes: []models.AddonType{
			{Slug: "photos", Label: "Photo package", Price: 1500, PricingMode: models.PricingPerBooking},
			{Slug: "wetsuit", Label: "Wetsuit rental", Price: 500, PricingMode: models.PricingPerPerson},
		},
		Adjustments: []models.PriceAdjustment{
			{Label: "Weekend evening", Weekdays: []time.Weekday{time.Saturday, time.Sunday}, StartHour: 17, EndHour: 22, Percent: 20},
		},
	}
}

// Суббота 18:00 - попадает в weekend evening adjustment.
var saturdayEvening = time.Date(2026, time.September, 5, 18, 0, 0, 0, time.UTC)

// Среда 10:00 - не попадает.
var wednesdayMorning = time.Date(2026, time.September, 2, 10, 0, 0, 0, time.UTC)

func TestCalculateBreakdown_TicketLines(t *testing.T) {
	b := CalculateBreakdown(kayakTour(), wednesdayMorning, map[string]int{"adult": 2, "child": 1}, nil)

	require.Len(t, b.TicketLines, 2)
	assert.Equal(t, int64(9000), b.TicketLines[0].LineTotal)
	assert.Equal(t, int64(2500), b.TicketLines[1].LineTotal)
	assert.Equal(t, int64(11500), b.Subtotal)
	assert.Equal(t, int64(11500), b.Total)
	assert.Empty(t, b.Adjustments)
	assert.Equal(t, "EUR", b.Currency)
}

func TestCalculateBreakdown_AddonModes(t *testing.T) {
	b := CalculateBreakdown(kayakTour(), wednesdayMorning,
		map[string]int{"adult": 2, "child": 1},
		map[string]float64{"photos": 1, "wetsuit": 1})

	require.Len(t, b.AddonLines, 2)
	// per_booking: один на бронирование, сколько бы людей ни было
	assert.Equal(t, 1, b.AddonLines[0].Quantity)
	assert.Equal(t, int64(1500), b.AddonLines[0].LineTotal)
	// per_person: умножается на общий pax
	assert.Equal(t, 3, b.AddonLines[1].Quantity)
	assert.Equal(t, int64(1500), b.AddonLines[1].LineTotal)
	assert.Equal(t, int64(14500), b.Subtotal)
}

func TestCalculateBreakdown_AdjustmentAtSlotStart(t *testing.T) {
	pax := map[string]int{"adult": 2}

	weekend := CalculateBreakdown(kayakTour(), saturdayEvening, pax, nil)
	require.Len(t, weekend.Adjustments, 1)
	assert.Equal(t, int64(1800), weekend.Adjustments[0].Amount) // 20% от 9000
	assert.Equal(t, int64(10800), weekend.Total)

	weekday := CalculateBreakdown(kayakTour(), wednesdayMorning, pax, nil)
	assert.Empty(t, weekday.Adjustments)
	assert.Equal(t, int64(9000), weekday.Total)
}

func TestCalculateBreakdown_ZeroSlotStartSkipsAdjustments(t *testing.T) {
	b := CalculateBreakdown(kayakTour(), time.Time{}, map[string]int{"adult": 1}, nil)
	assert.Empty(t, b.Adjustments)
	assert.Equal(t, int64(4500), b.Total)
}

func TestCalculateBreakdown_UnknownSlugsIgnored(t *testing.T) {
	b := CalculateBreakdown(kayakTour(), wednesdayMorning,
		map[string]int{"adult": 1, "senior": 3},
		map[string]float64{"parking": 1})

	require.Len(t, b.TicketLines, 1)
	assert.Empty(t, b.AddonLines)
	assert.Equal(t, int64(4500), b.Total)
}

func TestCalculateBreakdown_Deterministic(t *testing.T) {
	pax := map[string]int{"child": 2, "adult": 1}
	addons := map[string]float64{"wetsuit": 1, "photos": 1}

	first := CalculateBreakdown(kayakTour(), saturdayEvening, pax, addons)
	for i := 0; i < 10; i++ {
		again := CalculateBreakdown(kayakTour(), saturdayEvening, pax, addons)
		assert.Equal(t, first, again)
	}
	// Порядок строк следует schema, не map-итерации.
	assert.Equal(t, "adult", first.TicketLines[0].Slug)
	assert.Equal(t, "child", first.TicketLines[1].Slug)
	assert.Equal(t, "photos", first.AddonLines[0].Slug)
}

func TestCalculateBreakdown_EmptyPartyIsZero(t *testing.T) {
	b := CalculateBreakdown(kayakTour(), wednesdayMorning, nil, map[string]float64{"photos": 1})
	assert.Empty(t, b.TicketLines)
	// per_booking addon без участников всё равно тарифицируется один раз
	require.Len(t, b.AddonLines, 1)
	assert.Equal(t, int64(1500), b.Total)
}

func TestPriceFrom(t *testing.T) {
	exp := kayakTour()
	require.NotNil(t, exp.PriceFrom())
	assert.Equal(t, int64(2500), *exp.PriceFrom()) // cheapest wins

	exp.TicketTypes[0].UseAsPriceFrom = true
	assert.Equal(t, int64(4500), *exp.PriceFrom()) // flagged overrides cheapest

	empty := &models.Experience{}
	assert.Nil(t, empty.PriceFrom())
}
