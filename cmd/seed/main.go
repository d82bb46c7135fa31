package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"kestrel/internal/config"
	"kestrel/internal/database"
	"kestrel/internal/models"
	"kestrel/internal/repository"
	"kestrel/internal/service"
)

var (
	weeks = flag.Int("weeks", 4, "Materialization horizon in weeks from today")
	title = flag.String("title", "Sunset Kayak Tour", "Title of the demo experience")
)

// demoSchedule - расписание демонстрационного experience. Вечерний слот с
// буферами заканчивает своё окно в 20:15, поэтому поздний weekend-слот
// начинается в 20:30.
func demoSchedule() *models.UpdateScheduleRequest {
	adultMin := 1
	childMax := 6
	bufBefore := 15
	bufAfter := 15
	weekendCap := 16

	return &models.UpdateScheduleRequest{
		Recurrence: &models.RecurrenceRule{
			Frequency:       "weekly",
			Days:            []time.Weekday{time.Wednesday, time.Friday, time.Saturday, time.Sunday},
			DurationMinutes: 120,
			TimeSlots: []models.TimeSlotOverride{
				{TimeOfDay: "10:00"},
				{TimeOfDay: "18:00", BufferBeforeMinutes: &bufBefore, BufferAfterMinutes: &bufAfter},
				{TimeOfDay: "20:30", Days: []time.Weekday{time.Saturday, time.Sunday}, Capacity: &weekendCap},
			},
		},
		TicketTypes: []models.TicketType{
			{Slug: "adult", Label: "Adult", Price: 4500, MinPerBooking: &adultMin, UseAsPriceFrom: true},
			{Slug: "child", Label: "Child (6-12)", Price: 2500, MaxPerBooking: &childMax},
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

// Seed создаёт демонстрационный experience с расписанием и материализует
// слоты на несколько недель вперёд. Удобно для локальной разработки и
// smoke-тестов.
func main() {
	flag.Parse()

	slog.Info("starting seed...")

	cfg := config.Load()
	db, err := database.Connect(cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(service.Deps{
		Repos:   repos,
		Booking: cfg.Booking,
	})

	ctx := context.Background()

	description := "Paddle out at golden hour with a certified guide."
	exp, err := services.Experiences.Create(ctx, &models.CreateExperienceRequest{
		Title:       *title,
		Description: &description,
	})
	if err != nil {
		slog.Error("failed to create experience", "error", err)
		os.Exit(1)
	}
	slog.Info("experience created", "experience_id", exp.ID)

	if _, err := services.Experiences.UpdateSchedule(ctx, exp.ID, demoSchedule()); err != nil {
		slog.Error("failed to update schedule", "error", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	resp, err := services.Slots.Materialize(ctx, exp.ID, &models.MaterializeRequest{
		From: now.Format("2006-01-02"),
		To:   now.AddDate(0, 0, *weeks*7).Format("2006-01-02"),
	})
	if err != nil {
		slog.Error("failed to materialize slots", "error", err)
		os.Exit(1)
	}

	slog.Info("seed completed successfully!",
		"experience_id", exp.ID, "created", resp.Created, "updated", resp.Updated, "retired", resp.Retired)
}
