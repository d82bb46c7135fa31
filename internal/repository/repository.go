package repository

import (
	"kestrel/internal/database"
)

type Repositories struct {
	Experiences  *ExperienceRepository
	Slots        *SlotRepository
	Reservations *ReservationRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Experiences:  NewExperienceRepository(db),
		Slots:        NewSlotRepository(db),
		Reservations: NewReservationRepository(db),
	}
}
