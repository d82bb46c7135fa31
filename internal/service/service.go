// Package service реализует бизнес-логику движка: жизненный цикл
// бронирований, материализацию слотов и управление experiences. Все операции,
// меняющие занятость слота, выполняются под row-level блокировкой слота.
package service

import (
	"kestrel/internal/cache"
	"kestrel/internal/config"
	"kestrel/internal/logger"
	"kestrel/internal/messaging"
	"kestrel/internal/metrics"
	"kestrel/internal/repository"
	"kestrel/internal/search"
)

// Services объединяет все сервисы приложения
type Services struct {
	Experiences  *ExperienceService
	Slots        *SlotService
	Reservations *ReservationService
}

// Deps — внешние зависимости сервисов. NATS, cache, search и metrics могут
// быть nil: сервис деградирует до работы только с базой.
type Deps struct {
	Repos   *repository.Repositories
	NATS    *messaging.NATSClient
	Cache   *cache.Client
	Search  *search.Client
	Metrics *metrics.Metrics
	Booking config.Booking
}

// NewServices создаёт все сервисы приложения
func NewServices(deps Deps) *Services {
	return &Services{
		Experiences:  NewExperienceService(deps),
		Slots:        NewSlotService(deps),
		Reservations: NewReservationService(deps),
	}
}

// publishEvent отправляет событие в NATS. Ошибка публикации логируется и не
// прерывает операцию: доставка событий вторична по отношению к записи в базу.
func publishEvent(nats *messaging.NATSClient, subject string, event interface{}) {
	if nats == nil {
		return
	}
	if err := nats.Publish(subject, event); err != nil {
		logger.Get().Warn("failed to publish event", "subject", subject, "error", err)
	}
}
