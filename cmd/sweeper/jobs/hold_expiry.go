package jobs

import (
	"context"
	"log/slog"
	"time"

	"kestrel/internal/service"
)

// HoldExpiryJob cancels pending requests whose hold has timed out. The sweep
// query is only a candidate list: each cancellation re-checks status and
// deadline under the slot lock, so a request approved after the query but
// before the lock survives.
type HoldExpiryJob struct {
	reservations *service.ReservationService
	interval     time.Duration
	ticker       *time.Ticker
	done         chan bool
}

// NewHoldExpiryJob creates a new hold expiry job
func NewHoldExpiryJob(reservations *service.ReservationService, interval time.Duration) *HoldExpiryJob {
	return &HoldExpiryJob{
		reservations: reservations,
		interval:     interval,
		done:         make(chan bool),
	}
}

// Start begins the background sweep
func (j *HoldExpiryJob) Start(ctx context.Context) {
	slog.Info("starting hold expiry job", "interval", j.interval)

	j.ticker = time.NewTicker(j.interval)

	// Первый проход сразу, не дожидаясь тикера
	go j.sweep(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.sweep(ctx)
			case <-j.done:
				slog.Info("hold expiry job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background job
func (j *HoldExpiryJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *HoldExpiryJob) sweep(ctx context.Context) {
	now := time.Now().UTC()

	candidates, err := j.reservations.ListExpiredHolds(ctx, now)
	if err != nil {
		slog.Error("failed to list expired holds", "error", err)
		return
	}
	if len(candidates) == 0 {
		slog.Debug("no expired holds found")
		return
	}

	slog.Info("found expired holds to process", "count", len(candidates))

	expired := 0
	for i := range candidates {
		ok, err := j.reservations.ExpireHold(ctx, candidates[i].ID, now)
		if err != nil {
			slog.Error("failed to expire hold", "reservation_id", candidates[i].ID, "error", err)
			continue
		}
		if ok {
			expired++
		}
	}
	slog.Info("hold expiry sweep complete", "candidates", len(candidates), "expired", expired)
}
