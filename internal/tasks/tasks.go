// Package tasks schedules and runs background jobs over asynq.  The only
// job today is the periodic hold sweep; on-demand sweeps go through the
// admin endpoint instead.
package tasks

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/tessera-live/ticket-reservation/internal/logger"
	"github.com/tessera-live/ticket-reservation/internal/service"
)

// TypeSweepExpiredHolds reclaims seat holds whose expiry has passed.
const TypeSweepExpiredHolds = "holds:sweep"

// Handlers owns the task handler set.
type Handlers struct {
	sweeper *service.SweepService
}

// NewHandlers wires the task handlers.
func NewHandlers(sweeper *service.SweepService) *Handlers {
	return &Handlers{sweeper: sweeper}
}

// HandleSweepExpiredHolds runs one sweep pass.  The task carries no payload;
// each pass discovers its own candidates.
func (h *Handlers) HandleSweepExpiredHolds(ctx context.Context, _ *asynq.Task) error {
	res, err := h.sweeper.SweepOnce(ctx)
	if err != nil {
		logger.Get().Errorw("scheduled sweep failed", "error", err)
		return err
	}
	if res.SeatsReleased > 0 || res.CartsExpired > 0 {
		logger.Get().Infow("scheduled sweep",
			"seats_released", res.SeatsReleased, "carts_expired", res.CartsExpired)
	}
	return nil
}

// Run starts the asynq worker and the scheduler that enqueues a sweep every
// minute.  Blocks until the server stops; run it in its own goroutine.
func Run(redisAddr string, handlers *Handlers) error {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{"default": 1},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSweepExpiredHolds, handlers.HandleSweepExpiredHolds)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register("*/1 * * * *", asynq.NewTask(TypeSweepExpiredHolds, nil)); err != nil {
		return err
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Get().Errorw("asynq scheduler stopped", "error", err)
		}
	}()

	return srv.Run(mux)
}
