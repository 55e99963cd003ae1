// Package worker runs the in-process sweep loop used when no Redis-backed
// scheduler is available.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/tessera-live/ticket-reservation/internal/logger"
	"github.com/tessera-live/ticket-reservation/internal/service"
)

// Sweeper drives the hold sweep on a fixed ticker.
type Sweeper struct {
	sweeper  *service.SweepService
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewSweeper wires a Sweeper.
func NewSweeper(sweeper *service.SweepService, interval time.Duration) *Sweeper {
	return &Sweeper{sweeper: sweeper, interval: interval, stopCh: make(chan struct{})}
}

// Start launches the sweep loop in its own goroutine.
func (w *Sweeper) Start() {
	w.wg.Add(1)
	go w.run()
	logger.Get().Infow("sweep worker started", "interval", w.interval)
}

// Stop signals the loop to exit and waits for the in-flight pass to finish.
func (w *Sweeper) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	logger.Get().Infow("sweep worker stopped")
}

func (w *Sweeper) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), w.interval)
			if _, err := w.sweeper.SweepOnce(ctx); err != nil {
				logger.Get().Errorw("sweep pass failed", "error", err)
			}
			cancel()
		}
	}
}
