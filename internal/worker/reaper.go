// Package worker hosts background jobs that run alongside the HTTP
// server.
package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cinebooker/cinebooker/internal/service"
)

// Reaper periodically releases seat locks that expired without a
// completed payment. Each pass is idempotent, so the schedule only
// bounds how stale a lock can get between the lazy sweeps done on
// seat-map reads.
type Reaper struct {
	svc      *service.BookingService
	interval time.Duration
	cron     *cron.Cron
}

func NewReaper(svc *service.BookingService, interval time.Duration) *Reaper {
	return &Reaper{svc: svc, interval: interval}
}

// Start schedules the sweep. Overlapping runs are skipped rather than
// queued, so a slow pass never piles up behind itself.
func (r *Reaper) Start() error {
	r.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	spec := fmt.Sprintf("@every %s", r.interval)
	if _, err := r.cron.AddFunc(spec, r.runOnce); err != nil {
		return fmt.Errorf("schedule reaper: %w", err)
	}
	r.cron.Start()
	return nil
}

// Stop halts the schedule and waits for an in-flight pass to finish.
func (r *Reaper) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

func (r *Reaper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := r.svc.Sweep(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("reaper: sweep failed: %v", err)
		return
	}
	if result.SeatsReleased > 0 || result.BookingsCancelled > 0 {
		log.Printf("reaper: released %d seats, cancelled %d bookings",
			result.SeatsReleased, result.BookingsCancelled)
	}
}
