// Package jobs runs the background schedule: the cadence summary check and
// the daily retention sweep.
package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"nuuko/internal/store"
	"nuuko/internal/summary"
)

// Scheduler owns the gocron instance and the two recurring jobs.
type Scheduler struct {
	scheduler gocron.Scheduler
	store     *store.Store
	summaries *summary.Service
}

// NewScheduler creates the scheduler. Jobs run in UTC.
func NewScheduler(st *store.Store, summaries *summary.Service) (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{
		scheduler: scheduler,
		store:     st,
		summaries: summaries,
	}, nil
}

// Start registers and starts the recurring jobs: the cadence summary check
// every hour and the retention sweep daily at 02:00 UTC.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(s.runCadenceSummary),
		gocron.WithName("cadence_summary"),
	); err != nil {
		return fmt.Errorf("register cadence summary job: %w", err)
	}

	if _, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(2, 0, 0))),
		gocron.NewTask(s.runRetentionSweep),
		gocron.WithName("retention_sweep"),
	); err != nil {
		return fmt.Errorf("register retention sweep job: %w", err)
	}

	s.scheduler.Start()
	log.Println("✅ [JOBS] Scheduler started (cadence summary hourly, retention sweep daily 2 AM UTC)")
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	log.Println("🛑 [JOBS] Stopping scheduler...")
	return s.scheduler.Shutdown()
}
