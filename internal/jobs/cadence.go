package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"nuuko/internal/models"
	"nuuko/internal/summary"
)

// cadenceWindow maps a cadence to its generation window.
func cadenceWindow(cadence string) (time.Duration, bool) {
	switch cadence {
	case models.CadenceWeekly:
		return 7 * 24 * time.Hour, true
	case models.CadenceMonthly:
		return 30 * 24 * time.Hour, true
	case models.CadenceYearly:
		return 365 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// runCadenceSummary fires hourly. When a full cadence window has elapsed
// since the last run it generates a summary over that window. The first run
// only sets the baseline so a fresh install does not immediately summarize
// its whole history.
func (s *Scheduler) runCadenceSummary() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	settings := s.store.Settings()
	window, ok := cadenceWindow(settings.SummaryCadence)
	if !ok {
		return // manual cadence
	}

	now := time.Now()
	if settings.LastSummaryRun == nil {
		if err := s.store.MarkSummaryRun(ctx, now); err != nil {
			log.Printf("⚠️ [JOBS] Could not set summary baseline: %v", err)
		}
		return
	}
	last := *settings.LastSummaryRun
	if now.Sub(last) < window {
		return
	}

	log.Printf("📝 [JOBS] Cadence window elapsed, generating %s summary", settings.SummaryCadence)
	res, err := s.summaries.Generate(ctx, summary.Request{
		Cadence:    settings.SummaryCadence,
		RangeStart: &last,
		RangeEnd:   &now,
	})
	if err != nil {
		if errors.Is(err, summary.ErrNoEntries) {
			// Nothing written this window; advance the baseline anyway.
			if markErr := s.store.MarkSummaryRun(ctx, now); markErr != nil {
				log.Printf("⚠️ [JOBS] Could not advance summary baseline: %v", markErr)
			}
			return
		}
		log.Printf("❌ [JOBS] Cadence summary failed: %v", err)
		return
	}

	if res.Queued {
		log.Println("📥 [JOBS] Cadence summary queued (offline); flush will record the run")
	}
	if err := s.store.MarkSummaryRun(ctx, now); err != nil {
		log.Printf("⚠️ [JOBS] Could not record summary run: %v", err)
	}
}

// runRetentionSweep re-applies the retention policy daily, catching policy
// changes made between entry saves.
func (s *Scheduler) runRetentionSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.store.ApplyRetention(ctx)
	if err != nil {
		log.Printf("❌ [JOBS] Retention sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("🧹 [JOBS] Retention sweep removed %d entries", removed)
	}
}
