package summary

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"nuuko/internal/models"
	"nuuko/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(context.Background(), store.Options{
		DatabasePath: filepath.Join(dir, "test.db"),
		DataDir:      filepath.Join(dir, "flat"),
	})
	if err != nil {
		t.Fatalf("store open failed: %v", err)
	}
	return s
}

func seedEntries(t *testing.T, s *store.Store, n int) {
	t.Helper()
	ctx := context.Background()
	base := time.Now().Add(-time.Duration(n) * time.Hour)
	for i := 0; i < n; i++ {
		entry := models.Entry{
			ID:        time.Now().Format("20060102") + "-" + string(rune('a'+i)),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Content:   "a quiet day with some writing in it",
			WordCount: 8,
			Mood:      "calm",
		}
		if _, err := s.SaveEntry(ctx, entry); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestService(t *testing.T, s *store.Store, opts Options) *Service {
	t.Helper()
	opts.Store = s
	if opts.DataDir == "" {
		opts.DataDir = t.TempDir()
	}
	svc, err := NewService(opts)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestGenerateRejectsEmptyRange(t *testing.T) {
	s := testStore(t)
	svc := newTestService(t, s, Options{APIKey: "key", Threshold: 200000})

	_, err := svc.Generate(context.Background(), Request{Cadence: models.CadenceWeekly})
	if err != ErrNoEntries {
		t.Fatalf("expected ErrNoEntries, got %v", err)
	}
}

func TestGenerateRejectsMissingAPIKey(t *testing.T) {
	s := testStore(t)
	seedEntries(t, s, 2)
	svc := newTestService(t, s, Options{Threshold: 200000})

	_, err := svc.Generate(context.Background(), Request{Cadence: models.CadenceWeekly})
	if err != ErrNoAPIKey {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestGenerateOfflineQueues(t *testing.T) {
	s := testStore(t)
	seedEntries(t, s, 2)
	dir := t.TempDir()
	svc := newTestService(t, s, Options{APIKey: "key", Threshold: 200000, ForceOffline: true, DataDir: dir})

	res, err := svc.Generate(context.Background(), Request{Cadence: models.CadenceWeekly})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !res.Queued || res.Record != nil {
		t.Fatalf("expected queued result, got %+v", res)
	}
	if svc.QueueLength() != 1 {
		t.Errorf("expected 1 queued job, got %d", svc.QueueLength())
	}
	if len(s.Summaries()) != 0 {
		t.Error("no summary should be stored while offline")
	}

	// The job survives a restart.
	svc2 := newTestService(t, s, Options{APIKey: "key", Threshold: 200000, ForceOffline: true, DataDir: dir})
	if svc2.QueueLength() != 1 {
		t.Errorf("queue not persisted across restart: %d", svc2.QueueLength())
	}
}

func TestThresholdProducesLocalFallback(t *testing.T) {
	s := testStore(t)
	seedEntries(t, s, 3)
	svc := newTestService(t, s, Options{APIKey: "key", Threshold: 10})

	entries := svc.rangeEntries(Request{})
	record, err := svc.generateOnline(context.Background(), Request{Cadence: models.CadenceWeekly}, entries)
	if err != nil {
		t.Fatalf("generateOnline failed: %v", err)
	}
	if record.Status != models.SummaryStatusFallback {
		t.Errorf("expected fallback status, got %q", record.Status)
	}
	if record.Model != models.FallbackModelID {
		t.Errorf("expected fallback model id, got %q", record.Model)
	}
	if record.Text == "" {
		t.Error("fallback record must carry text")
	}
	if len(record.EntryIDs) != 3 {
		t.Errorf("fallback must cover all entries, got %d ids", len(record.EntryIDs))
	}

	events := svc.Telemetry()
	if len(events) == 0 || events[0].Kind != EventFallback || events[0].Reason != "threshold" {
		t.Errorf("expected threshold fallback telemetry, got %+v", events)
	}
}

func TestRangeEntriesFiltersExcluded(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	excluded := false
	if _, err := s.SaveEntry(ctx, models.Entry{ID: "in", CreatedAt: time.Now(), Content: "kept", WordCount: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveEntry(ctx, models.Entry{ID: "out", CreatedAt: time.Now(), Content: "private", WordCount: 1, IncludeInSummaries: &excluded}); err != nil {
		t.Fatal(err)
	}
	svc := newTestService(t, s, Options{APIKey: "key", Threshold: 200000})

	entries := svc.rangeEntries(Request{})
	if len(entries) != 1 || entries[0].ID != "in" {
		t.Errorf("excluded entry leaked into range: %+v", entries)
	}
}
