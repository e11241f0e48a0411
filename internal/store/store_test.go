package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"nuuko/internal/models"
	"nuuko/internal/pubsub"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(context.Background(), Options{
		DatabasePath: filepath.Join(dir, "test.db"),
		DataDir:      filepath.Join(dir, "flat"),
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func testEntry(id string, createdAt time.Time, words int) models.Entry {
	return models.Entry{ID: id, CreatedAt: createdAt, Content: "hello", WordCount: words}
}

func TestSaveEntryRequiresID(t *testing.T) {
	s := openTestStore(t)
	_, err := s.SaveEntry(context.Background(), models.Entry{Content: "no id"})
	if err != ErrEntryIDRequired {
		t.Fatalf("expected ErrEntryIDRequired, got %v", err)
	}
}

func TestSaveEntryAssignsTimestamps(t *testing.T) {
	s := openTestStore(t)
	saved, err := s.SaveEntry(context.Background(), models.Entry{ID: "e1", Content: "three word entry"})
	if err != nil {
		t.Fatalf("SaveEntry failed: %v", err)
	}
	if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
		t.Errorf("timestamps not assigned: %+v", saved)
	}
	if saved.WordCount != 3 {
		t.Errorf("expected derived word count 3, got %d", saved.WordCount)
	}
	if saved.Tags == nil {
		t.Error("tags should be normalized to empty slice")
	}
	if !saved.Included() {
		t.Error("includeInSummaries should default to true")
	}
}

func TestSaveEntryUpsertsAndSortsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-48 * time.Hour)

	for i, id := range []string{"a", "b", "c"} {
		if _, err := s.SaveEntry(ctx, testEntry(id, base.Add(time.Duration(i)*time.Hour), 10)); err != nil {
			t.Fatalf("SaveEntry %s failed: %v", id, err)
		}
	}

	entries := s.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ID != "c" || entries[2].ID != "a" {
		t.Errorf("entries not newest-first: %s, %s, %s", entries[0].ID, entries[1].ID, entries[2].ID)
	}

	// Updating an existing id must not grow the set.
	updated := testEntry("b", base.Add(time.Hour), 99)
	updated.Content = "rewritten"
	if _, err := s.SaveEntry(ctx, updated); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	entries = s.Entries()
	if len(entries) != 3 {
		t.Fatalf("upsert duplicated entry, got %d", len(entries))
	}
	got := s.GetEntryByID("b")
	if got == nil || got.Content != "rewritten" {
		t.Errorf("upsert did not replace content: %+v", got)
	}
}

func TestRetentionPrunesOldest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	retention := models.RetentionPolicy{Type: models.RetentionTypeCount, Value: 2}
	if _, err := s.UpdateSettings(ctx, models.SettingsPatch{DataRetention: &retention}); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	base := time.Now().Add(-72 * time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		if _, err := s.SaveEntry(ctx, testEntry(id, base.Add(time.Duration(i)*time.Hour), 5)); err != nil {
			t.Fatalf("SaveEntry %s failed: %v", id, err)
		}
	}

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected retention to keep 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "new" || entries[1].ID != "mid" {
		t.Errorf("wrong survivors: %s, %s", entries[0].ID, entries[1].ID)
	}
	if got := s.Stats().TotalEntries; got != 2 {
		t.Errorf("stats not recomputed after prune: TotalEntries = %d", got)
	}
}

func TestDeleteEntryRecomputesStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := s.SaveEntry(ctx, testEntry("a", now.Add(-time.Hour), 10)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveEntry(ctx, testEntry("b", now, 20)); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEntry(ctx, "b"); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}

	stats := s.Stats()
	if stats.TotalEntries != 1 || stats.TotalWords != 10 {
		t.Errorf("stats stale after delete: %+v", stats)
	}

	// Deleting a missing id is a no-op.
	if err := s.DeleteEntry(ctx, "missing"); err != nil {
		t.Errorf("deleting missing id should not error: %v", err)
	}
}

func TestStatsOrderIndependent(t *testing.T) {
	now := time.Now()
	entries := []models.Entry{
		testEntry("a", now.Add(-48*time.Hour), 5),
		testEntry("b", now.Add(-24*time.Hour), 7),
		testEntry("c", now, 11),
	}
	reversed := []models.Entry{entries[2], entries[1], entries[0]}

	a := models.ComputeStats(entries, now)
	b := models.ComputeStats(reversed, now)
	if a.TotalWords != b.TotalWords || a.DaysSinceStart != b.DaysSinceStart {
		t.Errorf("stats depend on order: %+v vs %+v", a, b)
	}
	if a.DaysSinceStart != 3 {
		t.Errorf("expected 3 days since start, got %d", a.DaysSinceStart)
	}
	if a.LastEntryDate == nil || !a.LastEntryDate.Equal(now) {
		t.Errorf("wrong last entry date: %v", a.LastEntryDate)
	}
}

func TestLegacyMigrationRunsOnce(t *testing.T) {
	dir := t.TempDir()
	flatDir := filepath.Join(dir, "flat")
	dbPath := filepath.Join(dir, "app.db")
	ctx := context.Background()

	legacy := NewFlatBackend(flatDir)
	entries := []models.Entry{
		testEntry("legacy-1", time.Now().Add(-time.Hour), 4),
		testEntry("legacy-2", time.Now(), 6),
	}
	if err := legacy.writeJSON(keyEntries, entries); err != nil {
		t.Fatal(err)
	}
	if err := legacy.kv.Write(keyUserName, []byte("ada")); err != nil {
		t.Fatal(err)
	}

	s, err := Open(ctx, Options{DatabasePath: dbPath, DataDir: flatDir})
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	if s.BackendName() != "sqlite" {
		t.Fatalf("expected sqlite backend, got %s", s.BackendName())
	}
	if got := len(s.Entries()); got != 2 {
		t.Fatalf("expected 2 migrated entries, got %d", got)
	}
	if got := s.Settings().UserName; got != "ada" {
		t.Errorf("user name not migrated: %q", got)
	}

	// A second start must not re-run the migration even though the flag
	// store still exists.
	if legacy.kv.Has(keyEntries) {
		t.Error("legacy entries key should be erased after migration")
	}
	s2, err := Open(ctx, Options{DatabasePath: dbPath, DataDir: flatDir})
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	if got := len(s2.Entries()); got != 2 {
		t.Errorf("expected 2 entries after second open, got %d", got)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openTestStore(t)

	if _, err := src.SaveEntry(ctx, testEntry("e1", time.Now().Add(-time.Hour), 12)); err != nil {
		t.Fatal(err)
	}
	name := "ripley"
	if _, err := src.UpdateSettings(ctx, models.SettingsPatch{UserName: &name}); err != nil {
		t.Fatal(err)
	}
	if _, err := src.SaveSummaryRecord(ctx, models.SummaryRecord{ID: "s1", Text: "a week of notes"}); err != nil {
		t.Fatal(err)
	}

	payload := src.ExportData()

	dst := openTestStore(t)
	if err := dst.ImportData(ctx, payload); err != nil {
		t.Fatalf("ImportData failed: %v", err)
	}

	if got := len(dst.Entries()); got != 1 {
		t.Errorf("expected 1 entry after import, got %d", got)
	}
	if got := dst.Settings().UserName; got != "ripley" {
		t.Errorf("settings not imported: %q", got)
	}
	if got := len(dst.Summaries()); got != 1 {
		t.Errorf("expected 1 summary after import, got %d", got)
	}
	if got := dst.Stats().TotalWords; got != 12 {
		t.Errorf("stats not recomputed on import: TotalWords = %d", got)
	}
}

func TestClearAllDataResetsDefaults(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if _, err := s.SaveEntry(ctx, testEntry("e1", time.Now(), 3)); err != nil {
		t.Fatal(err)
	}
	name := "someone"
	if _, err := s.UpdateSettings(ctx, models.SettingsPatch{UserName: &name}); err != nil {
		t.Fatal(err)
	}

	if err := s.ClearAllData(ctx); err != nil {
		t.Fatalf("ClearAllData failed: %v", err)
	}
	if got := len(s.Entries()); got != 0 {
		t.Errorf("entries not cleared: %d", got)
	}
	defaults := models.DefaultSettings()
	if got := s.Settings(); got.UserName != defaults.UserName || got.CurrentPrompt != defaults.CurrentPrompt {
		t.Errorf("settings not reset to defaults: %+v", got)
	}
	if got := s.Stats().TotalEntries; got != 0 {
		t.Errorf("stats not reset: TotalEntries = %d", got)
	}
}

func TestSummaryRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rec, err := s.SaveSummaryRecord(ctx, models.SummaryRecord{Text: "first"})
	if err != nil {
		t.Fatalf("SaveSummaryRecord failed: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("summary id should be assigned when missing")
	}
	if rec.Status != models.SummaryStatusReady {
		t.Errorf("expected ready status, got %q", rec.Status)
	}

	if err := s.DeleteSummaryRecord(ctx, rec.ID); err != nil {
		t.Fatalf("DeleteSummaryRecord failed: %v", err)
	}
	if got := len(s.Summaries()); got != 0 {
		t.Errorf("summary not deleted: %d remain", got)
	}
}

func TestForeignNotificationRehydrates(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "shared.db")

	a, err := Open(ctx, Options{DatabasePath: dbPath, DataDir: filepath.Join(dir, "flat-a")})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Open(ctx, Options{DatabasePath: dbPath, DataDir: filepath.Join(dir, "flat-b")})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := a.SaveEntry(ctx, testEntry("shared", time.Now(), 2)); err != nil {
		t.Fatal(err)
	}
	// b has a stale cache until a notification arrives.
	if got := len(b.Entries()); got != 0 {
		t.Fatalf("expected stale cache before notification, got %d entries", got)
	}

	done := make(chan string, 1)
	b.SubscribeChanges(func(changeType string) { done <- changeType })
	b.handleForeign(pubsub.Message{Type: ChangeEntries, SourceID: a.SessionID()})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener never notified")
	}
	if got := len(b.Entries()); got != 1 {
		t.Errorf("cache not rehydrated, got %d entries", got)
	}
}
