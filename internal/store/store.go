package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"nuuko/internal/database"
	"nuuko/internal/models"
	"nuuko/internal/pubsub"
)

// ErrEntryIDRequired is returned when a save arrives without an id. Entry ids
// are caller-assigned; the store never invents one.
var ErrEntryIDRequired = errors.New("entry id is required")

// Options configures backend selection and cross-instance notifications.
// SessionID should match the notifier's so own notifications are filtered;
// a fresh one is generated when empty.
type Options struct {
	DatabasePath string
	DataDir      string
	Notifier     pubsub.Notifier
	SessionID    string
}

// Listener receives local change notifications (one change type per call).
type Listener func(changeType string)

// Store is the single authority over journal data. It keeps an in-memory
// cache in front of a durable backend; all reads are served from cache and
// all mutators serialize through one mutex, so interleaved operations always
// observe a consistent whole.
type Store struct {
	mu        sync.RWMutex
	backend   Backend
	flat      *FlatBackend
	notifier  pubsub.Notifier
	sessionID string

	entries   []models.Entry // sorted createdAt desc
	summaries []models.SummaryRecord
	settings  models.Settings
	stats     models.Stats
	insights  []models.InsightsCacheRecord

	listenerMu sync.RWMutex
	listeners  []Listener
}

// Open selects a backend, runs the one-time legacy migration, and hydrates
// the cache. When it returns without error the store is ready: every read
// thereafter reflects at least the state loaded here.
func Open(ctx context.Context, opts Options) (*Store, error) {
	flat := NewFlatBackend(opts.DataDir)

	var backend Backend
	db, err := database.New(opts.DatabasePath)
	if err != nil {
		// The flat backend is the permanent fallback for this process;
		// no retry or mid-session switch.
		log.Printf("⚠️ [STORE] Structured database unavailable, falling back to flat storage: %v", err)
		backend = flat
	} else if err := db.Initialize(); err != nil {
		log.Printf("⚠️ [STORE] Database schema init failed, falling back to flat storage: %v", err)
		backend = flat
	} else {
		backend = NewSQLiteBackend(db)
		if err := migrateLegacy(ctx, flat, backend); err != nil {
			return nil, fmt.Errorf("legacy migration: %w", err)
		}
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = pubsub.Noop{}
	}

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s := &Store{
		backend:   backend,
		flat:      flat,
		notifier:  notifier,
		sessionID: sessionID,
	}

	if err := s.hydrate(ctx); err != nil {
		return nil, fmt.Errorf("hydrate cache: %w", err)
	}

	notifier.Subscribe(s.handleForeign)

	log.Printf("✅ [STORE] Ready (backend: %s, session: %s)", backend.Name(), s.sessionID)
	return s, nil
}

// SessionID identifies this store instance in change notifications.
func (s *Store) SessionID() string { return s.sessionID }

// BackendName reports which persistence strategy won selection.
func (s *Store) BackendName() string { return s.backend.Name() }

// hydrate replaces the whole cache from the backend.
func (s *Store) hydrate(ctx context.Context) error {
	snap, err := s.backend.LoadAll(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = snap.Entries
	sortEntriesDesc(s.entries)

	s.summaries = snap.Summaries
	sortSummariesDesc(s.summaries)

	if snap.Settings != nil {
		s.settings = *snap.Settings
	} else {
		s.settings = models.DefaultSettings()
	}
	if snap.Stats != nil {
		s.stats = *snap.Stats
	} else {
		s.stats = models.DefaultStats()
	}
	s.insights = snap.Insights
	return nil
}

// handleForeign reacts to a change made by another instance. The message
// names the changed collection but carries no payload, so the cache is
// rehydrated wholesale and local listeners are told afterwards.
func (s *Store) handleForeign(msg pubsub.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.hydrate(ctx); err != nil {
		log.Printf("⚠️ [STORE] Rehydrate after foreign %s change failed: %v", msg.Type, err)
		return
	}
	s.fanOut(msg.Type)
}

// SubscribeChanges registers a listener for local and foreign changes.
func (s *Store) SubscribeChanges(listener Listener) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *Store) fanOut(changeType string) {
	s.listenerMu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.listenerMu.RUnlock()
	for _, l := range listeners {
		go l(changeType)
	}
}

// notify tells local listeners and other instances about a change.
func (s *Store) notify(ctx context.Context, changeTypes ...string) {
	for _, ct := range changeTypes {
		s.fanOut(ct)
		if err := s.notifier.Publish(ctx, pubsub.Message{Type: ct}); err != nil {
			log.Printf("⚠️ [STORE] Publish %s notification failed: %v", ct, err)
		}
	}
}

// --- reads (cache only, clones out) ---

// Entries returns all entries, newest first.
func (s *Store) Entries() []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneEntries(s.entries)
}

// GetEntryByID returns the entry or nil when absent.
func (s *Store) GetEntryByID(id string) *models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			entry := models.CloneEntry(s.entries[i])
			return &entry
		}
	}
	return nil
}

// Settings returns the current settings record.
func (s *Store) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneSettings(s.settings)
}

// Stats returns the current derived stats.
func (s *Store) Stats() models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneStats(s.stats)
}

// Summaries returns all summary records, newest first.
func (s *Store) Summaries() []models.SummaryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SummaryRecord, len(s.summaries))
	for i, rec := range s.summaries {
		out[i] = models.CloneSummary(rec)
	}
	return out
}

// Insights returns the cached insights records.
func (s *Store) Insights() []models.InsightsCacheRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.InsightsCacheRecord, len(s.insights))
	for i, rec := range s.insights {
		out[i] = models.CloneInsights(rec)
	}
	return out
}

// --- mutators ---

// SaveEntry upserts an entry, applies retention, and recomputes stats.
func (s *Store) SaveEntry(ctx context.Context, entry models.Entry) (models.Entry, error) {
	if entry.ID == "" {
		return models.Entry{}, ErrEntryIDRequired
	}

	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	entry = models.NormalizeEntry(entry)
	if entry.WordCount == 0 {
		entry.WordCount = entry.EffectiveWordCount()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.PutEntry(ctx, entry); err != nil {
		return models.Entry{}, fmt.Errorf("persist entry: %w", err)
	}

	replaced := false
	for i := range s.entries {
		if s.entries[i].ID == entry.ID {
			s.entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		s.entries = append(s.entries, entry)
	}
	sortEntriesDesc(s.entries)

	if err := s.applyRetentionLocked(ctx); err != nil {
		return models.Entry{}, err
	}
	if err := s.recomputeStatsLocked(ctx, now); err != nil {
		return models.Entry{}, err
	}

	s.notify(ctx, ChangeEntries, ChangeStats)
	return models.CloneEntry(entry), nil
}

// DeleteEntry removes an entry by id. Deleting a missing id is a no-op.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i := range s.entries {
		if s.entries[i].ID == id {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	if err := s.backend.DeleteEntries(ctx, []string{id}); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	s.entries = kept

	if err := s.recomputeStatsLocked(ctx, time.Now()); err != nil {
		return err
	}
	s.notify(ctx, ChangeEntries, ChangeStats)
	return nil
}

// ReplaceEntries swaps the whole entry set (import path). Entries without an
// id are dropped; retention applies to the result.
func (s *Store) ReplaceEntries(ctx context.Context, entries []models.Entry) error {
	now := time.Now()
	cleaned := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e = models.NormalizeEntry(e)
		if e.WordCount == 0 {
			e.WordCount = e.EffectiveWordCount()
		}
		cleaned = append(cleaned, e)
	}
	sortEntriesDesc(cleaned)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.ReplaceEntries(ctx, cleaned); err != nil {
		return fmt.Errorf("replace entries: %w", err)
	}
	s.entries = cleaned

	if err := s.applyRetentionLocked(ctx); err != nil {
		return err
	}
	if err := s.recomputeStatsLocked(ctx, now); err != nil {
		return err
	}
	s.notify(ctx, ChangeEntries, ChangeStats)
	return nil
}

// UpdateSettings merges a partial patch and returns the result.
func (s *Store) UpdateSettings(ctx context.Context, patch models.SettingsPatch) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings.Apply(patch)
	next.ID = "app"
	if err := s.backend.PutSettings(ctx, next); err != nil {
		return models.Settings{}, fmt.Errorf("persist settings: %w", err)
	}
	s.settings = next

	// A tighter retention policy takes effect immediately.
	if patch.DataRetention != nil {
		if err := s.applyRetentionLocked(ctx); err != nil {
			return models.Settings{}, err
		}
		if err := s.recomputeStatsLocked(ctx, time.Now()); err != nil {
			return models.Settings{}, err
		}
		s.notify(ctx, ChangeEntries, ChangeStats)
	}

	s.notify(ctx, ChangeSettings)
	return models.CloneSettings(next), nil
}

// MarkSummaryRun records when the scheduled summary job last fired.
func (s *Store) MarkSummaryRun(ctx context.Context, at time.Time) error {
	_, err := s.UpdateSettings(ctx, models.SettingsPatch{LastSummaryRun: &at})
	return err
}

// RecalculateStats recomputes and persists stats from the current entry set.
func (s *Store) RecalculateStats(ctx context.Context) (models.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recomputeStatsLocked(ctx, time.Now()); err != nil {
		return models.Stats{}, err
	}
	s.notify(ctx, ChangeStats)
	return models.CloneStats(s.stats), nil
}

// ApplyRetention prunes entries beyond the retention policy. Used by the
// scheduled sweep; save paths already prune inline.
func (s *Store) ApplyRetention(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.entries)
	if err := s.applyRetentionLocked(ctx); err != nil {
		return 0, err
	}
	removed := before - len(s.entries)
	if removed > 0 {
		if err := s.recomputeStatsLocked(ctx, time.Now()); err != nil {
			return removed, err
		}
		s.notify(ctx, ChangeEntries, ChangeStats)
	}
	return removed, nil
}

// SaveSummaryRecord upserts a summary record.
func (s *Store) SaveSummaryRecord(ctx context.Context, record models.SummaryRecord) (models.SummaryRecord, error) {
	record = models.NormalizeSummary(record, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.PutSummary(ctx, record); err != nil {
		return models.SummaryRecord{}, fmt.Errorf("persist summary: %w", err)
	}

	replaced := false
	for i := range s.summaries {
		if s.summaries[i].ID == record.ID {
			s.summaries[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		s.summaries = append(s.summaries, record)
	}
	sortSummariesDesc(s.summaries)

	s.notify(ctx, ChangeSummaries)
	return models.CloneSummary(record), nil
}

// DeleteSummaryRecord removes a summary by id.
func (s *Store) DeleteSummaryRecord(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.DeleteSummary(ctx, id); err != nil {
		return fmt.Errorf("delete summary: %w", err)
	}
	kept := s.summaries[:0]
	for _, rec := range s.summaries {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	s.summaries = kept

	s.notify(ctx, ChangeSummaries)
	return nil
}

// SaveInsightsCache upserts a cached insights record.
func (s *Store) SaveInsightsCache(ctx context.Context, record models.InsightsCacheRecord) error {
	record = models.NormalizeInsights(record, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.PutInsights(ctx, record); err != nil {
		return fmt.Errorf("persist insights cache: %w", err)
	}
	replaced := false
	for i := range s.insights {
		if s.insights[i].ID == record.ID {
			s.insights[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		s.insights = append(s.insights, record)
	}

	s.notify(ctx, ChangeInsights)
	return nil
}

// ExportData snapshots everything for a portable backup.
func (s *Store) ExportData() models.ExportPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.CloneStats(s.stats)
	settings := models.CloneSettings(s.settings)
	summaries := make([]models.SummaryRecord, len(s.summaries))
	for i, rec := range s.summaries {
		summaries[i] = models.CloneSummary(rec)
	}
	insights := make([]models.InsightsCacheRecord, len(s.insights))
	for i, rec := range s.insights {
		insights[i] = models.CloneInsights(rec)
	}
	return models.ExportPayload{
		Entries:   models.CloneEntries(s.entries),
		Stats:     &stats,
		Settings:  &settings,
		Summaries: summaries,
		Insights:  insights,
	}
}

// ImportData restores a backup. Entries replace the current set; settings
// and summaries are taken when present. Stats are always recomputed rather
// than trusted from the payload.
func (s *Store) ImportData(ctx context.Context, payload models.ExportPayload) error {
	if err := s.ReplaceEntries(ctx, payload.Entries); err != nil {
		return err
	}

	if payload.Settings != nil {
		settings := *payload.Settings
		settings.ID = "app"
		s.mu.Lock()
		if err := s.backend.PutSettings(ctx, settings); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("import settings: %w", err)
		}
		s.settings = settings
		s.mu.Unlock()
		s.notify(ctx, ChangeSettings)
	}

	for _, rec := range payload.Summaries {
		if _, err := s.SaveSummaryRecord(ctx, rec); err != nil {
			return err
		}
	}
	for _, rec := range payload.Insights {
		if err := s.SaveInsightsCache(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// ClearAllData wipes every collection and resets settings and stats to
// defaults. The migration flag survives so a wipe does not replay migration.
func (s *Store) ClearAllData(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear data: %w", err)
	}
	s.entries = nil
	s.summaries = nil
	s.insights = nil
	s.settings = models.DefaultSettings()
	s.stats = models.DefaultStats()

	if err := s.backend.PutSettings(ctx, s.settings); err != nil {
		return fmt.Errorf("reset settings: %w", err)
	}
	if err := s.backend.PutStats(ctx, s.stats); err != nil {
		return fmt.Errorf("reset stats: %w", err)
	}

	s.notify(ctx, ChangeEntries, ChangeSettings, ChangeStats, ChangeSummaries, ChangeInsights)
	return nil
}

// --- internals (callers hold s.mu) ---

// applyRetentionLocked drops the oldest entries beyond a count policy.
// Entries are kept sorted newest first, so the keep set is a prefix.
func (s *Store) applyRetentionLocked(ctx context.Context) error {
	policy := s.settings.DataRetention
	if policy.Type != models.RetentionTypeCount || policy.Value <= 0 {
		return nil
	}
	if len(s.entries) <= policy.Value {
		return nil
	}

	excess := s.entries[policy.Value:]
	ids := make([]string, len(excess))
	for i, e := range excess {
		ids[i] = e.ID
	}
	if err := s.backend.DeleteEntries(ctx, ids); err != nil {
		return fmt.Errorf("retention prune: %w", err)
	}
	s.entries = s.entries[:policy.Value]
	log.Printf("🧹 [STORE] Retention pruned %d entries (keeping %d most recent)", len(ids), policy.Value)
	return nil
}

func (s *Store) recomputeStatsLocked(ctx context.Context, now time.Time) error {
	stats := models.ComputeStats(s.entries, now)
	if err := s.backend.PutStats(ctx, stats); err != nil {
		return fmt.Errorf("persist stats: %w", err)
	}
	s.stats = stats
	return nil
}

func sortEntriesDesc(entries []models.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}

func sortSummariesDesc(summaries []models.SummaryRecord) {
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
}
