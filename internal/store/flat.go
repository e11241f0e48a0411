package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/peterbourgon/diskv/v3"

	"nuuko/internal/models"
)

// Flat-layout keys, one per logical collection plus two discrete settings
// values. This mirrors the original flat key-value layout exactly, so the
// fallback store doubles as the legacy store the migration reads from.
const (
	keyEntries       = "nuuko_entries"
	keyStats         = "nuuko_stats"
	keySummaries     = "nuuko_summaries"
	keyInsights      = "nuuko_insights_cache"
	keyUserName      = "nuuko_user_name"
	keyCurrentPrompt = "nuuko_current_prompt"
	keyMigrationFlag = "nuuko_storage_migrated_v1"
)

// FlatBackend stores each collection as one JSON blob in a disk-backed
// key-value store. It is the permanent fallback when the structured
// database cannot open, and the source for the one-time legacy migration.
type FlatBackend struct {
	kv *diskv.Diskv
}

// NewFlatBackend opens the key-value store rooted at dir.
func NewFlatBackend(dir string) *FlatBackend {
	return &FlatBackend{kv: diskv.New(diskv.Options{
		BasePath:     dir,
		CacheSizeMax: 1024 * 1024, // 1MB
	})}
}

func (b *FlatBackend) Name() string { return "flat" }

func (b *FlatBackend) readJSON(key string, target any) (bool, error) {
	if !b.kv.Has(key) {
		return false, nil
	}
	data, err := b.kv.Read(key)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, target); err != nil {
		// Unreadable blobs are treated as absent, matching the forgiving
		// parse of the original flat store.
		return false, nil
	}
	return true, nil
}

func (b *FlatBackend) writeJSON(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return b.kv.Write(key, data)
}

func (b *FlatBackend) readEntries() ([]models.Entry, error) {
	var entries []models.Entry
	if _, err := b.readJSON(keyEntries, &entries); err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i] = models.NormalizeEntry(entries[i])
	}
	return entries, nil
}

func (b *FlatBackend) LoadAll(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	entries, err := b.readEntries()
	if err != nil {
		return nil, err
	}
	snap.Entries = entries

	var stats models.Stats
	if ok, err := b.readJSON(keyStats, &stats); err != nil {
		return nil, err
	} else if ok {
		snap.Stats = &stats
	}

	var summaries []models.SummaryRecord
	if _, err := b.readJSON(keySummaries, &summaries); err != nil {
		return nil, err
	}
	now := time.Now()
	for i := range summaries {
		summaries[i] = models.NormalizeSummary(summaries[i], now)
	}
	snap.Summaries = summaries

	var insights []models.InsightsCacheRecord
	if _, err := b.readJSON(keyInsights, &insights); err != nil {
		return nil, err
	}
	snap.Insights = insights

	// The flat layout keeps only the user name and current prompt as
	// discrete settings values; everything else takes defaults.
	settings := models.DefaultSettings()
	hasAny := false
	if b.kv.Has(keyUserName) {
		if data, err := b.kv.Read(keyUserName); err == nil {
			settings.UserName = string(data)
			hasAny = true
		}
	}
	if b.kv.Has(keyCurrentPrompt) {
		if data, err := b.kv.Read(keyCurrentPrompt); err == nil {
			settings.CurrentPrompt = string(data)
			hasAny = true
		}
	}
	if hasAny {
		snap.Settings = &settings
	}

	return snap, nil
}

func (b *FlatBackend) PutEntry(ctx context.Context, entry models.Entry) error {
	entries, err := b.readEntries()
	if err != nil {
		return err
	}
	replaced := false
	for i := range entries {
		if entries[i].ID == entry.ID {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	return b.writeJSON(keyEntries, entries)
}

func (b *FlatBackend) DeleteEntries(ctx context.Context, ids []string) error {
	entries, err := b.readEntries()
	if err != nil {
		return err
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := entries[:0]
	for _, e := range entries {
		if _, gone := drop[e.ID]; !gone {
			kept = append(kept, e)
		}
	}
	return b.writeJSON(keyEntries, kept)
}

func (b *FlatBackend) ReplaceEntries(ctx context.Context, entries []models.Entry) error {
	return b.writeJSON(keyEntries, entries)
}

func (b *FlatBackend) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	entries, err := b.readEntries()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ID == id {
			entry := models.CloneEntry(e)
			return &entry, nil
		}
	}
	return nil, nil
}

func (b *FlatBackend) PutSettings(ctx context.Context, settings models.Settings) error {
	if settings.UserName != "" {
		if err := b.kv.Write(keyUserName, []byte(settings.UserName)); err != nil {
			return err
		}
	}
	if settings.CurrentPrompt != "" {
		if err := b.kv.Write(keyCurrentPrompt, []byte(settings.CurrentPrompt)); err != nil {
			return err
		}
	}
	return nil
}

func (b *FlatBackend) PutStats(ctx context.Context, stats models.Stats) error {
	return b.writeJSON(keyStats, stats)
}

func (b *FlatBackend) PutSummary(ctx context.Context, record models.SummaryRecord) error {
	var summaries []models.SummaryRecord
	if _, err := b.readJSON(keySummaries, &summaries); err != nil {
		return err
	}
	replaced := false
	for i := range summaries {
		if summaries[i].ID == record.ID {
			summaries[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		summaries = append([]models.SummaryRecord{record}, summaries...)
	}
	return b.writeJSON(keySummaries, summaries)
}

func (b *FlatBackend) DeleteSummary(ctx context.Context, id string) error {
	var summaries []models.SummaryRecord
	if _, err := b.readJSON(keySummaries, &summaries); err != nil {
		return err
	}
	kept := summaries[:0]
	for _, s := range summaries {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	return b.writeJSON(keySummaries, kept)
}

func (b *FlatBackend) PutInsights(ctx context.Context, record models.InsightsCacheRecord) error {
	// The flat layout keeps a single-element cache.
	return b.writeJSON(keyInsights, []models.InsightsCacheRecord{record})
}

func (b *FlatBackend) ClearAll(ctx context.Context) error {
	for _, key := range []string{keyEntries, keyStats, keySummaries, keyInsights, keyUserName, keyCurrentPrompt} {
		if b.kv.Has(key) {
			if err := b.kv.Erase(key); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- legacy migration accessors ---

// legacyData is everything the flat layout may hold from a pre-structured
// installation.
type legacyData struct {
	Entries  []models.Entry
	Stats    *models.Stats
	UserName string
	Prompt   string
	Insights []models.InsightsCacheRecord
}

func (b *FlatBackend) migrated() bool {
	return b.kv.Has(keyMigrationFlag)
}

func (b *FlatBackend) setMigrated() error {
	return b.kv.Write(keyMigrationFlag, []byte("true"))
}

func (b *FlatBackend) readLegacy() (*legacyData, error) {
	data := &legacyData{}
	entries, err := b.readEntries()
	if err != nil {
		return nil, err
	}
	data.Entries = entries

	var stats models.Stats
	if ok, err := b.readJSON(keyStats, &stats); err != nil {
		return nil, err
	} else if ok {
		data.Stats = &stats
	}

	if b.kv.Has(keyUserName) {
		if raw, err := b.kv.Read(keyUserName); err == nil {
			data.UserName = string(raw)
		}
	}
	if b.kv.Has(keyCurrentPrompt) {
		if raw, err := b.kv.Read(keyCurrentPrompt); err == nil {
			data.Prompt = string(raw)
		}
	}
	if _, err := b.readJSON(keyInsights, &data.Insights); err != nil {
		return nil, err
	}
	return data, nil
}

func (b *FlatBackend) eraseLegacy() error {
	for _, key := range []string{keyEntries, keyStats, keyUserName, keyCurrentPrompt, keyInsights} {
		if b.kv.Has(key) {
			if err := b.kv.Erase(key); err != nil {
				return err
			}
		}
	}
	return nil
}
