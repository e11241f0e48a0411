package store

import (
	"context"

	"nuuko/internal/models"
)

// Change types carried by storage notifications.
const (
	ChangeEntries   = "entries"
	ChangeSettings  = "settings"
	ChangeStats     = "stats"
	ChangeSummaries = "summaries"
	ChangeInsights  = "insights"
)

// Snapshot is everything a backend holds, loaded in one shot for cache
// hydration. Settings and Stats are nil when the backend has no row yet.
type Snapshot struct {
	Entries   []models.Entry
	Summaries []models.SummaryRecord
	Settings  *models.Settings
	Stats     *models.Stats
	Insights  []models.InsightsCacheRecord
}

// Backend is the durable persistence strategy behind the store. Selection
// happens once at startup; the store never switches backends at runtime.
// Multi-record mutations must be atomic where the backend supports it.
type Backend interface {
	Name() string
	LoadAll(ctx context.Context) (*Snapshot, error)
	PutEntry(ctx context.Context, entry models.Entry) error
	DeleteEntries(ctx context.Context, ids []string) error
	ReplaceEntries(ctx context.Context, entries []models.Entry) error
	GetEntry(ctx context.Context, id string) (*models.Entry, error)
	PutSettings(ctx context.Context, settings models.Settings) error
	PutStats(ctx context.Context, stats models.Stats) error
	PutSummary(ctx context.Context, record models.SummaryRecord) error
	DeleteSummary(ctx context.Context, id string) error
	PutInsights(ctx context.Context, record models.InsightsCacheRecord) error
	ClearAll(ctx context.Context) error
}
