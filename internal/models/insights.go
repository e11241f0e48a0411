package models

import (
	"encoding/json"
	"time"
)

// InsightsCacheRecord caches a computed insights blob so the UI does not
// recompute on every render. Overwritten wholesale, typically under id
// "latest".
type InsightsCacheRecord struct {
	ID         string          `json:"id"`
	ComputedAt time.Time       `json:"computedAt"`
	Data       json.RawMessage `json:"data"`
}

// NormalizeInsights fills defaults for records missing id or timestamp.
func NormalizeInsights(r InsightsCacheRecord, now time.Time) InsightsCacheRecord {
	if r.ID == "" {
		r.ID = "latest"
	}
	if r.ComputedAt.IsZero() {
		r.ComputedAt = now
	}
	return r
}

// CloneInsights returns a copy safe to hand to callers.
func CloneInsights(r InsightsCacheRecord) InsightsCacheRecord {
	out := r
	out.Data = append(json.RawMessage(nil), r.Data...)
	return out
}
