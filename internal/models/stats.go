package models

import "time"

// Stats is the global derived-stats singleton (stored under id "global").
// It is always recomputed in full from the entry set, never patched
// incrementally, so deletes and imports can never leave it stale.
type Stats struct {
	ID             string     `json:"id"`
	TotalEntries   int        `json:"totalEntries"`
	TotalWords     int        `json:"totalWords"`
	LastEntryDate  *time.Time `json:"lastEntryDate"`
	DaysSinceStart int        `json:"daysSinceStart"`
}

// DefaultStats returns the zero-value stats record.
func DefaultStats() Stats {
	return Stats{ID: "global"}
}

// ComputeStats derives stats from an entry set. Order-independent: the same
// entries always yield the same stats.
func ComputeStats(entries []Entry, now time.Time) Stats {
	stats := DefaultStats()
	if len(entries) == 0 {
		return stats
	}

	var newest, oldest time.Time
	for _, e := range entries {
		stats.TotalWords += e.WordCount
		if e.CreatedAt.IsZero() {
			continue
		}
		if newest.IsZero() || e.CreatedAt.After(newest) {
			newest = e.CreatedAt
		}
		if oldest.IsZero() || e.CreatedAt.Before(oldest) {
			oldest = e.CreatedAt
		}
	}
	stats.TotalEntries = len(entries)
	if !newest.IsZero() {
		t := newest
		stats.LastEntryDate = &t
	}
	if !oldest.IsZero() {
		stats.DaysSinceStart = int(now.Sub(oldest).Hours()/24) + 1
	}
	return stats
}

// CloneStats returns a copy safe to hand to callers.
func CloneStats(s Stats) Stats {
	out := s
	if s.LastEntryDate != nil {
		t := *s.LastEntryDate
		out.LastEntryDate = &t
	}
	return out
}
