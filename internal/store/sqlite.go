package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"nuuko/internal/database"
	"nuuko/internal/models"
)

// SQLiteBackend persists records as JSON rows in the structured database.
// Entries carry a created_at column backing the temporal index.
type SQLiteBackend struct {
	db *database.DB
}

// NewSQLiteBackend wraps an initialized database.
func NewSQLiteBackend(db *database.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (b *SQLiteBackend) Name() string { return "sqlite" }

func (b *SQLiteBackend) LoadAll(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	rows, err := b.db.QueryContext(ctx, "SELECT data FROM entries")
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var entry models.Entry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		snap.Entries = append(snap.Entries, models.NormalizeEntry(entry))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sumRows, err := b.db.QueryContext(ctx, "SELECT data FROM summaries")
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}
	defer sumRows.Close()
	now := time.Now()
	for sumRows.Next() {
		var data string
		if err := sumRows.Scan(&data); err != nil {
			return nil, err
		}
		var record models.SummaryRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		snap.Summaries = append(snap.Summaries, models.NormalizeSummary(record, now))
	}
	if err := sumRows.Err(); err != nil {
		return nil, err
	}

	var settingsData string
	err = b.db.QueryRowContext(ctx, "SELECT data FROM settings WHERE id = 'app'").Scan(&settingsData)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("load settings: %w", err)
	default:
		var settings models.Settings
		if err := json.Unmarshal([]byte(settingsData), &settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
		snap.Settings = &settings
	}

	var statsData string
	err = b.db.QueryRowContext(ctx, "SELECT data FROM stats WHERE id = 'global'").Scan(&statsData)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("load stats: %w", err)
	default:
		var stats models.Stats
		if err := json.Unmarshal([]byte(statsData), &stats); err != nil {
			return nil, fmt.Errorf("decode stats: %w", err)
		}
		snap.Stats = &stats
	}

	insRows, err := b.db.QueryContext(ctx, "SELECT data FROM insights_cache")
	if err != nil {
		return nil, fmt.Errorf("load insights: %w", err)
	}
	defer insRows.Close()
	for insRows.Next() {
		var data string
		if err := insRows.Scan(&data); err != nil {
			return nil, err
		}
		var record models.InsightsCacheRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			return nil, fmt.Errorf("decode insights: %w", err)
		}
		snap.Insights = append(snap.Insights, models.NormalizeInsights(record, now))
	}
	return snap, insRows.Err()
}

func (b *SQLiteBackend) PutEntry(ctx context.Context, entry models.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO entries (id, created_at, data) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET created_at = excluded.created_at, data = excluded.data`,
		entry.ID, entry.CreatedAt.UTC().Format(time.RFC3339Nano), string(data),
	)
	return err
}

func (b *SQLiteBackend) DeleteEntries(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (b *SQLiteBackend) ReplaceEntries(ctx context.Context, entries []models.Entry) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return err
	}
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO entries (id, created_at, data) VALUES (?, ?, ?)",
			entry.ID, entry.CreatedAt.UTC().Format(time.RFC3339Nano), string(data),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (b *SQLiteBackend) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	var data string
	err := b.db.QueryRowContext(ctx, "SELECT data FROM entries WHERE id = ?", id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry models.Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, err
	}
	normalized := models.NormalizeEntry(entry)
	return &normalized, nil
}

func (b *SQLiteBackend) PutSettings(ctx context.Context, settings models.Settings) error {
	settings.ID = "app"
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO settings (id, data) VALUES ('app', ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		string(data),
	)
	return err
}

func (b *SQLiteBackend) PutStats(ctx context.Context, stats models.Stats) error {
	stats.ID = "global"
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO stats (id, data) VALUES ('global', ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		string(data),
	)
	return err
}

func (b *SQLiteBackend) PutSummary(ctx context.Context, record models.SummaryRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO summaries (id, created_at, data) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET created_at = excluded.created_at, data = excluded.data`,
		record.ID, record.CreatedAt.UTC().Format(time.RFC3339Nano), string(data),
	)
	return err
}

func (b *SQLiteBackend) DeleteSummary(ctx context.Context, id string) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM summaries WHERE id = ?", id)
	return err
}

func (b *SQLiteBackend) PutInsights(ctx context.Context, record models.InsightsCacheRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO insights_cache (id, computed_at, data) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET computed_at = excluded.computed_at, data = excluded.data`,
		record.ID, record.ComputedAt.UTC().Format(time.RFC3339Nano), string(data),
	)
	return err
}

func (b *SQLiteBackend) ClearAll(ctx context.Context) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, table := range []string{"entries", "summaries", "settings", "stats", "insights_cache"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return tx.Commit()
}
