package store

import (
	"context"
	"fmt"
	"log"

	"nuuko/internal/models"
)

// migrateLegacy moves data from the flat layout into the structured backend.
// It runs at most once per installation: the flag key is only written after
// every record has landed, so a failed run retries on the next start. Legacy
// keys are erased after the flag is set; a crash between the two leaves
// harmless orphans behind the flag.
func migrateLegacy(ctx context.Context, flat *FlatBackend, target Backend) error {
	if flat.migrated() {
		return nil
	}

	legacy, err := flat.readLegacy()
	if err != nil {
		return fmt.Errorf("read legacy data: %w", err)
	}

	empty := len(legacy.Entries) == 0 && legacy.Stats == nil &&
		legacy.UserName == "" && legacy.Prompt == "" && len(legacy.Insights) == 0
	if empty {
		// Nothing to move; mark done so future starts skip the scan.
		return flat.setMigrated()
	}

	log.Printf("🔄 [MIGRATE] Moving %d entries from flat storage to %s", len(legacy.Entries), target.Name())

	for _, entry := range legacy.Entries {
		if err := target.PutEntry(ctx, models.NormalizeEntry(entry)); err != nil {
			return fmt.Errorf("migrate entry %s: %w", entry.ID, err)
		}
	}

	if legacy.Stats != nil {
		if err := target.PutStats(ctx, *legacy.Stats); err != nil {
			return fmt.Errorf("migrate stats: %w", err)
		}
	}

	if legacy.UserName != "" || legacy.Prompt != "" {
		settings := models.DefaultSettings()
		if legacy.UserName != "" {
			settings.UserName = legacy.UserName
		}
		if legacy.Prompt != "" {
			settings.CurrentPrompt = legacy.Prompt
		}
		if err := target.PutSettings(ctx, settings); err != nil {
			return fmt.Errorf("migrate settings: %w", err)
		}
	}

	for _, record := range legacy.Insights {
		if err := target.PutInsights(ctx, record); err != nil {
			return fmt.Errorf("migrate insights cache: %w", err)
		}
	}

	if err := flat.setMigrated(); err != nil {
		return fmt.Errorf("set migration flag: %w", err)
	}

	if err := flat.eraseLegacy(); err != nil {
		log.Printf("⚠️ [MIGRATE] Could not erase legacy keys: %v", err)
	}

	log.Printf("✅ [MIGRATE] Legacy data migrated to %s", target.Name())
	return nil
}
