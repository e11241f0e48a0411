package prompts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// loadPackFile reads and validates an on-disk pack.
func loadPackFile(path string) (Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pack Pack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("decode prompt pack %s: %w", path, err)
	}
	if len(pack) == 0 {
		return nil, fmt.Errorf("prompt pack %s has no buckets", path)
	}
	return pack, nil
}

// Watch loads the pack at path into the engine and hot-reloads it on every
// change until ctx is done. A broken edit keeps the previous pack active.
// The parent directory is watched because editors replace files on save.
func Watch(ctx context.Context, engine *Engine, path string) error {
	pack, err := loadPackFile(path)
	if err != nil {
		return fmt.Errorf("load prompt pack: %w", err)
	}
	engine.SetPack(pack)
	log.Printf("✅ [PROMPTS] Loaded pack from %s (%d buckets)", path, len(pack))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create pack watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch pack directory: %w", err)
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				pack, err := loadPackFile(path)
				if err != nil {
					log.Printf("⚠️ [PROMPTS] Reload failed, keeping previous pack: %v", err)
					continue
				}
				engine.SetPack(pack)
				log.Printf("🔄 [PROMPTS] Pack reloaded (%d buckets)", len(pack))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️ [PROMPTS] Watcher error: %v", err)
			}
		}
	}()
	return nil
}
