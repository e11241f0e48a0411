package summary

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// EstimateTokens approximates the token count of a text as ceil(chars/4).
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// estimatedOutputTokens is budgeted for every dispatch on top of the input.
const estimatedOutputTokens = 400

// tokenWindowSize is the sliding usage window.
const tokenWindowSize = 60 * time.Second

// TokenWindow tracks token usage over a sliding window so dispatches can be
// throttled before they hit the provider's quota.
type TokenWindow interface {
	// Record adds usage at the current time.
	Record(ctx context.Context, tokens int) error
	// Used returns the usage inside the window.
	Used(ctx context.Context) (int, error)
}

// MemoryTokenWindow keeps usage events in memory. Single-process only.
type MemoryTokenWindow struct {
	mu     sync.Mutex
	events []tokenEvent
	now    func() time.Time
}

type tokenEvent struct {
	at     time.Time
	tokens int
}

// NewMemoryTokenWindow creates an empty in-memory window.
func NewMemoryTokenWindow() *MemoryTokenWindow {
	return &MemoryTokenWindow{now: time.Now}
}

func (w *MemoryTokenWindow) Record(ctx context.Context, tokens int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	w.events = append(w.events, tokenEvent{at: w.now(), tokens: tokens})
	return nil
}

func (w *MemoryTokenWindow) Used(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	total := 0
	for _, e := range w.events {
		total += e.tokens
	}
	return total, nil
}

func (w *MemoryTokenWindow) prune(now time.Time) {
	cutoff := now.Add(-tokenWindowSize)
	kept := w.events[:0]
	for _, e := range w.events {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	w.events = kept
}

// RedisTokenWindow shares the usage window across instances using per-minute
// counters. The window is approximated as the current plus previous minute
// bucket, which errs on the side of throttling early.
type RedisTokenWindow struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenWindow creates a window backed by the given client.
func NewRedisTokenWindow(client *redis.Client) *RedisTokenWindow {
	return &RedisTokenWindow{client: client, prefix: "nuuko:tokens"}
}

func (w *RedisTokenWindow) bucketKey(t time.Time) string {
	return fmt.Sprintf("%s:%d", w.prefix, t.Unix()/60)
}

func (w *RedisTokenWindow) Record(ctx context.Context, tokens int) error {
	key := w.bucketKey(time.Now())
	pipe := w.client.Pipeline()
	pipe.IncrBy(ctx, key, int64(tokens))
	pipe.Expire(ctx, key, 2*tokenWindowSize)
	_, err := pipe.Exec(ctx)
	return err
}

func (w *RedisTokenWindow) Used(ctx context.Context) (int, error) {
	now := time.Now()
	keys := []string{w.bucketKey(now), w.bucketKey(now.Add(-time.Minute))}
	values, err := w.client.MGet(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, v := range values {
		if s, ok := v.(string); ok {
			var n int
			fmt.Sscanf(s, "%d", &n)
			total += n
		}
	}
	return total, nil
}
