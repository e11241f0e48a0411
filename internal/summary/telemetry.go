package summary

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/peterbourgon/diskv/v3"
)

// telemetryMax bounds the ring log.
const telemetryMax = 50

const telemetryKey = "nuuko_summary_telemetry"

// Telemetry event kinds.
const (
	EventQueued    = "queued"
	EventDispatch  = "dispatch"
	EventSuccess   = "success"
	EventError     = "error"
	EventFallback  = "fallback"
	EventQueueDone = "queue_flushed"
)

// TelemetryEvent is one diagnostic record of the summary pipeline.
type TelemetryEvent struct {
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"`
	Model   string    `json:"model,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	Message string    `json:"message,omitempty"`
	Tokens  int       `json:"tokens,omitempty"`
}

// Telemetry is a persisted newest-first ring log. Diagnostics only; a write
// failure is swallowed so it can never break generation.
type Telemetry struct {
	mu     sync.Mutex
	kv     *diskv.Diskv
	events []TelemetryEvent
}

// NewTelemetry loads any persisted events from dir.
func NewTelemetry(dir string) *Telemetry {
	t := &Telemetry{kv: diskv.New(diskv.Options{
		BasePath:     dir,
		CacheSizeMax: 256 * 1024,
	})}
	if t.kv.Has(telemetryKey) {
		if data, err := t.kv.Read(telemetryKey); err == nil {
			_ = json.Unmarshal(data, &t.events)
		}
	}
	return t
}

// Record prepends an event, trimming the ring to its max length.
func (t *Telemetry) Record(event TelemetryEvent) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.events = append([]TelemetryEvent{event}, t.events...)
	if len(t.events) > telemetryMax {
		t.events = t.events[:telemetryMax]
	}
	if data, err := json.Marshal(t.events); err == nil {
		_ = t.kv.Write(telemetryKey, data)
	}
}

// Events returns the log, newest first.
func (t *Telemetry) Events() []TelemetryEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TelemetryEvent(nil), t.events...)
}
