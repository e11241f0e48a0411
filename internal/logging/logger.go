package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithStore returns a logger with storage context fields attached.
func WithStore(backend, sessionID string) *slog.Logger {
	return slog.With(
		"backend", backend,
		"session_id", sessionID,
	)
}

// WithSummaryJob returns a logger scoped to one summary generation request.
func WithSummaryJob(cadence string, entryCount int) *slog.Logger {
	return slog.With(
		"cadence", cadence,
		"entry_count", entryCount,
	)
}
