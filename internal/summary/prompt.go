package summary

import (
	"encoding/json"
	"fmt"
	"strings"

	"nuuko/internal/models"
)

// buildPrompt assembles the single user-role prompt: persona, the analytics
// snapshot as JSON, the sanitized entry lines, and the output contract the
// parser expects.
func buildPrompt(userName, cadence string, snapshot models.AnalyticsSnapshot, excerpts []string) string {
	snapJSON, _ := json.Marshal(snapshot)

	var sb strings.Builder
	sb.WriteString("You are a warm, perceptive journaling companion. ")
	fmt.Fprintf(&sb, "Write a short reflective %s summary for %s based on their journal entries below.\n\n", cadence, userName)

	sb.WriteString("Analytics for the period:\n")
	sb.Write(snapJSON)
	sb.WriteString("\n\nJournal entries (redacted excerpts, newest first):\n")
	for _, line := range excerpts {
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	sb.WriteString(`
Respond with 2-3 warm paragraphs addressed to the writer, then on the final
line a single JSON object (no code fences) of the form:
{"cards":[{"type":"...","title":"...","subtitle":"...","body":"...","emoji":"..."}],"highlights":["..."],"summarySentence":"..."}
Include up to 8 cards covering mood, writing volume, streaks, standout
quotes, recurring themes and time-of-day habits. Keep highlights to short
single sentences. Never invent events that are not in the entries.`)
	return sb.String()
}
