package summary

import (
	"fmt"
	"strings"

	"nuuko/internal/models"
)

const (
	// maxExcerptChars caps a single entry's contribution to the prompt.
	maxExcerptChars = 600
	// maxPromptChars caps the total entry text sent off-device.
	maxPromptChars = 4000
)

// sanitizeEntries turns entries into redacted prompt lines. Content is
// whitespace-normalized and truncated per entry; entries are accumulated
// until the total budget is reached, after which the rest are silently
// dropped from the outgoing text. Dropped entries still count toward the
// summary's entry coverage.
func sanitizeEntries(entries []models.Entry) []string {
	lines := make([]string, 0, len(entries))
	used := 0
	for _, e := range entries {
		content := strings.Join(strings.Fields(e.Content), " ")
		if content == "" {
			continue
		}
		if len(content) > maxExcerptChars {
			content = content[:maxExcerptChars]
		}

		line := fmt.Sprintf("- [%s]", e.CreatedAt.Format("2006-01-02"))
		if e.Mood != "" {
			line += fmt.Sprintf(" (%s)", e.Mood)
		}
		line += " " + content

		if used+len(line) > maxPromptChars {
			break
		}
		used += len(line)
		lines = append(lines, line)
	}
	return lines
}
