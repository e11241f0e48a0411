package summary

import (
	"encoding/json"
	"strings"

	"nuuko/internal/models"
)

// parsedResponse is what a model reply decomposes into.
type parsedResponse struct {
	Text            string
	Cards           []models.Card
	Highlights      []string
	SummarySentence string
}

type structuredTail struct {
	Cards           []models.Card `json:"cards"`
	Highlights      []string      `json:"highlights"`
	SummarySentence string        `json:"summarySentence"`
}

// parseModelResponse splits a reply into prose and the trailing structured
// object. When no valid trailing JSON is found the whole reply is treated as
// free text and highlights are extracted heuristically.
func parseModelResponse(raw string) parsedResponse {
	text := strings.TrimSpace(raw)
	text = strings.TrimSuffix(text, "```")

	if idx := lastTopLevelObject(text); idx >= 0 {
		var tail structuredTail
		candidate := text[idx:]
		if err := json.Unmarshal([]byte(candidate), &tail); err == nil &&
			(len(tail.Cards) > 0 || len(tail.Highlights) > 0 || tail.SummarySentence != "") {
			prose := strings.TrimSpace(text[:idx])
			prose = strings.TrimSuffix(prose, "```json")
			prose = strings.TrimSpace(strings.TrimSuffix(prose, "```"))
			return parsedResponse{
				Text:            prose,
				Cards:           tail.Cards,
				Highlights:      tail.Highlights,
				SummarySentence: tail.SummarySentence,
			}
		}
	}

	return parsedResponse{
		Text:       text,
		Highlights: extractHighlights(text, 3),
	}
}

// lastTopLevelObject returns the index of the opening brace of the last
// balanced {...} that runs to the end of the text, or -1.
func lastTopLevelObject(text string) int {
	end := len(text) - 1
	for end >= 0 && text[end] != '}' {
		end--
	}
	if end < 0 {
		return -1
	}
	depth := 0
	inString := false
	for i := end; i >= 0; i-- {
		c := text[i]
		if inString {
			if c == '"' && (i == 0 || text[i-1] != '\\') {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '}':
			depth++
		case '{':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// extractHighlights takes the first n sentences, each capped at 160 chars.
func extractHighlights(text string, n int) []string {
	highlights := []string{}
	for _, sentence := range splitSentences(text) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if len(sentence) > 160 {
			sentence = sentence[:157] + "…"
		}
		highlights = append(highlights, sentence)
		if len(highlights) == n {
			break
		}
	}
	return highlights
}

func splitSentences(text string) []string {
	var sentences []string
	var sb strings.Builder
	for _, r := range text {
		sb.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			sentences = append(sentences, sb.String())
			sb.Reset()
		}
	}
	if sb.Len() > 0 {
		sentences = append(sentences, sb.String())
	}
	return sentences
}
