package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Entry is a single journal note. IDs are caller-assigned and opaque;
// CreatedAt is the sole temporal ordering key.
type Entry struct {
	ID                     string    `json:"id"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt,omitempty"`
	Content                string    `json:"content"`
	WordCount              int       `json:"wordCount"`
	Mood                   string    `json:"mood,omitempty"`
	Tags                   []string  `json:"tags"`
	IncludeInSummaries     *bool     `json:"includeInSummaries,omitempty"`
	Topics                 []string  `json:"topics,omitempty"`
	StartingPhraseCategory string    `json:"startingPhraseCategory,omitempty"`
	TimeBucket             string    `json:"timeBucket,omitempty"`
}

// entryAlias avoids recursion in UnmarshalJSON.
type entryAlias Entry

type entryWire struct {
	entryAlias
	ID json.RawMessage `json:"id"`
}

// UnmarshalJSON accepts both string and numeric ids. Older exports stored
// entry ids as numbers (Date.now() values).
func (e *Entry) UnmarshalJSON(data []byte) error {
	var wire entryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*e = Entry(wire.entryAlias)
	if len(wire.ID) > 0 {
		var s string
		if err := json.Unmarshal(wire.ID, &s); err == nil {
			e.ID = s
		} else {
			e.ID = strings.Trim(string(wire.ID), `"`)
		}
	}
	return nil
}

// Included reports whether the entry participates in summaries.
// Records written before the field existed default to true.
func (e *Entry) Included() bool {
	return e.IncludeInSummaries == nil || *e.IncludeInSummaries
}

// NormalizeEntry applies the versioned read-path normalization: missing tags
// become an empty slice and includeInSummaries defaults to true. Every path
// that reads an entry out of a backend goes through this.
func NormalizeEntry(e Entry) Entry {
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if e.IncludeInSummaries == nil {
		t := true
		e.IncludeInSummaries = &t
	}
	return e
}

// EffectiveWordCount returns the stored word count, falling back to
// whitespace tokenization of the content.
func (e *Entry) EffectiveWordCount() int {
	if e.WordCount > 0 {
		return e.WordCount
	}
	if strings.TrimSpace(e.Content) == "" {
		return 0
	}
	return len(strings.Fields(e.Content))
}

// CloneEntry returns a deep copy safe to hand to callers.
func CloneEntry(e Entry) Entry {
	out := e
	if e.Tags != nil {
		out.Tags = append([]string(nil), e.Tags...)
	}
	if e.Topics != nil {
		out.Topics = append([]string(nil), e.Topics...)
	}
	if e.IncludeInSummaries != nil {
		v := *e.IncludeInSummaries
		out.IncludeInSummaries = &v
	}
	return out
}

// CloneEntries deep-copies a slice of entries.
func CloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = CloneEntry(e)
	}
	return out
}
