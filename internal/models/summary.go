package models

import (
	"fmt"
	"time"
)

// Summary record status values.
const (
	SummaryStatusReady    = "ready"
	SummaryStatusFallback = "fallback"
)

// FallbackModelID tags summaries produced by the local heuristic generator.
const FallbackModelID = "nuuko-llama-fallback"

// Card is one structured "wrapped" collage card returned by the model.
type Card struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Subtitle string         `json:"subtitle,omitempty"`
	Body     string         `json:"body,omitempty"`
	Emoji    string         `json:"emoji,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// MoodShare is one slice of the mood distribution.
type MoodShare struct {
	Mood       string `json:"mood"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// AnalyticsSnapshot aggregates the analytics embedded in a summary record.
// Recomputing it from the same entry set yields the same snapshot.
type AnalyticsSnapshot struct {
	DaysJournaled    int            `json:"daysJournaled"`
	LongestStreak    int            `json:"longestStreak"`
	TotalWords       int            `json:"totalWords"`
	WordContextLabel string         `json:"wordContextLabel"`
	StartPhraseShare float64        `json:"startPhraseShare"`
	MoodDistribution []MoodShare    `json:"moodDistribution"`
	TimeBuckets      map[string]int `json:"timeBuckets"`
	TopWords         []string       `json:"topWords"`
	Quotes           []string       `json:"quotes"`
	TopicCounts      map[string]int `json:"topicCounts"`
	AvoidedTopics    []string       `json:"avoidedTopics"`
	MostActiveTime   string         `json:"mostActiveTime"`
}

// SummaryRecord is an immutable generated summary, ordered newest-first.
type SummaryRecord struct {
	ID              string             `json:"id"`
	CreatedAt       time.Time          `json:"createdAt"`
	RangeStart      *time.Time         `json:"rangeStart"`
	RangeEnd        *time.Time         `json:"rangeEnd"`
	EntryIDs        []string           `json:"entryIds"`
	Cadence         string             `json:"cadence"`
	Model           string             `json:"model"`
	Text            string             `json:"text"`
	Highlights      []string           `json:"highlights"`
	Cards           []Card             `json:"cards,omitempty"`
	SummarySentence string             `json:"summarySentence,omitempty"`
	Analytics       *AnalyticsSnapshot `json:"analytics"`
	Status          string             `json:"status"`
}

// NormalizeSummary fills schema defaults for records written by older
// versions: missing ids, timestamps, slices, model and status.
func NormalizeSummary(s SummaryRecord, now time.Time) SummaryRecord {
	if s.ID == "" {
		s.ID = fmt.Sprintf("summary-%d", now.UnixMilli())
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.EntryIDs == nil {
		s.EntryIDs = []string{}
	}
	if s.Model == "" {
		s.Model = "gemini-1.5-flash"
	}
	if s.Highlights == nil {
		s.Highlights = []string{}
	}
	if s.Status == "" {
		s.Status = SummaryStatusReady
	}
	return s
}

// CloneSummary returns a deep copy safe to hand to callers.
func CloneSummary(s SummaryRecord) SummaryRecord {
	out := s
	if s.RangeStart != nil {
		t := *s.RangeStart
		out.RangeStart = &t
	}
	if s.RangeEnd != nil {
		t := *s.RangeEnd
		out.RangeEnd = &t
	}
	out.EntryIDs = append([]string(nil), s.EntryIDs...)
	out.Highlights = append([]string(nil), s.Highlights...)
	if s.Cards != nil {
		out.Cards = make([]Card, len(s.Cards))
		for i, c := range s.Cards {
			cc := c
			if c.Data != nil {
				cc.Data = make(map[string]any, len(c.Data))
				for k, v := range c.Data {
					cc.Data[k] = v
				}
			}
			out.Cards[i] = cc
		}
	}
	if s.Analytics != nil {
		snap := CloneSnapshot(*s.Analytics)
		out.Analytics = &snap
	}
	return out
}

// CloneSnapshot deep-copies an analytics snapshot.
func CloneSnapshot(a AnalyticsSnapshot) AnalyticsSnapshot {
	out := a
	out.MoodDistribution = append([]MoodShare(nil), a.MoodDistribution...)
	out.TopWords = append([]string(nil), a.TopWords...)
	out.Quotes = append([]string(nil), a.Quotes...)
	out.AvoidedTopics = append([]string(nil), a.AvoidedTopics...)
	if a.TimeBuckets != nil {
		out.TimeBuckets = make(map[string]int, len(a.TimeBuckets))
		for k, v := range a.TimeBuckets {
			out.TimeBuckets[k] = v
		}
	}
	if a.TopicCounts != nil {
		out.TopicCounts = make(map[string]int, len(a.TopicCounts))
		for k, v := range a.TopicCounts {
			out.TopicCounts[k] = v
		}
	}
	return out
}
