package analytics

import (
	"sort"
	"strings"

	"nuuko/internal/models"
)

// stopwords excluded from top-word frequency counts.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"i": {}, "you": {}, "he": {}, "she": {}, "we": {}, "they": {}, "it": {},
	"to": {}, "of": {}, "for": {}, "in": {}, "on": {}, "at": {}, "with": {},
	"my": {}, "your": {}, "their": {}, "is": {}, "was": {}, "am": {},
	"are": {}, "be": {}, "me": {},
}

// topicCategories are the fixed topic buckets tracked for avoidance.
var topicCategories = []string{"work", "social", "health", "self"}

// BuildSnapshot derives the analytics snapshot embedded in summary records.
// Deterministic: the same entry set always yields the same snapshot.
func BuildSnapshot(entries []models.Entry) models.AnalyticsSnapshot {
	if len(entries) == 0 {
		return models.AnalyticsSnapshot{
			WordContextLabel: "a gentle start",
			MoodDistribution: []models.MoodShare{},
			TimeBuckets:      map[string]int{},
			TopWords:         []string{},
			Quotes:           []string{},
			TopicCounts:      emptyTopicCounts(),
			AvoidedTopics:    append([]string(nil), topicCategories...),
			MostActiveTime:   "evening",
		}
	}

	days := make(map[string]struct{})
	totalWords := 0
	startFeelCount := 0
	moodCounts := make(map[string]int)
	moodOrder := []string{}
	timeBuckets := make(map[string]int)

	for _, e := range entries {
		if key, ok := dayKey(e.CreatedAt); ok {
			days[key] = struct{}{}
		}
		totalWords += e.WordCount
		if e.StartingPhraseCategory == "i_feel" {
			startFeelCount++
		}
		if e.Mood != "" {
			mood := strings.ToLower(e.Mood)
			if _, seen := moodCounts[mood]; !seen {
				moodOrder = append(moodOrder, mood)
			}
			moodCounts[mood]++
		}
		bucket := e.TimeBucket
		if bucket == "" {
			bucket = "evening"
		}
		timeBuckets[bucket]++
	}

	distribution := make([]models.MoodShare, 0, len(moodCounts))
	for _, mood := range moodOrder {
		count := moodCounts[mood]
		distribution = append(distribution, models.MoodShare{
			Mood:       mood,
			Count:      count,
			Percentage: roundPercent(count, len(entries)),
		})
	}
	sort.SliceStable(distribution, func(i, j int) bool {
		return distribution[i].Count > distribution[j].Count
	})

	topicCounts := emptyTopicCounts()
	for _, e := range entries {
		for _, cat := range topicCategories {
			for _, topic := range e.Topics {
				if topic == cat {
					topicCounts[cat]++
					break
				}
			}
		}
	}
	avoided := []string{}
	for _, cat := range topicCategories {
		if topicCounts[cat] == 0 {
			avoided = append(avoided, cat)
		}
	}

	return models.AnalyticsSnapshot{
		DaysJournaled:    len(days),
		LongestStreak:    LongestStreak(days),
		TotalWords:       totalWords,
		WordContextLabel: WordContextLabel(totalWords),
		StartPhraseShare: float64(startFeelCount) / float64(len(entries)),
		MoodDistribution: distribution,
		TimeBuckets:      timeBuckets,
		TopWords:         TopWords(entries, 8),
		Quotes:           snapshotQuotes(entries, 2),
		TopicCounts:      topicCounts,
		AvoidedTopics:    avoided,
		MostActiveTime:   mostActiveBucket(timeBuckets),
	}
}

// WordContextLabel gives a qualitative size label for a word total.
func WordContextLabel(totalWords int) string {
	switch {
	case totalWords >= 50000:
		return "basically a novel"
	case totalWords >= 20000:
		return "half a novel"
	case totalWords >= 10000:
		return "like a short story collection"
	case totalWords >= 5000:
		return "like a long essay"
	case totalWords >= 1000:
		return "a lovely zine"
	default:
		return "a gentle start"
	}
}

// TopWords returns the most frequent non-stopword words, most frequent
// first. Ties order alphabetically so results stay deterministic.
func TopWords(entries []models.Entry, max int) []string {
	frequency := make(map[string]int)
	for _, e := range entries {
		for _, word := range tokenize(e.Content) {
			frequency[word]++
		}
	}

	words := make([]string, 0, len(frequency))
	for word := range frequency {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if frequency[words[i]] != frequency[words[j]] {
			return frequency[words[i]] > frequency[words[j]]
		}
		return words[i] < words[j]
	})

	if max < len(words) {
		words = words[:max]
	}
	return words
}

// snapshotQuotes collects short sentences (20-160 chars) in entry order.
func snapshotQuotes(entries []models.Entry, max int) []string {
	quotes := []string{}
	for _, e := range entries {
		for _, sentence := range splitSentences(e.Content) {
			if len(sentence) >= 20 && len(sentence) <= 160 {
				quotes = append(quotes, sentence)
				if len(quotes) >= max {
					return quotes
				}
			}
		}
	}
	return quotes
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func tokenize(content string) []string {
	lowered := strings.ToLower(content)
	var b strings.Builder
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || r == ' ' || r == '\n' || r == '\t' {
			b.WriteRune(r)
		}
	}
	fields := strings.Fields(b.String())
	out := fields[:0]
	for _, w := range fields {
		if _, stop := stopwords[w]; !stop {
			out = append(out, w)
		}
	}
	return out
}

func mostActiveBucket(buckets map[string]int) string {
	best := "evening"
	bestCount := -1
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if buckets[k] > bestCount {
			best = k
			bestCount = buckets[k]
		}
	}
	return best
}

func roundPercent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(float64(part)/float64(total)*100 + 0.5)
}

func emptyTopicCounts() map[string]int {
	counts := make(map[string]int, len(topicCategories))
	for _, cat := range topicCategories {
		counts[cat] = 0
	}
	return counts
}
