// Package analytics computes derived journaling metrics. Every function is
// pure: pass an entry set, get structured stats back. Callers own the
// slices they pass in; nothing here mutates them.
package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"nuuko/internal/models"
)

// moodScores maps mood labels to a numeric 1-4 scale. Unknown moods score
// as neutral.
var moodScores = map[string]int{
	"joyful":     4,
	"happy":      4,
	"calm":       3,
	"thoughtful": 3,
	"neutral":    2,
	"meh":        2,
	"low":        1,
	"sad":        1,
	"anxious":    1,
	"stressed":   1,
}

const defaultMoodScore = 2

// JournalingStats summarizes writing volume and consistency.
type JournalingStats struct {
	TotalWords         int `json:"totalWords"`
	DaysWritten        int `json:"daysWritten"`
	LongestStreak      int `json:"longestStreak"`
	AverageWordsPerDay int `json:"averageWordsPerDay"`
}

// TimeBin is one time-of-day bucket with its share of entries.
type TimeBin struct {
	Label      string `json:"label"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// TimeOfDay holds the four fixed buckets and the dominant one.
type TimeOfDay struct {
	Bins         []TimeBin `json:"bins"`
	PrimaryLabel string    `json:"primaryLabel"`
}

// MoodPoint is one calendar day in the mood series.
type MoodPoint struct {
	Day          string  `json:"day"`
	AverageScore float64 `json:"averageScore"`
	TopMood      string  `json:"topMood"`
}

// Quote is a standout snippet ranked by length.
type Quote struct {
	ID        string    `json:"id"`
	Snippet   string    `json:"snippet"`
	WordCount int       `json:"wordCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// WrappedMetrics bundles everything the wrapped collage needs.
type WrappedMetrics struct {
	Stats      JournalingStats `json:"stats"`
	TimeOfDay  TimeOfDay       `json:"timeOfDay"`
	MoodSeries []MoodPoint     `json:"moodSeries"`
	Quotes     []Quote         `json:"quotes"`
	Entries    []models.Entry  `json:"entries"`
}

// Range bounds a metric computation. Zero bounds mean unbounded; bounds are
// inclusive on both ends.
type Range struct {
	Start time.Time
	End   time.Time
}

// Options tunes ComputeWrappedMetrics.
type Options struct {
	Range     Range
	MaxQuotes int
}

// ComputeWrappedMetrics filters entries to the range and derives the full
// metric set.
func ComputeWrappedMetrics(entries []models.Entry, opts Options) WrappedMetrics {
	filtered := FilterByRange(entries, opts.Range)
	maxQuotes := opts.MaxQuotes
	if maxQuotes <= 0 {
		maxQuotes = 3
	}
	return WrappedMetrics{
		Stats:      ComputeJournalingStats(filtered),
		TimeOfDay:  BuildTimeOfDayBins(filtered),
		MoodSeries: BuildMoodSeries(filtered),
		Quotes:     PickStandoutQuotes(filtered, maxQuotes),
		Entries:    filtered,
	}
}

// FilterByRange keeps entries whose createdAt falls inside the inclusive
// bounds. Entries with a zero createdAt are dropped when any bound is set.
func FilterByRange(entries []models.Entry, r Range) []models.Entry {
	if r.Start.IsZero() && r.End.IsZero() {
		return append([]models.Entry(nil), entries...)
	}
	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if e.CreatedAt.IsZero() {
			continue
		}
		if !r.Start.IsZero() && e.CreatedAt.Before(r.Start) {
			continue
		}
		if !r.End.IsZero() && e.CreatedAt.After(r.End) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ComputeJournalingStats derives word totals, distinct days, the longest
// consecutive-day streak, and the per-day average.
func ComputeJournalingStats(entries []models.Entry) JournalingStats {
	if len(entries) == 0 {
		return JournalingStats{}
	}

	days := make(map[string]struct{})
	totalWords := 0
	for _, e := range entries {
		if key, ok := dayKey(e.CreatedAt); ok {
			days[key] = struct{}{}
		}
		totalWords += e.EffectiveWordCount()
	}

	daysWritten := len(days)
	avg := 0
	if daysWritten > 0 {
		avg = int(math.Round(float64(totalWords) / float64(daysWritten)))
	}

	return JournalingStats{
		TotalWords:         totalWords,
		DaysWritten:        daysWritten,
		LongestStreak:      LongestStreak(days),
		AverageWordsPerDay: avg,
	}
}

// LongestStreak returns the longest run of consecutive calendar days.
func LongestStreak(days map[string]struct{}) int {
	if len(days) == 0 {
		return 0
	}
	sorted := sortedDayTimes(days)
	longest, current := 1, 1
	for i := 1; i < len(sorted); i++ {
		diff := sorted[i].Sub(sorted[i-1]).Hours() / 24
		if diff == 1 {
			current++
			if current > longest {
				longest = current
			}
		} else if diff > 1 {
			current = 1
		}
	}
	return longest
}

// CurrentStreak walks distinct days newest-first and counts how many
// consecutive days lead up to the most recent entry. It stops at the first
// gap rather than resetting, so the streak need not end today.
func CurrentStreak(entries []models.Entry) int {
	days := make(map[string]struct{})
	for _, e := range entries {
		if key, ok := dayKey(e.CreatedAt); ok {
			days[key] = struct{}{}
		}
	}
	if len(days) == 0 {
		return 0
	}
	sorted := sortedDayTimes(days)
	streak := 1
	prev := sorted[len(sorted)-1]
	for i := len(sorted) - 2; i >= 0; i-- {
		diff := prev.Sub(sorted[i]).Hours() / 24
		if diff == 1 {
			streak++
			prev = sorted[i]
		} else if diff > 1 {
			break
		}
	}
	return streak
}

// BuildTimeOfDayBins counts entries into four fixed local-hour buckets:
// morning [5,11), afternoon [11,17), evening [17,22), night [22,5).
// Ties on the primary label resolve in declaration order.
func BuildTimeOfDayBins(entries []models.Entry) TimeOfDay {
	type binDef struct {
		label    string
		from, to int
		wrap     bool
	}
	defs := []binDef{
		{label: "morning", from: 5, to: 11},
		{label: "afternoon", from: 11, to: 17},
		{label: "evening", from: 17, to: 22},
		{label: "night", from: 22, to: 24, wrap: true},
	}
	counts := make([]int, len(defs))

	for _, e := range entries {
		if e.CreatedAt.IsZero() {
			continue
		}
		hour := e.CreatedAt.Local().Hour()
		for i, def := range defs {
			if def.wrap {
				if hour >= def.from || hour < 5 {
					counts[i]++
				}
			} else if hour >= def.from && hour < def.to {
				counts[i]++
			}
		}
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		total = 1
	}

	out := TimeOfDay{Bins: make([]TimeBin, len(defs))}
	best := 0
	for i, def := range defs {
		out.Bins[i] = TimeBin{
			Label:      def.label,
			Count:      counts[i],
			Percentage: int(math.Round(float64(counts[i]) / float64(total) * 100)),
		}
		if counts[i] > counts[best] {
			best = i
		}
	}
	out.PrimaryLabel = defs[best].label
	return out
}

// BuildMoodSeries groups entries by calendar day, averaging mood scores and
// picking the day's most frequent mood. Ties on topMood keep the mood seen
// first that day. The series is sorted ascending by day.
func BuildMoodSeries(entries []models.Entry) []MoodPoint {
	type dayAgg struct {
		moods    map[string]int
		order    []string
		scoreSum int
		count    int
	}
	byDay := make(map[string]*dayAgg)

	for _, e := range entries {
		key, ok := dayKey(e.CreatedAt)
		if !ok {
			continue
		}
		mood := strings.ToLower(e.Mood)
		score, known := moodScores[mood]
		if !known {
			score = defaultMoodScore
		}
		agg := byDay[key]
		if agg == nil {
			agg = &dayAgg{moods: make(map[string]int)}
			byDay[key] = agg
		}
		if _, seen := agg.moods[mood]; !seen {
			agg.order = append(agg.order, mood)
		}
		agg.moods[mood]++
		agg.scoreSum += score
		agg.count++
	}

	series := make([]MoodPoint, 0, len(byDay))
	for day, agg := range byDay {
		top := ""
		topCount := 0
		for _, mood := range agg.order {
			if agg.moods[mood] > topCount {
				top = mood
				topCount = agg.moods[mood]
			}
		}
		if top == "" {
			top = "neutral"
		}
		avg := float64(agg.scoreSum) / float64(agg.count)
		series = append(series, MoodPoint{
			Day:          day,
			AverageScore: math.Round(avg*100) / 100,
			TopMood:      top,
		})
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Day < series[j].Day })
	return series
}

// PickStandoutQuotes truncates entry content to 220 characters and ranks
// candidates by word count descending, tie-broken by createdAt descending.
func PickStandoutQuotes(entries []models.Entry, max int) []Quote {
	candidates := make([]Quote, 0, len(entries))
	for _, e := range entries {
		text := strings.TrimSpace(e.Content)
		if text == "" {
			continue
		}
		snippet := text
		if runes := []rune(text); len(runes) > 220 {
			snippet = string(runes[:217]) + "…"
		}
		candidates = append(candidates, Quote{
			ID:        e.ID,
			Snippet:   snippet,
			WordCount: e.EffectiveWordCount(),
			CreatedAt: e.CreatedAt,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].WordCount != candidates[j].WordCount {
			return candidates[i].WordCount > candidates[j].WordCount
		}
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})

	if max < len(candidates) {
		candidates = candidates[:max]
	}
	return candidates
}

// AvoidanceShare is the tag share of one fixed topic category.
type AvoidanceShare struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// ComputeAvoidance splits tagged entries across the fixed categories
// work/social/health/self. With no tagged entries each category gets an
// even 25%.
func ComputeAvoidance(entries []models.Entry) []AvoidanceShare {
	categories := []string{"work", "social", "health", "self"}
	counts := make(map[string]int, len(categories))
	total := 0
	for _, e := range entries {
		for _, tag := range e.Tags {
			key := strings.ToLower(tag)
			for _, cat := range categories {
				if key == cat {
					counts[cat]++
					total++
				}
			}
		}
	}

	out := make([]AvoidanceShare, len(categories))
	for i, cat := range categories {
		value := 25
		if total > 0 {
			value = int(math.Round(float64(counts[cat]) / float64(total) * 100))
		}
		out[i] = AvoidanceShare{Label: cat, Value: value}
	}
	return out
}

func dayKey(t time.Time) (string, bool) {
	if t.IsZero() {
		return "", false
	}
	return t.Local().Format("2006-01-02"), true
}

func sortedDayTimes(days map[string]struct{}) []time.Time {
	out := make([]time.Time, 0, len(days))
	for key := range days {
		t, err := time.ParseInLocation("2006-01-02", key, time.Local)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
