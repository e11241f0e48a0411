package analytics

import (
	"strings"
	"testing"
	"time"

	"nuuko/internal/models"
)

func dayEntry(id string, t time.Time, words int) models.Entry {
	return models.Entry{
		ID:        id,
		Content:   strings.Repeat("word ", words),
		WordCount: words,
		CreatedAt: t,
	}
}

func localDay(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.Local)
}

func daySet(times ...time.Time) map[string]struct{} {
	out := make(map[string]struct{}, len(times))
	for _, t := range times {
		out[t.Local().Format("2006-01-02")] = struct{}{}
	}
	return out
}

func TestLongestStreak(t *testing.T) {
	d := func(day int) time.Time { return localDay(2026, time.March, day) }

	cases := []struct {
		name string
		days map[string]struct{}
		want int
	}{
		{"empty", daySet(), 0},
		{"single day", daySet(d(1)), 1},
		{"gap after two", daySet(d(1), d(2), d(4)), 2},
		{"three consecutive", daySet(d(1), d(2), d(3)), 3},
		{"duplicates collapse", daySet(d(5), d(5), d(6)), 2},
	}
	for _, tc := range cases {
		if got := LongestStreak(tc.days); got != tc.want {
			t.Errorf("%s: got streak %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestCurrentStreakStopsAtFirstGap(t *testing.T) {
	today := localDay(2026, time.March, 10)
	entries := []models.Entry{
		dayEntry("a", today, 5),
		dayEntry("b", today.AddDate(0, 0, -1), 5),
		dayEntry("c", today.AddDate(0, 0, -3), 5),
	}
	if got := CurrentStreak(entries); got != 2 {
		t.Errorf("got current streak %d, want 2", got)
	}
	if got := CurrentStreak(nil); got != 0 {
		t.Errorf("empty set: got %d, want 0", got)
	}
}

func TestFilterByRange(t *testing.T) {
	entries := []models.Entry{
		dayEntry("before", localDay(2026, time.January, 1), 1),
		dayEntry("inside", localDay(2026, time.February, 1), 1),
		dayEntry("edge", localDay(2026, time.February, 10), 1),
		{ID: "undated", Content: "no timestamp"},
	}
	r := Range{Start: localDay(2026, time.February, 1), End: localDay(2026, time.February, 10)}

	got := FilterByRange(entries, r)
	if len(got) != 2 || got[0].ID != "inside" || got[1].ID != "edge" {
		t.Fatalf("unexpected filter result: %+v", got)
	}

	// No bounds keeps everything, including undated entries.
	if got := FilterByRange(entries, Range{}); len(got) != 4 {
		t.Errorf("unbounded filter dropped entries: %d", len(got))
	}
}

func TestComputeJournalingStats(t *testing.T) {
	entries := []models.Entry{
		dayEntry("a", localDay(2026, time.March, 1), 100),
		dayEntry("b", localDay(2026, time.March, 1), 50),
		dayEntry("c", localDay(2026, time.March, 2), 150),
	}
	stats := ComputeJournalingStats(entries)
	if stats.TotalWords != 300 {
		t.Errorf("total words: got %d, want 300", stats.TotalWords)
	}
	if stats.DaysWritten != 2 {
		t.Errorf("days written: got %d, want 2", stats.DaysWritten)
	}
	if stats.LongestStreak != 2 {
		t.Errorf("longest streak: got %d, want 2", stats.LongestStreak)
	}
	if stats.AverageWordsPerDay != 150 {
		t.Errorf("average: got %d, want 150", stats.AverageWordsPerDay)
	}

	if empty := ComputeJournalingStats(nil); empty != (JournalingStats{}) {
		t.Errorf("empty set produced stats: %+v", empty)
	}
}

func TestBuildTimeOfDayBins(t *testing.T) {
	at := func(hour int) time.Time {
		return time.Date(2026, time.March, 1, hour, 30, 0, 0, time.Local)
	}
	entries := []models.Entry{
		dayEntry("m1", at(8), 1),
		dayEntry("m2", at(9), 1),
		dayEntry("a1", at(14), 1),
		dayEntry("n1", at(23), 1),
		dayEntry("n2", at(2), 1),
		dayEntry("n3", at(4), 1),
	}
	tod := BuildTimeOfDayBins(entries)
	if tod.PrimaryLabel != "night" {
		t.Errorf("primary label: got %q, want night", tod.PrimaryLabel)
	}
	byLabel := make(map[string]TimeBin)
	for _, bin := range tod.Bins {
		byLabel[bin.Label] = bin
	}
	if byLabel["morning"].Count != 2 || byLabel["afternoon"].Count != 1 || byLabel["night"].Count != 3 {
		t.Errorf("unexpected bin counts: %+v", tod.Bins)
	}
	if byLabel["night"].Percentage != 50 {
		t.Errorf("night percentage: got %d, want 50", byLabel["night"].Percentage)
	}
}

func TestBuildMoodSeries(t *testing.T) {
	day := localDay(2026, time.March, 3)
	entries := []models.Entry{
		{ID: "a", Mood: "happy", CreatedAt: day},   // score 4
		{ID: "b", Mood: "low", CreatedAt: day},     // score 1
		{ID: "c", Mood: "unknown", CreatedAt: day}, // neutral 2
		{ID: "d", Mood: "calm", CreatedAt: day.AddDate(0, 0, 1)},
	}
	series := BuildMoodSeries(entries)
	if len(series) != 2 {
		t.Fatalf("expected 2 days, got %d", len(series))
	}
	first := series[0]
	if first.Day != day.Format("2006-01-02") {
		t.Errorf("series not sorted ascending: %+v", series)
	}
	// (4+1+2)/3
	if first.AverageScore != 2.33 {
		t.Errorf("average score: got %v, want 2.33", first.AverageScore)
	}
	// All moods tie at one entry; the first mood seen that day wins.
	if first.TopMood != "happy" {
		t.Errorf("top mood tie: got %q, want happy", first.TopMood)
	}
	if series[1].TopMood != "calm" || series[1].AverageScore != 3 {
		t.Errorf("second day: %+v", series[1])
	}
}

func TestPickStandoutQuotes(t *testing.T) {
	long := strings.Repeat("x", 300)
	entries := []models.Entry{
		{ID: "short", Content: "tiny note", WordCount: 2, CreatedAt: localDay(2026, time.March, 1)},
		{ID: "long", Content: long, WordCount: 50, CreatedAt: localDay(2026, time.March, 2)},
		{ID: "wordy", Content: "many words in this one entry", WordCount: 6, CreatedAt: localDay(2026, time.March, 3)},
		{ID: "blank", Content: "   "},
	}
	quotes := PickStandoutQuotes(entries, 2)
	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(quotes))
	}
	if quotes[0].ID != "long" || quotes[1].ID != "wordy" {
		t.Errorf("ranking by word count: got %q, %q", quotes[0].ID, quotes[1].ID)
	}
	if len([]rune(quotes[0].Snippet)) != 218 || !strings.HasSuffix(quotes[0].Snippet, "…") {
		t.Errorf("long quote not truncated: %d runes", len([]rune(quotes[0].Snippet)))
	}
}

func TestComputeAvoidance(t *testing.T) {
	entries := []models.Entry{
		{ID: "a", Tags: []string{"Work", "misc"}},
		{ID: "b", Tags: []string{"work"}},
		{ID: "c", Tags: []string{"health"}},
	}
	shares := ComputeAvoidance(entries)
	byLabel := make(map[string]int)
	for _, s := range shares {
		byLabel[s.Label] = s.Value
	}
	if byLabel["work"] != 67 || byLabel["health"] != 33 || byLabel["social"] != 0 {
		t.Errorf("unexpected shares: %+v", shares)
	}

	// No tagged entries: even split.
	for _, s := range ComputeAvoidance(nil) {
		if s.Value != 25 {
			t.Errorf("untagged split: %+v", s)
		}
	}
}

func TestBuildSnapshotEmpty(t *testing.T) {
	snap := BuildSnapshot(nil)
	if snap.WordContextLabel != "a gentle start" {
		t.Errorf("label: got %q", snap.WordContextLabel)
	}
	if snap.MostActiveTime != "evening" {
		t.Errorf("most active: got %q", snap.MostActiveTime)
	}
	if len(snap.AvoidedTopics) != 4 {
		t.Errorf("avoided topics: %v", snap.AvoidedTopics)
	}
}

func TestBuildSnapshot(t *testing.T) {
	day := localDay(2026, time.April, 1)
	entries := []models.Entry{
		{
			ID: "a", Mood: "calm", WordCount: 600, CreatedAt: day,
			Content:                "The garden keeps me grounded. Garden mornings feel slow and kind.",
			StartingPhraseCategory: "i_feel",
			TimeBucket:             "morning",
			Topics:                 []string{"health"},
		},
		{
			ID: "b", Mood: "calm", WordCount: 500, CreatedAt: day.AddDate(0, 0, 1),
			Content:    "Back to the garden again today.",
			TimeBucket: "morning",
		},
		{
			ID: "c", Mood: "low", WordCount: 100, CreatedAt: day.AddDate(0, 0, 2),
			Content:    "A rough evening.",
			TimeBucket: "evening",
		},
	}
	snap := BuildSnapshot(entries)

	if snap.DaysJournaled != 3 || snap.LongestStreak != 3 {
		t.Errorf("days/streak: %d/%d", snap.DaysJournaled, snap.LongestStreak)
	}
	if snap.TotalWords != 1200 || snap.WordContextLabel != "a lovely zine" {
		t.Errorf("words: %d %q", snap.TotalWords, snap.WordContextLabel)
	}
	if snap.StartPhraseShare < 0.33 || snap.StartPhraseShare > 0.34 {
		t.Errorf("start phrase share: %v", snap.StartPhraseShare)
	}
	if len(snap.MoodDistribution) == 0 || snap.MoodDistribution[0].Mood != "calm" || snap.MoodDistribution[0].Percentage != 67 {
		t.Errorf("mood distribution: %+v", snap.MoodDistribution)
	}
	if snap.MostActiveTime != "morning" {
		t.Errorf("most active: %q", snap.MostActiveTime)
	}
	if len(snap.TopWords) == 0 || snap.TopWords[0] != "garden" {
		t.Errorf("top words: %v", snap.TopWords)
	}
	if snap.TopicCounts["health"] != 1 {
		t.Errorf("topic counts: %v", snap.TopicCounts)
	}
	for _, avoided := range snap.AvoidedTopics {
		if avoided == "health" {
			t.Errorf("health counted yet avoided: %v", snap.AvoidedTopics)
		}
	}
}

func TestWordContextLabel(t *testing.T) {
	cases := []struct {
		words int
		want  string
	}{
		{0, "a gentle start"},
		{999, "a gentle start"},
		{1000, "a lovely zine"},
		{5000, "like a long essay"},
		{10000, "like a short story collection"},
		{20000, "half a novel"},
		{50000, "basically a novel"},
	}
	for _, tc := range cases {
		if got := WordContextLabel(tc.words); got != tc.want {
			t.Errorf("%d words: got %q, want %q", tc.words, got, tc.want)
		}
	}
}

func TestTopWordsDeterministicTies(t *testing.T) {
	entries := []models.Entry{
		{ID: "a", Content: "river stone river stone moss"},
	}
	words := TopWords(entries, 3)
	if len(words) != 3 {
		t.Fatalf("got %d words", len(words))
	}
	// river and stone tie at two; alphabetical order breaks the tie.
	if words[0] != "river" || words[1] != "stone" || words[2] != "moss" {
		t.Errorf("unexpected order: %v", words)
	}
}
