package summary

import (
	"fmt"
	"strings"

	"nuuko/internal/models"
)

// buildFallbackSummary produces a deterministic template summary from the
// analytics snapshot alone. It never touches the network, so it always
// succeeds; used for both quota and token-threshold fallbacks.
func buildFallbackSummary(userName, cadence string, snapshot models.AnalyticsSnapshot) (string, []string) {
	name := userName
	if name == "" {
		name = "there"
	}

	var paragraphs []string
	var highlights []string

	opening := fmt.Sprintf("Hey %s, here is your %s in review.", name, cadence)
	if snapshot.DaysJournaled == 0 {
		paragraphs = append(paragraphs, opening+" You did not write this time, and that is okay. The page will be here when you are ready.")
		return strings.Join(paragraphs, "\n\n"), []string{"No entries this period."}
	}

	dayWord := "days"
	if snapshot.DaysJournaled == 1 {
		dayWord = "day"
	}
	volume := fmt.Sprintf("You showed up on %d %s and wrote %d words — %s.",
		snapshot.DaysJournaled, dayWord, snapshot.TotalWords, snapshot.WordContextLabel)
	paragraphs = append(paragraphs, opening+" "+volume)
	highlights = append(highlights, fmt.Sprintf("%d %s journaled, %d words in total.", snapshot.DaysJournaled, dayWord, snapshot.TotalWords))

	if snapshot.LongestStreak > 1 {
		streak := fmt.Sprintf("Your longest run was %d days in a row.", snapshot.LongestStreak)
		paragraphs = append(paragraphs, streak)
		highlights = append(highlights, fmt.Sprintf("Longest streak: %d days.", snapshot.LongestStreak))
	}

	if len(snapshot.MoodDistribution) > 0 {
		top := snapshot.MoodDistribution[0]
		mood := fmt.Sprintf("The mood that came up most was %s (%d%% of your entries).", top.Mood, top.Percentage)
		if snapshot.StartPhraseShare > 0 {
			mood += fmt.Sprintf(" About %.0f%% of your entries opened with how you feel.", snapshot.StartPhraseShare*100)
		}
		paragraphs = append(paragraphs, mood)
		highlights = append(highlights, fmt.Sprintf("Most frequent mood: %s.", top.Mood))
	}

	if len(snapshot.TopWords) > 0 {
		n := len(snapshot.TopWords)
		if n > 3 {
			n = 3
		}
		words := strings.Join(snapshot.TopWords[:n], ", ")
		paragraphs = append(paragraphs, fmt.Sprintf("Words you kept coming back to: %s. Your %s writing leaned %s.",
			words, cadence, snapshot.MostActiveTime))
		highlights = append(highlights, fmt.Sprintf("Recurring words: %s.", words))
	}

	return strings.Join(paragraphs, "\n\n"), highlights
}
