// Package prompts rotates journaling prompts by time of day, day of week
// and time of year. A pack is a JSON object of bucket name to prompt list;
// the built-in pack is embedded and an on-disk pack can be hot-reloaded.
package prompts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

//go:embed prompts.json
var embeddedPack []byte

// Bucket names for the primary rotation.
const (
	BucketWeekdayMorning = "weekday_morning_mon_thu"
	BucketFridayMorning  = "friday_morning"
	BucketWeekendMorning = "weekend_morning"
	BucketMidday         = "midday_checkin"
	BucketWeekdayEvening = "weekday_evening_mon_thu"
	BucketFridayEvening  = "friday_evening"
	BucketSaturdayEve    = "saturday_evening"
	BucketSundayReset    = "sunday_evening_reset"
)

// Overlay bucket names, checked in priority order.
const (
	BucketMonthBeginning = "month_beginning"
	BucketMonthEnd       = "month_end"
	BucketSeasonSpring   = "season_spring"
	BucketSeasonSummer   = "season_summer"
)

// Pack maps bucket names to prompt lists.
type Pack map[string][]string

// Selection is a rotated prompt pair. The secondary prompt is an optional
// seasonal or month-edge overlay.
type Selection struct {
	PrimaryPrompt   string `json:"primaryPrompt"`
	SecondaryPrompt string `json:"secondaryPrompt,omitempty"`
	Bucket          string `json:"bucket"`
	SecondaryBucket string `json:"secondaryBucket,omitempty"`
}

// Engine serves prompt selections from the active pack. Refresh keeps the
// session's bucket and avoids repeating the current prompt.
type Engine struct {
	mu   sync.Mutex
	pack Pack
	rand *rand.Rand
	now  func() time.Time

	// session state for refresh
	bucket          string
	primaryPrompt   string
	secondaryPrompt string
	secondaryBucket string
}

// NewEngine starts with the embedded pack.
func NewEngine() (*Engine, error) {
	var pack Pack
	if err := json.Unmarshal(embeddedPack, &pack); err != nil {
		return nil, fmt.Errorf("decode embedded prompt pack: %w", err)
	}
	return &Engine{
		pack: pack,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
		now:  time.Now,
	}, nil
}

// SetPack swaps the active pack (hot reload).
func (e *Engine) SetPack(pack Pack) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pack = pack
}

// DetectBucket maps a moment to its primary bucket: morning is 5-11,
// midday 12-16, evening everything else, with Friday, weekend and Sunday
// variants.
func DetectBucket(now time.Time) string {
	hour := now.Hour()
	day := now.Weekday()

	isMorning := hour >= 5 && hour <= 11
	isMidday := hour >= 12 && hour <= 16

	if isMidday {
		return BucketMidday
	}
	if isMorning {
		switch day {
		case time.Friday:
			return BucketFridayMorning
		case time.Saturday, time.Sunday:
			return BucketWeekendMorning
		default:
			return BucketWeekdayMorning
		}
	}
	switch day {
	case time.Friday:
		return BucketFridayEvening
	case time.Saturday:
		return BucketSaturdayEve
	case time.Sunday:
		return BucketSundayReset
	default:
		return BucketWeekdayEvening
	}
}

// IsBeginningOfMonth reports day 1-3.
func IsBeginningOfMonth(t time.Time) bool {
	return t.Day() <= 3
}

// IsEndOfMonth reports the last three days of the month.
func IsEndOfMonth(t time.Time) bool {
	lastDay := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	return t.Day() >= lastDay-2
}

// DetectSeason returns the seasonal overlay bucket, if any. The labels are
// southern-hemisphere: Sep-Nov is spring, Dec-Feb is summer.
func DetectSeason(t time.Time) string {
	switch t.Month() {
	case time.September, time.October, time.November:
		return BucketSeasonSpring
	case time.December, time.January, time.February:
		return BucketSeasonSummer
	default:
		return ""
	}
}

// randomChoice picks uniformly, excluding one value unless that would empty
// the pool. A single-element list always returns that element.
func (e *Engine) randomChoice(list []string, exclude string) string {
	if len(list) == 0 {
		return ""
	}
	if len(list) == 1 {
		return list[0]
	}
	pool := list
	if exclude != "" {
		filtered := make([]string, 0, len(list))
		for _, p := range list {
			if p != exclude {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	}
	return pool[e.rand.Intn(len(pool))]
}

// pickOverlay checks overlay buckets in priority order: month beginning,
// month end, then season.
func (e *Engine) pickOverlay(t time.Time) (string, string) {
	var overlays []string
	if IsBeginningOfMonth(t) {
		overlays = append(overlays, BucketMonthBeginning)
	}
	if IsEndOfMonth(t) {
		overlays = append(overlays, BucketMonthEnd)
	}
	if season := DetectSeason(t); season != "" {
		overlays = append(overlays, season)
	}
	for _, bucket := range overlays {
		if list := e.pack[bucket]; len(list) > 0 {
			return e.randomChoice(list, ""), bucket
		}
	}
	return "", ""
}

// Current returns the prompt pair for right now and resets session state.
func (e *Engine) Current() (Selection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	bucket := DetectBucket(now)
	list := e.pack[bucket]
	if len(list) == 0 {
		return Selection{}, fmt.Errorf("missing or empty prompt bucket: %s", bucket)
	}

	e.bucket = bucket
	e.primaryPrompt = e.randomChoice(list, "")
	e.secondaryPrompt, e.secondaryBucket = e.pickOverlay(now)

	return e.selectionLocked(), nil
}

// Refresh re-rolls the primary prompt inside the session's bucket, avoiding
// an immediate repeat. The overlay prompt is kept. Without a session it
// behaves like Current.
func (e *Engine) Refresh() (Selection, error) {
	e.mu.Lock()
	if e.bucket == "" {
		e.mu.Unlock()
		return e.Current()
	}
	defer e.mu.Unlock()

	list := e.pack[e.bucket]
	if len(list) == 0 {
		return Selection{}, fmt.Errorf("missing or empty prompt bucket: %s", e.bucket)
	}
	e.primaryPrompt = e.randomChoice(list, e.primaryPrompt)
	return e.selectionLocked(), nil
}

func (e *Engine) selectionLocked() Selection {
	return Selection{
		PrimaryPrompt:   e.primaryPrompt,
		SecondaryPrompt: e.secondaryPrompt,
		Bucket:          e.bucket,
		SecondaryBucket: e.secondaryBucket,
	}
}
