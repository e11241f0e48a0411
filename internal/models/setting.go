package models

import "time"

// Cadence values for summary and wrapped generation.
const (
	CadenceManual  = "manual"
	CadenceWeekly  = "weekly"
	CadenceMonthly = "monthly"
	CadenceYearly  = "yearly"
)

// RetentionTypeCount keeps the N most recent entries. A "days" policy is
// referenced by the UI but not implemented yet.
const RetentionTypeCount = "count"

// RetentionPolicy governs how many entries are kept before older ones purge.
type RetentionPolicy struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

// Settings is the per-installation singleton (stored under id "app").
type Settings struct {
	ID             string          `json:"id"`
	UserName       string          `json:"userName"`
	CurrentPrompt  string          `json:"currentPrompt"`
	SummaryCadence string          `json:"summaryCadence"`
	WrappedCadence string          `json:"wrappedCadence"`
	Prompts        []string        `json:"prompts"`
	LastSummaryRun *time.Time      `json:"lastSummaryRun"`
	DataRetention  RetentionPolicy `json:"dataRetention"`
}

// SettingsPatch is a partial update; nil fields are left untouched.
type SettingsPatch struct {
	UserName       *string          `json:"userName,omitempty"`
	CurrentPrompt  *string          `json:"currentPrompt,omitempty"`
	SummaryCadence *string          `json:"summaryCadence,omitempty"`
	WrappedCadence *string          `json:"wrappedCadence,omitempty"`
	Prompts        []string         `json:"prompts,omitempty"`
	LastSummaryRun *time.Time       `json:"lastSummaryRun,omitempty"`
	DataRetention  *RetentionPolicy `json:"dataRetention,omitempty"`
}

// DefaultSettings returns the first-run settings record.
func DefaultSettings() Settings {
	return Settings{
		ID:             "app",
		UserName:       "name",
		CurrentPrompt:  "what surprised you today?",
		SummaryCadence: CadenceWeekly,
		WrappedCadence: CadenceWeekly,
		Prompts:        []string{},
		LastSummaryRun: nil,
		DataRetention:  RetentionPolicy{Type: RetentionTypeCount, Value: 50},
	}
}

// Apply merges a patch into settings and returns the result.
func (s Settings) Apply(patch SettingsPatch) Settings {
	next := s
	if patch.UserName != nil {
		next.UserName = *patch.UserName
	}
	if patch.CurrentPrompt != nil {
		next.CurrentPrompt = *patch.CurrentPrompt
	}
	if patch.SummaryCadence != nil {
		next.SummaryCadence = *patch.SummaryCadence
	}
	if patch.WrappedCadence != nil {
		next.WrappedCadence = *patch.WrappedCadence
	}
	if patch.Prompts != nil {
		next.Prompts = append([]string(nil), patch.Prompts...)
	}
	if patch.LastSummaryRun != nil {
		t := *patch.LastSummaryRun
		next.LastSummaryRun = &t
	}
	if patch.DataRetention != nil {
		next.DataRetention = *patch.DataRetention
	}
	return next
}

// CloneSettings returns a deep copy safe to hand to callers.
func CloneSettings(s Settings) Settings {
	out := s
	if s.Prompts != nil {
		out.Prompts = append([]string(nil), s.Prompts...)
	}
	if s.LastSummaryRun != nil {
		t := *s.LastSummaryRun
		out.LastSummaryRun = &t
	}
	return out
}
