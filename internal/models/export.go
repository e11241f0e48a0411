package models

// ExportPayload is the full-store snapshot produced by exportData and
// accepted by importData.
type ExportPayload struct {
	Entries   []Entry               `json:"entries"`
	Stats     *Stats                `json:"stats,omitempty"`
	Settings  *Settings             `json:"settings,omitempty"`
	Summaries []SummaryRecord       `json:"summaries,omitempty"`
	Insights  []InsightsCacheRecord `json:"insights,omitempty"`
}
