package models

// Summary is one summarize response. A regeneration replaces it wholesale;
// summaries are never merged or diffed.
type Summary struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}
