package models

// Recommendation is a single suggested title.
type Recommendation struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}
