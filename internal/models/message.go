package models

// Role tags who authored a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single transcript entry, exchanged with the backend chat
// endpoint as `{role, content}`.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
