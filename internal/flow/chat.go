package flow

import (
	"context"
	"strings"
	"sync"

	"bookmind-gateway/internal/models"
)

// contextWindowSize bounds the history sent with each turn. The full
// transcript stays client-side; the backend only ever sees this suffix.
const contextWindowSize = 10

// FallbackReply is appended in place of an error banner when a turn fails,
// preserving conversational continuity.
const FallbackReply = "Sorry, I encountered an error. Please try again."

// Chat holds one book's conversation transcript. It lives for a single
// viewing session and is never persisted. Appends are strictly in submission
// order and a turn is never rolled back.
type Chat struct {
	mu         sync.Mutex
	fileID     string
	transcript []models.Message
	inFlight   bool
}

func NewChat(fileID string) *Chat {
	return &Chat{fileID: fileID}
}

// Send runs one turn: the user message is appended optimistically, the
// context window (last 10 entries, the new message included) goes to the
// backend, and the reply is appended on return. On backend failure the
// transcript gains the fixed fallback reply instead, and the backend error
// is returned alongside it so the caller can log it.
func (c *Chat) Send(ctx context.Context, backend Backend, message string) (models.Message, error) {
	if strings.TrimSpace(message) == "" {
		return models.Message{}, &ValidationError{Message: "Message cannot be empty"}
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return models.Message{}, ErrBusy
	}
	c.inFlight = true
	c.transcript = append(c.transcript, models.Message{Role: models.RoleUser, Content: message})
	window := contextWindow(c.transcript)
	c.mu.Unlock()

	response, err := backend.Chat(ctx, c.fileID, message, window)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	reply := models.Message{Role: models.RoleAssistant, Content: response}
	if err != nil {
		reply.Content = FallbackReply
	}
	c.transcript = append(c.transcript, reply)
	return reply, err
}

// Transcript returns a copy of the conversation so far.
func (c *Chat) Transcript() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// InFlight reports whether a turn is outstanding.
func (c *Chat) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// contextWindow copies the most recent entries, oldest first.
func contextWindow(transcript []models.Message) []models.Message {
	start := 0
	if len(transcript) > contextWindowSize {
		start = len(transcript) - contextWindowSize
	}
	window := make([]models.Message, len(transcript)-start)
	copy(window, transcript[start:])
	return window
}
