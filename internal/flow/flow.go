// Package flow holds the per-view state machines of the gateway: upload,
// summary, chat and recommendation. Each flow owns one slice of transient
// state, allows a single in-flight backend request at a time, and talks to
// the backend only through the Backend interface.
package flow

import (
	"context"
	"errors"
	"io"

	"bookmind-gateway/internal/models"
)

// Backend is the slice of the API client the flows consume.
type Backend interface {
	Upload(ctx context.Context, filename string, content io.Reader) (*models.UploadedFile, error)
	Summarize(ctx context.Context, fileID string) (*models.Summary, error)
	Chat(ctx context.Context, fileID, message string, history []models.Message) (string, error)
	Recommend(ctx context.Context, interests, basedOnFileID string) ([]models.Recommendation, error)
}

// ErrBusy means the flow already has a request in flight. The UI surfaces it
// by keeping the triggering control disabled; it never queues.
var ErrBusy = errors.New("request already in progress")

// ValidationError is a locally resolved rejection. It carries the exact
// user-facing message and never causes a backend call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AsValidation reports whether err is a local validation failure.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
