package flow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"bookmind-gateway/internal/models"
)

// UploadPolicy mirrors the limits the backend enforces, so disallowed files
// are rejected before any bytes leave the gateway.
type UploadPolicy struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// Validate checks a candidate file against the policy. head is a sniff of
// the file's first bytes (up to 512); pass nil to skip content-type checks.
// Both input paths of the UI (picker and drag-and-drop) go through this same
// check with identical rules.
func (p UploadPolicy) Validate(filename string, size int64, head []byte) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !p.extensionAllowed(ext) {
		return &ValidationError{
			Message: fmt.Sprintf("Invalid file type. Allowed: %s", strings.Join(p.AllowedExtensions, ", ")),
		}
	}
	if size == 0 {
		return &ValidationError{Message: "File is empty"}
	}
	if size > p.MaxBytes {
		return &ValidationError{
			Message: fmt.Sprintf("File too large. Maximum size: %dMB", p.MaxBytes/(1024*1024)),
		}
	}
	if len(head) > 0 {
		contentType := http.DetectContentType(head)
		if !contentTypeAllowed(contentType) {
			return &ValidationError{
				Message: fmt.Sprintf("Invalid file type. Allowed: %s", strings.Join(p.AllowedExtensions, ", ")),
			}
		}
	}
	return nil
}

func (p UploadPolicy) extensionAllowed(ext string) bool {
	for _, allowed := range p.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func contentTypeAllowed(contentType string) bool {
	return contentType == "application/pdf" || strings.HasPrefix(contentType, "text/")
}

// UploadStatus labels the upload flow's state machine.
type UploadStatus string

const (
	UploadIdle      UploadStatus = "idle"
	UploadSelected  UploadStatus = "file-selected"
	UploadUploading UploadStatus = "uploading"
)

// Upload submits one file at a time. On success the selection is cleared;
// on failure it is retained so the user can retry without reselecting.
type Upload struct {
	mu       sync.Mutex
	policy   UploadPolicy
	inFlight bool
	selected string
	lastErr  string
	last     *models.UploadedFile
}

func NewUpload(policy UploadPolicy) *Upload {
	return &Upload{policy: policy}
}

// UploadSnapshot is the flow state the dashboard view renders.
type UploadSnapshot struct {
	Status   UploadStatus        `json:"status"`
	Selected string              `json:"selected,omitempty"`
	Error    string              `json:"error,omitempty"`
	Last     *models.UploadedFile `json:"last_upload,omitempty"`
}

// Submit validates the candidate and forwards it to the backend. Validation
// failures return a *ValidationError without any backend call.
func (u *Upload) Submit(ctx context.Context, backend Backend, filename string, size int64, head []byte, content io.Reader) (*models.UploadedFile, error) {
	// A file only becomes a selection once validation passes; a rejected
	// candidate leaves the flow idle with its message.
	if err := u.policy.Validate(filename, size, head); err != nil {
		u.mu.Lock()
		u.lastErr = err.Error()
		u.mu.Unlock()
		return nil, err
	}

	u.mu.Lock()
	if u.inFlight {
		u.mu.Unlock()
		return nil, ErrBusy
	}
	u.inFlight = true
	u.selected = filename
	u.lastErr = ""
	u.mu.Unlock()

	uploaded, err := backend.Upload(ctx, filename, content)

	u.mu.Lock()
	defer u.mu.Unlock()
	u.inFlight = false
	if err != nil {
		// Selection retained for retry.
		u.lastErr = err.Error()
		return nil, err
	}
	u.selected = ""
	u.last = uploaded
	return uploaded, nil
}

// Snapshot returns the current flow state.
func (u *Upload) Snapshot() UploadSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	snap := UploadSnapshot{Status: UploadIdle, Selected: u.selected, Error: u.lastErr, Last: u.last}
	switch {
	case u.inFlight:
		snap.Status = UploadUploading
	case u.selected != "":
		snap.Status = UploadSelected
	}
	return snap
}
