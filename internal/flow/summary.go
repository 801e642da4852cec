package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"bookmind-gateway/internal/models"
)

// SummaryStatus labels the summary flow's state machine.
type SummaryStatus string

const (
	SummaryEmpty   SummaryStatus = "empty"
	SummaryLoading SummaryStatus = "loading"
	SummaryLoaded  SummaryStatus = "loaded"
	SummaryError   SummaryStatus = "error"
)

// Summary requests and holds one book's generated summary. There is no
// caching: every generate or regenerate is a fresh backend round trip, and
// the prior result is discarded the moment a new request starts so stale
// content is never shown next to a loading state.
type Summary struct {
	mu      sync.Mutex
	fileID  string
	status  SummaryStatus
	result  *models.Summary
	lastErr string
}

func NewSummary(fileID string) *Summary {
	return &Summary{fileID: fileID, status: SummaryEmpty}
}

// SummarySnapshot is the flow state the viewer renders.
type SummarySnapshot struct {
	Status SummaryStatus   `json:"status"`
	Result *models.Summary `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Generate issues a summarize request. Only one may be in flight at a time.
func (s *Summary) Generate(ctx context.Context, backend Backend) (*models.Summary, error) {
	s.mu.Lock()
	if s.status == SummaryLoading {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.status = SummaryLoading
	s.result = nil
	s.lastErr = ""
	s.mu.Unlock()

	result, err := backend.Summarize(ctx, s.fileID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = SummaryError
		s.lastErr = err.Error()
		return nil, err
	}
	s.status = SummaryLoaded
	s.result = result
	return result, nil
}

// Snapshot returns the current flow state.
func (s *Summary) Snapshot() SummarySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SummarySnapshot{Status: s.status, Result: s.result, Error: s.lastErr}
}

// Clipboard produces the copy-to-clipboard payload: the summary text followed
// by a 1-indexed enumeration of the key points.
func Clipboard(summary models.Summary) string {
	var b strings.Builder
	b.WriteString(summary.Summary)
	b.WriteString("\n\nKey Points:")
	for i, point := range summary.KeyPoints {
		fmt.Fprintf(&b, "\n%d. %s", i+1, point)
	}
	return b.String()
}
