package flow

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"bookmind-gateway/internal/models"
)

// mockBackend implements Backend with scripted responses and call counting.
type mockBackend struct {
	mu sync.Mutex

	uploadCalls    int
	summarizeCalls int
	chatCalls      int
	recommendCalls int

	uploadErr    error
	summarizeErr error
	chatErr      error
	recommendErr error

	chatReply   string
	lastHistory []models.Message
	summary     *models.Summary
	recs        []models.Recommendation

	// block, when set, is received from before a backend call returns so
	// tests can observe in-flight state.
	block chan struct{}
}

func (m *mockBackend) Upload(ctx context.Context, filename string, content io.Reader) (*models.UploadedFile, error) {
	m.mu.Lock()
	m.uploadCalls++
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
	}
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	return &models.UploadedFile{FileID: "abc123", Filename: filename}, nil
}

func (m *mockBackend) Summarize(ctx context.Context, fileID string) (*models.Summary, error) {
	m.mu.Lock()
	m.summarizeCalls++
	summary := m.summary
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
		m.mu.Lock()
		summary = m.summary
		m.mu.Unlock()
	}
	if m.summarizeErr != nil {
		return nil, m.summarizeErr
	}
	return summary, nil
}

func (m *mockBackend) Chat(ctx context.Context, fileID, message string, history []models.Message) (string, error) {
	m.mu.Lock()
	m.chatCalls++
	m.lastHistory = append([]models.Message(nil), history...)
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
	}
	if m.chatErr != nil {
		return "", m.chatErr
	}
	return m.chatReply, nil
}

func (m *mockBackend) Recommend(ctx context.Context, interests, basedOnFileID string) ([]models.Recommendation, error) {
	m.mu.Lock()
	m.recommendCalls++
	m.mu.Unlock()
	if m.recommendErr != nil {
		return nil, m.recommendErr
	}
	return m.recs, nil
}

func (m *mockBackend) setSummary(s *models.Summary) {
	m.mu.Lock()
	m.summary = s
	m.mu.Unlock()
}

// waitFor polls cond until it holds or the test deadline is near.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}
