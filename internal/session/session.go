// Package session holds per-viewer transient state: theme, route state
// (which books were uploaded and under what display name) and the four flow
// state machines. Nothing here survives the process; there is deliberately
// no persistence or cache behind it.
package session

import (
	"sync"
	"time"

	"bookmind-gateway/internal/flow"
)

// Theme values for the shell. New sessions start light.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// PlaceholderBookName is shown when a viewer route carries no display name.
const PlaceholderBookName = "Untitled Book"

// Session is one viewer's transient state. Flows are created lazily and die
// with the session.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	theme     string
	lastSeen  time.Time
	books     map[string]string // file id -> display name (route state)
	upload    *flow.Upload
	recommend *flow.Recommend
	summaries map[string]*flow.Summary
	chats     map[string]*flow.Chat

	uploadPolicy flow.UploadPolicy
}

func newSession(id string, policy flow.UploadPolicy) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		theme:        ThemeLight,
		lastSeen:     now,
		books:        make(map[string]string),
		summaries:    make(map[string]*flow.Summary),
		chats:        make(map[string]*flow.Chat),
		uploadPolicy: policy,
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// Theme returns the current shell theme.
func (s *Session) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetTheme switches between light and dark. Unknown values are ignored.
func (s *Session) SetTheme(theme string) bool {
	if theme != ThemeLight && theme != ThemeDark {
		return false
	}
	s.mu.Lock()
	s.theme = theme
	s.mu.Unlock()
	return true
}

// RememberBook records route state for a freshly uploaded book.
func (s *Session) RememberBook(fileID, displayName string) {
	s.mu.Lock()
	s.books[fileID] = displayName
	s.mu.Unlock()
}

// BookName resolves the display name carried by the viewer route. known is
// false when the session has never seen the file id, which sends the viewer
// back to the dashboard.
func (s *Session) BookName(fileID string) (name string, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, known = s.books[fileID]
	if known && name == "" {
		name = PlaceholderBookName
	}
	return name, known
}

// Books returns a copy of the route state.
func (s *Session) Books() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.books))
	for id, name := range s.books {
		out[id] = name
	}
	return out
}

// ForgetBook drops a book's route state together with its summary and
// transcript. Used after deleting the file upstream.
func (s *Session) ForgetBook(fileID string) {
	s.mu.Lock()
	delete(s.books, fileID)
	delete(s.summaries, fileID)
	delete(s.chats, fileID)
	s.mu.Unlock()
}

// UploadFlow returns the session's upload flow.
func (s *Session) UploadFlow() *flow.Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upload == nil {
		s.upload = flow.NewUpload(s.uploadPolicy)
	}
	return s.upload
}

// RecommendFlow returns the session's recommendation flow.
func (s *Session) RecommendFlow() *flow.Recommend {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recommend == nil {
		s.recommend = flow.NewRecommend()
	}
	return s.recommend
}

// SummaryFlow returns the summary flow for one book, creating it on first use.
func (s *Session) SummaryFlow(fileID string) *flow.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.summaries[fileID]
	if !ok {
		f = flow.NewSummary(fileID)
		s.summaries[fileID] = f
	}
	return f
}

// ChatFlow returns the chat flow for one book, creating it on first use.
// Remounting the chat view is modeled by ForgetBook + a fresh flow.
func (s *Session) ChatFlow(fileID string) *flow.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.chats[fileID]
	if !ok {
		f = flow.NewChat(fileID)
		s.chats[fileID] = f
	}
	return f
}
