package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"bookmind-gateway/internal/flow"
	"bookmind-gateway/pkg/logger"
)

// ErrNotFound means the session id is unknown or already expired.
var ErrNotFound = errors.New("session not found")

const (
	DefaultTTL             = 2 * time.Hour
	DefaultCleanupInterval = 10 * time.Minute
)

// Store keeps every live viewing session in memory. Sessions expire after
// ttl of inactivity; a completion racing an expired session writes into a
// detached struct and is dropped with it.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	policy   flow.UploadPolicy
}

// NewStore builds an empty store. ttl <= 0 falls back to the default.
func NewStore(ttl time.Duration, policy flow.UploadPolicy) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		policy:   policy,
	}
}

// Create starts a new viewing session.
func (st *Store) Create() *Session {
	s := newSession(uuid.NewString(), st.policy)
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns a live session and refreshes its expiry.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch()
	return s, nil
}

// Delete ends a session. In-flight flow requests keep running against the
// detached session and their results go nowhere.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// StartCleaner evicts idle sessions on a ticker until ctx is done.
func (st *Store) StartCleaner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	go st.cleanupLoop(ctx, interval)
}

func (st *Store) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.evictIdle(); n > 0 {
				logger.Debugf("evicted %d idle sessions", n)
			}
		}
	}
}

func (st *Store) evictIdle() int {
	cutoff := time.Now().Add(-st.ttl)
	st.mu.Lock()
	defer st.mu.Unlock()
	evicted := 0
	for id, s := range st.sessions {
		s.mu.Lock()
		idle := s.lastSeen.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(st.sessions, id)
			evicted++
		}
	}
	return evicted
}
