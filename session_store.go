package auth

import (
	"context"
	"maps"
	"sync"
	"time"
)

// Session keys
const (
	SessionKeyUserID        = "user_id"
	SessionKeyForwardingURL = "forwarding_url"
)

// DefaultSessionTimeout is how long an untouched session is kept
const DefaultSessionTimeout = 24 * time.Hour

// SessionData is the ephemeral key/value state of one browser session
type SessionData map[string]string

// SessionStore keeps SessionData keyed by an opaque session id. Load
// returns an empty map for unknown or expired ids.
type SessionStore interface {
	Load(ctx context.Context, id string) (SessionData, error)
	Save(ctx context.Context, id string, data SessionData) error
	Destroy(ctx context.Context, id string) error
}

// MemorySessionStore holds sessions in process memory. Idle sessions
// are dropped when they are next looked at.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	timeout  time.Duration
	now      func() time.Time
}

type memorySession struct {
	data    SessionData
	touched time.Time
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore returns a store with the given idle timeout,
// zero uses DefaultSessionTimeout.
func NewMemorySessionStore(timeout time.Duration) *MemorySessionStore {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &MemorySessionStore{
		sessions: map[string]*memorySession{},
		timeout:  timeout,
		now:      time.Now,
	}
}

// WithClock overrides the time source
func (s *MemorySessionStore) WithClock(now func() time.Time) *MemorySessionStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now != nil {
		s.now = now
	}
	return s
}

func (s *MemorySessionStore) Load(_ context.Context, id string) (SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return SessionData{}, nil
	}

	now := s.now()
	if now.Sub(sess.touched) > s.timeout {
		delete(s.sessions, id)
		return SessionData{}, nil
	}

	sess.touched = now
	return maps.Clone(sess.data), nil
}

func (s *MemorySessionStore) Save(_ context.Context, id string, data SessionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = &memorySession{
		data:    maps.Clone(data),
		touched: s.now(),
	}
	return nil
}

func (s *MemorySessionStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Len returns the number of sessions held, expired ones included
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
