package repo

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/shoptalk-core/server/internal/chat/model"
	errx "github.com/shoptalk-core/server/internal/core/error"
)

// ErrSessionNotFound underlies the not-found AppError returned by the
// in-memory store so errors.Is works on both store implementations.
var ErrSessionNotFound = errors.New("session not found")

// MemorySessionStore is a volatile SessionStore keeping sessions in a process
// local map. Safe for concurrent access; every session crossing the boundary
// is cloned so callers never share mutable state with the store. Suited to
// tests and single-process demos.
type MemorySessionStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]entry
}

type entry struct {
	session  *model.Session
	expireAt time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{ttl: ttl, sessions: make(map[string]entry)}
}

func (s *MemorySessionStore) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok || (s.ttl > 0 && time.Now().After(e.expireAt)) {
		return nil, errx.New(ErrSessionNotFound, http.StatusNotFound, errx.RedisNotFoundMessage)
	}
	return e.session.Clone(), nil
}

func (s *MemorySessionStore) Put(ctx context.Context, session *model.Session) error {
	if session == nil || session.ID == "" {
		return errors.New("session id is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = entry{session: session.Clone(), expireAt: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Sweep drops expired entries and returns how many were removed. Redis expires
// keys on its own; the in-memory store needs an explicit pass.
func (s *MemorySessionStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.sessions {
		if now.After(e.expireAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

var _ model.SessionStore = (*MemorySessionStore)(nil)
