package cache

import (
	"context"
	"sync"

	"intellab-testing/internal/domain"
)

// SessionStore keeps the auth session in process memory.
// Implements domain.SessionStore.
type SessionStore struct {
	mu      sync.RWMutex
	session domain.AuthSession
	set     bool
}

// NewSessionStore creates an empty in-memory store.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Load returns the cached session, if any.
func (s *SessionStore) Load(_ context.Context) (domain.AuthSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.session, s.set, nil
}

// StoreIfEmpty caches session unless one is already present.
func (s *SessionStore) StoreIfEmpty(_ context.Context, session domain.AuthSession) (domain.AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.set {
		s.session = session
		s.set = true
	}
	return s.session, nil
}

// Overwrite replaces the cached session.
func (s *SessionStore) Overwrite(_ context.Context, session domain.AuthSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = session
	s.set = true
	return nil
}
