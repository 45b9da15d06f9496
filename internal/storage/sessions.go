package storage

import "sync"

// SessionStore is a concurrency-safe map of short-lived sessions keyed by id.
type SessionStore[T any] struct {
	sessions map[string]T
	mu       sync.RWMutex
}

func NewSessionStore[T any]() *SessionStore[T] {
	return &SessionStore[T]{
		sessions: make(map[string]T),
	}
}

func (s *SessionStore[T]) Get(sessionID string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *SessionStore[T]) Set(sessionID string, session T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session
}

func (s *SessionStore[T]) GetAll() map[string]T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]T, len(s.sessions))
	for k, v := range s.sessions {
		result[k] = v
	}
	return result
}

func (s *SessionStore[T]) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
