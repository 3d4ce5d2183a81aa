package memory

import (
	"sync"

	"mediwise-quiz-service/internal/session"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session.Session),
	}
}

func (s *SessionStore) Put(sessionID string, sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = sess
}

func (s *SessionStore) Get(sessionID string) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	return sess, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
