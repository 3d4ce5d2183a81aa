package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"mediwise-quiz-service/internal/session"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions stay in a local in-memory map; the state machine is owned by
//     the process serving the websocket connection.
//   - Redis marks session liveness (and could be extended to share snapshots
//     for cross-instance resume).
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*session.Session),
	}
}

func (s *SessionStore) Put(sessionID string, sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = sess
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(sessionID), "1", s.ttl).Err()
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
	if _, ok := s.sessions[sessionID]; !ok {
		return
	}
	delete(s.sessions, sessionID)
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
