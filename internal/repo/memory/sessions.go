package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tazhibayda/identity-service/internal/security"
)

type session struct {
	userID    string
	expiresAt time.Time
}

type Sessions struct {
	mu   sync.Mutex
	byID map[string]session
	now  func() time.Time
}

func NewSessions() *Sessions {
	return &Sessions{byID: map[string]session{}, now: time.Now}
}

func (s *Sessions) Create(_ context.Context, userID string, ttl time.Duration) (string, error) {
	plain, err := security.NewOpaqueToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.byID[security.HashToken(plain)] = session{userID: userID, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return plain, nil
}

func (s *Sessions) Lookup(_ context.Context, sid string) (string, error) {
	if sid == "" {
		return "", nil
	}
	key := security.HashToken(sid)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[key]
	if !ok {
		return "", nil
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.byID, key)
		return "", nil
	}
	return sess.userID, nil
}

func (s *Sessions) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	delete(s.byID, security.HashToken(sid))
	s.mu.Unlock()
	return nil
}
