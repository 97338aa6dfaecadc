package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"mathfly-quiz-service/internal/app"
	"mathfly-quiz-service/internal/domain"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Controllers stay in a local map; Redis holds one claim key per user so
// that a second connection is refused on any instance. The claim expires
// after ttl unless the connection keeps touching it.
type SessionStore struct {
	client      *redis.Client
	ttl         time.Duration
	mu          sync.RWMutex
	controllers map[string]*app.Controller
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SessionStore{
		client:      client,
		ttl:         ttl,
		controllers: make(map[string]*app.Controller),
	}
}

func (s *SessionStore) Acquire(ctx context.Context, userID string, create func() *app.Controller) (*app.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.controllers[userID]; ok {
		return nil, domain.ErrSessionActive
	}
	claimed, err := s.client.SetNX(ctx, s.key(userID), "1", s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("claim session: %w", err)
	}
	if !claimed {
		return nil, domain.ErrSessionActive
	}
	ctrl := create()
	s.controllers[userID] = ctrl
	return ctrl, nil
}

func (s *SessionStore) Get(userID string) (*app.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctrl, ok := s.controllers[userID]
	return ctrl, ok
}

func (s *SessionStore) Touch(ctx context.Context, userID string) {
	s.mu.RLock()
	_, ok := s.controllers[userID]
	s.mu.RUnlock()
	if ok {
		// best-effort liveness refresh
		_ = s.client.Expire(ctx, s.key(userID), s.ttl).Err()
	}
}

func (s *SessionStore) Release(ctx context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.controllers[userID]; !ok {
		return
	}
	delete(s.controllers, userID)
	_ = s.client.Del(ctx, s.key(userID)).Err()
}

func (s *SessionStore) key(userID string) string {
	return "quiz:session:" + userID
}
