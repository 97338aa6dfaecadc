package memory

import (
	"context"
	"sync"

	"mathfly-quiz-service/internal/app"
	"mathfly-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu          sync.RWMutex
	controllers map[string]*app.Controller
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		controllers: make(map[string]*app.Controller),
	}
}

func (s *SessionStore) Acquire(_ context.Context, userID string, create func() *app.Controller) (*app.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.controllers[userID]; ok {
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

// Touch is a no-op: in-process sessions live as long as their connection.
func (s *SessionStore) Touch(context.Context, string) {}

func (s *SessionStore) Release(_ context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.controllers, userID)
}
