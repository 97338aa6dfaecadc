package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mathfly-quiz-service/internal/auth"
	"mathfly-quiz-service/internal/domain"
)

type mapSessions struct {
	mu    sync.Mutex
	ctrls map[string]*Controller
}

func (m *mapSessions) Acquire(_ context.Context, userID string, create func() *Controller) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ctrls[userID]; ok {
		return nil, domain.ErrSessionActive
	}
	c := create()
	m.ctrls[userID] = c
	return c, nil
}

func (m *mapSessions) Get(userID string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.ctrls[userID]
	return c, ok
}

func (m *mapSessions) Touch(context.Context, string) {}

func (m *mapSessions) Release(_ context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ctrls, userID)
}

func newTestService(store *fakeStore) *QuizService {
	settings := DefaultSettings()
	settings.Controller = ControllerConfig{Countdown: 30, Tick: time.Hour}
	gw := NewGateway(store, &fakeQueue{}, nil)
	return NewQuizService(
		&mapSessions{ctrls: map[string]*Controller{}},
		&staticProvider{pool: twoQuestions()},
		gw,
		NewStatsService(store, nil, settings.UnlockThreshold, nil),
		settings,
		nil,
	)
}

func TestQuizServiceOneSessionPerUser(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	if _, err := svc.Open(ctx, ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	ctrl, err := svc.Open(ctx, "u1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.Open(ctx, "u1"); !errors.Is(err, domain.ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	svc.Close(ctx, "u1")
	// the stream must end after Close
	for range ctrl.Events() {
	}
	if _, err := svc.Open(ctx, "u1"); err != nil {
		t.Fatalf("reopen: %v", err)
	}
}

func TestQuizServiceGatesLockedPhases(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := auth.WithUser(context.Background(), "u1")
	ctrl, err := svc.Open(ctx, "u1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer svc.Close(ctx, "u1")

	if err := svc.StartPhase(ctx, ctrl, "u1", domain.PhaseMedio, 2); !errors.Is(err, domain.ErrPhaseLocked) {
		t.Fatalf("expected ErrPhaseLocked, got %v", err)
	}
	if err := svc.StartPhase(ctx, ctrl, "u1", domain.PhaseFacil, 2); err != nil {
		t.Fatalf("start facil: %v", err)
	}
}

func TestQuizServiceGatingIsAdvisoryWhenStoreDown(t *testing.T) {
	store := newFakeStore()
	store.setDown(true)
	svc := newTestService(store)
	ctx := auth.WithUser(context.Background(), "u1")
	ctrl, err := svc.Open(ctx, "u1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer svc.Close(ctx, "u1")

	if err := svc.StartPhase(ctx, ctrl, "u1", domain.PhaseExpert, 2); err != nil {
		t.Fatalf("expected start to proceed offline, got %v", err)
	}
}
