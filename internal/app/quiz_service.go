package app

import (
	"context"

	"mathfly-quiz-service/internal/domain"
	"mathfly-quiz-service/internal/logger"
	"mathfly-quiz-service/internal/scoring"
)

// SessionRepository tracks live controllers and enforces one per user
// (in-memory, Redis, etc).
type SessionRepository interface {
	// Acquire registers a controller built by create, or fails with
	// domain.ErrSessionActive if the user already holds one.
	Acquire(ctx context.Context, userID string, create func() *Controller) (*Controller, error)
	Get(userID string) (*Controller, bool)
	// Touch extends the liveness of the user's session.
	Touch(ctx context.Context, userID string)
	Release(ctx context.Context, userID string)
}

// Settings are the tunables shared by every session.
type Settings struct {
	QuestionCount   int
	UnlockThreshold int
	Scoring         scoring.Config
	Controller      ControllerConfig
}

// DefaultSettings returns the reference game tuning.
func DefaultSettings() Settings {
	return Settings{
		QuestionCount:   domain.DefaultQuestionCount,
		UnlockThreshold: 3,
		Scoring:         scoring.DefaultConfig(),
		Controller:      DefaultControllerConfig(),
	}
}

// QuizService contains the quiz use cases exposed to transports.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionProvider
	gateway   *Gateway
	stats     *StatsService
	settings  Settings
	log       *logger.Logger
}

func NewQuizService(sessions SessionRepository, questions QuestionProvider, gateway *Gateway, stats *StatsService, settings Settings, log *logger.Logger) *QuizService {
	return &QuizService{
		sessions:  sessions,
		questions: questions,
		gateway:   gateway,
		stats:     stats,
		settings:  settings,
		log:       logger.OrNop(log),
	}
}

// Open creates the controller for a player connection.
func (s *QuizService) Open(ctx context.Context, userID string) (*Controller, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.sessions.Acquire(ctx, userID, func() *Controller {
		log := s.log.With("user_id", userID)
		engine := NewEngine(s.questions, s.gateway,
			WithScoring(s.settings.Scoring),
			WithQuestionCount(s.settings.QuestionCount),
			WithLogger(log),
		)
		return NewController(engine, s.settings.Controller, log)
	})
}

// Touch keeps the user's session alive.
func (s *QuizService) Touch(ctx context.Context, userID string) {
	s.sessions.Touch(ctx, userID)
}

// Close stops the user's controller and releases the session slot.
func (s *QuizService) Close(ctx context.Context, userID string) {
	if ctrl, ok := s.sessions.Get(userID); ok {
		ctrl.Close()
	}
	s.sessions.Release(ctx, userID)
}

// StartPhase starts a session after checking the phase is unlocked for the user.
func (s *QuizService) StartPhase(ctx context.Context, ctrl *Controller, userID string, phase domain.Phase, count int) error {
	unlocked, err := s.stats.PhaseUnlocked(ctx, userID, phase)
	if err != nil {
		// Gating is advisory; history may be unreachable while offline.
		s.log.Warn("phase unlock check failed", "user_id", userID, "error", err)
		unlocked = true
	}
	if !unlocked {
		return domain.ErrPhaseLocked
	}
	return ctrl.Start(ctx, phase, count)
}

// SyncOffline replays the user's offline queue.
func (s *QuizService) SyncOffline(ctx context.Context, userID string) (SyncReport, error) {
	return s.gateway.SyncOfflineProgress(ctx, userID)
}

// Stats exposes the dashboard queries.
func (s *QuizService) Stats() *StatsService {
	return s.stats
}

// Settings returns the active tuning.
func (s *QuizService) Settings() Settings {
	return s.settings
}
