package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mathfly-quiz-service/internal/auth"
	"mathfly-quiz-service/internal/domain"
	"mathfly-quiz-service/internal/logger"
	"mathfly-quiz-service/internal/scoring"
)

// Session is the single active attempt of one user.
// Invariant: len(Answers) is CurrentQuestionIndex before an answer is
// submitted and CurrentQuestionIndex+1 after it, until Advance.
type Session struct {
	UserID               string            `json:"userId"`
	Phase                domain.Phase      `json:"phase"`
	Questions            []domain.Question `json:"-"`
	CurrentQuestionIndex int               `json:"currentQuestionIndex"`
	Answers              []string          `json:"answers"`
	Score                int               `json:"score"`
	StartTime            time.Time         `json:"startTime"`
	QuestionStartedAt    time.Time         `json:"questionStartedAt"`
}

// CurrentQuestion returns the question at the current index, if any.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	if s.CurrentQuestionIndex >= len(s.Questions) {
		return domain.Question{}, false
	}
	return s.Questions[s.CurrentQuestionIndex], true
}

func (s *Session) answered() bool {
	return len(s.Answers) > s.CurrentQuestionIndex
}

func (s *Session) clone() *Session {
	c := *s
	c.Questions = append([]domain.Question(nil), s.Questions...)
	c.Answers = append([]string(nil), s.Answers...)
	return &c
}

// Progress is returned by Advance.
type Progress struct {
	Index    int  `json:"index"`
	Total    int  `json:"total"`
	Complete bool `json:"complete"`
}

// Engine owns one user's quiz session state machine:
// NoSession -> Active -> (submitted) -> Active ... -> NoSession.
type Engine struct {
	provider      QuestionProvider
	gateway       *Gateway
	scoring       scoring.Config
	questionCount int
	log           *logger.Logger
	now           func() time.Time

	mu      sync.Mutex
	session *Session
	lastErr error
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithScoring(cfg scoring.Config) EngineOption {
	return func(e *Engine) { e.scoring = cfg }
}

func WithQuestionCount(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.questionCount = n
		}
	}
}

func WithLogger(log *logger.Logger) EngineOption {
	return func(e *Engine) { e.log = logger.OrNop(log) }
}

func NewEngine(provider QuestionProvider, gateway *Gateway, opts ...EngineOption) *Engine {
	e := &Engine{
		provider:      provider,
		gateway:       gateway,
		scoring:       scoring.DefaultConfig(),
		questionCount: domain.DefaultQuestionCount,
		log:           logger.Nop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start opens a new session for the user in ctx, replacing any previous one.
// count <= 0 selects the configured default.
func (e *Engine) Start(ctx context.Context, phase domain.Phase, count int) (*Session, error) {
	userID, ok := auth.UserID(ctx)
	if !ok {
		return nil, e.fail(domain.ErrUnauthenticated)
	}
	if !phase.Valid() {
		return nil, e.fail(fmt.Errorf("%w: %q", domain.ErrUnknownPhase, phase))
	}
	if count <= 0 {
		count = e.questionCount
	}

	questions, err := e.provider.GetQuestions(ctx, phase, count)
	if err != nil {
		return nil, e.fail(fmt.Errorf("load questions: %w", err))
	}
	if len(questions) == 0 {
		return nil, e.fail(fmt.Errorf("%w: %s", domain.ErrEmptyPhase, phase))
	}

	now := e.now()
	session := &Session{
		UserID:            userID,
		Phase:             phase,
		Questions:         questions,
		Answers:           make([]string, 0, len(questions)),
		StartTime:         now,
		QuestionStartedAt: now,
	}

	e.mu.Lock()
	e.session = session
	e.lastErr = nil
	e.mu.Unlock()

	e.log.Info("quiz started", "user_id", userID, "phase", phase, "questions", len(questions))
	return session.clone(), nil
}

// Submit scores answer against the current question. It returns nil without
// touching state when there is no session or the question was already answered.
// The empty answer is the time-up sentinel and never matches.
func (e *Engine) Submit(answer string) *domain.AnswerOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil || s.answered() {
		return nil
	}
	question, ok := s.CurrentQuestion()
	if !ok {
		return nil
	}

	isCorrect := answer != "" && answer == question.CorrectOption
	points := e.scoring.Score(s.Phase, isCorrect, e.now().Sub(s.QuestionStartedAt))
	s.Answers = append(s.Answers, answer)
	s.Score += points

	return &domain.AnswerOutcome{
		IsCorrect:     isCorrect,
		CorrectAnswer: question.CorrectOption,
		Points:        points,
		IsComplete:    len(s.Answers) == len(s.Questions),
		TotalScore:    s.Score,
	}
}

// Advance moves past an answered question. When Complete is set the caller
// should Finish instead of rendering another question.
func (e *Engine) Advance() (Progress, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil || s.CurrentQuestionIndex >= len(s.Questions) || !s.answered() {
		return Progress{}, false
	}
	s.CurrentQuestionIndex++
	s.QuestionStartedAt = e.now()
	return Progress{
		Index:    s.CurrentQuestionIndex,
		Total:    len(s.Questions),
		Complete: s.CurrentQuestionIndex == len(s.Questions),
	}, true
}

// Finish computes the final results once every question is answered, closes
// the session and hands the results to the gateway. Persistence failures are
// queued offline and never change the returned results.
func (e *Engine) Finish(ctx context.Context) (domain.Results, bool) {
	e.mu.Lock()
	s := e.session
	if s == nil || len(s.Answers) != len(s.Questions) {
		e.mu.Unlock()
		return domain.Results{}, false
	}
	e.session = nil
	now := e.now()
	e.mu.Unlock()

	correct := 0
	for i, answer := range s.Answers {
		if answer != "" && answer == s.Questions[i].CorrectOption {
			correct++
		}
	}
	results := domain.Results{
		Score:          s.Score,
		CorrectAnswers: correct,
		TotalQuestions: len(s.Questions),
		Accuracy:       float64(correct) / float64(len(s.Questions)) * 100,
		TimeSpent:      int(now.Sub(s.StartTime) / time.Second),
		Phase:          s.Phase,
		FinishedAt:     now,
	}

	if e.gateway != nil {
		if err := e.gateway.Record(ctx, s.UserID, results); err != nil {
			e.log.Warn("quiz result not persisted remotely", "user_id", s.UserID, "error", err)
		}
	}
	e.log.Info("quiz finished", "user_id", s.UserID, "phase", s.Phase, "score", results.Score, "correct", correct)
	return results, true
}

// Reset discards any session and clears the last error.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = nil
	e.lastErr = nil
}

// Session returns a copy of the active session, or nil.
func (e *Engine) Session() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	return e.session.clone()
}

// Err returns the error of the last failed Start.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) fail(err error) error {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
	e.log.Warn("quiz start failed", "error", err)
	return err
}
