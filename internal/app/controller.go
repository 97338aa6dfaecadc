package app

import (
	"context"
	"sync"
	"time"

	"mathfly-quiz-service/internal/domain"
	"mathfly-quiz-service/internal/logger"
)

// Screen is the presentation state shown to the player.
type Screen string

const (
	ScreenIntro   Screen = "intro"
	ScreenLoading Screen = "loading"
	ScreenPlaying Screen = "playing"
	ScreenResults Screen = "results"
)

// EventType tags controller events.
type EventType string

const (
	EventScreen   EventType = "screen"
	EventQuestion EventType = "question"
	EventTick     EventType = "tick"
	EventAnswer   EventType = "answerResult"
	EventResults  EventType = "results"
	EventError    EventType = "error"
)

// Event is one state transition pushed to the render layer.
type Event struct {
	Type     EventType             `json:"type"`
	Screen   Screen                `json:"screen,omitempty"`
	Question *domain.QuestionView  `json:"question,omitempty"`
	Index    int                   `json:"index"`
	Total    int                   `json:"total"`
	TimeLeft int                   `json:"timeLeft"`
	Outcome  *domain.AnswerOutcome `json:"outcome,omitempty"`
	Results  *domain.Results       `json:"results,omitempty"`
	Message  string                `json:"message,omitempty"`
}

// ControllerConfig tunes the per-question countdown.
type ControllerConfig struct {
	Countdown      int           // ticks per question
	Tick           time.Duration // one countdown step
	FeedbackDelay  time.Duration // 0 waits for an explicit Next
	PersistTimeout time.Duration // bound for the remote save on finish
}

// DefaultControllerConfig mirrors the game: 30 one-second ticks, 1.5s of feedback.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Countdown:      30,
		Tick:           time.Second,
		FeedbackDelay:  1500 * time.Millisecond,
		PersistTimeout: 10 * time.Second,
	}
}

type task struct {
	cancel context.CancelFunc
}

// Controller drives the screens of one player and owns the only timer.
// At most one scheduled task (countdown or feedback delay) is alive; every
// question-index change cancels it, and tasks re-check their generation under
// the lock so a stale one can never act.
type Controller struct {
	engine *Engine
	cfg    ControllerConfig
	log    *logger.Logger
	events chan Event

	mu       sync.Mutex
	screen   Screen
	answered bool
	timeLeft int
	gen      uint64
	current  *task
	closed   bool
}

func NewController(engine *Engine, cfg ControllerConfig, log *logger.Logger) *Controller {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.Countdown <= 0 {
		cfg.Countdown = 30
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 10 * time.Second
	}
	return &Controller{
		engine: engine,
		cfg:    cfg,
		log:    logger.OrNop(log).With("component", "controller"),
		events: make(chan Event, 32),
		screen: ScreenIntro,
	}
}

// Events streams transitions. The channel is closed by Close.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Screen returns the current screen.
func (c *Controller) Screen() Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.screen
}

// TimeLeft returns the remaining ticks of the current question.
func (c *Controller) TimeLeft() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeLeft
}

// Start loads a session and shows its first question.
func (c *Controller) Start(ctx context.Context, phase domain.Phase, count int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrNoSession
	}

	c.stopLocked()
	c.engine.Reset()
	c.setScreenLocked(ScreenLoading)

	if _, err := c.engine.Start(ctx, phase, count); err != nil {
		c.setScreenLocked(ScreenIntro)
		c.emitLocked(Event{Type: EventError, Message: err.Error()})
		return err
	}
	c.setScreenLocked(ScreenPlaying)
	c.showQuestionLocked()
	return nil
}

// Answer submits the player's choice. It returns nil when the answer is
// ignored (not playing, or already answered).
func (c *Controller) Answer(answer string) *domain.AnswerOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answerLocked(answer)
}

// Next advances after feedback. On the last question it finishes the session
// and switches to the results screen.
func (c *Controller) Next(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextLocked(ctx)
}

// Reset returns to the intro screen, discarding any session.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.engine.Reset()
	c.answered = false
	c.timeLeft = 0
	if !c.closed {
		c.setScreenLocked(ScreenIntro)
	}
}

// Close stops the timer and closes the event stream.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stopLocked()
	c.engine.Reset()
	c.closed = true
	close(c.events)
}

func (c *Controller) answerLocked(answer string) *domain.AnswerOutcome {
	if c.screen != ScreenPlaying || c.answered {
		return nil
	}
	outcome := c.engine.Submit(answer)
	if outcome == nil {
		return nil
	}
	c.answered = true
	c.stopLocked()
	c.emitLocked(Event{Type: EventAnswer, Outcome: outcome, TimeLeft: c.timeLeft})

	if c.cfg.FeedbackDelay > 0 {
		c.scheduleLocked(func(ctx context.Context, gen uint64) {
			timer := time.NewTimer(c.cfg.FeedbackDelay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			c.mu.Lock()
			defer c.mu.Unlock()
			if gen != c.gen {
				return
			}
			c.nextLocked(context.Background())
		})
	}
	return outcome
}

func (c *Controller) nextLocked(ctx context.Context) bool {
	if c.screen != ScreenPlaying || !c.answered {
		return false
	}
	progress, ok := c.engine.Advance()
	if !ok {
		return false
	}
	c.stopLocked()
	if !progress.Complete {
		c.showQuestionLocked()
		return true
	}

	c.setScreenLocked(ScreenLoading)
	// A stuck store must not withhold the results; the gateway queues the
	// result offline once the bound expires.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.PersistTimeout)
	results, ok := c.engine.Finish(finishCtx)
	cancel()
	c.answered = false
	if !ok {
		c.setScreenLocked(ScreenIntro)
		return false
	}
	c.setScreenLocked(ScreenResults)
	c.emitLocked(Event{Type: EventResults, Results: &results})
	return true
}

func (c *Controller) showQuestionLocked() {
	session := c.engine.Session()
	if session == nil {
		return
	}
	question, ok := session.CurrentQuestion()
	if !ok {
		return
	}
	c.answered = false
	c.timeLeft = c.cfg.Countdown
	view := question.View()
	c.emitLocked(Event{
		Type:     EventQuestion,
		Question: &view,
		Index:    session.CurrentQuestionIndex,
		Total:    len(session.Questions),
		TimeLeft: c.timeLeft,
	})
	c.scheduleLocked(c.countdown)
}

func (c *Controller) countdown(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(c.cfg.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.tick(gen) {
				return
			}
		}
	}
}

// tick reports whether the countdown is over.
func (c *Controller) tick(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.screen != ScreenPlaying || c.answered {
		return true
	}
	c.timeLeft--
	c.emitLocked(Event{Type: EventTick, TimeLeft: c.timeLeft})
	if c.timeLeft > 0 {
		return false
	}
	c.log.Debug("question timed out")
	c.answerLocked("")
	return true
}

// scheduleLocked replaces the active task with fn.
func (c *Controller) scheduleLocked(fn func(ctx context.Context, gen uint64)) {
	c.stopLocked()
	ctx, cancel := context.WithCancel(context.Background())
	c.current = &task{cancel: cancel}
	go fn(ctx, c.gen)
}

// stopLocked cancels the active task. Bumping the generation makes any task
// already blocked on the lock a no-op once it gets it.
func (c *Controller) stopLocked() {
	c.gen++
	if c.current != nil {
		c.current.cancel()
		c.current = nil
	}
}

func (c *Controller) setScreenLocked(screen Screen) {
	c.screen = screen
	c.emitLocked(Event{Type: EventScreen, Screen: screen})
}

// emitLocked never blocks: when the consumer lags, the oldest event is dropped.
func (c *Controller) emitLocked(ev Event) {
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		select {
		case <-c.events:
		default:
		}
		c.events <- ev
	}
}
