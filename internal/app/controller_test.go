package app

import (
	"context"
	"testing"
	"time"

	"mathfly-quiz-service/internal/auth"
	"mathfly-quiz-service/internal/domain"
)

func newTestController(cfg ControllerConfig) (*Controller, *fakeStore) {
	store := newFakeStore()
	gw := NewGateway(store, &fakeQueue{}, nil)
	engine := NewEngine(&staticProvider{pool: twoQuestions()}, gw)
	return NewController(engine, cfg, nil), store
}

// waitFor drains events until one matches or the deadline passes.
func waitFor(t *testing.T, events <-chan Event, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("event stream closed")
			}
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event")
		}
	}
}

func isType(typ EventType) func(Event) bool {
	return func(ev Event) bool { return ev.Type == typ }
}

func TestControllerManualFlow(t *testing.T) {
	ctrl, store := newTestController(ControllerConfig{Countdown: 30, Tick: time.Hour})
	defer ctrl.Close()
	ctx := auth.WithUser(context.Background(), "u1")

	if err := ctrl.Start(ctx, domain.PhaseFacil, 2); err != nil {
		t.Fatalf("start: %v", err)
	}
	if ctrl.Screen() != ScreenPlaying {
		t.Fatalf("expected playing screen, got %s", ctrl.Screen())
	}
	q := waitFor(t, ctrl.Events(), isType(EventQuestion))
	if q.Question == nil || q.Question.ID != "Q1" || q.Total != 2 || q.TimeLeft != 30 {
		t.Fatalf("unexpected question event: %+v", q)
	}

	if out := ctrl.Answer("a"); out == nil || !out.IsCorrect {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if ctrl.Answer("b") != nil {
		t.Fatalf("expected duplicate answer ignored")
	}
	if !ctrl.Next(ctx) {
		t.Fatalf("expected next to advance")
	}
	q = waitFor(t, ctrl.Events(), isType(EventQuestion))
	if q.Question.ID != "Q2" || q.Index != 1 {
		t.Fatalf("unexpected second question: %+v", q)
	}

	ctrl.Answer("b")
	if !ctrl.Next(ctx) {
		t.Fatalf("expected final next to finish")
	}
	res := waitFor(t, ctrl.Events(), isType(EventResults))
	if res.Results == nil || res.Results.CorrectAnswers != 2 || res.Results.TotalQuestions != 2 {
		t.Fatalf("unexpected results: %+v", res.Results)
	}
	if ctrl.Screen() != ScreenResults {
		t.Fatalf("expected results screen, got %s", ctrl.Screen())
	}
	if store.saves != 1 {
		t.Fatalf("expected result saved once, got %d", store.saves)
	}
}

func TestControllerNextBeforeAnswerIsIgnored(t *testing.T) {
	ctrl, _ := newTestController(ControllerConfig{Countdown: 30, Tick: time.Hour})
	defer ctrl.Close()
	ctx := auth.WithUser(context.Background(), "u1")
	if err := ctrl.Start(ctx, domain.PhaseFacil, 2); err != nil {
		t.Fatalf("start: %v", err)
	}
	if ctrl.Next(ctx) {
		t.Fatalf("expected next to be refused before answering")
	}
}

func TestControllerTimeUpSubmitsEmptyAnswer(t *testing.T) {
	ctrl, _ := newTestController(ControllerConfig{Countdown: 3, Tick: 10 * time.Millisecond})
	defer ctrl.Close()
	ctx := auth.WithUser(context.Background(), "u1")
	if err := ctrl.Start(ctx, domain.PhaseFacil, 2); err != nil {
		t.Fatalf("start: %v", err)
	}

	ev := waitFor(t, ctrl.Events(), isType(EventAnswer))
	if ev.Outcome == nil || ev.Outcome.IsCorrect || ev.Outcome.Points != 0 {
		t.Fatalf("expected time-up outcome, got %+v", ev.Outcome)
	}
	if ctrl.TimeLeft() != 0 {
		t.Fatalf("expected countdown at 0, got %d", ctrl.TimeLeft())
	}
}

func TestControllerAnswerStopsCountdown(t *testing.T) {
	ctrl, _ := newTestController(ControllerConfig{Countdown: 2, Tick: 20 * time.Millisecond})
	defer ctrl.Close()
	ctx := auth.WithUser(context.Background(), "u1")
	if err := ctrl.Start(ctx, domain.PhaseFacil, 2); err != nil {
		t.Fatalf("start: %v", err)
	}
	if out := ctrl.Answer("a"); out == nil {
		t.Fatalf("expected outcome")
	}
	left := ctrl.TimeLeft()
	time.Sleep(100 * time.Millisecond)
	if ctrl.TimeLeft() != left {
		t.Fatalf("countdown kept running after answer")
	}
	if s := ctrl.Screen(); s != ScreenPlaying {
		t.Fatalf("expected to stay on question until next, got %s", s)
	}
}

func TestControllerAutoAdvancesAfterFeedback(t *testing.T) {
	ctrl, _ := newTestController(ControllerConfig{Countdown: 30, Tick: time.Hour, FeedbackDelay: 10 * time.Millisecond})
	defer ctrl.Close()
	ctx := auth.WithUser(context.Background(), "u1")
	if err := ctrl.Start(ctx, domain.PhaseFacil, 2); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, ctrl.Events(), isType(EventQuestion))
	ctrl.Answer("a")
	q := waitFor(t, ctrl.Events(), isType(EventQuestion))
	if q.Question.ID != "Q2" {
		t.Fatalf("expected auto advance to Q2, got %+v", q.Question)
	}
	ctrl.Answer("c")
	res := waitFor(t, ctrl.Events(), isType(EventResults))
	if res.Results.Score != 16 {
		t.Fatalf("unexpected score: %+v", res.Results)
	}
}

func TestControllerResetCancelsTimer(t *testing.T) {
	ctrl, _ := newTestController(ControllerConfig{Countdown: 2, Tick: 20 * time.Millisecond})
	defer ctrl.Close()
	ctx := auth.WithUser(context.Background(), "u1")
	if err := ctrl.Start(ctx, domain.PhaseFacil, 2); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctrl.Reset()
	if ctrl.Screen() != ScreenIntro {
		t.Fatalf("expected intro after reset, got %s", ctrl.Screen())
	}
	waitFor(t, ctrl.Events(), func(ev Event) bool {
		return ev.Type == EventScreen && ev.Screen == ScreenIntro
	})

	deadline := time.After(150 * time.Millisecond)
	for {
		select {
		case ev := <-ctrl.Events():
			if ev.Type == EventTick || ev.Type == EventAnswer {
				t.Fatalf("timer fired after reset: %+v", ev)
			}
		case <-deadline:
			return
		}
	}
}

func TestControllerStartFailureReturnsToIntro(t *testing.T) {
	ctrl := NewController(NewEngine(&staticProvider{}, nil), ControllerConfig{}, nil)
	defer ctrl.Close()
	err := ctrl.Start(auth.WithUser(context.Background(), "u1"), domain.PhaseFacil, 5)
	if err == nil {
		t.Fatalf("expected start to fail on empty phase")
	}
	if ctrl.Screen() != ScreenIntro {
		t.Fatalf("expected intro screen, got %s", ctrl.Screen())
	}
	waitFor(t, ctrl.Events(), isType(EventError))
}

func TestControllerNextDeliversResultsWhenStoreHangs(t *testing.T) {
	queue := &fakeQueue{}
	gw := NewGateway(hangingStore{newFakeStore()}, queue, nil)
	engine := NewEngine(&staticProvider{pool: twoQuestions()}, gw)
	ctrl := NewController(engine, ControllerConfig{Countdown: 30, Tick: time.Hour, PersistTimeout: 50 * time.Millisecond}, nil)
	defer ctrl.Close()
	ctx := auth.WithUser(context.Background(), "u1")

	if err := ctrl.Start(ctx, domain.PhaseFacil, 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctrl.Answer("a")

	done := make(chan bool, 1)
	go func() { done <- ctrl.Next(ctx) }()
	select {
	case ok := <-done:
		if !ok {
			t.Fatalf("expected next to finish the session")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("next blocked on a hanging store")
	}

	res := waitFor(t, ctrl.Events(), isType(EventResults))
	if res.Results == nil || res.Results.Score != 16 {
		t.Fatalf("unexpected results: %+v", res.Results)
	}
	if ctrl.Screen() != ScreenResults {
		t.Fatalf("expected results screen, got %s", ctrl.Screen())
	}
	if entries := queue.all(); len(entries) != 1 || entries[0].Result.Score != 16 {
		t.Fatalf("expected the result queued offline, got %+v", entries)
	}
}
