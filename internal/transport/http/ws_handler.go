package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"mathfly-quiz-service/internal/app"
	"mathfly-quiz-service/internal/auth"
	"mathfly-quiz-service/internal/domain"
	"mathfly-quiz-service/internal/logger"
)

type WSHandler struct {
	service  *app.QuizService
	feed     app.RankingFeed
	log      *logger.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler serves one quiz controller per connection. feed may be nil,
// in which case rankings are only sent on connect.
func NewWSHandler(service *app.QuizService, feed app.RankingFeed, log *logger.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		feed:    feed,
		log:     logger.OrNop(log).With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Phase string `json:"phase"`
	Count int    `json:"count"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// ServeWS upgrades an authenticated request and drives the user's controller.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, domain.ErrUnauthenticated.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	ctrl, err := h.service.Open(ctx, userID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	log := h.log.With("user_id", userID)
	log.Info("player connected")

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})
	rankingDone := make(chan struct{})

	// Only the writer goroutine touches the connection for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", "error", err)
				// keep draining so producers never block on a dead socket
				for range send {
				}
				return
			}
		}
	}()

	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-closeSignals:
			return false
		}
	}

	go func() {
		defer close(eventsDone)
		for ev := range ctrl.Events() {
			// timed-out questions advance with no inbound traffic, so the
			// session claim is refreshed from the controller side too
			if ev.Type == app.EventQuestion || ev.Type == app.EventAnswer {
				h.service.Touch(ctx, userID)
			}
			if !push(outboundMessage[any]{Type: string(ev.Type), Payload: ev}) {
				return
			}
		}
	}()

	go func() {
		defer close(rankingDone)
		h.forwardRanking(ctx, push, closeSignals, log)
	}()

	push(outboundMessage[any]{Type: string(app.EventScreen), Payload: app.Event{Type: app.EventScreen, Screen: ctrl.Screen()}})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.service.Touch(ctx, userID)
		h.handle(auth.WithUser(ctx, userID), ctrl, userID, inbound, push)
	}

	close(closeSignals)
	h.service.Close(context.Background(), userID)
	<-eventsDone
	<-rankingDone
	close(send)
	<-writerDone
	log.Info("player disconnected")
}

func (h *WSHandler) handle(ctx context.Context, ctrl *app.Controller, userID string, inbound inboundMessage, push func(outboundMessage[any]) bool) {
	switch inbound.Type {
	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			push(errorMessage("invalid start payload"))
			return
		}
		phase, err := domain.ParsePhase(payload.Phase)
		if err != nil {
			push(errorMessage(err.Error()))
			return
		}
		if err := h.service.StartPhase(ctx, ctrl, userID, phase, payload.Count); errors.Is(err, domain.ErrPhaseLocked) {
			// other start failures are reported by the controller itself
			push(errorMessage(err.Error()))
		}
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			push(errorMessage("invalid answer payload"))
			return
		}
		ctrl.Answer(payload.Answer)
	case "next":
		ctrl.Next(ctx)
	case "reset":
		ctrl.Reset()
	case "sync":
		report, err := h.service.SyncOffline(ctx, userID)
		if err != nil {
			push(errorMessage(err.Error()))
		}
		push(outboundMessage[any]{Type: "synced", Payload: report})
	default:
		push(errorMessage("unsupported message type"))
	}
}

// forwardRanking sends the ranking once, then again after every saved result.
func (h *WSHandler) forwardRanking(ctx context.Context, push func(outboundMessage[any]) bool, closeSignals <-chan struct{}, log *logger.Logger) {
	sendRanking := func() bool {
		ranking, err := h.service.Stats().GlobalRanking(ctx, app.RankingSize)
		if err != nil {
			log.Warn("load ranking", "error", err)
			return true
		}
		return push(outboundMessage[any]{Type: "ranking", Payload: ranking})
	}

	if !sendRanking() || h.feed == nil {
		return
	}
	updates, cancel, err := h.feed.Subscribe(ctx)
	if err != nil {
		log.Warn("subscribe ranking feed", "error", err)
		return
	}
	defer cancel()

	for {
		select {
		case _, ok := <-updates:
			if !ok || !sendRanking() {
				return
			}
		case <-closeSignals:
			return
		}
	}
}
