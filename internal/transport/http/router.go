package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"mathfly-quiz-service/internal/app"
	"mathfly-quiz-service/internal/auth"
	"mathfly-quiz-service/internal/logger"
)

// NewRouter mounts the websocket endpoint and the REST API. Everything but
// /healthz requires an authenticated user.
func NewRouter(service *app.QuizService, verifier *auth.Verifier, feed app.RankingFeed, log *logger.Logger) http.Handler {
	log = logger.OrNop(log)
	api := NewAPIHandler(service, log)
	ws := NewWSHandler(service, feed, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(verifier.Middleware)
		r.Get("/ws", ws.ServeWS)
		r.Route("/api", func(r chi.Router) {
			r.Get("/phases", api.Phases)
			r.Get("/stats", api.Stats)
			r.Get("/ranking", api.Ranking)
			r.Post("/sync", api.Sync)
		})
	})
	return r
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}
