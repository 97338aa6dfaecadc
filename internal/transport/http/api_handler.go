package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"mathfly-quiz-service/internal/app"
	"mathfly-quiz-service/internal/auth"
	"mathfly-quiz-service/internal/logger"
)

// APIHandler serves the dashboard REST endpoints.
type APIHandler struct {
	service *app.QuizService
	log     *logger.Logger
}

func NewAPIHandler(service *app.QuizService, log *logger.Logger) *APIHandler {
	return &APIHandler{service: service, log: logger.OrNop(log).With("component", "api")}
}

// Phases returns the caller's phase statuses.
func (h *APIHandler) Phases(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	statuses, err := h.service.Stats().PhaseStatuses(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

// Stats returns the caller's whole dashboard.
func (h *APIHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	dashboard, err := h.service.Stats().Dashboard(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (h *APIHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	limit := app.RankingSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			writeJSON(w, http.StatusBadRequest, errorPayload{Message: "limit must be between 1 and 100"})
			return
		}
		limit = n
	}
	ranking, err := h.service.Stats().GlobalRanking(r.Context(), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

// Sync replays the caller's offline queue. Partial failures still return
// the report, with 502 so clients know to retry.
func (h *APIHandler) Sync(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	report, err := h.service.SyncOffline(r.Context(), userID)
	if err != nil {
		h.log.Warn("offline sync incomplete", "user_id", userID, "error", err)
		writeJSON(w, http.StatusBadGateway, report)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *APIHandler) fail(w http.ResponseWriter, err error) {
	h.log.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorPayload{Message: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
