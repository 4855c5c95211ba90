// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ranklab/liveboard/internal/domain/model"
)

// LeaderboardHandler handles leaderboard queries and the admin clear.
type LeaderboardHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

type leaderboardResponse struct {
	Leaderboard []model.Entry `json:"leaderboard"`
	TotalUsers  int           `json:"totalUsers"`
	Timestamp   time.Time     `json:"timestamp"`
}

// HandleLeaderboard handles GET /api/leaderboard?count=N and
// DELETE /api/leaderboard requests.
func (h *LeaderboardHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodDelete:
		h.handleClear(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *LeaderboardHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	n := h.deps.DefaultTopCount()
	if raw := r.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		n = parsed
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", ErrBadRequest)
		return
	}

	entries, err := h.deps.TopK(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	total, err := h.deps.TotalUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	writeJSON(w, http.StatusOK, leaderboardResponse{
		Leaderboard: entries,
		TotalUsers:  total,
		Timestamp:   time.Now(),
	})
}

func (h *LeaderboardHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
