// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ranklab/liveboard/internal/adapters/repository"
	"github.com/ranklab/liveboard/internal/domain/model"
)

// ScoreHandler handles score submission requests.
type ScoreHandler struct {
	deps Dependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps Dependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// scoreRequest mirrors the POST /api/user/score body.
type scoreRequest struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Action   string `json:"action"`
}

func (r scoreRequest) validate() error {
	switch {
	case strings.TrimSpace(r.UserID) == "":
		return errors.New("missing userId")
	case strings.TrimSpace(r.Username) == "":
		return errors.New("missing username")
	}
	return nil
}

type scoreResponse struct {
	UserScore model.UserScore     `json:"userScore"`
	RateLimit model.RateLimitInfo `json:"rateLimitInfo"`
}

type throttledResponse struct {
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	RateLimit model.RateLimitInfo `json:"rateLimitInfo"`
}

// HandlePostScore handles POST /api/user/score requests.
func (h *ScoreHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	result, err := h.deps.Submit(r.Context(), req.UserID, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	if !result.Accepted {
		writeJSON(w, http.StatusTooManyRequests, throttledResponse{
			Code:      "rate_limited",
			Message:   "Rate limit exceeded. Too many score update attempts.",
			RateLimit: result.RateLimit,
		})
		return
	}

	writeJSON(w, http.StatusOK, scoreResponse{
		UserScore: *result.UserScore,
		RateLimit: result.RateLimit,
	})
}
