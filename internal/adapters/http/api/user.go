// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ranklab/liveboard/internal/adapters/repository"
)

// UserHandler handles per-user read requests.
type UserHandler struct {
	deps Dependencies
}

// NewUserHandler creates a new user handler.
func NewUserHandler(deps Dependencies) *UserHandler {
	return &UserHandler{deps: deps}
}

// HandleGetUser handles GET /api/user/{id}/score and
// GET /api/user/{id}/rate-limit requests.
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	// Path shape: /api/user/{id}/{resource}
	rest := strings.TrimPrefix(r.URL.Path, "/api/user/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	userID, resource := parts[0], parts[1]

	switch resource {
	case "score":
		entry, err := h.deps.GetUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found", err)
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	case "rate-limit":
		writeJSON(w, http.StatusOK, h.deps.RateLimitStatus(r.Context(), userID))
	default:
		http.NotFound(w, r)
	}
}
