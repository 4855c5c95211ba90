// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ranklab/liveboard/internal/ratelimit"
)

// ConfigHandler exposes runtime configuration inspection and mutation.
type ConfigHandler struct {
	deps Dependencies
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(deps Dependencies) *ConfigHandler {
	return &ConfigHandler{deps: deps}
}

type configResponse struct {
	RateLimit   ratelimit.Config  `json:"rateLimit"`
	Leaderboard leaderboardConfig `json:"leaderboard"`
	Stream      streamConfig      `json:"stream"`
}

type leaderboardConfig struct {
	TopCount int `json:"topCount"`
}

type streamConfig struct {
	ConnectedClients int `json:"connectedClients"`
}

type configUpdateRequest struct {
	RateLimit *ratelimit.Patch `json:"rateLimit"`
}

// HandleConfig handles GET and POST /api/config requests. Updates take
// effect for all checks issued after the call returns.
func (h *ConfigHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, configResponse{
			RateLimit:   h.deps.LimiterConfig(),
			Leaderboard: leaderboardConfig{TopCount: h.deps.DefaultTopCount()},
			Stream:      streamConfig{ConnectedClients: h.deps.SubscriberCount()},
		})
	case http.MethodPost:
		var req configUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		if req.RateLimit != nil {
			h.deps.UpdateLimiterConfig(*req.RateLimit)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	default:
		http.NotFound(w, r)
	}
}
