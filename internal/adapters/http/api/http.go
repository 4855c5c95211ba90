// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ranklab/liveboard/internal/domain/model"
	"github.com/ranklab/liveboard/internal/ratelimit"
	"github.com/ranklab/liveboard/internal/stream"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit runs one rate-limited score submission end to end.
	Submit(ctx context.Context, userID, username string) (model.SubmitResult, error)

	// Read operations expose leaderboard data.
	TopK(ctx context.Context, k int) ([]model.Entry, error)
	GetUser(ctx context.Context, userID string) (model.Entry, error)
	TotalUsers(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	DefaultTopCount() int

	// Rate limit inspection and runtime configuration.
	RateLimitStatus(ctx context.Context, userID string) ratelimit.Result
	LimiterConfig() ratelimit.Config
	UpdateLimiterConfig(p ratelimit.Patch)

	// Live update subscriptions.
	Attach(id string, sink stream.Sink)
	Detach(id string)
	SendSnapshot(ctx context.Context, id string) error
	SubscriberCount() int
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	scoreHandler       *ScoreHandler
	leaderboardHandler *LeaderboardHandler
	userHandler        *UserHandler
	eventsHandler      *EventsHandler
	configHandler      *ConfigHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		scoreHandler:       NewScoreHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		userHandler:        NewUserHandler(deps),
		eventsHandler:      NewEventsHandler(deps),
		configHandler:      NewConfigHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/user/score", MetricsMiddleware(s.scoreHandler.HandlePostScore, "score"))
	mux.HandleFunc("/api/user/", MetricsMiddleware(s.userHandler.HandleGetUser, "user"))
	mux.HandleFunc("/api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleLeaderboard, "leaderboard"))
	mux.HandleFunc("/api/config", MetricsMiddleware(s.configHandler.HandleConfig, "config"))
	// No metrics middleware here: the events connection is long-lived and a
	// per-request duration histogram would only record disconnects.
	mux.HandleFunc("/api/events", s.eventsHandler.HandleEvents)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
