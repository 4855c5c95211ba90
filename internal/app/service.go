// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ranklab/liveboard/internal/adapters/repository"
	"github.com/ranklab/liveboard/internal/domain/model"
	"github.com/ranklab/liveboard/internal/ratelimit"
	"github.com/ranklab/liveboard/internal/stream"
	"github.com/ranklab/liveboard/pkg/logger"
	"github.com/ranklab/liveboard/pkg/metrics"
)

// Store backend names accepted by WithStoreBackend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

const submitDelta = 1 // points granted per accepted submission

// Service coordinates score submissions end-to-end: rate limiter first,
// then the ranked store, then broadcast of the update and the fresh
// leaderboard snapshot.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	limiter ratelimit.Limiter
	hub     *stream.Hub

	// Configuration
	backend           string
	redisAddr         string
	redisPassword     string
	redisDB           int
	leaderboardKey    string
	limiterCfg        ratelimit.Config
	topCount          int
	heartbeatInterval time.Duration

	// State
	started bool
	redis   *redis.Client

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithStoreBackend selects the ranked store backend (memory or redis).
func WithStoreBackend(backend string) Option {
	return func(s *Service) {
		if backend != "" {
			s.backend = backend
		}
	}
}

// WithRedis sets the Redis connection parameters.
func WithRedis(addr, password string, db int) Option {
	return func(s *Service) {
		if addr != "" {
			s.redisAddr = addr
		}
		s.redisPassword = password
		s.redisDB = db
	}
}

// WithLeaderboardKey names the Redis sorted set holding scores.
func WithLeaderboardKey(key string) Option {
	return func(s *Service) {
		if key != "" {
			s.leaderboardKey = key
		}
	}
}

// WithRateLimit sets the initial sliding-window settings.
func WithRateLimit(windowMS, maxWeight int) Option {
	return func(s *Service) {
		if windowMS > 0 {
			s.limiterCfg.WindowMS = windowMS
		}
		if maxWeight > 0 {
			s.limiterCfg.MaxWeight = maxWeight
		}
	}
}

// WithTopCount sets the default leaderboard size for queries and broadcasts.
func WithTopCount(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.topCount = n
		}
	}
}

// WithHeartbeatInterval sets the per-subscriber keepalive period.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.heartbeatInterval = d
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		backend:           BackendMemory,
		redisAddr:         "localhost:6379",
		leaderboardKey:    "leaderboard",
		limiterCfg:        ratelimit.Config{WindowMS: 1000, MaxWeight: 10},
		topCount:          10,
		heartbeatInterval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the store, limiter and hub per configuration.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting scoreboard service...",
		logger.String("backend", s.backend),
	)

	switch s.backend {
	case BackendRedis:
		s.redis = redis.NewClient(&redis.Options{
			Addr:     s.redisAddr,
			Password: s.redisPassword,
			DB:       s.redisDB,
		})
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		s.store = repository.NewRedisStore(s.redis,
			repository.WithLeaderboardKey(s.leaderboardKey),
		)
		s.limiter = ratelimit.NewRedisLimiter(s.redis, s.limiterCfg,
			ratelimit.WithLogger(s.logger.Named("ratelimit")),
		)
	case BackendMemory:
		s.store = repository.NewMemoryStore()
		s.limiter = ratelimit.NewMemoryLimiter(s.limiterCfg)
	default:
		return fmt.Errorf("unknown store backend %q", s.backend)
	}

	s.hub = stream.NewHub(
		stream.WithHeartbeatInterval(s.heartbeatInterval),
		stream.WithLogger(s.logger.Named("stream")),
	)

	s.started = true
	s.logger.Info(ctx, "scoreboard service started",
		logger.Int("windowMs", s.limiterCfg.WindowMS),
		logger.Int("maxWeight", s.limiterCfg.MaxWeight),
		logger.Int("topCount", s.topCount),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping scoreboard service...")

	if s.hub != nil {
		s.hub.CloseAll()
	}
	if s.redis != nil {
		_ = s.redis.Close()
		s.redis = nil
	}

	s.started = false
	s.logger.Info(ctx, "scoreboard service stopped")
}

// Submit runs one score submission through the limiter, store and hub.
// A throttled submission returns Accepted=false without an error; a store
// failure after admission returns an error and the consumed limiter slot is
// not refunded.
func (s *Service) Submit(ctx context.Context, userID, username string) (model.SubmitResult, error) {
	rl := s.limiter.Check(ctx, userID, 1)
	info := model.RateLimitInfo{RemainingActions: rl.Remaining, ResetTime: rl.ResetAt}

	if !rl.Admitted {
		metrics.RecordSubmissionThrottled()
		s.logger.Debug(ctx, "submission throttled",
			logger.String("userID", userID),
			logger.Int("remaining", rl.Remaining),
		)
		return model.SubmitResult{Accepted: false, RateLimit: info}, nil
	}

	us, err := s.store.Increment(ctx, userID, username, submitDelta)
	if err != nil {
		metrics.RecordSubmissionFailed()
		return model.SubmitResult{}, fmt.Errorf("increment score: %w", err)
	}

	entries, err := s.store.TopK(ctx, s.topCount)
	if err != nil {
		// The score is already recorded; broadcast the individual update and
		// surface the snapshot failure.
		s.hub.Publish(stream.NewUserScoreUpdate(us))
		metrics.RecordSubmissionFailed()
		return model.SubmitResult{}, fmt.Errorf("leaderboard snapshot: %w", err)
	}

	s.hub.Publish(stream.NewUserScoreUpdate(us))
	s.hub.Publish(stream.NewLeaderboardUpdate(entries))

	metrics.RecordSubmissionAccepted()
	return model.SubmitResult{Accepted: true, UserScore: &us, RateLimit: info}, nil
}

// TopK returns up to k leaderboard entries; k <= 0 yields an empty slice.
func (s *Service) TopK(ctx context.Context, k int) ([]model.Entry, error) {
	return s.store.TopK(ctx, k)
}

// GetUser returns one user's score and rank against the full population.
func (s *Service) GetUser(ctx context.Context, userID string) (model.Entry, error) {
	return s.store.GetUser(ctx, userID)
}

// TotalUsers returns the number of distinct users with a recorded score.
func (s *Service) TotalUsers(ctx context.Context) (int, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return 0, err
	}
	metrics.UpdateTotalUsers(count)
	return count, nil
}

// Clear wipes all score state and tells subscribers about it.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.hub.Publish(stream.NewSystemMessage("Leaderboard cleared"))
	return nil
}

// RateLimitStatus returns the user's current window without consuming a slot.
func (s *Service) RateLimitStatus(ctx context.Context, userID string) ratelimit.Result {
	return s.limiter.Status(ctx, userID)
}

// LimiterConfig returns the current rate limit settings.
func (s *Service) LimiterConfig() ratelimit.Config {
	return s.limiter.Config()
}

// UpdateLimiterConfig applies a partial rate limit change at runtime.
func (s *Service) UpdateLimiterConfig(p ratelimit.Patch) {
	s.limiter.UpdateConfig(p)
	cfg := s.limiter.Config()
	s.logger.Info(context.Background(), "rate limit config updated",
		logger.Int("windowMs", cfg.WindowMS),
		logger.Int("maxWeight", cfg.MaxWeight),
	)
}

// Attach registers a live-update subscriber with the hub.
func (s *Service) Attach(id string, sink stream.Sink) {
	s.hub.Attach(id, sink)
}

// Detach removes a live-update subscriber.
func (s *Service) Detach(id string) {
	s.hub.Detach(id)
}

// SendSnapshot delivers the current leaderboard to a single subscriber,
// used right after attach.
func (s *Service) SendSnapshot(ctx context.Context, id string) error {
	entries, err := s.store.TopK(ctx, s.topCount)
	if err != nil {
		return err
	}
	return s.hub.SendTo(id, stream.NewLeaderboardUpdate(entries))
}

// SubscriberCount returns the number of attached subscribers.
func (s *Service) SubscriberCount() int {
	return s.hub.SubscriberCount()
}

// DefaultTopCount returns the configured leaderboard size.
func (s *Service) DefaultTopCount() int {
	return s.topCount
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":  s.started,
		"backend":  s.backend,
		"topCount": s.topCount,
	}

	if s.started {
		cfg := s.limiter.Config()
		stats["subscribers"] = s.hub.SubscriberCount()
		stats["rateLimitWindowMs"] = cfg.WindowMS
		stats["rateLimitMaxWeight"] = cfg.MaxWeight
		if count, err := s.store.Count(context.Background()); err == nil {
			stats["totalUsers"] = count
			metrics.UpdateTotalUsers(count)
		}
	}

	return stats
}
