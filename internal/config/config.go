// Package config defines service configuration structures and loading hooks.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreBackend selects the ranked store: "memory" or "redis".
	StoreBackend string `koanf:"store_backend"`

	// Redis connection settings, used when StoreBackend is "redis".
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// LeaderboardKey names the Redis sorted set holding scores.
	LeaderboardKey string `koanf:"leaderboard_key"`

	// RateLimitWindowMS and RateLimitMaxWeight configure the sliding window:
	// at most RateLimitMaxWeight submissions per user per window.
	RateLimitWindowMS  int `koanf:"rate_limit_window_ms"`
	RateLimitMaxWeight int `koanf:"rate_limit_max_weight"`

	// TopCount is the default leaderboard size for queries and broadcasts.
	TopCount int `koanf:"top_count"`

	// MaxLeaderboardLimit caps GET /api/leaderboard?count.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// HeartbeatIntervalMS sets the per-subscriber keepalive period.
	HeartbeatIntervalMS int `koanf:"heartbeat_interval_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":3000",
		StoreBackend:        "memory",
		RedisAddr:           "localhost:6379",
		RedisDB:             0,
		LeaderboardKey:      "leaderboard",
		RateLimitWindowMS:   1000,
		RateLimitMaxWeight:  10,
		TopCount:            10,
		MaxLeaderboardLimit: 100,
		HeartbeatIntervalMS: 30_000,
	}
}
