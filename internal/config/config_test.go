package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	if cfg.Addr != ":3000" {
		t.Errorf("addr = %q, want :3000", cfg.Addr)
	}
	if cfg.StoreBackend != "memory" {
		t.Errorf("store_backend = %q, want memory", cfg.StoreBackend)
	}
	if cfg.RateLimitWindowMS != 1000 || cfg.RateLimitMaxWeight != 10 {
		t.Errorf("rate limit defaults = %d/%d, want 1000/10",
			cfg.RateLimitWindowMS, cfg.RateLimitMaxWeight)
	}
	if cfg.TopCount != 10 {
		t.Errorf("top_count = %d, want 10", cfg.TopCount)
	}
	if cfg.MaxLeaderboardLimit != 100 {
		t.Errorf("max_leaderboard_limit = %d, want 100", cfg.MaxLeaderboardLimit)
	}
	if cfg.HeartbeatIntervalMS != 30_000 {
		t.Errorf("heartbeat_interval_ms = %d, want 30000", cfg.HeartbeatIntervalMS)
	}
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *cfg != *New() {
		t.Errorf("loaded config = %+v, want defaults %+v", cfg, New())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LIVEBOARD_ADDR", ":8080")
	t.Setenv("LIVEBOARD_STORE_BACKEND", "redis")
	t.Setenv("LIVEBOARD_REDIS_ADDR", "redis:6379")
	t.Setenv("LIVEBOARD_RATE_LIMIT_MAX_WEIGHT", "25")
	t.Setenv("LIVEBOARD_TOP_COUNT", "50")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("addr = %q, want :8080", cfg.Addr)
	}
	if cfg.StoreBackend != "redis" {
		t.Errorf("store_backend = %q, want redis", cfg.StoreBackend)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Errorf("redis_addr = %q, want redis:6379", cfg.RedisAddr)
	}
	if cfg.RateLimitMaxWeight != 25 {
		t.Errorf("rate_limit_max_weight = %d, want 25", cfg.RateLimitMaxWeight)
	}
	if cfg.TopCount != 50 {
		t.Errorf("top_count = %d, want 50", cfg.TopCount)
	}
	// Untouched keys keep their defaults.
	if cfg.RateLimitWindowMS != 1000 {
		t.Errorf("rate_limit_window_ms = %d, want 1000", cfg.RateLimitWindowMS)
	}
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liveboard.yaml")
	data := []byte("addr: \":9000\"\ntop_count: 20\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("LIVEBOARD_CONFIG", path)
	t.Setenv("LIVEBOARD_ADDR", ":9999")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Env wins over file, file wins over defaults.
	if cfg.Addr != ":9999" {
		t.Errorf("addr = %q, want :9999 (env over file)", cfg.Addr)
	}
	if cfg.TopCount != 20 {
		t.Errorf("top_count = %d, want 20 (file over default)", cfg.TopCount)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("LIVEBOARD_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := Load(context.Background()); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }, ErrEmptyAddr},
		{"unknown backend", func(c *Config) { c.StoreBackend = "cassandra" }, ErrInvalidBackend},
		{"zero window", func(c *Config) { c.RateLimitWindowMS = 0 }, ErrInvalidWindow},
		{"negative weight", func(c *Config) { c.RateLimitMaxWeight = -1 }, ErrInvalidWeight},
		{"valid", func(c *Config) {}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			if err := cfg.validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
