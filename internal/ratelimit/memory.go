package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter implements Limiter with in-process state. All window
// mutations happen under one mutex, which makes the purge-count-decide-record
// sequence atomic per user by construction.
type MemoryLimiter struct {
	mu      sync.Mutex
	cfg     Config
	windows map[string][]int64 // unix-millis timestamps of admitted attempts
	now     func() time.Time
}

// MemoryOption applies a configuration option to the MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// NewMemoryLimiter constructs an in-memory limiter with the given settings.
func NewMemoryLimiter(cfg Config, opts ...MemoryOption) *MemoryLimiter {
	l := &MemoryLimiter{
		cfg:     cfg,
		windows: make(map[string][]int64),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check implements Limiter.Check.
func (l *MemoryLimiter) Check(ctx context.Context, userID string, weight int) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg := l.cfg
	now := l.now().UnixMilli()
	window := l.purgeLocked(userID, now, cfg)
	current := len(window)

	res := Result{
		Remaining: max(0, cfg.MaxWeight-current),
		ResetAt:   now + int64(cfg.WindowMS),
	}
	if current+1 > cfg.MaxWeight {
		return res
	}

	l.windows[userID] = append(window, now)
	res.Admitted = true
	res.Remaining = cfg.MaxWeight - current - 1
	return res
}

// Status implements Limiter.Status. Expired entries are purged as a side
// effect but no attempt is recorded.
func (l *MemoryLimiter) Status(ctx context.Context, userID string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg := l.cfg
	now := l.now().UnixMilli()
	current := len(l.purgeLocked(userID, now, cfg))

	return Result{
		Admitted:  current < cfg.MaxWeight,
		Remaining: max(0, cfg.MaxWeight-current),
		ResetAt:   now + int64(cfg.WindowMS),
	}
}

// UpdateConfig implements Limiter.UpdateConfig.
func (l *MemoryLimiter) UpdateConfig(p Patch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg = l.cfg.apply(p)
}

// Config implements Limiter.Config.
func (l *MemoryLimiter) Config() Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg
}

// purgeLocked drops entries older than the window start and returns the
// remaining timestamps. Empty records are removed from the map entirely.
// Caller must hold l.mu.
func (l *MemoryLimiter) purgeLocked(userID string, now int64, cfg Config) []int64 {
	window := l.windows[userID]
	windowStart := now - int64(cfg.WindowMS)

	kept := window[:0]
	for _, ts := range window {
		if ts > windowStart {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.windows, userID)
		return nil
	}
	l.windows[userID] = kept
	return kept
}
