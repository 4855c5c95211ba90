// Package ratelimit implements per-user sliding-window rate limiting.
//
// A window is the continuously moving interval (now-windowMs, now]. Each
// admitted check records one timestamp in the user's window; a check is
// rejected when the window already holds maxWeight entries. Limiter storage
// failures are handled fail-open: an unreachable backend admits traffic
// instead of blocking it.
package ratelimit

import "context"

// Result is the outcome of a rate limit check or status query.
// ResetAt is a unix timestamp in milliseconds.
type Result struct {
	Admitted  bool  `json:"allowed"`
	Remaining int   `json:"remainingPoints"`
	ResetAt   int64 `json:"resetTime"`
}

// Config holds the runtime-mutable limiter settings. Both values are
// positive integers.
type Config struct {
	WindowMS  int `json:"windowMs"`
	MaxWeight int `json:"maxPoints"`
}

// Patch is a partial config update; nil fields are left unchanged.
type Patch struct {
	WindowMS  *int `json:"windowMs"`
	MaxWeight *int `json:"maxPoints"`
}

// Limiter decides admit/reject for submission attempts.
type Limiter interface {
	// Check purges expired entries, counts the window, and either records the
	// attempt and admits it or rejects it without recording. The weight
	// parameter is reserved; every check consumes exactly one slot.
	// The purge-count-decide-record sequence is atomic per user.
	Check(ctx context.Context, userID string, weight int) Result

	// Status returns the same shape as Check without recording an attempt.
	Status(ctx context.Context, userID string) Result

	// UpdateConfig applies a partial config change, affecting checks issued
	// after it returns.
	UpdateConfig(p Patch)

	// Config returns the current settings.
	Config() Config
}

// apply merges a patch into a config, ignoring nil and non-positive fields.
func (c Config) apply(p Patch) Config {
	if p.WindowMS != nil && *p.WindowMS > 0 {
		c.WindowMS = *p.WindowMS
	}
	if p.MaxWeight != nil && *p.MaxWeight > 0 {
		c.MaxWeight = *p.MaxWeight
	}
	return c
}
