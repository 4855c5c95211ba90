// Package model contains domain models passed between layers.
package model

import "time"

// UserScore is the persisted scoring state for a single user.
// Fields mirror the JSON shapes served by the HTTP API.
type UserScore struct {
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	Score       float64   `json:"score"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Entry is a UserScore together with its 1-based rank at a specific
// observation instant. Entries are recomputed on every query and have
// no lifecycle of their own.
type Entry struct {
	UserScore
	Rank int `json:"rank"`
}

// RateLimitInfo is the throttling feedback attached to submission results.
// ResetTime is a unix timestamp in milliseconds.
type RateLimitInfo struct {
	RemainingActions int   `json:"remainingActions"`
	ResetTime        int64 `json:"resetTime"`
}

// SubmitResult is the outcome of one score submission.
// A throttled submission is a regular result, not an error.
type SubmitResult struct {
	Accepted  bool          `json:"accepted"`
	UserScore *UserScore    `json:"userScore,omitempty"`
	RateLimit RateLimitInfo `json:"rateLimitInfo"`
}
