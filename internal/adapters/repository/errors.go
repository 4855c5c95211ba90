package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound    = errors.New("user not found")
	ErrUnavailable = errors.New("score store unavailable")
)
