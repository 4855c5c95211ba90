package config

import "errors"

// Sentinel kinds for configuration errors.
var (
	ErrEmptyAddr      = errors.New("addr must not be empty")
	ErrInvalidBackend = errors.New("store_backend must be memory or redis")
	ErrInvalidWindow  = errors.New("rate_limit_window_ms must be positive")
	ErrInvalidWeight  = errors.New("rate_limit_max_weight must be positive")
)
