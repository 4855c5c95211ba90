// Package repository defines the ranked score store interface and errors.
package repository

import (
	"context"

	"github.com/ranklab/liveboard/internal/domain/model"
)

// Store provides read/write access to the ranked score state.
//
// Implementations must make Increment safe under concurrent calls for the
// same user: no lost updates. TopK must never mix a single user's score
// from before and after a concurrent increment within one call.
type Store interface {
	// Increment atomically adds delta to the user's score, creating the user
	// with score=delta if absent, and refreshes the display name and
	// last-update timestamp. Returns the resulting state.
	Increment(ctx context.Context, userID, username string, delta float64) (model.UserScore, error)

	// TopK returns up to k entries in descending score order with ranks 1..k.
	// k <= 0 yields an empty slice.
	TopK(ctx context.Context, k int) ([]model.Entry, error)

	// GetUser returns the user's score and rank against the full population.
	// Returns ErrNotFound if the user has never scored.
	GetUser(ctx context.Context, userID string) (model.Entry, error)

	// Count returns the number of distinct users with a recorded score.
	Count(ctx context.Context) (int, error)

	// Clear removes all user state.
	Clear(ctx context.Context) error
}
