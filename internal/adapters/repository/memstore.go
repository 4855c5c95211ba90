package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ranklab/liveboard/internal/domain/model"
	"github.com/ranklab/liveboard/pkg/metrics"
)

// In-memory Store implementation.
//
// Ordering: score DESC, then first-seen order ASC. The secondary key makes
// repeated queries against unchanged state return identical ranks even when
// scores tie.

// userRecord holds a user's scoring state plus the insertion sequence used
// as the deterministic tie-breaker.
type userRecord struct {
	username    string
	score       float64
	lastUpdated time.Time
	seq         uint64
}

// MemoryStore implements Store with a mutex-guarded map. Rankings are
// recomputed on each query; the state never leaves the process.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*userRecord
	nextSeq uint64
	now     func() time.Time
}

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		users: make(map[string]*userRecord),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment implements Store.Increment. The whole read-modify-write happens
// under the write lock, so concurrent increments to the same user cannot
// lose updates.
func (s *MemoryStore) Increment(ctx context.Context, userID, username string, delta float64) (model.UserScore, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("increment", float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		rec = &userRecord{seq: s.nextSeq}
		s.nextSeq++
		s.users[userID] = rec
	}
	rec.score += delta
	rec.username = username
	rec.lastUpdated = s.now()

	return model.UserScore{
		UserID:      userID,
		Username:    rec.username,
		Score:       rec.score,
		LastUpdated: rec.lastUpdated,
	}, nil
}

// TopK implements Store.TopK.
func (s *MemoryStore) TopK(ctx context.Context, k int) ([]model.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("topk", float64(time.Since(start).Milliseconds()))
	}()

	if k <= 0 {
		return []model.Entry{}, nil
	}

	entries := s.snapshotSorted()
	if len(entries) > k {
		entries = entries[:k]
	}
	return entries, nil
}

// GetUser implements Store.GetUser. The rank is computed against the full
// population.
func (s *MemoryStore) GetUser(ctx context.Context, userID string) (model.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("get_user", float64(time.Since(start).Milliseconds()))
	}()

	entries := s.snapshotSorted()
	for _, e := range entries {
		if e.UserID == userID {
			return e, nil
		}
	}
	return model.Entry{}, ErrNotFound
}

// Count implements Store.Count.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// Clear implements Store.Clear. Subsequent queries behave as if the store
// were newly created.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]*userRecord)
	s.nextSeq = 0
	return nil
}

// snapshotSorted copies all records under the read lock and returns them in
// rank order with ranks assigned. Records are copied before sorting so a
// concurrent increment cannot produce a torn read of a single user's state.
func (s *MemoryStore) snapshotSorted() []model.Entry {
	s.mu.RLock()
	type row struct {
		entry model.Entry
		seq   uint64
	}
	rows := make([]row, 0, len(s.users))
	for id, rec := range s.users {
		rows = append(rows, row{
			entry: model.Entry{UserScore: model.UserScore{
				UserID:      id,
				Username:    rec.username,
				Score:       rec.score,
				LastUpdated: rec.lastUpdated,
			}},
			seq: rec.seq,
		})
	}
	s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].entry.Score != rows[j].entry.Score {
			return rows[i].entry.Score > rows[j].entry.Score
		}
		return rows[i].seq < rows[j].seq
	})

	entries := make([]model.Entry, len(rows))
	for i, r := range rows {
		r.entry.Rank = i + 1
		entries[i] = r.entry
	}
	return entries
}
