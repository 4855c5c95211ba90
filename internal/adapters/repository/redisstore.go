package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ranklab/liveboard/internal/domain/model"
	"github.com/ranklab/liveboard/pkg/metrics"
)

// Redis-backed Store implementation.
//
// Layout: one sorted set holding member=userID score=score, plus a
// "user:<id>" hash per user for display name and last-update timestamp.
// Redis orders equal scores by member, which keeps tied ranks stable
// across repeated queries.

const defaultLeaderboardKey = "leaderboard"

// RedisStore implements Store on top of a Redis sorted set.
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// RedisOption applies a configuration option to the RedisStore.
type RedisOption func(*RedisStore)

// WithLeaderboardKey overrides the sorted set key name.
func WithLeaderboardKey(key string) RedisOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
		}
	}
}

// NewRedisStore constructs a store backed by the given client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		key:    defaultLeaderboardKey,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) userKey(userID string) string {
	return "user:" + userID
}

// Increment implements Store.Increment. The metadata write and the score
// increment run in a single MULTI/EXEC transaction; ZINCRBY itself is atomic
// on the server, so concurrent increments to the same user cannot lose
// updates.
func (s *RedisStore) Increment(ctx context.Context, userID, username string, delta float64) (model.UserScore, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("increment", float64(time.Since(start).Milliseconds()))
	}()

	updated := s.now()
	var incr *redis.FloatCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.userKey(userID),
			"username", username,
			"lastUpdated", updated.Format(time.RFC3339Nano),
		)
		incr = pipe.ZIncrBy(ctx, s.key, delta, userID)
		return nil
	})
	if err != nil {
		return model.UserScore{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return model.UserScore{
		UserID:      userID,
		Username:    username,
		Score:       incr.Val(),
		LastUpdated: updated,
	}, nil
}

// TopK implements Store.TopK.
func (s *RedisStore) TopK(ctx context.Context, k int) ([]model.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("topk", float64(time.Since(start).Milliseconds()))
	}()

	if k <= 0 {
		return []model.Entry{}, nil
	}

	rows, err := s.client.ZRevRangeWithScores(ctx, s.key, 0, int64(k)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Fetch all user hashes in one round trip.
	metaCmds := make([]*redis.MapStringStringCmd, len(rows))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, row := range rows {
			metaCmds[i] = pipe.HGetAll(ctx, s.userKey(row.Member.(string)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	entries := make([]model.Entry, len(rows))
	for i, row := range rows {
		entries[i] = model.Entry{
			UserScore: s.toUserScore(row.Member.(string), row.Score, metaCmds[i].Val()),
			Rank:      i + 1,
		}
	}
	return entries, nil
}

// GetUser implements Store.GetUser.
func (s *RedisStore) GetUser(ctx context.Context, userID string) (model.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("get_user", float64(time.Since(start).Milliseconds()))
	}()

	score, err := s.client.ZScore(ctx, s.key, userID).Result()
	if err == redis.Nil {
		return model.Entry{}, ErrNotFound
	}
	if err != nil {
		return model.Entry{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rank, err := s.client.ZRevRank(ctx, s.key, userID).Result()
	if err != nil && err != redis.Nil {
		return model.Entry{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	meta, err := s.client.HGetAll(ctx, s.userKey(userID)).Result()
	if err != nil {
		return model.Entry{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return model.Entry{
		UserScore: s.toUserScore(userID, score, meta),
		Rank:      int(rank) + 1,
	}, nil
}

// Count implements Store.Count.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(n), nil
}

// Clear implements Store.Clear, deleting the sorted set and every user hash.
func (s *RedisStore) Clear(ctx context.Context) error {
	userIDs, err := s.client.ZRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	keys := make([]string, 0, len(userIDs)+1)
	for _, id := range userIDs {
		keys = append(keys, s.userKey(id))
	}
	keys = append(keys, s.key)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// toUserScore merges a zset row with the user's metadata hash. Missing or
// malformed metadata degrades to zero values rather than failing the read.
func (s *RedisStore) toUserScore(userID string, score float64, meta map[string]string) model.UserScore {
	us := model.UserScore{
		UserID:   userID,
		Username: meta["username"],
		Score:    score,
	}
	if raw, ok := meta["lastUpdated"]; ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			us.LastUpdated = ts
		}
	}
	return us
}
