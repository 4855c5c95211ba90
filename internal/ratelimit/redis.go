package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ranklab/liveboard/pkg/logger"
	"github.com/ranklab/liveboard/pkg/metrics"
)

const defaultKeyPrefix = "rate_limit:"

// checkScript runs the purge-count-decide-record sequence server-side in a
// single atomic step, so two concurrent checks for the same user can never
// both observe a below-capacity window and overshoot it.
//
// KEYS[1] = per-user window zset
// ARGV[1] = window start (unix millis), ARGV[2] = max weight,
// ARGV[3] = now (unix millis), ARGV[4] = unique member, ARGV[5] = window ms
//
// Returns {admitted, count-before-record}.
var checkScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
if count + 1 > tonumber(ARGV[2]) then
  return {0, count}
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {1, count}
`)

// RedisLimiter implements Limiter on a per-user Redis sorted set of
// admitted-attempt timestamps.
type RedisLimiter struct {
	client    *redis.Client
	keyPrefix string
	log       logger.Logger

	mu  sync.RWMutex
	cfg Config
}

// RedisOption applies a configuration option to the RedisLimiter.
type RedisOption func(*RedisLimiter)

// WithKeyPrefix overrides the Redis key prefix for window records.
func WithKeyPrefix(prefix string) RedisOption {
	return func(l *RedisLimiter) {
		if prefix != "" {
			l.keyPrefix = prefix
		}
	}
}

// WithLogger sets a custom logger for the limiter.
func WithLogger(log logger.Logger) RedisOption {
	return func(l *RedisLimiter) {
		if log != nil {
			l.log = log
		}
	}
}

// NewRedisLimiter constructs a Redis-backed limiter with the given settings.
func NewRedisLimiter(client *redis.Client, cfg Config, opts ...RedisOption) *RedisLimiter {
	l := &RedisLimiter{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Get().Named("ratelimit")
	}
	return l
}

func (l *RedisLimiter) key(userID string) string {
	return l.keyPrefix + userID
}

// Check implements Limiter.Check. Storage failures admit the attempt
// (fail-open): blocking all traffic because the limiter backend is down is
// worse than briefly under-throttling.
func (l *RedisLimiter) Check(ctx context.Context, userID string, weight int) Result {
	cfg := l.Config()
	now := time.Now().UnixMilli()
	windowStart := now - int64(cfg.WindowMS)

	// Member carries a random suffix so two admits in the same millisecond
	// stay distinct zset entries.
	member := fmt.Sprintf("%d-%s", now, uuid.NewString())

	raw, err := checkScript.Run(ctx, l.client, []string{l.key(userID)},
		windowStart, cfg.MaxWeight, now, member, cfg.WindowMS,
	).Slice()
	if err != nil || len(raw) != 2 {
		return l.failOpen(ctx, cfg, now, err)
	}
	admitted, okA := raw[0].(int64)
	count, okC := raw[1].(int64)
	if !okA || !okC {
		return l.failOpen(ctx, cfg, now, fmt.Errorf("unexpected script reply %v", raw))
	}

	res := Result{
		Admitted: admitted == 1,
		ResetAt:  now + int64(cfg.WindowMS),
	}
	if res.Admitted {
		res.Remaining = cfg.MaxWeight - int(count) - 1
	} else {
		res.Remaining = max(0, cfg.MaxWeight-int(count))
	}
	return res
}

// Status implements Limiter.Status: purge plus count, never a record.
func (l *RedisLimiter) Status(ctx context.Context, userID string) Result {
	cfg := l.Config()
	now := time.Now().UnixMilli()
	windowStart := now - int64(cfg.WindowMS)

	var card *redis.IntCmd
	_, err := l.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, l.key(userID), "0", strconv.FormatInt(windowStart, 10))
		card = pipe.ZCard(ctx, l.key(userID))
		return nil
	})
	if err != nil {
		return l.failOpen(ctx, cfg, now, err)
	}

	current := int(card.Val())
	return Result{
		Admitted:  current < cfg.MaxWeight,
		Remaining: max(0, cfg.MaxWeight-current),
		ResetAt:   now + int64(cfg.WindowMS),
	}
}

// UpdateConfig implements Limiter.UpdateConfig.
func (l *RedisLimiter) UpdateConfig(p Patch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg = l.cfg.apply(p)
}

// Config implements Limiter.Config.
func (l *RedisLimiter) Config() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

func (l *RedisLimiter) failOpen(ctx context.Context, cfg Config, now int64, err error) Result {
	metrics.RecordLimiterFailOpen()
	l.log.Warn(ctx, "rate limit backend unavailable, admitting", logger.Error(err))
	return Result{
		Admitted:  true,
		Remaining: cfg.MaxWeight,
		ResetAt:   now + int64(cfg.WindowMS),
	}
}
