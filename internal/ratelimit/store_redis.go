package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// allowScript is a fixed-window counter: increment, stamp the TTL on the
// first hit, and report count plus remaining TTL in one round trip.
var allowScript = redis.NewScript(`
local count = redis.call("incr", KEYS[1])
if count == 1 then
	redis.call("pexpire", KEYS[1], ARGV[1])
end
local ttl = redis.call("pttl", KEYS[1])
return {count, ttl}
`)

type redisLimitClient interface {
	redis.Scripter
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore counts requests on a shared Redis so the limit holds across
// gateway replicas. Fixed window; the cross-replica consistency is worth the
// coarser boundary behavior.
type RedisStore struct {
	client redisLimitClient
	prefix string
}

func NewRedisStore(client redisLimitClient) *RedisStore {
	return &RedisStore{client: client, prefix: "atrium:rl:"}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	vals, err := allowScript.Run(ctx, s.client, []string{s.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit incr: %w", err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("rate limit incr: unexpected reply %v", vals)
	}

	count, ttlMillis := vals[0], vals[1]
	resetAt := time.Now().Add(time.Duration(ttlMillis) * time.Millisecond)

	if count > int64(limit) {
		return Result{Allowed: false, Limit: limit, ResetAt: resetAt}, nil
	}
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - int(count),
		ResetAt:   resetAt,
	}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("rate limit reset: %w", err)
	}
	return nil
}
