package replayguard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when the caller still owns it, so a
// slow primary whose TTL lapsed cannot release a lock someone else reclaimed.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type redisLockClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

// RedisLocker implements Locker on a shared Redis, making the claim hold
// across gateway replicas.
type RedisLocker struct {
	client redisLockClient
	prefix string
}

func NewRedisLocker(client redisLockClient) *RedisLocker {
	return &RedisLocker{client: client, prefix: "atrium:cb-lock:"}
}

func (l *RedisLocker) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire callback lock: %w", err)
	}
	return ok, nil
}

func (l *RedisLocker) Release(ctx context.Context, key, owner string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, owner).Err(); err != nil {
		return fmt.Errorf("release callback lock: %w", err)
	}
	return nil
}
