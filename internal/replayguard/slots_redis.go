package replayguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisSlotClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisSlots implements SlotStore on a shared Redis so a loser on one
// replica can piggyback on a primary running on another.
type RedisSlots struct {
	client redisSlotClient
	prefix string
}

func NewRedisSlots(client redisSlotClient) *RedisSlots {
	return &RedisSlots{client: client, prefix: "atrium:cb-slot:"}
}

func (s *RedisSlots) Put(ctx context.Context, key string, outcome Outcome, ttl time.Duration) error {
	payload, err := marshalOutcome(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("put result slot: %w", err)
	}
	return nil
}

func (s *RedisSlots) PutIfAbsent(ctx context.Context, key string, outcome Outcome, ttl time.Duration) (bool, error) {
	payload, err := marshalOutcome(outcome)
	if err != nil {
		return false, fmt.Errorf("marshal outcome: %w", err)
	}
	set, err := s.client.SetNX(ctx, s.prefix+key, payload, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("put result slot: %w", err)
	}
	return set, nil
}

func (s *RedisSlots) Get(ctx context.Context, key string) (Outcome, bool, error) {
	payload, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Outcome{}, false, nil
		}
		return Outcome{}, false, fmt.Errorf("get result slot: %w", err)
	}
	outcome, err := unmarshalOutcome(payload)
	if err != nil {
		return Outcome{}, false, err
	}
	return outcome, true, nil
}
