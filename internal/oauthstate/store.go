package oauthstate

import (
	"context"
	"time"
)

// Store persists pending logins. Implementations return sentinel errors:
// Consume yields sentinel.ErrNotFound for unknown tokens,
// sentinel.ErrAlreadyUsed when another caller holds the claim, and
// sentinel.ErrExpired for stale states. The claim itself must be atomic:
// under concurrent Consume calls for one token exactly one succeeds.
type Store interface {
	Create(ctx context.Context, s State) error
	Consume(ctx context.Context, token string, now time.Time) (State, error)
	Release(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
