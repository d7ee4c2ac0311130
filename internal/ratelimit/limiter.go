// Package ratelimit throttles the auth endpoints per client IP. The login
// and callback routes are the only unauthenticated writes in the gateway,
// which makes them the credential-stuffing surface worth defending.
package ratelimit

import (
	"context"
	"time"
)

// Result reports one admission decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Store counts requests per key inside a window. Implementations decide the
// window shape; callers only see the decision.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
	Reset(ctx context.Context, key string) error
}

// Limiter applies one limit class over a Store.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

func NewLimiter(store Store, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 20
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{store: store, limit: limit, window: window}
}

// Allow admits or rejects one request for the key.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	return l.store.Allow(ctx, key, l.limit, l.window)
}
