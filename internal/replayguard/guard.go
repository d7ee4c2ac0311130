// Package replayguard deduplicates concurrent OAuth callback requests. An
// installed PWA (and some browsers recovering a tab) can fire the same
// callback URL twice within milliseconds; both requests carry the same
// one-time authorization code, and the provider will only honor one exchange.
//
// The guard lets exactly one caller, the primary, perform the exchange.
// In-process duplicates collapse through singleflight; cross-process
// duplicates serialize through a cache lock. The primary publishes its
// outcome into a short-lived result slot that losers poll, bounded by a wait
// budget, so a duplicate request ends with the primary's result instead of a
// burned code.
package replayguard

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	dErrors "atrium/pkg/domain-errors"
)

// ErrDuplicateInFlight is returned to a loser whose wait budget ran out
// before the primary published an outcome. The client recovers by re-checking
// its session: if the primary succeeded, the user is already logged in.
var ErrDuplicateInFlight = dErrors.New(dErrors.CodeDuplicateInFlight, "login already in progress")

// Outcome is what the primary publishes for piggybacking losers. It carries
// enough for a loser to finish the browser flow without re-running the
// exchange.
type Outcome struct {
	Succeeded bool   `json:"succeeded"`
	UserID    string `json:"user_id,omitempty"`
	Redirect  string `json:"redirect,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// Config bounds the guard's waits.
type Config struct {
	// LockTTL caps how long a crashed primary can hold the claim.
	LockTTL time.Duration
	// WaitBudget caps how long a loser polls for the primary's outcome.
	WaitBudget time.Duration
	// PollInterval is the base loser polling interval; jittered ±50%.
	PollInterval time.Duration
	// SlotTTL is how long a published outcome stays readable.
	SlotTTL time.Duration
}

// DefaultConfig matches the production environment defaults.
func DefaultConfig() Config {
	return Config{
		LockTTL:      10 * time.Second,
		WaitBudget:   5 * time.Second,
		PollInterval: 150 * time.Millisecond,
		SlotTTL:      30 * time.Second,
	}
}

// Guard coordinates duplicate suppression around a single-use operation.
type Guard struct {
	locker  Locker
	slots   SlotStore
	cfg     Config
	metrics *Metrics
	tracer  trace.Tracer

	flight singleflight.Group
}

// New builds a guard. Metrics may be nil in tests.
func New(locker Locker, slots SlotStore, cfg Config, metrics *Metrics) *Guard {
	if cfg.LockTTL <= 0 {
		cfg = DefaultConfig()
	}
	return &Guard{
		locker:  locker,
		slots:   slots,
		cfg:     cfg,
		metrics: metrics,
		tracer:  otel.Tracer("atrium/replayguard"),
	}
}

// Do runs fn under the guard, keyed by the state token. The returned primary
// flag reports whether this call performed the operation itself or
// piggybacked on another caller's outcome.
//
// fn errors are published to losers as a failed outcome before being
// returned, so a burst of duplicates fails together instead of each retrying
// the exchange.
func (g *Guard) Do(ctx context.Context, key string, fn func(ctx context.Context) (Outcome, error)) (Outcome, bool, error) {
	type result struct {
		outcome Outcome
		primary bool
	}

	// executed flips only when THIS caller's closure runs; in-process
	// duplicates share the winner's return value but their own closure never
	// executes, which is how they know they piggybacked.
	executed := false
	v, err, _ := g.flight.Do(key, func() (any, error) {
		executed = true
		outcome, primary, err := g.doLocked(ctx, key, fn)
		if err != nil {
			return nil, err
		}
		return result{outcome: outcome, primary: primary}, nil
	})
	if err != nil {
		return Outcome{}, false, err
	}
	r := v.(result)
	if !executed {
		g.metrics.recordPiggyback()
	}
	return r.outcome, executed && r.primary, nil
}

func (g *Guard) doLocked(ctx context.Context, key string, fn func(ctx context.Context) (Outcome, error)) (Outcome, bool, error) {
	ctx, span := g.tracer.Start(ctx, "replayguard.claim")
	defer span.End()

	owner := uuid.NewString()
	acquired, err := g.locker.Acquire(ctx, key, owner, g.cfg.LockTTL)
	if err != nil {
		return Outcome{}, false, dErrors.Wrap(err, dErrors.CodeUnavailable, "callback lock unavailable")
	}
	span.SetAttributes(attribute.Bool("replayguard.primary", acquired))

	if !acquired {
		outcome, err := g.wait(ctx, key)
		return outcome, false, err
	}

	g.metrics.recordPrimary()
	defer func() {
		// Best-effort: the TTL reclaims the lock if release fails.
		_ = g.locker.Release(ctx, key, owner)
	}()

	outcome, fnErr := fn(ctx)
	if fnErr != nil {
		g.publishFailure(ctx, key, Outcome{ErrorCode: string(dErrors.CodeOf(fnErr))})
		return Outcome{}, true, fnErr
	}

	outcome.Succeeded = true
	g.publish(ctx, key, outcome)
	return outcome, true, nil
}

// wait polls the result slot until the primary publishes, the budget runs
// out, or the request context dies. Losers never retry the operation itself.
func (g *Guard) wait(ctx context.Context, key string) (Outcome, error) {
	ctx, span := g.tracer.Start(ctx, "replayguard.wait")
	defer span.End()

	deadline := time.Now().Add(g.cfg.WaitBudget)
	for {
		outcome, found, err := g.slots.Get(ctx, key)
		if err != nil {
			return Outcome{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "result slot unavailable")
		}
		if found {
			if !outcome.Succeeded {
				g.metrics.recordPiggybackFailed()
				return Outcome{}, dErrors.New(dErrors.Code(nonEmpty(outcome.ErrorCode, string(dErrors.CodeUnauthorized))), "login attempt failed")
			}
			g.metrics.recordPiggyback()
			span.SetAttributes(attribute.Bool("replayguard.piggybacked", true))
			return outcome, nil
		}

		if time.Now().After(deadline) {
			g.metrics.recordTimeout()
			return Outcome{}, ErrDuplicateInFlight
		}

		select {
		case <-ctx.Done():
			return Outcome{}, dErrors.Wrap(ctx.Err(), dErrors.CodeUnavailable, "request canceled while waiting for login outcome")
		case <-time.After(jitter(g.cfg.PollInterval)):
		}
	}
}

func (g *Guard) publish(ctx context.Context, key string, outcome Outcome) {
	if err := g.slots.Put(ctx, key, outcome, g.cfg.SlotTTL); err != nil {
		// Losers will time out and fall back to re-checking their session;
		// the login itself already happened.
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
	}
}

// publishFailure writes only when the slot is empty. A late duplicate that
// re-acquired the lock and failed on the consumed state must not overwrite
// the success outcome a straggler from the original burst is polling for.
func (g *Guard) publishFailure(ctx context.Context, key string, outcome Outcome) {
	if _, err := g.slots.PutIfAbsent(ctx, key, outcome, g.cfg.SlotTTL); err != nil {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
	}
}

// jitter spreads loser polls across ±50% of the base interval so a stampede
// of duplicates does not poll in lockstep.
func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(int64(base)/2 + rand.Int63n(int64(base)))
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// marshalOutcome / unmarshalOutcome are shared by the Redis slot store.
func marshalOutcome(o Outcome) ([]byte, error) {
	return json.Marshal(o)
}

func unmarshalOutcome(data []byte) (Outcome, error) {
	var o Outcome
	if err := json.Unmarshal(data, &o); err != nil {
		return Outcome{}, errors.New("corrupt result slot payload")
	}
	return o, nil
}
