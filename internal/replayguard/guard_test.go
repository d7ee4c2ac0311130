package replayguard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "atrium/pkg/domain-errors"
)

func testConfig() Config {
	return Config{
		LockTTL:      2 * time.Second,
		WaitBudget:   500 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		SlotTTL:      2 * time.Second,
	}
}

func newTestGuard() *Guard {
	return New(NewMemoryLocker(), NewMemorySlots(), testConfig(), nil)
}

func TestGuardSingleCaller(t *testing.T) {
	guard := newTestGuard()

	outcome, primary, err := guard.Do(context.Background(), "state-1", func(context.Context) (Outcome, error) {
		return Outcome{UserID: "u1", Redirect: "/home"}, nil
	})

	require.NoError(t, err)
	assert.True(t, primary)
	assert.True(t, outcome.Succeeded)
	assert.Equal(t, "u1", outcome.UserID)
}

// TestGuardConcurrentDuplicates is the invariant the package exists for: N
// racing callers, exactly one exchange.
func TestGuardConcurrentDuplicates(t *testing.T) {
	guard := newTestGuard()

	var exchanges atomic.Int32
	var primaries atomic.Int32
	var piggybacks atomic.Int32

	const callers = 16
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, primary, err := guard.Do(context.Background(), "state-1", func(context.Context) (Outcome, error) {
				exchanges.Add(1)
				time.Sleep(50 * time.Millisecond) // hold the claim while losers pile up
				return Outcome{UserID: "u1", Redirect: "/home"}, nil
			})
			if err != nil {
				return
			}
			if primary {
				primaries.Add(1)
			} else {
				piggybacks.Add(1)
			}
			if outcome.UserID != "u1" {
				t.Errorf("piggybacked outcome lost data: %+v", outcome)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), exchanges.Load(), "exactly one exchange may run")
	assert.Equal(t, int32(1), primaries.Load())
	assert.Equal(t, int32(callers-1), piggybacks.Load())
}

// TestGuardCrossProcessDuplicate simulates a duplicate landing on another
// replica: same locker and slots, separate Guard instances so singleflight
// cannot collapse them.
func TestGuardCrossProcessDuplicate(t *testing.T) {
	locker := NewMemoryLocker()
	slots := NewMemorySlots()
	guardA := New(locker, slots, testConfig(), nil)
	guardB := New(locker, slots, testConfig(), nil)

	release := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, primary, err := guardA.Do(context.Background(), "state-1", func(context.Context) (Outcome, error) {
			<-release
			return Outcome{UserID: "u1"}, nil
		})
		assert.NoError(t, err)
		assert.True(t, primary)
	}()

	time.Sleep(20 * time.Millisecond) // let A take the lock
	wg.Add(1)
	go func() {
		defer wg.Done()
		outcome, primary, err := guardB.Do(context.Background(), "state-1", func(context.Context) (Outcome, error) {
			t.Error("loser must not run the exchange")
			return Outcome{}, nil
		})
		assert.NoError(t, err)
		assert.False(t, primary)
		assert.Equal(t, "u1", outcome.UserID)
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
}

func TestGuardLoserTimesOut(t *testing.T) {
	locker := NewMemoryLocker()
	slots := NewMemorySlots()
	guardA := New(locker, slots, testConfig(), nil)
	guardB := New(locker, slots, testConfig(), nil)

	release := make(chan struct{})
	defer close(release)

	go guardA.Do(context.Background(), "state-1", func(context.Context) (Outcome, error) {
		<-release // outlive B's wait budget
		return Outcome{}, nil
	})

	time.Sleep(20 * time.Millisecond)
	_, _, err := guardB.Do(context.Background(), "state-1", func(context.Context) (Outcome, error) {
		return Outcome{}, nil
	})

	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeDuplicateInFlight))
}

func TestGuardPrimaryFailurePropagatesToLosers(t *testing.T) {
	locker := NewMemoryLocker()
	slots := NewMemorySlots()
	guardA := New(locker, slots, testConfig(), nil)
	guardB := New(locker, slots, testConfig(), nil)

	release := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, err := guardA.Do(context.Background(), "state-1", func(context.Context) (Outcome, error) {
			<-release
			return Outcome{}, dErrors.New(dErrors.CodeUnauthorized, "provider rejected code")
		})
		assert.Error(t, err)
	}()

	time.Sleep(20 * time.Millisecond)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, err := guardB.Do(context.Background(), "state-1", func(context.Context) (Outcome, error) {
			t.Error("loser must not run the exchange")
			return Outcome{}, nil
		})
		assert.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized), "loser sees the primary's failure code, got %v", err)
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
}

// TestGuardLockReleasedAfterFailure: a failed primary must not poison the
// key; a later legitimate retry gets to run.
func TestGuardLockReleasedAfterFailure(t *testing.T) {
	guard := newTestGuard()
	ctx := context.Background()

	_, _, err := guard.Do(ctx, "state-1", func(context.Context) (Outcome, error) {
		return Outcome{}, errors.New("boom")
	})
	require.Error(t, err)

	ran := false
	_, primary, err := guard.Do(ctx, "state-2", func(context.Context) (Outcome, error) {
		ran = true
		return Outcome{}, nil
	})
	require.NoError(t, err)
	assert.True(t, primary)
	assert.True(t, ran)
}

// TestGuardLateDuplicateKeepsPublishedSuccess: a duplicate arriving after
// the lock was released re-runs the operation and fails, but its failure
// must not overwrite the success a straggler may still be polling for.
func TestGuardLateDuplicateKeepsPublishedSuccess(t *testing.T) {
	guard := newTestGuard()
	ctx := context.Background()

	_, _, err := guard.Do(ctx, "state-1", func(context.Context) (Outcome, error) {
		return Outcome{UserID: "u1", Redirect: "/home"}, nil
	})
	require.NoError(t, err)

	_, _, err = guard.Do(ctx, "state-1", func(context.Context) (Outcome, error) {
		return Outcome{}, dErrors.New(dErrors.CodeUnauthorized, "login already completed")
	})
	require.Error(t, err)

	outcome, found, err := guard.slots.Get(ctx, "state-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, outcome.Succeeded)
	assert.Equal(t, "u1", outcome.UserID)
}

func TestGuardWaitRespectsContext(t *testing.T) {
	locker := NewMemoryLocker()
	slots := NewMemorySlots()
	cfg := testConfig()
	cfg.WaitBudget = 10 * time.Second // force the context to be the bound

	guardA := New(locker, slots, cfg, nil)
	guardB := New(locker, slots, cfg, nil)

	release := make(chan struct{})
	defer close(release)

	go guardA.Do(context.Background(), "state-1", func(context.Context) (Outcome, error) {
		<-release
		return Outcome{}, nil
	})
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := guardB.Do(ctx, "state-1", func(context.Context) (Outcome, error) {
		return Outcome{}, nil
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second, "canceled loser must return promptly")
}

func TestMemoryLockerExpiry(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	ok, err := locker.Acquire(ctx, "k", "a", 30*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = locker.Acquire(ctx, "k", "b", 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok, "held lock must not be stealable")

	time.Sleep(40 * time.Millisecond)

	ok, err = locker.Acquire(ctx, "k", "b", 30*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock must be reclaimable")
}

func TestMemoryLockerOwnerCheckedRelease(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	ok, _ := locker.Acquire(ctx, "k", "a", time.Minute)
	require.True(t, ok)

	require.NoError(t, locker.Release(ctx, "k", "intruder"))

	ok, _ = locker.Acquire(ctx, "k", "b", time.Minute)
	assert.False(t, ok, "release by non-owner must be a no-op")
}
