package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/substratehq/substrate/pkg/cache"
)

// storeOnly hides the wrapped store's optional capabilities so tests
// can drive the read-modify-write fallback path.
type storeOnly struct {
	cache.Store
}

// failingStore refuses every operation.
type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("store down")
}

func (failingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("store down")
}

func (failingStore) Delete(ctx context.Context, key string) error {
	return errors.New("store down")
}

func (failingStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return 0, errors.New("store down")
}

func newTestLimiter(t *testing.T, store cache.Store) *Limiter {
	t.Helper()

	limiter, err := New(store)
	require.NoError(t, err)
	return limiter
}

// TestLimiter_AdmitsUpToLimit tests the admission boundary: a limit of
// 3 admits exactly 3 calls in one window and rejects the 4th.
func TestLimiter_AdmitsUpToLimit(t *testing.T) {
	limiter := newTestLimiter(t, cache.NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Check(ctx, "s", 3, time.Minute, "A"))
	}

	err := limiter.Check(ctx, "s", 3, time.Minute, "A")
	require.Error(t, err)
	assert.True(t, IsLimitExceeded(err))
}

// TestLimiter_RetryAfterDetails tests the rejection payload.
func TestLimiter_RetryAfterDetails(t *testing.T) {
	limiter := newTestLimiter(t, cache.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, limiter.Check(ctx, "login", 1, time.Minute, "10.0.0.7"))

	err := limiter.Check(ctx, "login", 1, time.Minute, "10.0.0.7")
	require.Error(t, err)

	var limitErr *LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, "login", limitErr.Scope)
	assert.Equal(t, "10.0.0.7", limitErr.Client)
	assert.Equal(t, int64(1), limitErr.Limit)
	assert.Greater(t, limitErr.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, limitErr.RetryAfter, time.Minute)

	assert.Equal(t, limitErr.RetryAfter, RetryAfter(err))
	assert.Equal(t, time.Duration(0), RetryAfter(errors.New("other")))
}

// TestLimiter_WindowExpiryResets tests that a fresh window admits
// again after the previous one expires.
func TestLimiter_WindowExpiryResets(t *testing.T) {
	limiter := newTestLimiter(t, cache.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, limiter.Check(ctx, "s", 1, 80*time.Millisecond, "A"))
	assert.True(t, IsLimitExceeded(limiter.Check(ctx, "s", 1, 80*time.Millisecond, "A")))

	time.Sleep(150 * time.Millisecond)

	assert.NoError(t, limiter.Check(ctx, "s", 1, 80*time.Millisecond, "A"))
}

// TestLimiter_PerClientIsolation tests that one client exhausting its
// window does not affect another.
func TestLimiter_PerClientIsolation(t *testing.T) {
	limiter := newTestLimiter(t, cache.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, limiter.Check(ctx, "s", 1, time.Minute, "A"))
	assert.True(t, IsLimitExceeded(limiter.Check(ctx, "s", 1, time.Minute, "A")))

	assert.NoError(t, limiter.Check(ctx, "s", 1, time.Minute, "B"))
}

// TestLimiter_PerScopeIsolation tests that scopes count independently
// for the same client.
func TestLimiter_PerScopeIsolation(t *testing.T) {
	limiter := newTestLimiter(t, cache.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, limiter.Check(ctx, "login", 1, time.Minute, "A"))
	assert.True(t, IsLimitExceeded(limiter.Check(ctx, "login", 1, time.Minute, "A")))

	assert.NoError(t, limiter.Check(ctx, "signup", 1, time.Minute, "A"))
}

// TestLimiter_ConcurrentExactness tests that the atomic increment path
// admits exactly limit calls under a concurrent burst.
func TestLimiter_ConcurrentExactness(t *testing.T) {
	limiter := newTestLimiter(t, cache.NewMemoryStore())
	ctx := context.Background()

	const (
		workers        = 8
		callsPerWorker = 50
		limit          = 250
	)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < callsPerWorker; i++ {
				if limiter.Check(ctx, "burst", limit, time.Minute, "A") == nil {
					admitted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), admitted.Load())
}

// TestLimiter_FallbackAdmitsUpToLimit tests the read-modify-write path
// used when the store has no atomic increment.
func TestLimiter_FallbackAdmitsUpToLimit(t *testing.T) {
	limiter := newTestLimiter(t, storeOnly{cache.NewMemoryStore()})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Check(ctx, "s", 3, time.Minute, "A"))
	}

	err := limiter.Check(ctx, "s", 3, time.Minute, "A")
	require.Error(t, err)
	assert.True(t, IsLimitExceeded(err))
}

// TestLimiter_FallbackReusesWindow tests that the fallback continues a
// live window instead of restarting it on every call.
func TestLimiter_FallbackReusesWindow(t *testing.T) {
	store := cache.NewMemoryStore()
	limiter := newTestLimiter(t, storeOnly{store})
	ctx := context.Background()

	require.NoError(t, limiter.Check(ctx, "s", 10, 10*time.Second, "A"))

	time.Sleep(150 * time.Millisecond)

	require.NoError(t, limiter.Check(ctx, "s", 10, 10*time.Second, "A"))

	// Had the second call started a fresh window, the TTL would be
	// back at the full 10s.
	remaining, err := store.TTL(ctx, Key("s", "A"))
	require.NoError(t, err)
	assert.Less(t, remaining, 10*time.Second)
	assert.Greater(t, remaining, 8*time.Second)
}

// TestLimiter_FallbackExpiryResets tests window expiry on the fallback
// path, where an expired key reports no TTL and restarts the window.
func TestLimiter_FallbackExpiryResets(t *testing.T) {
	limiter := newTestLimiter(t, storeOnly{cache.NewMemoryStore()})
	ctx := context.Background()

	require.NoError(t, limiter.Check(ctx, "s", 1, 80*time.Millisecond, "A"))
	assert.True(t, IsLimitExceeded(limiter.Check(ctx, "s", 1, 80*time.Millisecond, "A")))

	time.Sleep(150 * time.Millisecond)

	assert.NoError(t, limiter.Check(ctx, "s", 1, 80*time.Millisecond, "A"))
}

// TestLimiter_FallbackCorruptCounter tests that an unreadable counter
// restarts the count instead of locking the client out.
func TestLimiter_FallbackCorruptCounter(t *testing.T) {
	store := cache.NewMemoryStore()
	limiter := newTestLimiter(t, storeOnly{store})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, Key("s", "A"), []byte("not a number"), 10*time.Second))

	assert.NoError(t, limiter.Check(ctx, "s", 1, 10*time.Second, "A"))
	assert.True(t, IsLimitExceeded(limiter.Check(ctx, "s", 1, 10*time.Second, "A")))
}

// TestLimiter_StoreFailure tests that store errors surface as plain
// errors, not as rejections.
func TestLimiter_StoreFailure(t *testing.T) {
	limiter := newTestLimiter(t, failingStore{})

	err := limiter.Check(context.Background(), "s", 3, time.Minute, "A")
	require.Error(t, err)
	assert.False(t, IsLimitExceeded(err))
	assert.Contains(t, err.Error(), "store down")
}

// TestLimiter_RequiresStore tests the constructor guard.
func TestLimiter_RequiresStore(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

// TestKey tests the window key layout.
func TestKey(t *testing.T) {
	assert.Equal(t, "ratelimit::login::10.0.0.7", Key("login", "10.0.0.7"))
}
