// Package storetest is a conformance suite for cache.Store
// implementations. Every backend runs the same contract checks;
// optional capabilities are skipped when the store does not implement
// them.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/substratehq/substrate/pkg/cache"
)

// StoreFactory creates a fresh, empty store for one subtest.
type StoreFactory func(t *testing.T) cache.Store

// RunStoreTests runs the contract suite against one implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("SetGet", func(t *testing.T) {
			testSetGet(t, factory(t))
		})

		t.Run("MissingKey", func(t *testing.T) {
			testMissingKey(t, factory(t))
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("TTLCountdown", func(t *testing.T) {
			testTTLCountdown(t, factory(t))
		})

		t.Run("KeyExpiry", func(t *testing.T) {
			testKeyExpiry(t, factory(t))
		})

		t.Run("NoExpiry", func(t *testing.T) {
			testNoExpiry(t, factory(t))
		})

		t.Run("Increment", func(t *testing.T) {
			testIncrement(t, requireIncrementer(t, factory(t)))
		})

		t.Run("IncrementKeepsWindow", func(t *testing.T) {
			testIncrementKeepsWindow(t, requireIncrementer(t, factory(t)))
		})

		t.Run("DeletePrefix", func(t *testing.T) {
			testDeletePrefix(t, factory(t))
		})
	})
}

// requireIncrementer skips the test when the store does not support
// atomic increments.
func requireIncrementer(t *testing.T, s cache.Store) cache.Incrementer {
	t.Helper()
	inc, ok := s.(cache.Incrementer)
	if !ok {
		t.Skip("store does not implement cache.Incrementer")
	}
	return inc
}

func testSetGet(t *testing.T, s cache.Store) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "servers::1", []byte("payload"), time.Minute))

	got, err := s.Get(ctx, "servers::1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func testMissingKey(t *testing.T, s cache.Store) {
	_, err := s.Get(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, cache.IsKeyNotFound(err))
}

func testOverwrite(t *testing.T, s cache.Store) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("one"), time.Minute))
	require.NoError(t, s.Set(ctx, "k", []byte("two"), time.Minute))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}

func testDelete(t *testing.T, s cache.Store) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, s.Delete(ctx, "k"))

	_, err := s.Get(ctx, "k")
	assert.True(t, cache.IsKeyNotFound(err))

	// Deleting an absent key is not an error.
	require.NoError(t, s.Delete(ctx, "k"))
}

func testTTLCountdown(t *testing.T, s cache.Store) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))

	remaining, err := s.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Greater(t, remaining, 30*time.Second)
	assert.LessOrEqual(t, remaining, time.Minute)

	// Absent keys report no lifetime.
	remaining, err = s.TTL(ctx, "absent")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), remaining)
}

func testKeyExpiry(t *testing.T, s cache.Store) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 60*time.Millisecond))
	time.Sleep(130 * time.Millisecond)

	_, err := s.Get(ctx, "k")
	assert.True(t, cache.IsKeyNotFound(err))
}

func testNoExpiry(t *testing.T, s cache.Store) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))

	remaining, err := s.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), remaining)

	_, err = s.Get(ctx, "k")
	require.NoError(t, err)
}

func testIncrement(t *testing.T, inc cache.Incrementer) {
	ctx := context.Background()

	count, remaining, err := inc.Increment(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Greater(t, remaining, time.Duration(0))
	assert.LessOrEqual(t, remaining, time.Minute)

	count, _, err = inc.Increment(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func testIncrementKeepsWindow(t *testing.T, inc cache.Incrementer) {
	ctx := context.Background()

	_, _, err := inc.Increment(ctx, "counter", time.Second)
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)

	count, remaining, err := inc.Increment(ctx, "counter", time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	// The second increment continues the first window instead of
	// starting a fresh one.
	assert.Less(t, remaining, time.Second)
	assert.Greater(t, remaining, time.Duration(0))
}

func testDeletePrefix(t *testing.T, s cache.Store) {
	pd, ok := s.(cache.PrefixDeleter)
	if !ok {
		t.Skip("store does not implement cache.PrefixDeleter")
	}
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "servers::1", []byte("a"), time.Minute))
	require.NoError(t, s.Set(ctx, "servers::2", []byte("b"), time.Minute))
	require.NoError(t, s.Set(ctx, "nodes::1", []byte("c"), time.Minute))

	require.NoError(t, pd.DeletePrefix(ctx, "servers::"))

	_, err := s.Get(ctx, "servers::1")
	assert.True(t, cache.IsKeyNotFound(err))
	_, err = s.Get(ctx, "servers::2")
	assert.True(t, cache.IsKeyNotFound(err))

	got, err := s.Get(ctx, "nodes::1")
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), got)
}
