package hooks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegistry_PriorityOrdering tests that listeners run by priority
// regardless of registration order.
func TestRegistry_PriorityOrdering(t *testing.T) {
	r := NewRegistry[*[]string]()

	r.Register(Low, func(_ context.Context, ran *[]string) error {
		*ran = append(*ran, "low")
		return nil
	})
	r.Register(Highest, func(_ context.Context, ran *[]string) error {
		*ran = append(*ran, "highest")
		return nil
	})
	r.Register(Normal, func(_ context.Context, ran *[]string) error {
		*ran = append(*ran, "normal")
		return nil
	})

	var ran []string
	require.NoError(t, r.Run(context.Background(), &ran))
	assert.Equal(t, []string{"highest", "normal", "low"}, ran)
}

// TestRegistry_StableWithinPriority tests registration order among
// listeners of equal priority.
func TestRegistry_StableWithinPriority(t *testing.T) {
	r := NewRegistry[*[]string]()

	for _, name := range []string{"a", "b", "c"} {
		name := name
		r.Register(Normal, func(_ context.Context, ran *[]string) error {
			*ran = append(*ran, name)
			return nil
		})
	}
	r.Register(High, func(_ context.Context, ran *[]string) error {
		*ran = append(*ran, "high")
		return nil
	})

	var ran []string
	require.NoError(t, r.Run(context.Background(), &ran))
	assert.Equal(t, []string{"high", "a", "b", "c"}, ran)
}

// TestRegistry_FirstErrorAborts tests that a failing listener stops
// the run and surfaces its error.
func TestRegistry_FirstErrorAborts(t *testing.T) {
	r := NewRegistry[*[]string]()
	boom := errors.New("listener rejected the write")

	r.Register(High, func(_ context.Context, ran *[]string) error {
		*ran = append(*ran, "first")
		return nil
	})
	r.Register(Normal, func(_ context.Context, _ *[]string) error {
		return boom
	})
	r.Register(Low, func(_ context.Context, ran *[]string) error {
		*ran = append(*ran, "never")
		return nil
	})

	var ran []string
	err := r.Run(context.Background(), &ran)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first"}, ran)
}

// TestHandle_DeregisterIdempotent tests double deregistration and the
// zero Handle.
func TestHandle_DeregisterIdempotent(t *testing.T) {
	r := NewRegistry[int]()

	keep := r.Register(Normal, func(context.Context, int) error { return nil })
	drop := r.Register(Normal, func(context.Context, int) error { return nil })
	require.Equal(t, 2, r.Len())

	drop.Deregister()
	assert.Equal(t, 1, r.Len())

	// Second call finds nothing to remove.
	drop.Deregister()
	assert.Equal(t, 1, r.Len())

	// Zero Handle is inert.
	var zero Handle
	zero.Deregister()
	assert.Equal(t, 1, r.Len())

	keep.Deregister()
	assert.Equal(t, 0, r.Len())
}

// TestRegistry_ListenerDeregistersItself tests that a callback may
// drop its own registration mid-run without deadlocking.
func TestRegistry_ListenerDeregistersItself(t *testing.T) {
	r := NewRegistry[*[]string]()

	var once Handle
	once = r.Register(High, func(_ context.Context, ran *[]string) error {
		*ran = append(*ran, "once")
		once.Deregister()
		return nil
	})
	r.Register(Normal, func(_ context.Context, ran *[]string) error {
		*ran = append(*ran, "always")
		return nil
	})

	var first []string
	require.NoError(t, r.Run(context.Background(), &first))
	assert.Equal(t, []string{"once", "always"}, first)

	var second []string
	require.NoError(t, r.Run(context.Background(), &second))
	assert.Equal(t, []string{"always"}, second)
}

// TestRegistry_ConcurrentAccess tests registration racing against
// runs. Meaningful under the race detector.
func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry[int]()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := r.Register(Normal, func(context.Context, int) error { return nil })
			_ = r.Run(context.Background(), 0)
			h.Deregister()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}
