// Package batch coalesces repeated triggers of the same follow-up
// work into a single execution off the request path. Entity modules
// schedule an action under a (name, id) key; scheduling again before
// the next drain replaces the pending action, so a burst of writes to
// one entity costs one recomputation instead of one per write.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action is one unit of deferred work.
type Action func(ctx context.Context) error

// actionKey identifies the logical work an action performs. Later
// registrations under the same key replace earlier ones.
type actionKey struct {
	name string
	id   int64
}

type pendingAction struct {
	runID  uuid.UUID
	action Action
}

// Scheduler holds pending actions and drains them on a fixed interval.
type Scheduler struct {
	config *Config

	mu      sync.Mutex
	pending map[actionKey]pendingAction

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewScheduler creates a scheduler and starts its background drain
// loop. A nil config uses DefaultConfig.
func NewScheduler(config *Config) (*Scheduler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch config: %w", err)
	}

	s := &Scheduler{
		config:  config,
		pending: make(map[actionKey]pendingAction),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.loop()
	return s, nil
}

// Schedule queues action to run at the next drain, replacing any
// pending action with the same name and id. The returned run id tags
// the registration in logs.
func (s *Scheduler) Schedule(name string, id int64, action Action) uuid.UUID {
	runID := uuid.New()
	key := actionKey{name: name, id: id}

	s.mu.Lock()
	prev, replaced := s.pending[key]
	s.pending[key] = pendingAction{runID: runID, action: action}
	s.mu.Unlock()

	if replaced {
		slog.Debug("batch action replaced",
			"name", name, "id", id,
			"run_id", runID, "replaced_run_id", prev.runID)
	}
	return runID
}

// Len reports how many actions wait for the next drain.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush drains and executes everything pending right now, returning
// once the drained actions have finished.
func (s *Scheduler) Flush(ctx context.Context) {
	s.run(ctx, s.drain())
}

// Close stops the background loop and flushes what remains. Actions
// scheduled after Close stay pending and never run. Safe to call more
// than once.
func (s *Scheduler) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
		s.Flush(context.Background())
	})
	return nil
}

func (s *Scheduler) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.run(context.Background(), s.drain())
		case <-s.stop:
			return
		}
	}
}

// drain swaps the whole pending map out in one critical section, so
// registrations arriving during execution land in the next window.
func (s *Scheduler) drain() map[actionKey]pendingAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}
	drained := s.pending
	s.pending = make(map[actionKey]pendingAction)
	return drained
}

// run executes drained actions concurrently and waits for all of them.
func (s *Scheduler) run(ctx context.Context, drained map[actionKey]pendingAction) {
	var wg sync.WaitGroup
	for key, p := range drained {
		wg.Add(1)
		go func(key actionKey, p pendingAction) {
			defer wg.Done()
			s.execute(ctx, key, p)
		}(key, p)
	}
	wg.Wait()
}

// execute runs one action. A failure or panic is reported and
// isolated; it never affects sibling actions or the drain loop.
func (s *Scheduler) execute(ctx context.Context, key actionKey, p pendingAction) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("batch action panicked",
				"name", key.name, "id", key.id, "run_id", p.runID, "panic", r)
		}
	}()

	if err := p.action(ctx); err != nil {
		slog.Error("batch action failed",
			"name", key.name, "id", key.id, "run_id", p.runID, "error", err)
	}
}
