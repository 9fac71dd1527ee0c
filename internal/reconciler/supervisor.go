package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PassFunc runs one reconciliation pass for key.
type PassFunc func(ctx context.Context, key string) error

type SupervisorConfig struct {
	// Base cancels coalesced reruns. Background when nil.
	Base context.Context
	// PassTimeout bounds every pass on its own. Zero leaves passes unbounded.
	PassTimeout time.Duration
}

// Supervisor allows one pass per key at a time. A trigger that arrives while a pass is
// running sets a single pending flag instead of starting a second pass; when the running
// pass returns, a set flag causes exactly one more pass.
type Supervisor struct {
	run    PassFunc
	config SupervisorConfig

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	pending bool
	// latest coalesced trigger, its values are carried into the rerun
	next context.Context
}

func NewSupervisor(run PassFunc, cfg SupervisorConfig) *Supervisor {
	if cfg.Base == nil {
		cfg.Base = context.Background()
	}
	return &Supervisor{
		run:    run,
		config: cfg,
		slots:  make(map[string]*slot),
	}
}

// Trigger runs the pass in the calling goroutine when key is idle and returns after the
// last coalesced pass. When key is busy it records the pending slot and returns
// immediately with ran=false.
//
// The first pass runs under ctx. A rerun belongs to the trigger that asked for it, which has
// already returned, so it runs under Base with the values of that trigger and a fresh
// PassTimeout.
func (s *Supervisor) Trigger(ctx context.Context, key string) (ran bool, err error) {
	s.mu.Lock()
	if sl, ok := s.slots[key]; ok {
		sl.pending = true
		sl.next = ctx
		s.mu.Unlock()
		return false, nil
	}
	sl := &slot{}
	s.slots[key] = sl
	s.mu.Unlock()

	passCtx := ctx
	for {
		err = s.runBounded(passCtx, key)

		s.mu.Lock()
		again := sl.pending && s.config.Base.Err() == nil
		next := sl.next
		sl.pending, sl.next = false, nil
		if !again {
			// released under the lock so a concurrent trigger either lands in this
			// slot before the check or starts a fresh pass after it
			delete(s.slots, key)
		}
		s.mu.Unlock()

		if !again {
			return true, err
		}
		passCtx = rerunContext{Context: s.config.Base, values: next}
	}
}

func (s *Supervisor) runBounded(ctx context.Context, key string) error {
	if s.config.PassTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.PassTimeout)
		defer cancel()
	}
	return s.runSafe(ctx, key)
}

func (s *Supervisor) runSafe(ctx context.Context, key string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pass %s panicked: %v", key, r)
		}
	}()
	return s.run(ctx, key)
}

// Busy reports whether a pass for key is running.
func (s *Supervisor) Busy(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.slots[key]
	return ok
}

// rerunContext takes deadline and cancellation from the embedded context and values from
// the trigger that asked for the rerun.
type rerunContext struct {
	context.Context
	values context.Context
}

func (c rerunContext) Value(key any) any {
	return c.values.Value(key)
}
