// Package resource provides a lazy, shared, retryable initializer for
// expensive dependencies that should not be constructed at startup.
package resource

import (
	"context"
	"sync"
)

type state int

const (
	stateUnloaded state = iota
	stateLoading
	stateLoaded
)

// Loader initializes a value on first use. Concurrent callers share one
// in-flight load and all receive its result. A failed load resets the loader
// so the next caller retries instead of being stuck with a cached error.
type Loader[T any] struct {
	loadFn func(ctx context.Context) (T, error)

	mu    sync.Mutex
	state state
	val   T
	done  chan struct{}
}

// NewLoader creates a loader around the given constructor. The constructor
// runs at most once per load attempt, never concurrently with itself.
func NewLoader[T any](loadFn func(ctx context.Context) (T, error)) *Loader[T] {
	return &Loader[T]{loadFn: loadFn}
}

// Get returns the loaded value, loading it first if needed. Waiting callers
// honor their own context; cancelling a waiter does not cancel the load.
func (l *Loader[T]) Get(ctx context.Context) (T, error) {
	for {
		l.mu.Lock()
		switch l.state {
		case stateLoaded:
			v := l.val
			l.mu.Unlock()
			return v, nil

		case stateLoading:
			done := l.done
			l.mu.Unlock()
			select {
			case <-done:
				// Re-check: the load may have failed and reset the state.
			case <-ctx.Done():
				var zero T
				return zero, ctx.Err()
			}

		case stateUnloaded:
			l.state = stateLoading
			l.done = make(chan struct{})
			done := l.done
			l.mu.Unlock()

			v, err := l.loadFn(ctx)

			l.mu.Lock()
			if err != nil {
				l.state = stateUnloaded
			} else {
				l.state = stateLoaded
				l.val = v
			}
			l.mu.Unlock()
			close(done)

			if err != nil {
				var zero T
				return zero, err
			}
			return v, nil
		}
	}
}

// Loaded reports whether a value is available without triggering a load.
func (l *Loader[T]) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == stateLoaded
}
