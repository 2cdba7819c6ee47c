// Package pending provides a one-shot container for asynchronous outcomes.
package pending

import (
	"context"
	"sync/atomic"
)

// Pending stores at most one asynchronous outcome. It starts out unset and
// becomes settled when Settle is called. Any number of readers may await the
// outcome; all of them are released once it is settled.
type Pending[T any] struct {
	done    chan struct{}
	value   T
	settled atomic.Bool
}

// New creates a new unset pending outcome.
func New[T any]() *Pending[T] {
	return &Pending[T]{
		done: make(chan struct{}),
	}
}

// Settle stores the outcome and releases all awaiting readers. Settling an
// already settled instance is a caller error and panics.
func (p *Pending[T]) Settle(value T) {
	// flip flag
	if !p.settled.CompareAndSwap(false, true) {
		panic("pending: already settled")
	}

	// store value and release readers
	p.value = value
	close(p.done)
}

// Settled returns whether an outcome has been stored.
func (p *Pending[T]) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Await suspends the caller until the outcome is settled or the provided
// context is cancelled.
func (p *Pending[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
