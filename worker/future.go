package worker

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Future is the pending result of an asynchronous task.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	val    T
	err    error
}

// Go runs fn on a new goroutine and returns its Future. The context passed
// to fn is cancelled when the parent is cancelled or when Cancel is called.
// A task cancelled before completion resolves with the context error and
// its value is discarded.
func Go[T any](parent context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	ctx, cancel := context.WithCancel(parent)
	f := &Future[T]{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(f.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.val, f.err = zero, fmt.Errorf("worker task panicked: %v", r)
			}
		}()

		val, err := fn(ctx)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err != nil {
			var zero T
			val = zero
		}
		f.val, f.err = val, err
	}()

	return f
}

// resolved returns an already completed Future.
func resolved[T any](val T, err error) *Future[T] {
	f := &Future[T]{
		done:   make(chan struct{}),
		cancel: func() {},
		val:    val,
		err:    err,
	}
	close(f.done)
	return f
}

// Done is closed once the task has completed.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task completes or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, errors.Wrap(ctx.Err(), "waiting for worker task")
	}
}

// Result returns the outcome without blocking. The last value reports
// whether the task has completed.
func (f *Future[T]) Result() (T, error, bool) {
	select {
	case <-f.done:
		return f.val, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Cancel asks the task to stop. It does not wait for the goroutine to return.
func (f *Future[T]) Cancel() {
	f.cancel()
}
