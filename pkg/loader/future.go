// Package loader defines the asynchronous asset-loading contract consumed by
// the pools: a single-resolution Future, the Loader interface, reusable load
// Handles and an in-memory Static loader.
package loader

import (
	"context"
	"sync"
)

// Future is the result of an asynchronous operation. It resolves exactly once,
// with either a value or an error.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	value     T
	err       error
	resolved  bool
	callbacks []func(T, error)
}

// NewFuture returns an unresolved Future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a Future already completed with v.
func Resolved[T any](v T) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(v)

	return f
}

// Failed returns a Future already completed with err.
func Failed[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Reject(err)

	return f
}

// Go runs fn on a new goroutine and returns a Future for its result.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		v, err := fn(ctx)
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(v)
	}()

	return f
}

// Resolve completes the future with v. It reports false if already completed.
func (f *Future[T]) Resolve(v T) bool {
	return f.complete(v, nil)
}

// Reject completes the future with err. It reports false if already completed.
func (f *Future[T]) Reject(err error) bool {
	var zero T

	return f.complete(zero, err)
}

func (f *Future[T]) complete(v T, err error) bool {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return false
	}
	f.value, f.err, f.resolved = v, err, true
	callbacks := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	// Subscribers observe the result before any waiter in Await is released.
	for _, cb := range callbacks {
		cb(v, err)
	}
	close(f.done)

	return true
}

// Done is closed once the future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result returns the outcome without blocking. ok is false while pending.
func (f *Future[T]) Result() (v T, err error, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.value, f.err, f.resolved
}

// Await blocks until the future completes or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}
}

// OnComplete subscribes fn to the completion event. If the future has already
// completed, fn runs immediately on the caller's goroutine; otherwise it runs
// on the goroutine that completes the future.
func (f *Future[T]) OnComplete(fn func(T, error)) {
	f.mu.Lock()
	if !f.resolved {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()

	fn(v, err)
}
