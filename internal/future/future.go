// Package future provides a single-resolution result type so that work which
// completes immediately and work which completes in the background can be
// consumed the same way.
package future

import (
	"context"
	"fmt"
	"sync"
)

// Future is the eventual outcome of an operation: either a value or an error.
// It resolves exactly once; later resolutions are ignored.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// New returns an unresolved future along with the function that resolves it.
func New[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.resolve
}

// Resolved returns a future already holding val.
func Resolved[T any](val T) *Future[T] {
	f, resolve := New[T]()
	resolve(val, nil)
	return f
}

// Rejected returns a future already holding err.
func Rejected[T any](err error) *Future[T] {
	var zero T
	f, resolve := New[T]()
	resolve(zero, err)
	return f
}

// From resolves a future with the result of a blocking call made right away
// on the caller's goroutine.
func From[T any](val T, err error) *Future[T] {
	f, resolve := New[T]()
	resolve(val, err)
	return f
}

// Go runs fn on its own goroutine and resolves the returned future with its
// result. A panic in fn is turned into an error.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f, resolve := New[T]()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				resolve(zero, fmt.Errorf("panic: %v", r))
			}
		}()

		resolve(fn(ctx))
	}()

	return f
}

// Await blocks until the future resolves or ctx is done, whichever happens
// first. An already resolved future always returns its result.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	if f == nil {
		var zero T
		return zero, nil
	}

	select {
	case <-f.done:
		return f.val, f.err
	default:
	}

	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

func (f *Future[T]) resolve(val T, err error) {
	f.once.Do(func() {
		f.val = val
		f.err = err
		close(f.done)
	})
}
