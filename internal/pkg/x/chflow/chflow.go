// Package chflow wraps channel operations in a context-aware select, so a
// canceled context unblocks a goroutine stuck on a send or receive.
package chflow

import "context"

// Receive blocks until a value arrives on ch or ctx is canceled. The boolean
// is false when the context was canceled or the channel was closed.
func Receive[T any](ctx context.Context, ch <-chan T) (T, bool) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, false
	case v, ok := <-ch:
		return v, ok
	}
}

// Send blocks until v is delivered to ch or ctx is canceled, reporting
// whether the value was sent.
func Send[T any](ctx context.Context, ch chan<- T, v T) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- v:
		return true
	}
}
