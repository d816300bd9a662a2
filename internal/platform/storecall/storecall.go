// Package storecall bounds calls to the session, membership and credential stores.
package storecall

import (
	"context"
	"time"

	"gym-tenancy/backend/internal/platform/autherr"
)

// Do runs fn under a deadline of timeout (no deadline when timeout <= 0) and classifies its
// error with autherr.FromStore, so a slow or unreachable store surfaces as TemporaryUnavailable
// rather than as a missing row.
func Do[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	v, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, autherr.FromStore(err)
	}
	return v, nil
}

// Exec is Do for calls that return only an error.
func Exec(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	_, err := Do(ctx, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
