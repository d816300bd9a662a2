package httpapi

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"gym-tenancy/backend/internal/platform/autherr"
)

const readMaxTries = 3

// retryRead runs an idempotent read, retrying with exponential backoff while it fails with
// TemporaryUnavailable. Other errors are returned at once.
func retryRead[T any](ctx context.Context, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !autherr.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(readMaxTries))
}
