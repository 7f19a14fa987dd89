package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
)

// retryableError marks a transient failure (network error, 5xx response).
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func retryable(err error) error {
	return &retryableError{err: err}
}

func isRetryable(err error) bool {
	return errors.As(err, new(*retryableError))
}

// retry runs fn up to attempts times, doubling delay after each transient
// failure. Other errors are returned immediately. Retries are logged on the
// vertex carried by ctx.
func retry(ctx context.Context, attempts int, delay time.Duration, what string, fn func() error) error {
	attempts = max(attempts, 1)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = delay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(attempts-1)), ctx) //nolint:gosec // attempts >= 1

	attempt := 1
	return backoff.RetryNotify(func() error {
		err := fn()
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, next time.Duration) {
		attempt++
		if v, ok := ports.VertexFromContext(ctx); ok {
			v.Log(domain.LogLevelWarn, fmt.Sprintf("retrying %s in %s (attempt %d/%d): %v", what, next, attempt, attempts, err))
		}
	})
}
