package services

import (
	"context"
	"time"
)

// RetryPolicy bounds repeated attempts of an unreliable operation.
// Delay between attempt n and n+1 is BaseDelay << n, matching the
// 1s/2s/4s progression of the classic 2^attempt backoff when BaseDelay
// is one second.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Attempts returns the total number of calls the policy allows.
func (p RetryPolicy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Delay returns the backoff before retrying after the given zero-based attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	if attempt < 0 {
		attempt = 0
	}
	return base << uint(attempt)
}

// Retry invokes op until it succeeds, the policy is exhausted, or ctx is
// done. The zero-based attempt number is passed to op. Non-retryable errors
// (validation, configuration) abort immediately. The last error is returned
// after exhaustion.
func Retry(ctx context.Context, policy RetryPolicy, op func(attempt int) error) error {
	attempts := policy.Attempts()
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(attempt)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Delay(attempt)):
		}
	}
	return lastErr
}
