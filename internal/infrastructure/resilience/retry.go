package resilience

import (
	"context"
	"math/rand/v2"
	"slices"
	"time"
)

// jitterFraction spreads each backoff uniformly over ±20%.
const jitterFraction = 0.2

// RetryOptions configures WithRetry.
type RetryOptions struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// Backoff is the base delay; attempt n waits Backoff * 2^n.
	Backoff time.Duration
	// RetryOn lists the error kinds worth retrying. Empty means transient only.
	RetryOn []ErrorKind
	// OnRetry, when set, is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// RetryOptionsFrom builds retry options from a call-site Config.
func RetryOptionsFrom(cfg Config) RetryOptions {
	return RetryOptions{
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.RetryBackoff,
		RetryOn:    []ErrorKind{KindTransient},
	}
}

// WithRetry runs op up to MaxRetries+1 times. After each failure the error
// is classified; a kind outside RetryOn is returned immediately and
// unchanged. When attempts are exhausted the last error is returned
// unwrapped. Cancelling ctx aborts the wait between attempts.
func WithRetry[T any](ctx context.Context, op func(context.Context) (T, error), opts RetryOptions) (T, error) {
	retryOn := opts.RetryOn
	if len(retryOn) == 0 {
		retryOn = []ErrorKind{KindTransient}
	}
	maxRetries := max(opts.MaxRetries, 0)

	var (
		value T
		err   error
	)
	for attempt := 0; attempt <= maxRetries; attempt++ {
		value, err = op(ctx)
		if err == nil {
			return value, nil
		}
		if attempt == maxRetries {
			break
		}
		if !slices.Contains(retryOn, ClassifyError(err)) {
			return value, err
		}

		wait := BackoffDelay(opts.Backoff, attempt)
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err, wait)
		}
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return value, err
			}
		}
	}
	return value, err
}

// BackoffDelay returns base * 2^attempt with ±20% jitter.
func BackoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := float64(base) * float64(uint64(1)<<min(attempt, 30))
	jitter := 1 + jitterFraction*(2*rand.Float64()-1)
	return time.Duration(delay * jitter)
}
