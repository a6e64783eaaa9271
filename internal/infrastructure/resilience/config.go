package resilience

import (
	"context"
	"time"
)

// Config is the immutable resilience policy for one call site.
type Config struct {
	FailFastTimeout time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	// Speculative is reserved for hedged requests and currently has no effect.
	Speculative bool
}

// DefaultConfig returns {3000ms, 2, 500ms, false}.
func DefaultConfig() Config {
	return Config{
		FailFastTimeout: 3000 * time.Millisecond,
		MaxRetries:      2,
		RetryBackoff:    500 * time.Millisecond,
		Speculative:     false,
	}
}

// Run applies the whole policy: every attempt is bounded by FailFastTimeout
// and transient failures are retried with backoff.
func Run[T any](ctx context.Context, cfg Config, op func(context.Context) (T, error)) (T, error) {
	return WithRetry(ctx, func(ctx context.Context) (T, error) {
		return FailFast(ctx, op, cfg.FailFastTimeout)
	}, RetryOptionsFrom(cfg))
}
