package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetryPermanentRunsOnce(t *testing.T) {
	calls := 0
	boom := errors.New("boom")

	_, err := WithRetry(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", boom
	}, RetryOptions{MaxRetries: 5, Backoff: time.Millisecond, RetryOn: []ErrorKind{KindTransient}})

	assert.Same(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryTransientExhausts(t *testing.T) {
	calls := 0
	original := errors.New("Timeout exceeded")

	_, err := WithRetry(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, original
	}, RetryOptions{MaxRetries: 2, Backoff: time.Millisecond})

	assert.Equal(t, 3, calls)
	assert.Same(t, original, err, "the surfaced error must be the original, unwrapped")
}

func TestWithRetrySucceedsAfterTransient(t *testing.T) {
	calls := 0
	var waits []time.Duration

	got, err := WithRetry(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset by peer")
		}
		return "token", nil
	}, RetryOptions{
		MaxRetries: 3,
		Backoff:    time.Millisecond,
		OnRetry:    func(_ int, _ error, wait time.Duration) { waits = append(waits, wait) },
	})

	require.NoError(t, err)
	assert.Equal(t, "token", got)
	assert.Equal(t, 3, calls)
	assert.Len(t, waits, 2)
}

func TestWithRetryCustomKinds(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, errors.New("waiting for selector #submit")
	}, RetryOptions{MaxRetries: 1, Backoff: time.Millisecond, RetryOn: []ErrorKind{KindTransient, KindSelectorNotFound}})

	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetryZeroRetries(t *testing.T) {
	calls := 0
	_, _ = WithRetry(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("timeout")
	}, RetryOptions{})

	assert.Equal(t, 1, calls)
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	original := errors.New("timeout")

	_, err := WithRetry(ctx, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, original
	}, RetryOptions{MaxRetries: 3, Backoff: time.Hour})

	assert.Same(t, original, err)
	assert.Equal(t, 1, calls)
}

func TestBackoffDelayJitterBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for attempt := 0; attempt < 4; attempt++ {
		nominal := float64(base) * float64(int(1)<<attempt)
		for i := 0; i < 200; i++ {
			d := float64(BackoffDelay(base, attempt))
			assert.GreaterOrEqual(t, d, nominal*0.8)
			assert.LessOrEqual(t, d, nominal*1.2)
		}
	}
	assert.Zero(t, BackoffDelay(0, 3))
}

func TestRunAppliesFailFastPerAttempt(t *testing.T) {
	var calls atomic.Int32
	cfg := Config{FailFastTimeout: 10 * time.Millisecond, MaxRetries: 1, RetryBackoff: time.Millisecond}

	_, err := Run(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-ctx.Done()
		return "", ctx.Err()
	})

	assert.ErrorIs(t, err, ErrFailFast)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3000*time.Millisecond, cfg.FailFastTimeout)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.False(t, cfg.Speculative)
}
