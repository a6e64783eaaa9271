package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailFastReturnsResult(t *testing.T) {
	got, err := FailFast(context.Background(), func(context.Context) (int, error) {
		return 42, nil
	}, time.Second)

	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestFailFastPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := FailFast(context.Background(), func(context.Context) (int, error) {
		return 0, boom
	}, time.Second)

	assert.Same(t, boom, err)
}

func TestFailFastTimesOutWithoutWaitingForOp(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := FailFast(context.Background(), func(context.Context) (string, error) {
		defer close(finished)
		<-release // ignores its context on purpose
		return "late", nil
	}, 20*time.Millisecond)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFailFast)
	assert.Contains(t, err.Error(), "exceeded 20ms")
	assert.Less(t, time.Since(start), time.Second)

	select {
	case <-finished:
		t.Fatal("operation should still be running after the wait was abandoned")
	default:
	}
}

func TestFailFastCancelsOpContext(t *testing.T) {
	cancelled := make(chan struct{})

	_, err := FailFast(context.Background(), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		close(cancelled)
		return 0, ctx.Err()
	}, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrFailFast)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("operation context was not cancelled")
	}
}

func TestFailFastParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FailFast(ctx, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
