package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrFailFast is matched by every error returned from a FailFast timeout.
var ErrFailFast = errors.New("fail-fast timeout")

// FailFastError reports that an operation did not settle within its budget.
type FailFastError struct {
	Timeout time.Duration
}

func (e *FailFastError) Error() string {
	return fmt.Sprintf("fail-fast: operation exceeded %dms", e.Timeout.Milliseconds())
}

// Is lets errors.Is(err, ErrFailFast) match.
func (e *FailFastError) Is(target error) bool {
	return target == ErrFailFast
}

// FailFast races op against a timer. If the timer wins, FailFast returns a
// *FailFastError immediately and the context passed to op is cancelled.
// Cancellation is best-effort: op keeps running until it observes its
// context, and its eventual result is discarded.
//
// A non-positive timeout disables the race and simply runs op.
func FailFast[T any](ctx context.Context, op func(context.Context) (T, error), timeout time.Duration) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}

	opCtx, cancel := context.WithCancel(ctx)

	type result struct {
		value T
		err   error
	}
	// Buffered so the abandoned goroutine can always deliver and exit.
	done := make(chan result, 1)
	go func() {
		v, err := op(opCtx)
		done <- result{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case r := <-done:
		cancel()
		return r.value, r.err
	case <-timer.C:
		cancel()
		return zero, &FailFastError{Timeout: timeout}
	case <-ctx.Done():
		cancel()
		return zero, ctx.Err()
	}
}
