package captcha

import (
	"context"
	"fmt"
	"time"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/logging"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/resilience"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// client wraps resty with rate limiting, a circuit breaker and transient
// retries. One client serves one provider endpoint.
type client struct {
	provider string
	resty    *resty.Client
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	retry    resilience.RetryOptions
}

// sender is either client.do or client.submit.
type sender func(ctx context.Context, build func(*resty.Request) (*resty.Response, error)) ([]byte, error)

func newClient(provider, baseURL string, timeout time.Duration, policy resilience.Config, logger *logging.Logger) *client {
	logger = logging.OrNop(logger)

	// Pooled transport from retryablehttp; retries are driven by
	// resilience.WithRetry so that provider rejections are never repeated.
	pooled := retryablehttp.NewClient()
	pooled.RetryMax = 0
	pooled.Logger = nil

	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "tribunal-bridge/1.0").
		SetTransport(pooled.HTTPClient.Transport)

	breaker := resilience.NewBreaker(provider, resilience.Settings{
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to resilience.State) {
			log := logger.Info
			if to == resilience.StateOpen {
				log = logger.Warn
			}
			log("Provider circuit changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &client{
		provider: provider,
		resty:    r,
		// Solving services throttle aggressive pollers.
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		breaker: breaker,
		retry:   resilience.RetryOptionsFrom(policy),
	}
}

// do sends one logical request built by build and returns the raw body of
// a 2xx response. Transport failures and 5xx are retried; everything else
// is returned on the first failure. Only idempotent calls go through do.
func (c *client) do(ctx context.Context, build func(*resty.Request) (*resty.Response, error)) ([]byte, error) {
	return resilience.WithRetry(ctx, func(ctx context.Context) ([]byte, error) {
		return c.submit(ctx, build)
	}, c.retry)
}

// submit sends build exactly once. Task creation uses it: a timed-out
// submission may still have been accepted and billed by the provider.
func (c *client) submit(ctx context.Context, build func(*resty.Request) (*resty.Response, error)) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	var body []byte
	err := c.breaker.Execute(func() error {
		resp, err := build(c.resty.R().SetContext(ctx))
		if err != nil {
			return err
		}
		if resp.IsError() {
			return &statusError{provider: c.provider, code: resp.StatusCode(), body: truncate(resp.String(), 200)}
		}
		body = resp.Body()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
