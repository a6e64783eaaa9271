package captcha

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/logging"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/protocol"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/pubsub"
	"go.uber.org/zap"
)

// Manual routes a challenge to the user's browser extension over the bus
// and waits for the human's answer.
type Manual struct {
	bus     pubsub.Bus
	logger  *logging.Logger
	timeout time.Duration

	mu      sync.Mutex
	waiters map[protocol.CaptchaKey]chan protocol.CaptchaSolution
	sub     pubsub.Subscription
}

// NewManual subscribes to captcha_solution. The subscription lives until
// Close or until ctx is done.
func NewManual(ctx context.Context, bus pubsub.Bus, timeout time.Duration, logger *logging.Logger) (*Manual, error) {
	m := &Manual{
		bus:     bus,
		logger:  logging.OrNop(logger),
		timeout: timeout,
		waiters: make(map[protocol.CaptchaKey]chan protocol.CaptchaSolution),
	}
	sub, err := bus.Subscribe(ctx, protocol.ChannelCaptchaSolution, m.onSolution)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", protocol.ChannelCaptchaSolution, err)
	}
	m.sub = sub
	return m, nil
}

func (m *Manual) Name() string { return ProviderManual }

// Solve publishes a captcha_required request and waits for the matching
// solution. The wait is bounded by the challenge's ExpiresIn when shorter
// than the configured manual timeout.
func (m *Manual) Solve(ctx context.Context, req Request) (string, error) {
	key := protocol.CaptchaKey{CaptchaID: req.CaptchaID, JobID: req.JobID}
	wait := m.waitFor(req.Challenge)

	ch := make(chan protocol.CaptchaSolution, 1)
	m.mu.Lock()
	m.waiters[key] = ch
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.waiters, key)
		m.mu.Unlock()
	}()

	// Registered before publishing so an instant answer is not lost.
	event := protocol.CaptchaRequired{
		CaptchaID: req.CaptchaID,
		JobID:     req.JobID,
		UserID:    req.UserID,
		Challenge: req.Challenge,
		PortalURL: req.PortalURL,
		Tribunal:  req.Tribunal,
		ExpiresAt: time.Now().Add(wait).UnixMilli(),
	}
	if err := m.bus.Publish(ctx, protocol.ChannelCaptchaRequired, event); err != nil {
		return "", fmt.Errorf("publish %s: %w", protocol.ChannelCaptchaRequired, err)
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case sol := <-ch:
		if !sol.Success {
			reason := sol.Error
			if reason == "" {
				reason = "captcha not solved"
			}
			return "", &ManualError{Reason: reason}
		}
		if sol.Solution == "" {
			return "", ErrEmptySolution
		}
		return sol.Solution, nil
	case <-timer.C:
		return "", fmt.Errorf("%w after %s", ErrManualTimeout, wait)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manual) waitFor(ch protocol.Challenge) time.Duration {
	wait := m.timeout
	if ttl := ch.TTL(); ttl > 0 && (wait <= 0 || ttl < wait) {
		wait = ttl
	}
	return wait
}

// Pending returns the number of attempts waiting for a human.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}

func (m *Manual) onSolution(_ context.Context, payload []byte) {
	var sol protocol.CaptchaSolution
	if err := pubsub.Decode(payload, &sol); err != nil {
		m.logger.Warn("Invalid captcha solution", zap.Error(err))
		return
	}

	m.mu.Lock()
	ch, ok := m.waiters[sol.Key()]
	m.mu.Unlock()

	if !ok {
		m.logger.Debug("Discarding late captcha solution",
			zap.String("captcha_id", sol.CaptchaID),
			zap.String("job_id", sol.JobID),
		)
		return
	}

	select {
	case ch <- sol:
	default:
		// A solution was already delivered for this key.
	}
}

// Close stops listening for solutions.
func (m *Manual) Close() error {
	return m.sub.Close()
}
