package captcha

import (
	"context"
	"testing"
	"time"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualChallengeExpiryBoundsWait(t *testing.T) {
	m, err := NewManual(context.Background(), newBus(t), 10*time.Second, nil)
	require.NoError(t, err)
	defer m.Close()

	ch := imageChallenge()
	ch.ExpiresIn = 30

	start := time.Now()
	_, err = m.Solve(context.Background(), Request{CaptchaID: "c1", JobID: "j1", Challenge: ch})
	assert.ErrorIs(t, err, ErrManualTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestManualMatchesOnCaptchaAndJob(t *testing.T) {
	bus := newBus(t)
	answerWith(t, bus, func(req protocol.CaptchaRequired) protocol.CaptchaSolution {
		// Same captcha id, other job: must not satisfy the waiter.
		_ = bus.Publish(context.Background(), protocol.ChannelCaptchaSolution, protocol.CaptchaSolution{
			CaptchaID: req.CaptchaID, JobID: "other-job", Success: true, Solution: "wrong",
		})
		return protocol.CaptchaSolution{CaptchaID: req.CaptchaID, JobID: req.JobID, Success: true, Solution: "right"}
	})

	m, err := NewManual(context.Background(), bus, 2*time.Second, nil)
	require.NoError(t, err)
	defer m.Close()

	token, err := m.Solve(context.Background(), Request{CaptchaID: "c2", JobID: "j2", Challenge: imageChallenge()})
	require.NoError(t, err)
	assert.Equal(t, "right", token)
}

func TestManualLateSolutionDiscarded(t *testing.T) {
	bus := newBus(t)
	m, err := NewManual(context.Background(), bus, 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer m.Close()

	_, err = m.Solve(context.Background(), Request{CaptchaID: "c3", JobID: "j3", Challenge: imageChallenge()})
	require.ErrorIs(t, err, ErrManualTimeout)
	assert.Zero(t, m.Pending())

	require.NoError(t, bus.Publish(context.Background(), protocol.ChannelCaptchaSolution, protocol.CaptchaSolution{
		CaptchaID: "c3", JobID: "j3", Success: true, Solution: "too late",
	}))
	assert.Zero(t, m.Pending())
}

func TestManualEmptySolutionRejected(t *testing.T) {
	bus := newBus(t)
	answerWith(t, bus, func(req protocol.CaptchaRequired) protocol.CaptchaSolution {
		return protocol.CaptchaSolution{CaptchaID: req.CaptchaID, JobID: req.JobID, Success: true}
	})

	m, err := NewManual(context.Background(), bus, time.Second, nil)
	require.NoError(t, err)
	defer m.Close()

	_, err = m.Solve(context.Background(), Request{CaptchaID: "c4", JobID: "j4", Challenge: imageChallenge()})
	assert.ErrorIs(t, err, ErrEmptySolution)
}
