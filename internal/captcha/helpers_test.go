package captcha

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/resilience"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/protocol"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/pubsub"
	"github.com/stretchr/testify/require"
)

// fastPolicy retries quickly so failing tests stay fast.
var fastPolicy = resilience.Config{
	FailFastTimeout: time.Second,
	MaxRetries:      2,
	RetryBackoff:    time.Millisecond,
}

func testConfig(provider, baseURL string) Config {
	return Config{
		Provider:        provider,
		APIKey:          "test-key",
		PollInterval:    5 * time.Millisecond,
		ProviderTimeout: 2 * time.Second,
		ManualTimeout:   2 * time.Second,
		BaseURL:         baseURL,
		Resilience:      fastPolicy,
	}
}

func newTestSolver(t *testing.T, cfg Config, bus pubsub.Bus) *Solver {
	t.Helper()
	s, err := NewSolver(cfg, bus, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newBus(t *testing.T) *pubsub.MemoryBus {
	t.Helper()
	bus := pubsub.NewMemory()
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func imageChallenge() protocol.Challenge {
	return protocol.Challenge{
		Type:        protocol.CaptchaImage,
		ImageBase64: "iVBORw0KGgo=",
		PageURL:     "https://esaj.tjsp.jus.br/login",
		Timestamp:   time.Now().UnixMilli(),
	}
}

// fakeExtension answers captcha_required requests the way the bridge and a
// human would.
type fakeExtension struct {
	mu       sync.Mutex
	requests []protocol.CaptchaRequired
}

func (f *fakeExtension) seen() []protocol.CaptchaRequired {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.CaptchaRequired(nil), f.requests...)
}

func answerWith(t *testing.T, bus pubsub.Bus, answer func(protocol.CaptchaRequired) protocol.CaptchaSolution) *fakeExtension {
	t.Helper()
	ext := &fakeExtension{}
	sub, err := bus.Subscribe(context.Background(), protocol.ChannelCaptchaRequired, func(ctx context.Context, payload []byte) {
		var req protocol.CaptchaRequired
		if err := pubsub.Decode(payload, &req); err != nil {
			return
		}
		ext.mu.Lock()
		ext.requests = append(ext.requests, req)
		ext.mu.Unlock()
		_ = bus.Publish(ctx, protocol.ChannelCaptchaSolution, answer(req))
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })
	return ext
}

type recordedAttempt struct {
	provider string
	outcome  string
}

type fakeRecorder struct {
	mu       sync.Mutex
	attempts []recordedAttempt
}

func (r *fakeRecorder) CaptchaAttempt(provider, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, recordedAttempt{provider: provider, outcome: outcome})
}

func (r *fakeRecorder) all() []recordedAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedAttempt(nil), r.attempts...)
}
