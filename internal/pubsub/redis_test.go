package pubsub

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/logging"
)

func newRedisBus(t *testing.T, prefix string) (*RedisBus, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	bus, err := NewRedis(context.Background(), RedisOptions{URL: "redis://" + mr.Addr(), ChannelPrefix: prefix}, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })
	return bus, mr
}

func TestRedisBusRoundTrip(t *testing.T) {
	bus, _ := newRedisBus(t, "iudex:")

	got := make(chan []byte, 1)
	sub, err := bus.Subscribe(context.Background(), "captcha_solution", func(_ context.Context, data []byte) {
		got <- data
	})
	require.NoError(t, err)
	assert.Equal(t, "captcha_solution", sub.Channel())

	require.NoError(t, bus.Publish(context.Background(), "captcha_solution", payload{JobID: "job-1", N: 7}))

	var p payload
	require.NoError(t, Decode(receive(t, got), &p))
	assert.Equal(t, payload{JobID: "job-1", N: 7}, p)
}

func TestRedisBusUsesPrefix(t *testing.T) {
	bus, mr := newRedisBus(t, "iudex:")

	_, err := bus.Subscribe(context.Background(), "interaction_required", func(context.Context, []byte) {})
	require.NoError(t, err)

	assert.Equal(t, []string{"iudex:interaction_required"}, mr.PubSubChannels(""))
}

func TestRedisBusClose(t *testing.T) {
	bus, _ := newRedisBus(t, "")

	sub, err := bus.Subscribe(context.Background(), "c", func(context.Context, []byte) {})
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(context.Background(), "c", payload{}), ErrClosed)
}

func TestNewRedisInvalidURL(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisOptions{URL: "not a url"}, nil)
	assert.Error(t, err)
}
