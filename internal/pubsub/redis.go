package pubsub

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/logging"
)

// RedisBus implements Bus on Redis PUBLISH/SUBSCRIBE. Every Subscribe call
// opens its own subscriber connection, matching how the bridge and the
// workers each hold dedicated connections.
type RedisBus struct {
	client *redis.Client
	prefix string
	logger *logging.Logger

	mu     sync.Mutex
	subs   map[*redisSubscription]struct{}
	closed bool
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	URL           string
	ChannelPrefix string
}

// NewRedis connects to Redis and verifies the connection with PING.
func NewRedis(ctx context.Context, opts RedisOptions, logger *logging.Logger) (*RedisBus, error) {
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("pubsub: invalid redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pubsub: redis ping: %w", err)
	}
	return NewRedisFromClient(client, opts.ChannelPrefix, logger), nil
}

// NewRedisFromClient wraps an existing client. The bus takes ownership and
// closes the client on Close.
func NewRedisFromClient(client *redis.Client, prefix string, logger *logging.Logger) *RedisBus {
	return &RedisBus{
		client: client,
		prefix: prefix,
		logger: logging.OrNop(logger).Named("pubsub"),
		subs:   make(map[*redisSubscription]struct{}),
	}
}

func (b *RedisBus) key(channel string) string {
	return b.prefix + channel
}

// Publish sends payload on channel.
func (b *RedisBus) Publish(ctx context.Context, channel string, payload any) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	data, err := Encode(payload)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.key(channel), data).Err(); err != nil {
		return fmt.Errorf("pubsub: publish %s: %w", channel, err)
	}
	return nil
}

type redisSubscription struct {
	bus     *RedisBus
	channel string
	ps      *redis.PubSub
	done    chan struct{}
	once    sync.Once
}

func (s *redisSubscription) Channel() string { return s.channel }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
		err = s.ps.Close()
		<-s.done
	})
	return err
}

// Subscribe listens on channel. It returns once Redis confirmed the
// subscription, so messages published afterwards are not missed.
func (b *RedisBus) Subscribe(ctx context.Context, channel string, handler Handler) (Subscription, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.mu.Unlock()

	ps := b.client.Subscribe(ctx, b.key(channel))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("pubsub: subscribe %s: %w", channel, err)
	}

	sub := &redisSubscription{
		bus:     b,
		channel: channel,
		ps:      ps,
		done:    make(chan struct{}),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		defer close(sub.done)
		for msg := range ps.Channel() {
			handler(ctx, []byte(msg.Payload))
		}
		b.logger.Debug("Subscription ended", zap.String("channel", channel))
	}()

	return sub, nil
}

// Close ends every subscription and closes the client.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*redisSubscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			b.logger.Warn("Failed to close subscription", zap.String("channel", sub.channel), zap.Error(err))
		}
	}
	return b.client.Close()
}
