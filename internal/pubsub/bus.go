package pubsub

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrClosed is returned by operations on a closed bus.
var ErrClosed = errors.New("pubsub: bus closed")

// Handler processes one message. It runs on the subscription's goroutine,
// so a slow handler delays later messages on the same channel only.
type Handler func(ctx context.Context, payload []byte)

// Subscription is an active channel listener.
type Subscription interface {
	// Channel returns the logical (unprefixed) channel name.
	Channel() string
	// Close stops delivery. Safe to call more than once.
	Close() error
}

// Bus publishes to and subscribes on named channels.
type Bus interface {
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channel string, handler Handler) (Subscription, error)
	Close() error
}

// Encode serializes a payload for the wire. Byte slices pass through.
func Encode(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	}
	data, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("pubsub: encode: %w", err)
	}
	return data, nil
}

// Decode deserializes a payload received from a channel.
func Decode(data []byte, v any) error {
	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("pubsub: decode: %w", err)
	}
	return nil
}
