package pubsub

import (
	"context"
	"sync"
)

const memoryBufferSize = 256

// MemoryBus is an in-process Bus.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscription]struct{}
	closed bool
}

// NewMemory creates an empty in-process bus
func NewMemory() *MemoryBus {
	return &MemoryBus{
		subs: make(map[string]map[*memorySubscription]struct{}),
	}
}

type memorySubscription struct {
	bus     *MemoryBus
	channel string
	queue   chan []byte
	done    chan struct{}
	once    sync.Once
}

func (s *memorySubscription) Channel() string { return s.channel }

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.bus.remove(s)
		close(s.done)
	})
	return nil
}

// Publish enqueues payload for every current subscriber of channel. It
// blocks only when a subscriber's queue is full, until ctx is done.
func (b *MemoryBus) Publish(ctx context.Context, channel string, payload any) error {
	data, err := Encode(payload)
	if err != nil {
		return err
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]*memorySubscription, 0, len(b.subs[channel]))
	for sub := range b.subs[channel] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub.queue <- data:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers handler on channel until the subscription, the bus
// or ctx is closed.
func (b *MemoryBus) Subscribe(ctx context.Context, channel string, handler Handler) (Subscription, error) {
	sub := &memorySubscription{
		bus:     b,
		channel: channel,
		queue:   make(chan []byte, memoryBufferSize),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*memorySubscription]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		for {
			select {
			case data := <-sub.queue:
				handler(ctx, data)
			case <-sub.done:
				return
			case <-ctx.Done():
				_ = sub.Close()
				return
			}
		}
	}()

	return sub, nil
}

// Subscribers returns the number of live subscriptions on channel.
func (b *MemoryBus) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

// Close drops every subscription. Later Publish/Subscribe calls fail with ErrClosed.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*memorySubscription
	for _, set := range b.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range all {
		_ = sub.Close()
	}
	return nil
}

func (b *MemoryBus) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[sub.channel]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.channel)
		}
	}
}
