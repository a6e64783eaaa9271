// Package interaction is the worker side of the extension round trip: it
// publishes a command for a user's extension and waits for the matching
// operation_response relayed by the bridge.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/logging"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/resilience"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/protocol"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/pubsub"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/shared/id"
	"go.uber.org/zap"
)

var (
	ErrTimeout    = errors.New("interaction: no response from extension")
	ErrNotCommand = errors.New("interaction: envelope is not a command")
	ErrClosed     = errors.New("interaction: client closed")
)

// CommandError is a failure reported by the extension for one command.
type CommandError struct {
	ID      string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %s", e.ID, e.Message)
}

// Options tunes a Client.
type Options struct {
	// Timeout bounds the wait for the extension's response. Default 5m,
	// since most commands wait for a human.
	Timeout time.Duration
	// Publish is the resilience policy applied to publishing the request.
	Publish resilience.Config
}

// Client correlates commands with responses by command id.
type Client struct {
	bus    pubsub.Bus
	logger *logging.Logger
	opts   Options

	mu      sync.Mutex
	pending map[string]chan protocol.OperationResponse
	sub     pubsub.Subscription
	closed  bool
}

// New subscribes to operation_response and returns a ready client.
func New(ctx context.Context, bus pubsub.Bus, opts Options, logger *logging.Logger) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.Publish == (resilience.Config{}) {
		opts.Publish = resilience.DefaultConfig()
	}

	c := &Client{
		bus:     bus,
		logger:  logging.OrNop(logger).Named("interaction"),
		opts:    opts,
		pending: make(map[string]chan protocol.OperationResponse),
	}
	sub, err := bus.Subscribe(ctx, protocol.ChannelOperationResponse, c.onResponse)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", protocol.ChannelOperationResponse, err)
	}
	c.sub = sub
	return c, nil
}

// NewCommand builds a command envelope with a fresh message id.
func NewCommand(action string, params any) (protocol.Envelope, error) {
	return protocol.NewCommand(id.NewMessageID().String(), action, params)
}

// Request delivers cmd to one of the user's extensions and waits for its
// response. A command without an id gets one. The bridge sends nothing back
// when the user has no open session, so that case ends in ErrTimeout.
func (c *Client) Request(ctx context.Context, userID, jobID string, cmd protocol.Envelope) (protocol.OperationResponse, error) {
	if cmd.Type != protocol.TypeCommand {
		return protocol.OperationResponse{}, ErrNotCommand
	}
	if cmd.ID == "" {
		cmd.ID = id.NewMessageID().String()
	}

	ch := make(chan protocol.OperationResponse, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return protocol.OperationResponse{}, ErrClosed
	}
	c.pending[cmd.ID] = ch
	c.mu.Unlock()
	defer c.forget(cmd.ID)

	req := protocol.InteractionRequest{UserID: userID, JobID: jobID, Command: cmd}
	_, err := resilience.Run(ctx, c.opts.Publish, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.bus.Publish(ctx, protocol.ChannelInteractionRequired, req)
	})
	if err != nil {
		return protocol.OperationResponse{}, fmt.Errorf("publish %s: %w", protocol.ChannelInteractionRequired, err)
	}

	c.logger.Debug("Interaction requested",
		zap.String("id", cmd.ID),
		zap.String("action", cmd.Action),
		zap.String("user_id", userID),
		zap.String("job_id", jobID),
	)

	timer := time.NewTimer(c.opts.Timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if !resp.Success {
			return resp, &CommandError{ID: cmd.ID, Message: resp.Error}
		}
		return resp, nil
	case <-timer.C:
		return protocol.OperationResponse{}, fmt.Errorf("%w: %s after %s", ErrTimeout, cmd.Action, c.opts.Timeout)
	case <-ctx.Done():
		return protocol.OperationResponse{}, ctx.Err()
	}
}

func (c *Client) forget(msgID string) {
	c.mu.Lock()
	delete(c.pending, msgID)
	c.mu.Unlock()
}

func (c *Client) onResponse(_ context.Context, payload []byte) {
	var resp protocol.OperationResponse
	if err := pubsub.Decode(payload, &resp); err != nil {
		c.logger.Warn("Invalid operation response", zap.Error(err))
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[resp.ID]
	c.mu.Unlock()
	if !ok {
		// Another worker's command, or one that already timed out.
		return
	}

	select {
	case ch <- resp:
	default:
	}
}

// Close stops listening. Pending requests end with their own timeout.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.sub.Close()
}
