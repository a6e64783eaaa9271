package bridge

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/logging"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/protocol"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/pubsub"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/shared/id"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrShutdown is returned by Start after Shutdown.
var ErrShutdown = errors.New("bridge: shut down")

// Options configures a Bridge. Zero values take the defaults below.
type Options struct {
	HeartbeatInterval time.Duration // default 30s
	HeartbeatTimeout  time.Duration // default 60s
	WriteTimeout      time.Duration // default 10s
	MaxMessageBytes   int64         // default 1MB
	AllowedOrigins    []string      // empty or "*" allows any origin
	MessagesPerSecond float64       // default 50
	MessageBurst      int           // default 100

	Observer Observer

	// Now overrides the clock for heartbeat bookkeeping.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.HeartbeatTimeout <= 0 {
		o.HeartbeatTimeout = 60 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 1 << 20
	}
	if o.MessagesPerSecond <= 0 {
		o.MessagesPerSecond = 50
	}
	if o.MessageBurst <= 0 {
		o.MessageBurst = 100
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Bridge owns every extension session. The session map and the user index
// are only mutated together under mu.
type Bridge struct {
	bus      pubsub.Bus
	logger   *logging.Logger
	opts     Options
	observer Observer
	now      func() time.Time
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*Session
	byUser   map[string][]*Session // each slice ordered by connect sequence
	nextSeq  uint64
	closed   bool

	lifecycleMu sync.Mutex
	subs        []pubsub.Subscription
	stop        context.CancelFunc
	loopDone    chan struct{}
	started     bool
	shutdown    bool
}

// New creates a bridge. bus may be nil, in which case Start only runs the
// heartbeat loop and relayed extension messages are dropped with a warning.
func New(bus pubsub.Bus, logger *logging.Logger, opts Options) *Bridge {
	opts = opts.withDefaults()
	return &Bridge{
		bus:      bus,
		logger:   logging.OrNop(logger).Named("bridge"),
		opts:     opts,
		observer: opts.Observer,
		now:      opts.Now,
		upgrader: newUpgrader(opts.AllowedOrigins),
		sessions: make(map[string]*Session),
		byUser:   make(map[string][]*Session),
	}
}

// Open registers a new unauthenticated session for t and sends the
// auth_required handshake. It returns nil when the bridge is shut down, in
// which case t has been closed.
func (b *Bridge) Open(t Transport) *Session {
	now := b.now()
	s := &Session{
		ID:            id.NewSessionID().String(),
		transport:     t,
		limiter:       rate.NewLimiter(rate.Limit(b.opts.MessagesPerSecond), b.opts.MessageBurst),
		connectedAt:   now,
		lastHeartbeat: now,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = t.Close()
		return nil
	}
	b.nextSeq++
	s.seq = b.nextSeq
	b.sessions[s.ID] = s
	b.mu.Unlock()

	b.observer.SessionOpened(s.ID)
	b.logger.Info("Extension connected", zap.String("session_id", s.ID))

	handshake, err := protocol.NewEvent(protocol.AuthRequiredID, protocol.ActionAuthenticate,
		protocol.AuthRequiredParams{SessionID: s.ID})
	if err == nil {
		b.send(s, handshake)
	}
	return s
}

// Close removes a session from both maps and closes its transport. Closing
// an unknown or already closed session is a no-op.
func (b *Bridge) Close(sessionID, reason string) {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	if ok {
		b.removeLocked(s)
	}
	b.mu.Unlock()

	if !ok {
		return
	}
	_ = s.transport.Close()
	b.observer.SessionClosed(s.ID, s.userID, reason)
	b.logger.Info("Extension disconnected",
		zap.String("session_id", s.ID),
		zap.String("user_id", s.userID),
		zap.String("reason", reason),
	)
}

// removeLocked deletes s from the session map and the user index.
func (b *Bridge) removeLocked(s *Session) {
	delete(b.sessions, s.ID)
	if s.userID != "" {
		b.unindexLocked(s)
	}
}

func (b *Bridge) unindexLocked(s *Session) {
	list := b.byUser[s.userID]
	for i, candidate := range list {
		if candidate == s {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(b.byUser, s.userID)
		return
	}
	b.byUser[s.userID] = list
}

func (b *Bridge) indexLocked(s *Session) {
	list := append(b.byUser[s.userID], s)
	sort.SliceStable(list, func(i, j int) bool { return list[i].seq < list[j].seq })
	b.byUser[s.userID] = list
}

// bind authenticates s as userID. Returns false if s was closed meanwhile.
func (b *Bridge) bind(s *Session, userID string) (first, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, live := b.sessions[s.ID]; !live {
		return false, false
	}
	first = s.userID == ""
	if s.userID == userID {
		return first, true
	}
	if !first {
		b.unindexLocked(s)
	}
	s.userID = userID
	b.indexLocked(s)
	return first, true
}

func (b *Bridge) session(sessionID string) *Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sessions[sessionID]
}

// SendToUser delivers env to exactly one of the user's sessions, trying
// them in connect order until a write succeeds. A session whose write fails
// is closed, so it stops counting as connected. It returns false when the
// user has no session that accepted the write. Nothing is queued.
func (b *Bridge) SendToUser(userID string, env protocol.Envelope) bool {
	b.mu.RLock()
	candidates := append([]*Session(nil), b.byUser[userID]...)
	b.mu.RUnlock()

	for _, s := range candidates {
		// The session may have been closed or re-bound to another user
		// since the snapshot.
		if !b.ownedBy(s, userID) {
			continue
		}
		if err := s.transport.WriteJSON(env); err != nil {
			b.logger.Debug("Delivery attempt failed",
				zap.String("session_id", s.ID),
				zap.String("user_id", userID),
				zap.Error(err),
			)
			b.Close(s.ID, ReasonWriteFailed)
			continue
		}
		return true
	}
	return false
}

// ownedBy reports whether s is still registered and bound to userID.
func (b *Bridge) ownedBy(s *Session, userID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, live := b.sessions[s.ID]
	return live && s.userID == userID
}

// IsUserConnected reports whether the user has at least one authenticated session.
func (b *Bridge) IsUserConnected(userID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byUser[userID]) > 0
}

// GetUserSessions returns the user's sessions in connect order.
func (b *Bridge) GetUserSessions(userID string) []SessionInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	list := b.byUser[userID]
	infos := make([]SessionInfo, 0, len(list))
	for _, s := range list {
		infos = append(infos, s.info())
	}
	return infos
}

// Stats returns the number of open sessions and of distinct connected users.
func (b *Bridge) Stats() (sessions, users int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions), len(b.byUser)
}

// send writes env to one session. A failed write closes the session: a
// websocket connection is unusable after a write error.
func (b *Bridge) send(s *Session, env protocol.Envelope) {
	if err := s.transport.WriteJSON(env); err != nil {
		b.logger.Debug("Write to session failed",
			zap.String("session_id", s.ID),
			zap.String("type", string(env.Type)),
			zap.Error(err),
		)
		b.Close(s.ID, ReasonWriteFailed)
	}
}

// Start subscribes to the worker channels and starts the heartbeat loop.
// Calling Start twice is a no-op.
func (b *Bridge) Start(ctx context.Context) error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	if b.shutdown {
		return ErrShutdown
	}
	if b.started {
		return nil
	}

	if b.bus != nil {
		interaction, err := b.bus.Subscribe(ctx, protocol.ChannelInteractionRequired, b.onInteractionRequired)
		if err != nil {
			return err
		}
		captcha, err := b.bus.Subscribe(ctx, protocol.ChannelCaptchaRequired, b.onCaptchaRequired)
		if err != nil {
			_ = interaction.Close()
			return err
		}
		b.subs = append(b.subs, interaction, captcha)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	b.stop = cancel
	b.loopDone = make(chan struct{})
	go b.heartbeatLoop(loopCtx, b.loopDone)

	b.started = true
	b.logger.Info("Bridge started",
		zap.Duration("heartbeat_interval", b.opts.HeartbeatInterval),
		zap.Duration("heartbeat_timeout", b.opts.HeartbeatTimeout),
	)
	return nil
}

// Shutdown closes every session, then the bus subscriptions, then stops the
// heartbeat loop. The bus itself belongs to the caller. Safe to call more
// than once.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	if b.shutdown {
		return nil
	}
	b.shutdown = true

	b.mu.Lock()
	b.closed = true
	open := make([]*Session, 0, len(b.sessions))
	for _, s := range b.sessions {
		open = append(open, s)
	}
	b.mu.Unlock()

	for _, s := range open {
		b.Close(s.ID, ReasonShutdown)
	}

	var errs []error
	for _, sub := range b.subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.subs = nil

	if b.stop != nil {
		b.stop()
		select {
		case <-b.loopDone:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}

	b.logger.Info("Bridge shut down", zap.Int("sessions_closed", len(open)))
	return errors.Join(errs...)
}
