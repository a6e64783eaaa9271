package bridge

import (
	"context"
	"time"

	"go.uber.org/zap"
)

func (b *Bridge) heartbeatLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(b.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.CheckHeartbeats()
		}
	}
}

// CheckHeartbeats runs one heartbeat tick: sessions whose last pong is older
// than HeartbeatTimeout are closed and evicted, every other session is
// pinged. A session whose ping cannot be written is closed as well.
func (b *Bridge) CheckHeartbeats() {
	now := b.now()

	type staleSession struct {
		session *Session
		silent  time.Duration
	}

	var stale []staleSession
	var live []*Session
	b.mu.RLock()
	for _, s := range b.sessions {
		if silent := now.Sub(s.lastHeartbeat); silent > b.opts.HeartbeatTimeout {
			stale = append(stale, staleSession{session: s, silent: silent})
		} else {
			live = append(live, s)
		}
	}
	b.mu.RUnlock()

	for _, st := range stale {
		b.logger.Info("Heartbeat timeout, evicting session",
			zap.String("session_id", st.session.ID),
			zap.Duration("silent_for", st.silent),
		)
		b.Close(st.session.ID, ReasonHeartbeat)
	}

	for _, s := range live {
		if err := s.transport.Ping(); err != nil {
			b.logger.Debug("Ping failed", zap.String("session_id", s.ID), zap.Error(err))
			b.Close(s.ID, ReasonWriteFailed)
		}
	}
}

// Pong records a heartbeat reply for the session.
func (b *Bridge) Pong(sessionID string) {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[sessionID]; ok {
		s.lastHeartbeat = now
	}
}
