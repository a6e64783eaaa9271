package bridge

import (
	"time"

	"golang.org/x/time/rate"
)

// Close reasons passed to Observer.SessionClosed.
const (
	ReasonClientClosed = "client_closed"
	ReasonHeartbeat    = "heartbeat_timeout"
	ReasonShutdown     = "shutdown"
	ReasonWriteFailed  = "write_failed"
)

// Session is one live extension connection. All mutable fields are guarded
// by the owning Bridge's mutex.
type Session struct {
	ID string

	transport Transport
	limiter   *rate.Limiter
	seq       uint64 // connect order

	userID        string
	tribunal      string
	loginComplete bool
	connectedAt   time.Time
	lastHeartbeat time.Time
}

// SessionInfo is a read-only view of a session.
type SessionInfo struct {
	SessionID     string    `json:"sessionId"`
	UserID        string    `json:"userId,omitempty"`
	Tribunal      string    `json:"tribunal,omitempty"`
	LoginComplete bool      `json:"loginComplete"`
	ConnectedAt   time.Time `json:"connectedAt"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
}

func (s *Session) info() SessionInfo {
	return SessionInfo{
		SessionID:     s.ID,
		UserID:        s.userID,
		Tribunal:      s.tribunal,
		LoginComplete: s.loginComplete,
		ConnectedAt:   s.connectedAt,
		LastHeartbeat: s.lastHeartbeat,
	}
}

func (s *Session) authenticated() bool {
	return s.userID != ""
}
