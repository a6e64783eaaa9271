package monitoring

import "time"

// Outcome labels for CaptchaAttempt.
const (
	OutcomeSolved  = "solved"
	OutcomeFailed  = "failed"
	OutcomeTimeout = "timeout"
)

// Close reasons reported by the bridge that count as evictions.
const reasonHeartbeat = "heartbeat_timeout"

// SessionOpened records a new extension connection.
func (m *Metrics) SessionOpened(sessionID string) {
	m.SessionsActive.Inc()
	m.SessionsTotal.Inc()

	m.mu.Lock()
	m.snapshot.ActiveSessions++
	m.mu.Unlock()
}

// SessionAuthenticated records a session binding to a user. Repeated
// authentication of the same session is only counted once.
func (m *Metrics) SessionAuthenticated(sessionID, userID string, first bool) {
	if !first {
		return
	}
	m.SessionsAuthenticated.Inc()

	m.mu.Lock()
	m.snapshot.AuthenticatedSessions++
	m.mu.Unlock()
}

// SessionClosed records a session leaving the registry.
func (m *Metrics) SessionClosed(sessionID, userID, reason string) {
	m.SessionsActive.Dec()
	if reason == reasonHeartbeat {
		m.HeartbeatEvictions.Inc()
	}

	m.mu.Lock()
	m.snapshot.ActiveSessions--
	if userID != "" {
		m.snapshot.AuthenticatedSessions--
	}
	m.mu.Unlock()

	if userID != "" {
		m.SessionsAuthenticated.Dec()
	}
}

// MessageReceived counts an inbound envelope.
func (m *Metrics) MessageReceived(msgType, action string) {
	m.WSMessages.WithLabelValues(msgType, action).Inc()

	m.mu.Lock()
	m.snapshot.MessagesReceived++
	m.mu.Unlock()
}

// DeliveryFailed counts a bus request that reached no session.
func (m *Metrics) DeliveryFailed(channel, userID string) {
	m.DeliveryFailures.WithLabelValues(channel).Inc()

	m.mu.Lock()
	m.snapshot.DeliveryFailures++
	m.mu.Unlock()
}

// CaptchaAttempt records one resolution attempt.
func (m *Metrics) CaptchaAttempt(provider, outcome string, duration time.Duration) {
	m.CaptchaAttempts.WithLabelValues(provider, outcome).Inc()
	m.CaptchaDuration.WithLabelValues(provider).Observe(duration.Seconds())

	m.mu.Lock()
	if outcome == OutcomeSolved {
		m.snapshot.CaptchasSolved++
	} else {
		m.snapshot.CaptchasFailed++
	}
	m.mu.Unlock()
}
