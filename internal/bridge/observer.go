package bridge

// Observer receives session lifecycle callbacks. Calls are made outside
// the registry lock but may come from several goroutines.
type Observer interface {
	SessionOpened(sessionID string)
	// first is false when an already authenticated session re-authenticates.
	SessionAuthenticated(sessionID, userID string, first bool)
	// userID is empty for sessions that never authenticated.
	SessionClosed(sessionID, userID, reason string)
	MessageReceived(msgType, action string)
	DeliveryFailed(channel, userID string)
}

type nopObserver struct{}

func (nopObserver) SessionOpened(string)                      {}
func (nopObserver) SessionAuthenticated(string, string, bool) {}
func (nopObserver) SessionClosed(string, string, string)      {}
func (nopObserver) MessageReceived(string, string)            {}
func (nopObserver) DeliveryFailed(string, string)             {}
