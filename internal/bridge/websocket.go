package bridge

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// newUpgrader builds an upgrader that accepts the configured origins.
// Requests without an Origin header come from non-browser clients and are
// always accepted.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || originSet[origin]
		},
	}
}

// HandleConnection upgrades the request and serves the session until the
// extension disconnects or the session is evicted.
func (b *Bridge) HandleConnection(c *gin.Context) {
	conn, err := b.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		b.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	conn.SetReadLimit(b.opts.MaxMessageBytes)
	s := b.Open(newWSTransport(conn, b.opts.WriteTimeout))
	if s == nil {
		return
	}
	defer b.Close(s.ID, ReasonClientClosed)

	conn.SetPongHandler(func(string) error {
		b.Pong(s.ID)
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Debug("WebSocket read error", zap.String("session_id", s.ID), zap.Error(err))
			}
			return
		}
		b.HandleMessage(s.ID, data)
	}
}
