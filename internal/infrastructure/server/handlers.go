package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/bridge"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/monitoring"
)

type handlers struct {
	bridge  *bridge.Bridge
	metrics *monitoring.Metrics
}

func newHandlers(b *bridge.Bridge, m *monitoring.Metrics) *handlers {
	return &handlers{bridge: b, metrics: m}
}

// health reports liveness plus session counts.
func (h *handlers) health(c *gin.Context) {
	sessions, users := h.bridge.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"sessions":       sessions,
		"connectedUsers": users,
		"metrics":        h.metrics.GetSnapshot(),
	})
}

func (h *handlers) userSessions(c *gin.Context) {
	userID := c.Param("userId")
	c.JSON(http.StatusOK, gin.H{
		"userId":    userID,
		"connected": h.bridge.IsUserConnected(userID),
		"sessions":  h.bridge.GetUserSessions(userID),
	})
}
