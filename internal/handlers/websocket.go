package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/campusgo/campusgo-backend/internal/services"
)

// WebSocketHandler upgrades an authenticated connection and registers
// it with the hub.
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		services.HandleWebSocket(hub, c.Writer, c.Request, c.GetString("actorId"), c.GetString("userType"))
	}
}
