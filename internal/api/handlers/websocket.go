package handlers

import (
	"log/slog"

	"notify-service/internal/websocket"

	"github.com/gin-gonic/gin"
)

type WSHandler struct {
	dispatcher *websocket.Dispatcher
}

func NewWSHandler(dispatcher *websocket.Dispatcher) *WSHandler {
	return &WSHandler{dispatcher: dispatcher}
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Establish a WebSocket connection for real-time notifications
// @Tags websocket
// @Param userId query string false "User ID (required unless resolved from token)"
// @Param robotId query string false "Robot ID when the connecting client is a robot"
// @Success 101 "Switching Protocols - WebSocket connection established"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	// Auth middleware sets user_id when a JWT is presented; otherwise the
	// plain query parameter identifies the user
	userID := c.GetString("user_id")
	if userID == "" {
		userID = c.Query("userId")
	}
	robotID := c.Query("robotId")

	slog.Info("WebSocket connection request", "userID", userID, "robotID", robotID)

	// A missing user ID is rejected inside ServeWS with close code 4001,
	// after the upgrade, so the client sees a proper close frame
	websocket.ServeWS(h.dispatcher, c.Writer, c.Request, userID, robotID)
}
