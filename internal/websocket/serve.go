package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// CloseCodeUserIDRequired is sent when a connection attempt carries no user ID
const CloseCodeUserIDRequired = 4001

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, implement proper origin checking
		return true
	},
}

// ServeWS upgrades the request, performs the handshake, and starts the
// connection's pumps. An attempt without a user ID is rejected with close code
// 4001 before registration. robotID is optional and only tracked for stats.
func ServeWS(dispatcher *Dispatcher, w http.ResponseWriter, r *http.Request, userID, robotID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "userID", userID, "error", err)
		return
	}

	if userID == "" {
		closeMsg := websocket.FormatCloseMessage(CloseCodeUserIDRequired, "User ID required")
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage, closeMsg)
		conn.Close()
		slog.Warn("Rejected WebSocket connection without user ID")
		return
	}

	registry := dispatcher.Registry()
	client := NewClient(registry, dispatcher.Topics(), conn, userID)

	// The request context dies with the handler; the connection outlives it
	ctx := context.Background()

	connectionID := registry.Register(ctx, client)
	registry.RegisterRobot(robotID, connectionID)
	client.Start()

	// Connection confirmation, delivered after any queued replay
	dispatcher.Publish(ctx, MessageTypeUserConnected, map[string]interface{}{
		"connection_id": connectionID,
		"user_id":       userID,
	}, ToUser(userID))
}
