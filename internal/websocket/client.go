package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Outbound buffer per connection; a full buffer means a slow consumer
	// and is treated as a write failure
	sendBufferSize = 256
)

var ErrClientDisconnected = fmt.Errorf("client disconnected")

// Conn is the transport handle owned by a Client. *websocket.Conn satisfies it;
// tests substitute an in-memory implementation.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client represents one live transport session belonging to exactly one user
type Client struct {
	id     string
	userID string
	conn   Conn
	send   chan []byte

	registry *ConnectionRegistry
	topics   *TopicRegistry

	// Connection state management
	ctx    context.Context
	cancel context.CancelFunc
	closed int32 // atomic flag to track if client is closed

	// Goroutine coordination
	wg sync.WaitGroup
}

// NewClient wraps a transport handle for the given user
func NewClient(registry *ConnectionRegistry, topics *TopicRegistry, conn Conn, userID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		id:       uuid.New().String(),
		userID:   userID,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		registry: registry,
		topics:   topics,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() string {
	return c.userID
}

// isClosed returns true if the client is closed
func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// close marks the client as closed and cancels the context
func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
		slog.Debug("Client marked as closed", "clientID", c.id, "userID", c.userID)
	}
}

// enqueue hands a marshaled envelope to the write pump. It never blocks the
// caller: a full buffer closes the client and reports a failed delivery.
func (c *Client) enqueue(data []byte) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrClientDisconnected
	default:
		slog.Warn("Send buffer full, closing client", "clientID", c.id, "userID", c.userID)
		c.close()
		return ErrClientDisconnected
	}
}

func (c *Client) sendError(code, message string) {
	errMsg := NewErrorMessage(c.userID, code, message)
	if data, err := json.Marshal(errMsg); err == nil {
		if err := c.enqueue(data); err != nil {
			slog.Debug("Failed to queue error envelope", "clientID", c.id, "error", err)
		}
	}
}

// readPump processes inbound client protocol messages until the transport
// disconnects. There is no read deadline: an unresponsive peer is kept until a
// write to it fails or it closes the connection.
func (c *Client) readPump() {
	defer func() {
		c.wg.Done()
		c.close()
		c.registry.Unregister(c.userID, c.id)

		if err := c.conn.Close(); err != nil {
			slog.Debug("Error closing connection", "clientID", c.id, "userID", c.userID, "error", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)

	slog.Debug("ReadPump started", "clientID", c.id, "userID", c.userID)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "clientID", c.id, "userID", c.userID, "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "clientID", c.id, "userID", c.userID, "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			slog.Error("Failed to unmarshal client message", "clientID", c.id, "userID", c.userID, "error", err)
			c.sendError("INVALID_MESSAGE", "Invalid message format")
			continue
		}

		c.handleClientMessage(&msg)
	}
}

// handleClientMessage routes one inbound protocol message
func (c *Client) handleClientMessage(msg *ClientMessage) {
	switch msg.Type {
	case ClientMessageSubscribe:
		if msg.Topic == "" {
			c.sendError("INVALID_MESSAGE", "subscribe requires a topic")
			return
		}
		c.topics.Subscribe(c.userID, msg.Topic)

	case ClientMessageUnsubscribe:
		if msg.Topic == "" {
			c.sendError("INVALID_MESSAGE", "unsubscribe requires a topic")
			return
		}
		c.topics.Unsubscribe(c.userID, msg.Topic)

	case ClientMessageHeartbeatResponse:
		c.registry.Touch(c.userID)

	default:
		slog.Warn("Unknown client message type", "clientID", c.id, "userID", c.userID, "type", msg.Type)
	}
}

// writePump writes queued envelopes to the transport. A write failure is
// terminal for this connection only.
func (c *Client) writePump() {
	defer func() {
		c.wg.Done()
		c.close()
		c.registry.Unregister(c.userID, c.id)
		slog.Debug("WritePump finished", "clientID", c.id, "userID", c.userID)
	}()

	slog.Debug("WritePump started", "clientID", c.id, "userID", c.userID)

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("Write failed, dropping connection", "clientID", c.id, "userID", c.userID, "error", err)
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// Start launches the client's pumps
func (c *Client) Start() {
	c.wg.Add(2)
	go c.writePump()
	go c.readPump()
}

// waitForGoroutines waits for the client's pumps to finish with a timeout
func (c *Client) waitForGoroutines(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		slog.Warn("Timeout waiting for client goroutines", "clientID", c.id, "userID", c.userID, "timeout", timeout)
	}
}
