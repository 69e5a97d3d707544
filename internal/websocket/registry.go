package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// PresenceMetadata tracks a present user. It exists iff the user has at least
// one live connection.
type PresenceMetadata struct {
	UserID          string    `json:"user_id"`
	ConnectedAt     time.Time `json:"connected_at"`
	LastActivity    time.Time `json:"last_activity"`
	ConnectionCount int       `json:"connection_count"`
}

// SendResult reports per-user delivery counts
type SendResult struct {
	Delivered int
	Failed    int
}

// Stats is the read-only operational snapshot of the fan-out layer
type Stats struct {
	TotalUsers       int      `json:"total_users"`
	TotalConnections int      `json:"total_connections"`
	ActiveTopics     int      `json:"active_topics"`
	QueuedMessages   int      `json:"queued_messages"`
	ActiveUsers      []string `json:"active_users"`
	ConnectedRobots  []string `json:"connected_robots"`
}

// ConnectionRegistry owns every live connection and user presence. It is the
// only component that touches transport handles; all failures here are local
// and silent to callers.
type ConnectionRegistry struct {
	mu          sync.RWMutex
	connections map[string]map[string]*Client // userID -> connectionID -> client
	metadata    map[string]*PresenceMetadata
	robots      map[string]string // robotID -> connectionID

	queue *OfflineQueue
}

// NewConnectionRegistry creates a registry backed by the given offline queue
func NewConnectionRegistry(queue *OfflineQueue) *ConnectionRegistry {
	return &ConnectionRegistry{
		connections: make(map[string]map[string]*Client),
		metadata:    make(map[string]*PresenceMetadata),
		robots:      make(map[string]string),
		queue:       queue,
	}
}

// Register adds a connection to the user's set, creates or updates presence
// metadata, and replays any queued offline messages. It always succeeds and
// returns the assigned connection ID.
func (r *ConnectionRegistry) Register(ctx context.Context, client *Client) string {
	r.mu.Lock()

	userID := client.UserID()
	if r.connections[userID] == nil {
		r.connections[userID] = make(map[string]*Client)
	}
	r.connections[userID][client.ID()] = client

	now := time.Now()
	meta, exists := r.metadata[userID]
	if !exists {
		meta = &PresenceMetadata{UserID: userID, ConnectedAt: now}
		r.metadata[userID] = meta
	}
	meta.LastActivity = now
	meta.ConnectionCount = len(r.connections[userID])

	r.mu.Unlock()

	slog.Info("User connected", "userID", userID, "connectionID", client.ID())

	// Replay missed messages before anything else is delivered
	for _, msg := range r.queue.Drain(ctx, userID) {
		r.Send(userID, msg)
	}

	return client.ID()
}

// RegisterRobot records a robot identity for the given connection
func (r *ConnectionRegistry) RegisterRobot(robotID, connectionID string) {
	if robotID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.robots[robotID] = connectionID
}

// Unregister removes a connection. When the user's last connection goes away
// their presence metadata is removed entirely. Safe to call more than once.
func (r *ConnectionRegistry) Unregister(userID, connectionID string) {
	r.mu.Lock()

	clients, exists := r.connections[userID]
	client, found := clients[connectionID]
	if found {
		delete(clients, connectionID)
	}
	if exists && len(clients) == 0 {
		delete(r.connections, userID)
		delete(r.metadata, userID)
	} else if exists {
		r.metadata[userID].ConnectionCount = len(clients)
	}

	for robotID, connID := range r.robots {
		if connID == connectionID {
			delete(r.robots, robotID)
		}
	}

	r.mu.Unlock()

	if !found {
		return
	}

	client.close()
	client.conn.Close()
	slog.Info("User disconnected", "userID", userID, "connectionID", connectionID)
}

// IsOnline reports whether the user currently has at least one connection
func (r *ConnectionRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections[userID]) > 0
}

// ActiveUsers returns a snapshot of all present user IDs
func (r *ConnectionRegistry) ActiveUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.connections))
	for userID := range r.connections {
		users = append(users, userID)
	}
	return users
}

// Touch updates the user's last activity timestamp
func (r *ConnectionRegistry) Touch(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if meta, exists := r.metadata[userID]; exists {
		meta.LastActivity = time.Now()
	}
}

// Metadata returns a copy of the user's presence metadata
func (r *ConnectionRegistry) Metadata(userID string) (PresenceMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, exists := r.metadata[userID]
	if !exists {
		return PresenceMetadata{}, false
	}
	return *meta, true
}

// Send delivers the message to every live connection of the user. A failure on
// one connection unregisters that connection and delivery continues to the
// rest; Send never returns an error.
func (r *ConnectionRegistry) Send(userID string, message *NotificationMessage) SendResult {
	stamped := message.WithUser(userID)
	data, err := json.Marshal(stamped)
	if err != nil {
		slog.Error("Failed to marshal notification", "userID", userID, "messageID", message.MessageID, "error", err)
		return SendResult{}
	}

	// Snapshot before touching the transport so registrations during the
	// write cannot interleave with the iteration.
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.connections[userID]))
	for _, client := range r.connections[userID] {
		clients = append(clients, client)
	}
	r.mu.RUnlock()

	result := SendResult{}
	for _, client := range clients {
		if err := client.enqueue(data); err != nil {
			slog.Debug("Delivery failed, unregistering connection",
				"userID", userID, "connectionID", client.ID(), "error", err)
			r.Unregister(userID, client.ID())
			result.Failed++
			continue
		}
		result.Delivered++
	}

	if result.Delivered > 0 {
		r.Touch(userID)
	}
	return result
}

// Broadcast sends the message to every present user; failures are isolated
// per user.
func (r *ConnectionRegistry) Broadcast(message *NotificationMessage) SendResult {
	total := SendResult{}
	for _, userID := range r.ActiveUsers() {
		res := r.Send(userID, message)
		total.Delivered += res.Delivered
		total.Failed += res.Failed
	}
	return total
}

// ConnectedRobots returns a snapshot of robot IDs with a live connection
func (r *ConnectionRegistry) ConnectedRobots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	robots := make([]string, 0, len(r.robots))
	for robotID := range r.robots {
		robots = append(robots, robotID)
	}
	return robots
}

// Counts returns the number of present users and live connections
func (r *ConnectionRegistry) Counts() (users int, connections int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, clients := range r.connections {
		connections += len(clients)
	}
	return len(r.connections), connections
}

// DisconnectAll closes every open connection and clears all registry state.
// Used on graceful shutdown.
func (r *ConnectionRegistry) DisconnectAll() {
	r.mu.Lock()
	all := make([]*Client, 0)
	for _, clients := range r.connections {
		for _, client := range clients {
			all = append(all, client)
		}
	}
	r.connections = make(map[string]map[string]*Client)
	r.metadata = make(map[string]*PresenceMetadata)
	r.robots = make(map[string]string)
	r.mu.Unlock()

	for _, client := range all {
		client.close()
		client.conn.Close()
		client.waitForGoroutines(2 * time.Second)
	}

	slog.Info("All connections closed", "count", len(all))
}
