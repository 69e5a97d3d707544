package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// DefaultQueueLimit caps the per-user offline buffer. It is a memory bound,
// not a delivery guarantee: entry 101 evicts entry 1.
const DefaultQueueLimit = 100

// QueueStore is the optional durable mirror for offline messages.
// Implementations persist marshaled envelopes with a fixed TTL so queued
// messages survive a process restart.
type QueueStore interface {
	Push(ctx context.Context, userID string, payload []byte) error
	// Drain returns all persisted payloads for the user in FIFO order and
	// removes them from the store.
	Drain(ctx context.Context, userID string) ([][]byte, error)
}

type queueEntry struct {
	message  *NotificationMessage
	mirrored bool
}

// OfflineQueue holds undelivered messages per user in a bounded FIFO,
// optionally mirrored to a durable store. When the store is unavailable the
// queue degrades to in-memory-only; that is an accepted trade-off, not an error.
type OfflineQueue struct {
	mu      sync.Mutex
	entries map[string][]queueEntry
	limit   int
	store   QueueStore
}

// NewOfflineQueue creates a queue with the given per-user limit.
// A nil store disables durable mirroring.
func NewOfflineQueue(limit int, store QueueStore) *OfflineQueue {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	return &OfflineQueue{
		entries: make(map[string][]queueEntry),
		limit:   limit,
		store:   store,
	}
}

// Enqueue appends a message to the user's buffer, evicting the oldest entry
// when the buffer is full, and mirrors it to the durable store best-effort.
func (q *OfflineQueue) Enqueue(ctx context.Context, userID string, message *NotificationMessage) {
	mirrored := q.mirror(ctx, userID, message)

	q.mu.Lock()
	defer q.mu.Unlock()

	buffer := append(q.entries[userID], queueEntry{message: message, mirrored: mirrored})
	if len(buffer) > q.limit {
		buffer = buffer[len(buffer)-q.limit:]
	}
	q.entries[userID] = buffer

	slog.Debug("Message queued for offline user", "userID", userID, "messageID", message.MessageID, "queueSize", len(buffer))
}

// mirror persists one message to the store. Failures are logged and swallowed.
func (q *OfflineQueue) mirror(ctx context.Context, userID string, message *NotificationMessage) bool {
	if q.store == nil {
		return false
	}

	payload, err := json.Marshal(message)
	if err != nil {
		slog.Error("Failed to marshal queued message", "userID", userID, "error", err)
		return false
	}
	if err := q.store.Push(ctx, userID, payload); err != nil {
		slog.Warn("Queue store unavailable, message held in memory only", "userID", userID, "error", err)
		return false
	}
	return true
}

// Drain returns the user's queued messages in FIFO order and clears both the
// in-memory buffer and the durable mirror. Invoked once per reconnect so a
// drained message cannot be delivered twice.
func (q *OfflineQueue) Drain(ctx context.Context, userID string) []*NotificationMessage {
	q.mu.Lock()
	buffered := q.entries[userID]
	delete(q.entries, userID)
	q.mu.Unlock()

	// Entries that only exist in the store predate this process; replay them
	// first, then the in-memory buffer, deduplicated by message ID.
	stored := q.drainStore(ctx, userID)

	seen := make(map[string]struct{}, len(buffered))
	for _, entry := range buffered {
		seen[entry.message.MessageID] = struct{}{}
	}

	result := make([]*NotificationMessage, 0, len(stored)+len(buffered))
	for _, msg := range stored {
		if _, dup := seen[msg.MessageID]; dup {
			continue
		}
		result = append(result, msg)
	}
	for _, entry := range buffered {
		result = append(result, entry.message)
	}

	if len(result) > 0 {
		slog.Info("Drained offline queue", "userID", userID, "messages", len(result))
	}
	return result
}

// drainStore fetches and clears the durable mirror for the user
func (q *OfflineQueue) drainStore(ctx context.Context, userID string) []*NotificationMessage {
	if q.store == nil {
		return nil
	}

	payloads, err := q.store.Drain(ctx, userID)
	if err != nil {
		slog.Warn("Failed to drain queue store", "userID", userID, "error", err)
		return nil
	}

	messages := make([]*NotificationMessage, 0, len(payloads))
	for _, payload := range payloads {
		var msg NotificationMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			slog.Error("Dropping undecodable stored message", "userID", userID, "error", err)
			continue
		}
		messages = append(messages, &msg)
	}
	return messages
}

// Size returns the total number of in-memory queued messages across all users
func (q *OfflineQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	total := 0
	for _, buffer := range q.entries {
		total += len(buffer)
	}
	return total
}

// SizeFor returns the number of queued messages for one user
func (q *OfflineQueue) SizeFor(userID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries[userID])
}

// Flush re-mirrors entries that missed the store at enqueue time. Called on
// graceful shutdown so messages buffered while the store was down still
// survive the restart.
func (q *OfflineQueue) Flush(ctx context.Context) {
	if q.store == nil {
		return
	}

	q.mu.Lock()
	pending := make(map[string][]*NotificationMessage)
	for userID, buffer := range q.entries {
		for i := range buffer {
			if !buffer[i].mirrored {
				pending[userID] = append(pending[userID], buffer[i].message)
				buffer[i].mirrored = true
			}
		}
	}
	q.mu.Unlock()

	for userID, messages := range pending {
		for _, msg := range messages {
			q.mirror(ctx, userID, msg)
		}
	}
}
