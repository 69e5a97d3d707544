package websocket

import (
	"context"
	"log/slog"
)

type targetKind int

const (
	targetUser targetKind = iota
	targetTopic
	targetBroadcast
)

// Target selects the destination of a publish: a single user, a topic's
// subscribers, or every present user.
type Target struct {
	kind  targetKind
	user  string
	topic string
}

// ToUser targets a single user ID
func ToUser(userID string) Target {
	return Target{kind: targetUser, user: userID}
}

// ToTopic targets every subscriber of a topic
func ToTopic(topic string) Target {
	return Target{kind: targetTopic, topic: topic}
}

// Broadcast targets every currently present user
func Broadcast() Target {
	return Target{kind: targetBroadcast}
}

// PublishResult reports how a publish resolved across its destinations
type PublishResult struct {
	Delivered int `json:"delivered"`
	Queued    int `json:"queued"`
}

// Dispatcher is the producer-facing facade over the registry, topic
// subscriptions, and offline queue. Publish never blocks on a socket write and
// never returns an error: transport and persistence faults only lower the
// delivered count.
type Dispatcher struct {
	registry *ConnectionRegistry
	topics   *TopicRegistry
	queue    *OfflineQueue
}

// NewDispatcher builds the owning service object for the fan-out layer.
// A nil store disables durable offline-queue mirroring.
func NewDispatcher(queueLimit int, store QueueStore) *Dispatcher {
	queue := NewOfflineQueue(queueLimit, store)
	return &Dispatcher{
		registry: NewConnectionRegistry(queue),
		topics:   NewTopicRegistry(),
		queue:    queue,
	}
}

// Registry exposes the connection registry for transport wiring
func (d *Dispatcher) Registry() *ConnectionRegistry {
	return d.registry
}

// Topics exposes the topic subscription registry
func (d *Dispatcher) Topics() *TopicRegistry {
	return d.topics
}

// Publish builds a typed envelope and routes it to the resolved destinations.
// Present users receive it on all their connections; offline users have it
// queued for replay on reconnect.
func (d *Dispatcher) Publish(ctx context.Context, msgType MessageType, data map[string]interface{}, target Target) PublishResult {
	message := NewNotificationMessage(msgType, data)

	result := PublishResult{}
	if target.kind == targetBroadcast {
		// Broadcast reaches present users only; nothing is queued
		res := d.registry.Broadcast(message)
		result.Delivered = res.Delivered
	} else {
		for _, userID := range d.resolve(target) {
			if d.registry.IsOnline(userID) {
				res := d.registry.Send(userID, message)
				result.Delivered += res.Delivered
				continue
			}
			d.queue.Enqueue(ctx, userID, message.WithUser(userID))
			result.Queued++
		}
	}

	slog.Debug("Published notification",
		"type", msgType, "messageID", message.MessageID,
		"delivered", result.Delivered, "queued", result.Queued)
	return result
}

// resolve expands a user or topic target into the affected user IDs
func (d *Dispatcher) resolve(target Target) []string {
	switch target.kind {
	case targetUser:
		return []string{target.user}
	case targetTopic:
		return d.topics.Subscribers(target.topic)
	default:
		return nil
	}
}

// Stats returns the read-only operational snapshot across all components
func (d *Dispatcher) Stats() Stats {
	users, connections := d.registry.Counts()
	return Stats{
		TotalUsers:       users,
		TotalConnections: connections,
		ActiveTopics:     d.topics.Count(),
		QueuedMessages:   d.queue.Size(),
		ActiveUsers:      d.registry.ActiveUsers(),
		ConnectedRobots:  d.registry.ConnectedRobots(),
	}
}

// Shutdown closes every connection, clears the registries, and flushes
// unmirrored queued messages to the durable store.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	slog.Info("Notification dispatcher shutting down")
	d.registry.DisconnectAll()
	d.topics.Clear()
	d.queue.Flush(ctx)
}
