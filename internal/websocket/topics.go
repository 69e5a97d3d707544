package websocket

import (
	"log/slog"
	"sync"
)

// TopicRegistry maps topic names to the set of subscribed user IDs.
// Subscriptions are session-scoped: they are not persisted and are lost on restart.
type TopicRegistry struct {
	mu     sync.RWMutex
	topics map[string]map[string]struct{}
}

// NewTopicRegistry creates an empty topic registry
func NewTopicRegistry() *TopicRegistry {
	return &TopicRegistry{
		topics: make(map[string]map[string]struct{}),
	}
}

// Subscribe adds a user to a topic's subscriber set
func (t *TopicRegistry) Subscribe(userID, topic string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.topics[topic] == nil {
		t.topics[topic] = make(map[string]struct{})
	}
	t.topics[topic][userID] = struct{}{}

	slog.Debug("User subscribed to topic", "userID", userID, "topic", topic)
}

// Unsubscribe removes a user from a topic; an emptied topic is deleted
func (t *TopicRegistry) Unsubscribe(userID, topic string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	subscribers, exists := t.topics[topic]
	if !exists {
		return
	}

	delete(subscribers, userID)
	if len(subscribers) == 0 {
		delete(t.topics, topic)
	}

	slog.Debug("User unsubscribed from topic", "userID", userID, "topic", topic)
}

// Subscribers returns a snapshot of the topic's subscriber set.
// The returned slice is a copy, safe to iterate while subscriptions change.
func (t *TopicRegistry) Subscribers(topic string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	subscribers, exists := t.topics[topic]
	if !exists {
		return []string{}
	}

	result := make([]string, 0, len(subscribers))
	for userID := range subscribers {
		result = append(result, userID)
	}
	return result
}

// IsSubscribed checks whether a user is subscribed to a topic
func (t *TopicRegistry) IsSubscribed(userID, topic string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	subscribers, exists := t.topics[topic]
	if !exists {
		return false
	}
	_, ok := subscribers[userID]
	return ok
}

// Count returns the number of topics with at least one subscriber
func (t *TopicRegistry) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.topics)
}

// Clear removes every subscription
func (t *TopicRegistry) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.topics = make(map[string]map[string]struct{})
}
