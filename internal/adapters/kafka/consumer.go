package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"notify-service/internal/websocket"

	"github.com/IBM/sarama"
)

// PublishEvent is the broker payload shape produced by sibling services.
// Exactly one of TargetUser, Topic, or Broadcast selects the destination.
type PublishEvent struct {
	EventType  string                 `json:"event_type"`
	Payload    map[string]interface{} `json:"payload"`
	TargetUser string                 `json:"target_user,omitempty"`
	Topic      string                 `json:"topic,omitempty"`
	Broadcast  bool                   `json:"broadcast,omitempty"`
}

// Target resolves the event's destination, or an error when none is set
func (e *PublishEvent) Target() (websocket.Target, error) {
	switch {
	case e.TargetUser != "":
		return websocket.ToUser(e.TargetUser), nil
	case e.Topic != "":
		return websocket.ToTopic(e.Topic), nil
	case e.Broadcast:
		return websocket.Broadcast(), nil
	default:
		return websocket.Target{}, fmt.Errorf("event has no target")
	}
}

// EventConsumer feeds broker events into the dispatcher. It implements
// sarama.ConsumerGroupHandler; a message that fails to decode is logged and
// skipped, never retried.
type EventConsumer struct {
	dispatcher *websocket.Dispatcher
}

func NewEventConsumer(dispatcher *websocket.Dispatcher) *EventConsumer {
	return &EventConsumer{dispatcher: dispatcher}
}

func (c *EventConsumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (c *EventConsumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (c *EventConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		c.handle(session.Context(), message.Value)
		session.MarkMessage(message, "")
	}
	return nil
}

// handle decodes and publishes one broker event
func (c *EventConsumer) handle(ctx context.Context, value []byte) {
	var event PublishEvent
	if err := json.Unmarshal(value, &event); err != nil {
		slog.Error("Skipping undecodable broker event", "error", err)
		return
	}

	msgType := websocket.MessageType(event.EventType)
	if !msgType.IsValid() {
		slog.Warn("Skipping broker event with unknown type", "type", event.EventType)
		return
	}

	target, err := event.Target()
	if err != nil {
		slog.Warn("Skipping broker event without target", "type", event.EventType)
		return
	}

	result := c.dispatcher.Publish(ctx, msgType, event.Payload, target)
	slog.Debug("Dispatched broker event",
		"type", event.EventType, "delivered", result.Delivered, "queued", result.Queued)
}

// Run consumes the topic until the context is cancelled. Consume returns
// whenever the group rebalances, so it is called in a loop.
func Run(ctx context.Context, group sarama.ConsumerGroup, topic string, consumer *EventConsumer) {
	go func() {
		for err := range group.Errors() {
			slog.Error("Kafka consumer error", "error", err)
		}
	}()

	for {
		if err := group.Consume(ctx, []string{topic}, consumer); err != nil {
			slog.Error("Kafka consume failed", "error", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}
