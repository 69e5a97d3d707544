package websocket

import (
	"time"

	"github.com/google/uuid"
)

// MessageType represents the type of notification message using a custom enum type for better type safety
type MessageType string

// Notification message types - the closed event taxonomy of the platform
const (
	// Robot events
	MessageTypeRobotConnected     MessageType = "robot_connected"
	MessageTypeRobotDisconnected  MessageType = "robot_disconnected"
	MessageTypeRobotStateUpdate   MessageType = "robot_state_update"
	MessageTypeRobotCommandResult MessageType = "robot_command_result"
	MessageTypeRobotError         MessageType = "robot_error"
	MessageTypeRobotEmergencyStop MessageType = "robot_emergency_stop"

	// Training events
	MessageTypeTrainingStarted   MessageType = "training_started"
	MessageTypeTrainingProgress  MessageType = "training_progress"
	MessageTypeTrainingCompleted MessageType = "training_completed"
	MessageTypeTrainingFailed    MessageType = "training_failed"

	// Pipeline events
	MessageTypePipelineStarted        MessageType = "pipeline_started"
	MessageTypePipelineStageCompleted MessageType = "pipeline_stage_completed"
	MessageTypePipelineCompleted      MessageType = "pipeline_completed"
	MessageTypePipelineFailed         MessageType = "pipeline_failed"

	// User events
	MessageTypeAchievementUnlocked MessageType = "achievement_unlocked"
	MessageTypeDataExportReady     MessageType = "data_export_ready"
	MessageTypeSystemMaintenance   MessageType = "system_maintenance"

	// System events
	MessageTypeHeartbeat        MessageType = "heartbeat"
	MessageTypeUserConnected    MessageType = "user_connected"
	MessageTypeUserDisconnected MessageType = "user_disconnected"

	// Error events on the client protocol
	MessageTypeError MessageType = "error"
)

// String returns the string representation of the MessageType
func (mt MessageType) String() string {
	return string(mt)
}

// IsValid checks if the MessageType is a valid enum value
func (mt MessageType) IsValid() bool {
	switch mt {
	case MessageTypeRobotConnected, MessageTypeRobotDisconnected, MessageTypeRobotStateUpdate,
		MessageTypeRobotCommandResult, MessageTypeRobotError, MessageTypeRobotEmergencyStop,
		MessageTypeTrainingStarted, MessageTypeTrainingProgress, MessageTypeTrainingCompleted,
		MessageTypeTrainingFailed,
		MessageTypePipelineStarted, MessageTypePipelineStageCompleted, MessageTypePipelineCompleted,
		MessageTypePipelineFailed,
		MessageTypeAchievementUnlocked, MessageTypeDataExportReady, MessageTypeSystemMaintenance,
		MessageTypeHeartbeat, MessageTypeUserConnected, MessageTypeUserDisconnected,
		MessageTypeError:
		return true
	default:
		return false
	}
}

// GetAllMessageTypes returns all valid message types for documentation and validation
func GetAllMessageTypes() []MessageType {
	return []MessageType{
		MessageTypeRobotConnected, MessageTypeRobotDisconnected, MessageTypeRobotStateUpdate,
		MessageTypeRobotCommandResult, MessageTypeRobotError, MessageTypeRobotEmergencyStop,
		MessageTypeTrainingStarted, MessageTypeTrainingProgress, MessageTypeTrainingCompleted,
		MessageTypeTrainingFailed,
		MessageTypePipelineStarted, MessageTypePipelineStageCompleted, MessageTypePipelineCompleted,
		MessageTypePipelineFailed,
		MessageTypeAchievementUnlocked, MessageTypeDataExportReady, MessageTypeSystemMaintenance,
		MessageTypeHeartbeat, MessageTypeUserConnected, MessageTypeUserDisconnected,
		MessageTypeError,
	}
}

// NotificationMessage is the wire envelope delivered to clients for every event
type NotificationMessage struct {
	MessageType MessageType            `json:"message_type"`
	Data        map[string]interface{} `json:"data"`
	Timestamp   string                 `json:"timestamp"`
	MessageID   string                 `json:"message_id"`
	UserID      string                 `json:"user_id,omitempty"`
}

// NewNotificationMessage creates an envelope with a fresh message ID and timestamp
func NewNotificationMessage(msgType MessageType, data map[string]interface{}) *NotificationMessage {
	if data == nil {
		data = make(map[string]interface{})
	}
	return &NotificationMessage{
		MessageType: msgType,
		Data:        data,
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		MessageID:   uuid.New().String(),
		UserID:      "",
	}
}

// WithUser returns a copy of the envelope stamped with the destination user.
// The message ID stays the same so a fan-out to many users remains one logical event.
func (m *NotificationMessage) WithUser(userID string) *NotificationMessage {
	clone := *m
	clone.UserID = userID
	return &clone
}

// NewErrorMessage creates a typed error envelope for the client protocol
func NewErrorMessage(userID, code, message string) *NotificationMessage {
	msg := NewNotificationMessage(MessageTypeError, map[string]interface{}{
		"code":    code,
		"message": message,
	})
	msg.UserID = userID
	return msg
}

// ClientMessage is the inbound protocol from connected clients
type ClientMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
}

// Inbound client message types
const (
	ClientMessageSubscribe         = "subscribe"
	ClientMessageUnsubscribe       = "unsubscribe"
	ClientMessageHeartbeatResponse = "heartbeat_response"
)
