package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageTypeIsValid(t *testing.T) {
	for _, mt := range GetAllMessageTypes() {
		assert.True(t, mt.IsValid(), "message type %q should be valid", mt)
	}

	assert.False(t, MessageType("bogus").IsValid())
	assert.False(t, MessageType("").IsValid())
}

func TestNewNotificationMessageStampsEnvelope(t *testing.T) {
	msg := NewNotificationMessage(MessageTypeRobotConnected, map[string]interface{}{"robot_id": "r-1"})

	assert.NotEmpty(t, msg.MessageID)
	assert.Empty(t, msg.UserID)
	ts, err := time.Parse(time.RFC3339Nano, msg.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)

	// nil data marshals as an empty object, not null
	empty := NewNotificationMessage(MessageTypeHeartbeat, nil)
	data, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"data":{}`)
}

func TestWithUserKeepsMessageIdentity(t *testing.T) {
	msg := NewNotificationMessage(MessageTypeTrainingCompleted, nil)

	stamped := msg.WithUser("user-1")
	assert.Equal(t, "user-1", stamped.UserID)
	assert.Equal(t, msg.MessageID, stamped.MessageID, "fan-out copies stay one logical event")
	assert.Empty(t, msg.UserID, "the original envelope is untouched")
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("user-1", "INVALID_MESSAGE", "Invalid message format")

	assert.Equal(t, MessageTypeError, msg.MessageType)
	assert.Equal(t, "user-1", msg.UserID)
	assert.Equal(t, "INVALID_MESSAGE", msg.Data["code"])
	assert.Equal(t, "Invalid message format", msg.Data["message"])
}
