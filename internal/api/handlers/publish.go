package handlers

import (
	"net/http"

	"notify-service/internal/websocket"
	"notify-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type PublishHandler struct {
	dispatcher *websocket.Dispatcher
}

func NewPublishHandler(dispatcher *websocket.Dispatcher) *PublishHandler {
	return &PublishHandler{dispatcher: dispatcher}
}

// PublishRequest is the producer-facing publish payload. Exactly one of
// target_user, topic, or broadcast selects the destination.
type PublishRequest struct {
	EventType  string                 `json:"event_type" binding:"required"`
	Payload    map[string]interface{} `json:"payload"`
	TargetUser string                 `json:"target_user,omitempty"`
	Topic      string                 `json:"topic,omitempty"`
	Broadcast  bool                   `json:"broadcast,omitempty"`
}

// Publish godoc
// @Summary Publish a notification
// @Description Route a typed event to a user, a topic's subscribers, or all present users
// @Tags notify
// @Accept json
// @Produce json
// @Param request body PublishRequest true "Event to publish"
// @Success 200 {object} websocket.PublishResult
// @Failure 400 {object} response.ErrorBody
// @Router /notify [post]
func (h *PublishHandler) Publish(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.NewError("invalid request body"))
		return
	}

	msgType := websocket.MessageType(req.EventType)
	if !msgType.IsValid() {
		c.JSON(http.StatusBadRequest, response.NewError("unknown event_type"))
		return
	}

	var target websocket.Target
	switch {
	case req.TargetUser != "":
		target = websocket.ToUser(req.TargetUser)
	case req.Topic != "":
		target = websocket.ToTopic(req.Topic)
	case req.Broadcast:
		target = websocket.Broadcast()
	default:
		c.JSON(http.StatusBadRequest, response.NewError("one of target_user, topic or broadcast is required"))
		return
	}

	result := h.dispatcher.Publish(c.Request.Context(), msgType, req.Payload, target)
	c.JSON(http.StatusOK, result)
}
