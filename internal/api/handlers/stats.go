package handlers

import (
	"net/http"

	"notify-service/internal/websocket"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	dispatcher *websocket.Dispatcher
}

func NewStatsHandler(dispatcher *websocket.Dispatcher) *StatsHandler {
	return &StatsHandler{dispatcher: dispatcher}
}

// GetStats godoc
// @Summary Connection statistics
// @Description Read-only snapshot of users, connections, topics and queued messages
// @Tags stats
// @Produce json
// @Success 200 {object} websocket.Stats
// @Router /stats [get]
func (h *StatsHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.dispatcher.Stats())
}
