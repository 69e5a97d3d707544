package websocket

import (
	"context"
	"log/slog"
	"time"
)

// DefaultHeartbeatInterval is how often the liveness ping is broadcast
const DefaultHeartbeatInterval = 30 * time.Second

// Heartbeat periodically broadcasts a liveness ping through the dispatcher.
// The server never prunes connections on missing responses; a connection is
// only dropped when a write to it fails or the client disconnects.
type Heartbeat struct {
	dispatcher *Dispatcher
	interval   time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewHeartbeat creates a heartbeat scheduler. A non-positive interval falls
// back to the default.
func NewHeartbeat(dispatcher *Dispatcher, interval time.Duration) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Heartbeat{
		dispatcher: dispatcher,
		interval:   interval,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Start launches the heartbeat loop. One tick's failure never stops the loop.
func (h *Heartbeat) Start() {
	if h.started {
		return
	}
	h.started = true
	go h.run()
}

func (h *Heartbeat) run() {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	slog.Info("Heartbeat scheduler started", "interval", h.interval)

	for {
		select {
		case <-ticker.C:
			h.tick()
		case <-h.ctx.Done():
			slog.Info("Heartbeat scheduler stopped")
			return
		}
	}
}

func (h *Heartbeat) tick() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Heartbeat tick panicked", "panic", r)
		}
	}()

	result := h.dispatcher.Publish(h.ctx, MessageTypeHeartbeat, map[string]interface{}{
		"server_time": time.Now().UTC().Format(time.RFC3339),
	}, Broadcast())

	slog.Debug("Heartbeat broadcast", "delivered", result.Delivered)
}

// Stop terminates the loop and waits for it to exit
func (h *Heartbeat) Stop() {
	h.cancel()
	if h.started {
		<-h.done
	}
}
