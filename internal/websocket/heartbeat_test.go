package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHeartbeatBroadcastsToAllUsers(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(DefaultQueueLimit, nil)
	defer d.Shutdown(ctx)

	_, connA := connect(t, d, "user-a")
	_, connB := connect(t, d, "user-b")

	hb := NewHeartbeat(d, 10*time.Millisecond)
	hb.Start()
	hb.Start() // second Start is a no-op
	defer hb.Stop()

	for _, conn := range []*mockConn{connA, connB} {
		envelopes := conn.waitForEnvelopes(t, 2)
		assert.Equal(t, MessageTypeHeartbeat, envelopes[0].MessageType)
		assert.Contains(t, envelopes[0].Data, "server_time")
	}
}

func TestHeartbeatSurvivesFailingConnection(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(DefaultQueueLimit, nil)
	defer d.Shutdown(ctx)

	_, healthyConn := connect(t, d, "user-a")
	broken, _ := connect(t, d, "user-b")
	broken.close()

	hb := NewHeartbeat(d, 10*time.Millisecond)
	hb.Start()
	defer hb.Stop()

	// the failing connection gets evicted, the healthy one keeps ticking
	envelopes := healthyConn.waitForEnvelopes(t, 3)
	assert.Equal(t, MessageTypeHeartbeat, envelopes[0].MessageType)
	assert.Eventually(t, func() bool {
		return !d.Registry().IsOnline("user-b")
	}, time.Second, 5*time.Millisecond)
}

func TestHeartbeatStopWithoutStart(t *testing.T) {
	d := NewDispatcher(DefaultQueueLimit, nil)
	hb := NewHeartbeat(d, time.Minute)
	hb.Stop()
}

func TestHeartbeatResponseTouchesPresence(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(DefaultQueueLimit, nil)
	defer d.Shutdown(ctx)

	_, conn := connect(t, d, "user-1")

	before, _ := d.Registry().Metadata("user-1")
	time.Sleep(5 * time.Millisecond)
	conn.send(t, ClientMessage{Type: ClientMessageHeartbeatResponse})

	assert.Eventually(t, func() bool {
		after, ok := d.Registry().Metadata("user-1")
		return ok && after.LastActivity.After(before.LastActivity)
	}, time.Second, 5*time.Millisecond)
}
