package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// mockConn is an in-memory Conn implementation for tests
type mockConn struct {
	mu         sync.Mutex
	written    [][]byte
	failWrites bool
	closed     bool

	inbound   chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newMockConn() *mockConn {
	return &mockConn{
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-m.inbound:
		return websocket.TextMessage, data, nil
	case <-m.done:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure, Text: "closed"}
	}
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.failWrites {
		return websocket.ErrCloseSent
	}
	if messageType != websocket.TextMessage {
		return nil
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.written = append(m.written, buf)
	return nil
}

func (m *mockConn) SetReadLimit(limit int64) {}

func (m *mockConn) SetWriteDeadline(t time.Time) error { return nil }

func (m *mockConn) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockConn) setFailWrites(fail bool) {
	m.mu.Lock()
	m.failWrites = fail
	m.mu.Unlock()
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// envelopes decodes everything written to the conn so far
func (m *mockConn) envelopes(t *testing.T) []NotificationMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]NotificationMessage, 0, len(m.written))
	for _, data := range m.written {
		var msg NotificationMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		result = append(result, msg)
	}
	return result
}

// waitForEnvelopes polls until n envelopes were written
func (m *mockConn) waitForEnvelopes(t *testing.T, n int) []NotificationMessage {
	t.Helper()
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.written) >= n
	}, 2*time.Second, 5*time.Millisecond, "expected %d envelopes", n)
	return m.envelopes(t)
}

// send injects an inbound client protocol frame
func (m *mockConn) send(t *testing.T, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	m.inbound <- data
}

// connect registers a new client with a running write pump and returns it with
// its transport
func connect(t *testing.T, d *Dispatcher, userID string) (*Client, *mockConn) {
	t.Helper()
	conn := newMockConn()
	client := NewClient(d.Registry(), d.Topics(), conn, userID)
	d.Registry().Register(context.Background(), client)
	client.Start()
	return client, conn
}
