package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory QueueStore standing in for Redis
type fakeStore struct {
	mu        sync.Mutex
	data      map[string][][]byte
	failPush  bool
	failDrain bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][][]byte)}
}

func (s *fakeStore) Push(ctx context.Context, userID string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPush {
		return errors.New("store unavailable")
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	s.data[userID] = append(s.data[userID], buf)
	return nil
}

func (s *fakeStore) Drain(ctx context.Context, userID string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDrain {
		return nil, errors.New("store unavailable")
	}
	payloads := s.data[userID]
	delete(s.data, userID)
	return payloads, nil
}

func (s *fakeStore) setFailPush(fail bool) {
	s.mu.Lock()
	s.failPush = fail
	s.mu.Unlock()
}

func (s *fakeStore) count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data[userID])
}

func TestOfflineQueueEnqueueDrainFIFO(t *testing.T) {
	ctx := context.Background()
	queue := NewOfflineQueue(DefaultQueueLimit, nil)

	for i := 0; i < 3; i++ {
		msg := NewNotificationMessage(MessageTypeTrainingProgress, map[string]interface{}{"step": i})
		queue.Enqueue(ctx, "user-1", msg)
	}
	assert.Equal(t, 3, queue.SizeFor("user-1"))

	drained := queue.Drain(ctx, "user-1")
	require.Len(t, drained, 3)
	for i, msg := range drained {
		assert.Equal(t, i, msg.Data["step"])
	}

	// queue is empty after a drain
	assert.Empty(t, queue.Drain(ctx, "user-1"))
	assert.Equal(t, 0, queue.Size())
}

func TestOfflineQueueEvictsOldestAtLimit(t *testing.T) {
	ctx := context.Background()
	queue := NewOfflineQueue(DefaultQueueLimit, nil)

	for i := 0; i < DefaultQueueLimit+1; i++ {
		msg := NewNotificationMessage(MessageTypeRobotStateUpdate, map[string]interface{}{"seq": i})
		queue.Enqueue(ctx, "user-1", msg)
	}
	assert.Equal(t, DefaultQueueLimit, queue.SizeFor("user-1"))

	drained := queue.Drain(ctx, "user-1")
	require.Len(t, drained, DefaultQueueLimit)
	assert.Equal(t, 1, drained[0].Data["seq"], "oldest message should have been evicted")
	assert.Equal(t, DefaultQueueLimit, drained[len(drained)-1].Data["seq"])
}

func TestOfflineQueueIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	queue := NewOfflineQueue(DefaultQueueLimit, nil)

	queue.Enqueue(ctx, "user-1", NewNotificationMessage(MessageTypeTrainingCompleted, nil))
	queue.Enqueue(ctx, "user-2", NewNotificationMessage(MessageTypeTrainingFailed, nil))

	assert.Equal(t, 2, queue.Size())
	require.Len(t, queue.Drain(ctx, "user-1"), 1)
	assert.Equal(t, 1, queue.SizeFor("user-2"))
}

func TestOfflineQueueMirrorsToStore(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	queue := NewOfflineQueue(DefaultQueueLimit, store)

	queue.Enqueue(ctx, "user-1", NewNotificationMessage(MessageTypeAchievementUnlocked, nil))
	queue.Enqueue(ctx, "user-1", NewNotificationMessage(MessageTypeDataExportReady, nil))

	assert.Equal(t, 2, store.count("user-1"))

	// draining consumes both the buffer and the mirror, deduplicated by id
	drained := queue.Drain(ctx, "user-1")
	require.Len(t, drained, 2)
	assert.Equal(t, MessageTypeAchievementUnlocked, drained[0].MessageType)
	assert.Equal(t, 0, store.count("user-1"))
}

func TestOfflineQueueReplaysStoreOnlyEntriesFirst(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()

	// a message persisted by a previous process, gone from memory
	stale := NewNotificationMessage(MessageTypePipelineCompleted, map[string]interface{}{"run": "old"})
	payload, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, store.Push(ctx, "user-1", payload))

	queue := NewOfflineQueue(DefaultQueueLimit, store)
	queue.Enqueue(ctx, "user-1", NewNotificationMessage(MessageTypePipelineStarted, map[string]interface{}{"run": "new"}))

	drained := queue.Drain(ctx, "user-1")
	require.Len(t, drained, 2)
	assert.Equal(t, MessageTypePipelineCompleted, drained[0].MessageType)
	assert.Equal(t, MessageTypePipelineStarted, drained[1].MessageType)
}

func TestOfflineQueueDegradesWhenStoreDown(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.setFailPush(true)
	queue := NewOfflineQueue(DefaultQueueLimit, store)

	// enqueue must not surface the store failure
	queue.Enqueue(ctx, "user-1", NewNotificationMessage(MessageTypeSystemMaintenance, nil))
	assert.Equal(t, 1, queue.SizeFor("user-1"))
	assert.Equal(t, 0, store.count("user-1"))

	// once the store recovers, Flush mirrors what was missed
	store.setFailPush(false)
	queue.Flush(ctx)
	assert.Equal(t, 1, store.count("user-1"))
}

func TestOfflineQueueDrainSurvivesStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.failDrain = true
	queue := NewOfflineQueue(DefaultQueueLimit, store)

	queue.Enqueue(ctx, "user-1", NewNotificationMessage(MessageTypeRobotConnected, nil))

	drained := queue.Drain(ctx, "user-1")
	require.Len(t, drained, 1)
	assert.Equal(t, MessageTypeRobotConnected, drained[0].MessageType)
}

func TestOfflineQueueConcurrentEnqueue(t *testing.T) {
	ctx := context.Background()
	queue := NewOfflineQueue(DefaultQueueLimit, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				userID := fmt.Sprintf("user-%d", n%3)
				queue.Enqueue(ctx, userID, NewNotificationMessage(MessageTypeHeartbeat, nil))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, queue.Size())
}
