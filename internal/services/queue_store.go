package services

import (
	"context"
	"fmt"
	"time"

	"notify-service/internal/database"

	"log/slog"
)

const (
	// How long mirrored offline messages survive a process restart
	queueTTL = 24 * time.Hour

	// Mirror keeps at most this many entries per user, matching the
	// in-memory bound
	queueMaxEntries = 100
)

// RedisQueueStore mirrors offline notifications to Redis so they survive
// process restarts. It implements websocket.QueueStore.
type RedisQueueStore struct {
	client *database.RedisClient
}

func NewRedisQueueStore(client *database.RedisClient) *RedisQueueStore {
	return &RedisQueueStore{
		client: client,
	}
}

func queueKey(userID string) string {
	return fmt.Sprintf("websocket_queue:%s", userID)
}

// Push appends a marshaled envelope to the user's mirror list, trimming it to
// the last queueMaxEntries and refreshing the TTL.
func (s *RedisQueueStore) Push(ctx context.Context, userID string, payload []byte) error {
	key := queueKey(userID)
	pipe := s.client.GetClient().Pipeline()

	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, queueMaxEntries-1)
	pipe.Expire(ctx, key, queueTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mirror queued message: %w", err)
	}

	slog.Debug("Mirrored queued message", "userID", userID)
	return nil
}

// Drain returns all mirrored payloads for the user in FIFO order and deletes
// the list.
func (s *RedisQueueStore) Drain(ctx context.Context, userID string) ([][]byte, error) {
	key := queueKey(userID)
	client := s.client.GetClient()

	values, err := client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queued messages: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	if err := client.Del(ctx, key).Err(); err != nil {
		return nil, fmt.Errorf("failed to clear queued messages: %w", err)
	}

	// LPush stores newest first; reverse for FIFO replay
	payloads := make([][]byte, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		payloads = append(payloads, []byte(values[i]))
	}

	slog.Debug("Drained mirrored queue", "userID", userID, "messages", len(payloads))
	return payloads, nil
}
