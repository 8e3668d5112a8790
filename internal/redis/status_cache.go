// Package redis caches live task status so HTTP status polls are served
// without a document-store round trip.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MFaiqKhan/SocialSpark/internal/domain"
)

const statusTTL = 24 * time.Hour

func statusKey(taskID string) string { return "task:status:" + taskID }

// StatusCache holds the most recent status per task with a TTL.
type StatusCache interface {
	SetStatus(ctx context.Context, taskID string, status domain.Status) error
	GetStatus(ctx context.Context, taskID string) (domain.Status, error)
	Ping(ctx context.Context) error
}

type statusCache struct {
	client *redis.Client
}

// NewStatusCache creates a Redis-backed StatusCache.
func NewStatusCache(client *redis.Client) StatusCache {
	return &statusCache{client: client}
}

// NewClient creates and returns a new Redis client.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		PoolSize:     10,
	})
}

func (s *statusCache) SetStatus(ctx context.Context, taskID string, status domain.Status) error {
	err := s.client.Set(ctx, statusKey(taskID), string(status), statusTTL).Err()
	if err != nil {
		return fmt.Errorf("redis set status for %s: %w", taskID, err)
	}
	return nil
}

func (s *statusCache) GetStatus(ctx context.Context, taskID string) (domain.Status, error) {
	val, err := s.client.Get(ctx, statusKey(taskID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", &domain.TaskNotFoundError{TaskID: taskID}
		}
		return "", fmt.Errorf("redis get status for %s: %w", taskID, err)
	}
	return domain.Status(val), nil
}

func (s *statusCache) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
