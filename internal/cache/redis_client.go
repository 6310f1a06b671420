package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// CounterStore keeps short-lived counters shared by every service instance.
type CounterStore interface {
	// IncrementWindow increments key, starting its TTL on the first hit, and returns the new count.
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

type redisCounterStore struct {
	client *redis.Client
	prefix string
}

func NewRedisCounterStore(client *redis.Client, prefix string) CounterStore {
	return &redisCounterStore{client: client, prefix: prefix}
}

func (r *redisCounterStore) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	fullKey := r.prefix + key

	count, err := r.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", fullKey, err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, fullKey, window).Err(); err != nil {
			return count, fmt.Errorf("failed to set expiry on %s: %w", fullKey, err)
		}
	}
	return count, nil
}
