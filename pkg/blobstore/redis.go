package blobstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps blobs as Redis string values. A SET is atomic per key, so
// concurrent writers resolve to last-writer-wins without torn values. Suited
// to small artifact sets shared across service replicas.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed blob store and verifies connectivity.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	if !strings.Contains(redisURL, "://") {
		redisURL = "redis://" + redisURL
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Get fetches the blob stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get blob %s: %w", key, err)
	}
	return data, nil
}

// Put stores the blob under key with no expiry; artifact lifecycle is
// managed by the snapshot refresh cycle, not by Redis TTLs.
func (s *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to put blob %s: %w", key, err)
	}
	return nil
}

// Exists reports whether a blob is stored under key.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blob %s: %w", key, err)
	}
	return n > 0, nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
