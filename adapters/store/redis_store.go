package store

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/dealguard/core"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the session record as one Redis hash
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a Redis session store scoped to profile
func NewRedisStore(client *redis.Client, profile string) *RedisStore {
	return &RedisStore{
		client: client,
		key:    "dealguard:session:" + profile,
	}
}

// LoadSession reads the session hash
func (s *RedisStore) LoadSession(ctx context.Context) (core.SessionRecord, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return core.SessionRecord{}, fmt.Errorf("failed to load session: %w", err)
	}
	if len(values) == 0 {
		return core.SessionRecord{}, core.ErrNoSession
	}
	return decodeSession(values)
}

// SaveSession replaces the session hash in a single MULTI/EXEC
func (s *RedisStore) SaveSession(ctx context.Context, record core.SessionRecord) error {
	fields := encodeSession(record)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.HSet(ctx, s.key, fields)
		// Keep the key a little past expiry so Reconcile still sees and clears it
		pipe.PExpireAt(ctx, s.key, record.ExpiresAt.Add(time.Hour))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// DeleteSession removes the session hash
func (s *RedisStore) DeleteSession(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
