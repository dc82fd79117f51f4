package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sentinelvnc/sentinel/common/database"
)

// DefaultRedisKey is the hash holding every anchor record.
const DefaultRedisKey = "sentinel:anchors"

// RedisStore keeps records as JSON values in a single Redis hash.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore wraps client. An empty key uses DefaultRedisKey.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, incidentID string, rec Record) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode anchor: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, incidentID, data).Err(); err != nil {
		return fmt.Errorf("failed to store anchor: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, incidentID string) (Record, bool, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	data, err := s.client.HGet(ctx, s.key, incidentID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to get anchor: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode anchor: %w", err)
	}
	return rec, true, nil
}

// Ping implements Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
