package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore keeps in-flight game state (mines layouts, reveal progress) in
// Redis with a TTL so abandoned games expire without a sweeper.
type StateStore struct {
	client *redis.Client
}

func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client}
}

func (s *StateStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *StateStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("state %s not found", key)
	}
	return data, err
}

func (s *StateStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
