package game

import (
	"context"
	"time"
)

// StateStore holds in-flight game state for reveal-driven games (mines)
// between requests. Keys are opaque; values are JSON blobs with a TTL so
// abandoned games expire on their own.
type StateStore interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
