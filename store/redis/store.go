// Package redis implements dlq.Store using Redis, for deployments where the
// dead letter archive must survive process restarts or be shared between
// processes. Entries are stored as Redis Hashes with a Set tracking IDs for
// enumeration.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/fairq/dlq"
)

// Ensure Store implements dlq.Store at compile time.
var _ dlq.Store = (*Store)(nil)

// Store is a Redis-backed dead letter store.
type Store struct {
	client goredis.UniversalClient
}

// New creates a Store over an existing Redis client. The caller owns the
// client's lifecycle.
func New(client goredis.UniversalClient) *Store {
	return &Store{client: client}
}

// Ping verifies connectivity to Redis.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("fairq/redis: ping: %w", err)
	}
	return nil
}

// Close releases the underlying client connection.
func (s *Store) Close() error {
	return s.client.Close()
}
