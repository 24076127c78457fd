// Package kv provides a small key-value abstraction with TTLs and a list
// primitive. An in-memory backend is always available; a Redis backend is
// used instead when configured. The hub opens a store and holds it, but its
// presence and friend state live in its own in-memory maps and are not read
// from or written to this store.
package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/opensignal/signalhub/internal/config"
)

// KV is a minimal key-value store with TTL support and a list primitive used
// for staging friend-mailbox entries.
type KV interface {
	Has(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)
	// RPush appends a value to a list stored under key. Returns the new length.
	RPush(ctx context.Context, key string, value []byte) (int64, error)
	// LDrain atomically returns all elements of the list and deletes the key.
	LDrain(ctx context.Context, key string) ([][]byte, error)
	Close() error
}

// MakeKV creates a new key-value store client, backed by Redis when enabled
// or an in-process map otherwise.
func MakeKV(ctx context.Context, cfg *config.Config) (KV, error) {
	if cfg.Redis.Enabled {
		redisKV, err := makeRedisKV(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis kv: %w", err)
		}
		return redisKV, nil
	}
	return makeInMemoryKV(), nil
}
