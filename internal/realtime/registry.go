// Package realtime tracks which users currently hold a live client
// connection. The registry is injected wherever delivery decisions are
// made; nothing in the codebase keeps an ambient connection map.
package realtime

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Registry maps a user id to its live connection id.
type Registry interface {
	Add(ctx context.Context, userID int, connectionID string) error
	Remove(ctx context.Context, userID int) error
	// Lookup returns the connection id and whether the user is online.
	Lookup(ctx context.Context, userID int) (string, bool, error)
}

const presenceKey = "presence:connections"

// RedisRegistry shares presence across instances through a Redis hash.
type RedisRegistry struct {
	client *redis.Client
}

func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func (r *RedisRegistry) Add(ctx context.Context, userID int, connectionID string) error {
	if err := r.client.HSet(ctx, presenceKey, strconv.Itoa(userID), connectionID).Err(); err != nil {
		return fmt.Errorf("failed to register connection: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Remove(ctx context.Context, userID int) error {
	if err := r.client.HDel(ctx, presenceKey, strconv.Itoa(userID)).Err(); err != nil {
		return fmt.Errorf("failed to remove connection: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Lookup(ctx context.Context, userID int) (string, bool, error) {
	val, err := r.client.HGet(ctx, presenceKey, strconv.Itoa(userID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up connection: %w", err)
	}
	return val, true, nil
}

// MemoryRegistry is the single-instance fallback used when Redis is not
// configured, and in tests.
type MemoryRegistry struct {
	mu          sync.RWMutex
	connections map[int]string
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{connections: make(map[int]string)}
}

func (r *MemoryRegistry) Add(_ context.Context, userID int, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[userID] = connectionID
	return nil
}

func (r *MemoryRegistry) Remove(_ context.Context, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.connections, userID)
	return nil
}

func (r *MemoryRegistry) Lookup(_ context.Context, userID int) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.connections[userID]
	return id, ok, nil
}
