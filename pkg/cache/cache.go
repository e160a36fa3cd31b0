// Package cache provides the explicit lookup caches used across components.
// Callers pick an implementation at wiring time; nothing is cached globally.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"gigmarket/pkg/logger"

	"github.com/redis/go-redis/v9"
)

type Cache[T any] interface {
	Get(ctx context.Context, key string) (T, bool)
	Set(ctx context.Context, key string, value T)
	Delete(ctx context.Context, key string)
}

// Nop never stores anything
type Nop[T any] struct{}

func (Nop[T]) Get(context.Context, string) (T, bool) {
	var zero T
	return zero, false
}
func (Nop[T]) Set(context.Context, string, T) {}
func (Nop[T]) Delete(context.Context, string) {}

type memoryEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// Memory is an in-process cache. A zero ttl keeps entries until deleted.
type Memory[T any] struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry[T]
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory[T any](ttl time.Duration) *Memory[T] {
	return &Memory[T]{
		entries: make(map[string]memoryEntry[T]),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory[T]) Get(_ context.Context, key string) (T, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || (!entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt)) {
		var zero T
		return zero, false
	}
	return entry.value, true
}

func (m *Memory[T]) Set(_ context.Context, key string, value T) {
	entry := memoryEntry[T]{value: value}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
}

func (m *Memory[T]) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Redis stores JSON encoded values with a short TTL. Redis failures
// degrade to cache misses.
type Redis[T any] struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedis[T any](rdb *redis.Client, prefix string, ttl time.Duration, log *logger.Logger) *Redis[T] {
	return &Redis[T]{rdb: rdb, prefix: prefix, ttl: ttl, log: log}
}

func (r *Redis[T]) Get(ctx context.Context, key string) (T, bool) {
	var value T
	data, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("Cache read failed", "key", r.prefix+key, "error", err)
		}
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		r.log.Warn("Cache entry is corrupt", "key", r.prefix+key, "error", err)
		return value, false
	}
	return value, true
}

func (r *Redis[T]) Set(ctx context.Context, key string, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		r.log.Warn("Cache write failed", "key", r.prefix+key, "error", err)
	}
}

func (r *Redis[T]) Delete(ctx context.Context, key string) {
	if err := r.rdb.Del(ctx, r.prefix+key).Err(); err != nil {
		r.log.Warn("Cache delete failed", "key", r.prefix+key, "error", err)
	}
}
