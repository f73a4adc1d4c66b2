package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tessera-studio/provenance-api/internal/adapter"
	"github.com/tessera-studio/provenance-api/internal/logger"
)

// ErrCacheMiss is returned by Get when a key is absent or expired
var ErrCacheMiss = fmt.Errorf("cache miss")

// Store is a byte-value cache with per-entry TTL. Implementations are safe
// for concurrent use; concurrent writers racing to populate the same key is
// acceptable (last writer wins).
//
//go:generate mockgen -source=store.go -destination=../mocks/cache_store.go -package=mocks -mock_names=Store=MockCacheStore
type Store interface {
	// Get returns the value stored at key, or ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value at key for the given TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// GetJSON is a read-through helper: it returns the cached value for key when
// present, otherwise invokes producer, caches its result and returns it.
// Cache failures degrade to calling the producer directly; the cache is an
// optimization, never a correctness source.
func GetJSON[T any](ctx context.Context, store Store, key string, ttl time.Duration, producer func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if store == nil {
		return producer(ctx)
	}

	if raw, err := store.Get(ctx, key); err == nil {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		logger.WarnCtx(ctx, "discarding undecodable cache entry", zap.String("key", key))
	} else if err != ErrCacheMiss {
		logger.WarnCtx(ctx, "cache read failed", zap.String("key", key), zap.Error(err))
	}

	value, err := producer(ctx)
	if err != nil {
		return zero, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		logger.WarnCtx(ctx, "failed to marshal value for cache", zap.String("key", key), zap.Error(err))
		return value, nil
	}
	if err := store.Set(ctx, key, raw, ttl); err != nil {
		logger.WarnCtx(ctx, "cache write failed", zap.String("key", key), zap.Error(err))
	}

	return value, nil
}

// redisStore backs Store with Redis
type redisStore struct {
	client adapter.RedisClient
}

// NewRedisStore creates a Redis-backed cache store
func NewRedisStore(client adapter.RedisClient) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache key: %w", err)
	}
	return raw, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key: %w", err)
	}
	return nil
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// memoryStore is an in-process Store used when Redis is not configured and
// as a deterministic fake in tests
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	clock   adapter.Clock
}

// NewMemoryStore creates an in-memory cache store. Expired entries are
// dropped lazily on read.
func NewMemoryStore(clock adapter.Clock) Store {
	return &memoryStore{
		entries: make(map[string]memoryEntry),
		clock:   clock,
	}
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}
	if s.clock.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, ErrCacheMiss
	}
	return entry.value, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{
		value:     value,
		expiresAt: s.clock.Now().Add(ttl),
	}
	return nil
}
