// Package dedup provides a time-boxed set membership check used to suppress
// repeat notifications for the same event within a cooldown window.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store tracks recently seen keys until their cooldown expires.
type Store interface {
	// Seen reports whether the key holds a fresh entry.
	Seen(ctx context.Context, key string) (bool, error)

	// Mark records the key with the given cooldown window.
	Mark(ctx context.Context, key string, cooldown time.Duration) error
}

// Key builds the canonical dedup key for an attendance warning event.
// A changed absence count produces a new key even within the cooldown.
func Key(studentID, classID string, absentCount int) string {
	return fmt.Sprintf("warn:%s:%s:%d", studentID, classID, absentCount)
}

// MemoryStore is an in-process Store with expiring entries. It provides no
// durability across restarts.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]time.Time), now: time.Now}
}

// WithNow overrides the clock source, for tests.
func (s *MemoryStore) WithNow(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Seen reports whether key has an unexpired entry, purging it when stale.
func (s *MemoryStore) Seen(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if s.now().After(expiry) {
		delete(s.entries, key)
		return false, nil
	}
	return true, nil
}

// Mark records key until now+cooldown.
func (s *MemoryStore) Mark(_ context.Context, key string, cooldown time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = s.now().Add(cooldown)
	return nil
}

// Len returns the number of live entries, expired ones included until purged.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RedisStore backs the dedup check with Redis so entries survive restarts.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore builds a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "cets:dedup:"}
}

// Seen checks key existence in Redis.
func (s *RedisStore) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("dedup exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Mark stores key with the cooldown as TTL. SetNX keeps the original expiry
// when two sweeps race on the same key.
func (s *RedisStore) Mark(ctx context.Context, key string, cooldown time.Duration) error {
	if err := s.client.SetNX(ctx, s.prefix+key, 1, cooldown).Err(); err != nil {
		return fmt.Errorf("dedup set %s: %w", key, err)
	}
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
