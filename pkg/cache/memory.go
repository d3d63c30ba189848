package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry[V any] struct {
	expiresAt time.Time
	value     V
}

// Memory is an in-memory cache with TTL-based expiration. A background
// janitor sweeps expired entries so abandoned keys do not accumulate.
type Memory[V any] struct {
	items      map[string]memoryEntry[V]
	defaultTTL time.Duration
	done       chan struct{}
	mu         sync.Mutex
	closed     bool
}

type memoryConfig struct {
	defaultTTL      time.Duration
	cleanupInterval time.Duration
}

// MemoryConfigOption configures the in-memory cache.
type MemoryConfigOption func(*memoryConfig)

// WithDefaultTTL sets the expiration applied when Set is called with a
// zero TTL. Default: 1 hour.
func WithDefaultTTL(d time.Duration) MemoryConfigOption {
	return func(c *memoryConfig) {
		if d > 0 {
			c.defaultTTL = d
		}
	}
}

// WithCleanupInterval sets how often the janitor removes expired
// entries. Default: 1 minute.
func WithCleanupInterval(d time.Duration) MemoryConfigOption {
	return func(c *memoryConfig) {
		if d > 0 {
			c.cleanupInterval = d
		}
	}
}

// NewMemory creates a new in-memory cache.
//
// Example:
//
//	c := cache.NewMemory[claimtoken.Record](
//	    cache.WithDefaultTTL(10 * time.Minute),
//	)
//	defer c.Close()
func NewMemory[V any](opts ...MemoryConfigOption) *Memory[V] {
	cfg := &memoryConfig{
		defaultTTL:      time.Hour,
		cleanupInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	m := &Memory[V]{
		items:      make(map[string]memoryEntry[V]),
		defaultTTL: cfg.defaultTTL,
		done:       make(chan struct{}),
	}
	go m.janitor(cfg.cleanupInterval)
	return m
}

// Get retrieves a value by key.
// Returns ErrNotFound if the key does not exist or has expired.
func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok || time.Now().After(e.expiresAt) {
		delete(m.items, key)
		var zero V
		return zero, ErrNotFound
	}
	return e.value, nil
}

// Set stores a value with the given TTL. A zero TTL uses the default.
func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if ttl == 0 {
		ttl = m.defaultTTL
	}
	m.items[key] = memoryEntry[V]{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete removes a key from the cache.
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.items, key)
	return nil
}

// Close stops the janitor goroutine and marks the cache as closed.
// Close is idempotent.
func (m *Memory[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return nil
}

func (m *Memory[V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.deleteExpired()
		}
	}
}

func (m *Memory[V]) deleteExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, e := range m.items {
		if now.After(e.expiresAt) {
			delete(m.items, key)
		}
	}
}

var _ Cache[any] = (*Memory[any])(nil)
