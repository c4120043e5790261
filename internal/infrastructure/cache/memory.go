package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tastemap/backend/internal/domain"
)

// cacheItem represents a single item in the cache with its creation time
type cacheItem[V any] struct {
	Value     V
	CreatedAt time.Time
	TTL       time.Duration
}

func (i cacheItem[V]) fresh(now time.Time) bool {
	return now.Sub(i.CreatedAt) < i.TTL
}

// MemoryCache is a thread-safe in-memory cache with TTL support.
// An entry is served while now - created < TTL; after that the next
// lookup is a miss and the caller is expected to overwrite it.
type MemoryCache[V any] struct {
	data  map[string]cacheItem[V]
	mutex sync.RWMutex
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// Option configures a MemoryCache
type Option[V any] func(*MemoryCache[V])

// WithClock replaces time.Now, used by tests to move past the TTL
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *MemoryCache[V]) {
		c.now = now
	}
}

// NewMemoryCache creates a new in-memory cache and starts a janitor that
// removes expired entries every cleanupInterval (disabled when <= 0).
func NewMemoryCache[V any](cleanupInterval time.Duration, opts ...Option[V]) *MemoryCache[V] {
	cache := &MemoryCache[V]{
		data: make(map[string]cacheItem[V]),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(cache)
	}

	if cleanupInterval > 0 {
		go cache.cleanupExpired(cleanupInterval)
	}

	return cache
}

// Get retrieves a value from the cache
func (c *MemoryCache[V]) Get(ctx context.Context, key string) (V, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var zero V
	item, exists := c.data[key]
	if !exists {
		return zero, domain.ErrCacheMiss
	}

	if !item.fresh(c.now()) {
		return zero, domain.ErrCacheMiss
	}

	return item.Value, nil
}

// Set stores a value in the cache with TTL, overwriting any previous entry
func (c *MemoryCache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheItem[V]{
		Value:     value,
		CreatedAt: c.now(),
		TTL:       ttl,
	}

	return nil
}

// Clear removes all items from the cache
func (c *MemoryCache[V]) Clear(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem[V])
	return nil
}

// Size returns the current number of items in the cache, expired ones included
func (c *MemoryCache[V]) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Close stops the janitor goroutine
func (c *MemoryCache[V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache[V]) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *MemoryCache[V]) removeExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for key, item := range c.data {
		if !item.fresh(now) {
			delete(c.data, key)
		}
	}
}

var _ domain.RecommendationStore = (*MemoryCache[[]domain.RecommendationResult])(nil)
