package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the configuration for the memory cache.
type Config struct {
	// DefaultTTL is the default time-to-live for cache entries.
	DefaultTTL time.Duration
	// CleanupInterval is how often the cache runs cleanup. Zero disables the janitor.
	CleanupInterval time.Duration
	// MaxItems is the maximum number of items allowed in the cache.
	MaxItems int
	// OnEviction is called when an item is evicted from the cache.
	OnEviction func(key string, value any)
}

type item struct {
	value      any
	expiration time.Time
}

// Cache is a thread-safe in-memory cache with TTL and a size cap.
type Cache struct {
	data      sync.Map
	config    Config
	itemCount atomic.Int64
	stopChan  chan struct{}
	closeOnce sync.Once
}

// New creates a new memory cache with the given configuration.
func New(config Config) *Cache {
	c := &Cache{
		config:   config,
		stopChan: make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go c.cleanupLoop()
	}
	return c
}

// Set adds a value to the cache with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	c.SetWithTTL(ctx, key, value, c.config.DefaultTTL)
}

// SetWithTTL adds a value to the cache with a custom TTL.
func (c *Cache) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	if _, loaded := c.data.Swap(key, item{value: value, expiration: time.Now().Add(ttl)}); !loaded {
		c.itemCount.Add(1)
	}
	if c.config.MaxItems > 0 && c.itemCount.Load() > int64(c.config.MaxItems) {
		c.evictOldest()
	}
}

// Get retrieves a value from the cache.
func (c *Cache) Get(_ context.Context, key string) (any, bool) {
	raw, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}
	it := raw.(item)
	if time.Now().After(it.expiration) {
		c.remove(key, it)
		return nil, false
	}
	return it.value, true
}

// Delete removes a value from the cache.
func (c *Cache) Delete(_ context.Context, key string) {
	if raw, loaded := c.data.LoadAndDelete(key); loaded {
		c.itemCount.Add(-1)
		if c.config.OnEviction != nil {
			c.config.OnEviction(key, raw.(item).value)
		}
	}
}

// Clear removes all values from the cache.
func (c *Cache) Clear(ctx context.Context) {
	c.data.Range(func(key, _ any) bool {
		c.Delete(ctx, key.(string))
		return true
	})
}

// Size returns the number of items in the cache.
func (c *Cache) Size() int64 {
	return c.itemCount.Load()
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() { close(c.stopChan) })
	return nil
}

func (c *Cache) remove(key string, it item) {
	if c.data.CompareAndDelete(key, it) {
		c.itemCount.Add(-1)
		if c.config.OnEviction != nil {
			c.config.OnEviction(key, it.value)
		}
	}
}

// evictOldest removes the entry closest to expiry.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldest item
	found := false
	c.data.Range(func(key, value any) bool {
		it := value.(item)
		if !found || it.expiration.Before(oldest.expiration) {
			oldestKey, oldest, found = key.(string), it, true
		}
		return true
	})
	if found {
		c.remove(oldestKey, oldest)
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Cache) cleanup() {
	now := time.Now()
	c.data.Range(func(key, value any) bool {
		it := value.(item)
		if now.After(it.expiration) {
			c.remove(key.(string), it)
		}
		return true
	})
}
