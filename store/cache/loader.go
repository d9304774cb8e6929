package cache

import (
	"context"
	"time"
)

// Fetcher loads a value from the database when the memory tier misses.
type Fetcher func(ctx context.Context, key string) (any, error)

// LoadingCache fronts the database with the memory cache:
// memory first, then the fetcher, whose result is kept for later reads.
type LoadingCache struct {
	memory *Cache
}

// LoadingCacheConfig holds the configuration for the loading cache.
type LoadingCacheConfig struct {
	MaxItems int           // Max items in memory
	TTL      time.Duration // TTL for memory entries
}

// DefaultLoadingConfig returns the default loading cache configuration.
func DefaultLoadingConfig() *LoadingCacheConfig {
	return &LoadingCacheConfig{
		MaxItems: 1000,
		TTL:      10 * time.Minute,
	}
}

// NewLoadingCache creates a new loading cache.
func NewLoadingCache(config *LoadingCacheConfig) *LoadingCache {
	if config == nil {
		config = DefaultLoadingConfig()
	}
	return &LoadingCache{
		memory: New(Config{
			DefaultTTL:      config.TTL,
			CleanupInterval: time.Minute,
			MaxItems:        config.MaxItems,
		}),
	}
}

// Get returns the cached value, loading it through fetcher on a miss.
// Fetch errors are returned and nothing is cached.
func (l *LoadingCache) Get(ctx context.Context, key string, fetcher Fetcher) (any, error) {
	if value, found := l.memory.Get(ctx, key); found {
		return value, nil
	}
	value, err := fetcher(ctx, key)
	if err != nil {
		return nil, err
	}
	if value != nil {
		l.memory.Set(ctx, key, value)
	}
	return value, nil
}

// Set stores a value.
func (l *LoadingCache) Set(ctx context.Context, key string, value any) {
	l.memory.Set(ctx, key, value)
}

// Invalidate removes a value so the next Get reloads it.
func (l *LoadingCache) Invalidate(ctx context.Context, key string) {
	l.memory.Delete(ctx, key)
}

// Clear drops every cached value.
func (l *LoadingCache) Clear(ctx context.Context) {
	l.memory.Clear(ctx)
}

// Size returns the number of cached values.
func (l *LoadingCache) Size() int64 {
	return l.memory.Size()
}

// Close stops the memory janitor.
func (l *LoadingCache) Close() error {
	return l.memory.Close()
}
