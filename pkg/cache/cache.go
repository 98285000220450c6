// Package cache implements the content-addressed response cache for agent
// outputs. Keys are digests of (agent name, canonical input); values are the
// serialized outputs. Every operation is best-effort: store failures log a
// warning and degrade to a miss.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Store is the backing key/value store. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// ResponseCache caches agent outputs under content-addressed keys.
type ResponseCache struct {
	store   Store
	prefix  string
	ttl     time.Duration
	enabled bool
	logger  *slog.Logger
}

// Options configures a ResponseCache.
type Options struct {
	Prefix string
	TTL    time.Duration
}

// New creates an enabled cache over the given store.
func New(store Store, opts Options, logger *slog.Logger) *ResponseCache {
	if opts.Prefix == "" {
		opts.Prefix = "agent"
	}
	if opts.TTL == 0 {
		opts.TTL = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseCache{
		store:   store,
		prefix:  opts.Prefix,
		ttl:     opts.TTL,
		enabled: true,
		logger:  logger,
	}
}

// Disabled returns a cache on which every lookup misses and every store is a
// no-op.
func Disabled() *ResponseCache {
	return &ResponseCache{enabled: false, logger: slog.Default()}
}

// Enabled reports whether the cache is active.
func (c *ResponseCache) Enabled() bool {
	return c.enabled
}

// Get looks up the cached output for an agent input. A nil second return
// means miss; store failures are logged and reported as a miss.
func (c *ResponseCache) Get(ctx context.Context, agent string, input any) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}

	key, err := Key(c.prefix, agent, input)
	if err != nil {
		c.logger.Warn("cache key derivation failed", "agent", agent, "error", err)
		return nil, false
	}

	value, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache get failed, treating as miss", "agent", agent, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	c.logger.Debug("cache hit", "agent", agent, "key", key)
	return value, true
}

// Set stores an agent output under its content-addressed key.
func (c *ResponseCache) Set(ctx context.Context, agent string, input any, value []byte) {
	if !c.enabled {
		return
	}

	key, err := Key(c.prefix, agent, input)
	if err != nil {
		c.logger.Warn("cache key derivation failed", "agent", agent, "error", err)
		return
	}

	if err := c.store.Set(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("cache set failed", "agent", agent, "error", err)
	}
}

// Invalidate removes the entry for one input, or every entry for the agent
// when input is nil.
func (c *ResponseCache) Invalidate(ctx context.Context, agent string, input any) {
	if !c.enabled {
		return
	}

	if input == nil {
		prefix := fmt.Sprintf("%s:%s:", c.prefix, agent)
		n, err := c.store.DeletePrefix(ctx, prefix)
		if err != nil {
			c.logger.Warn("cache invalidation failed", "agent", agent, "error", err)
			return
		}
		c.logger.Debug("cache invalidated", "agent", agent, "entries", n)
		return
	}

	key, err := Key(c.prefix, agent, input)
	if err != nil {
		c.logger.Warn("cache key derivation failed", "agent", agent, "error", err)
		return
	}
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("cache invalidation failed", "agent", agent, "error", err)
	}
}

// Ping checks store reachability; used by the health endpoint.
func (c *ResponseCache) Ping(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	return c.store.Ping(ctx)
}

// Close releases the underlying store.
func (c *ResponseCache) Close() error {
	if !c.enabled || c.store == nil {
		return nil
	}
	return c.store.Close()
}
