// Package cache implements the in-memory response cache (C5): hierarchical
// tenant/user/provider-scoped keys, TTL expiry, capacity-bounded eviction,
// and a background sweeper. Grounded on the teacher's SessionManager
// map+mutex+ticker shape (internal/mcpserver/server/session.go).
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Key is the hierarchical cache key from spec §4.5:
// (tenant_id, user_id, provider, resource).
type Key struct {
	TenantID string
	UserID   string
	Provider string
	Resource string
}

// String renders the key as a slash-joined path so prefix invalidation
// (tenant/*, tenant/user/*, tenant/user/provider/*) is a plain string
// prefix check.
func (k Key) String() string {
	return strings.Join([]string{k.TenantID, k.UserID, k.Provider, k.Resource}, "/")
}

// Prefix builds the tenant/* or tenant/user/* or tenant/user/provider/*
// invalidation prefixes spec §4.5 names.
func Prefix(parts ...string) string {
	return strings.Join(parts, "/") + "/"
}

type entry struct {
	value      []byte
	insertedAt time.Time
	expiresAt  time.Time
}

// Cache is a capacity-bounded, TTL-expiring, concurrency-safe cache.
// Never fails the caller: Get degrades to a miss on any internal
// inconsistency rather than propagating an error (spec §4.5 failure
// semantics).
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	order      []string // insertion order, oldest first, for eviction
	maxEntries int

	sweepInterval time.Duration
	done          chan struct{}
	closeOnce     sync.Once
}

// Config controls capacity and sweep cadence.
type Config struct {
	MaxEntries    int
	SweepInterval time.Duration // 0 disables the background sweeper
}

// New creates a Cache and starts its background sweeper if configured.
func New(cfg Config) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10_000
	}
	c := &Cache{
		entries:       make(map[string]*entry),
		maxEntries:    cfg.MaxEntries,
		sweepInterval: cfg.SweepInterval,
		done:          make(chan struct{}),
	}
	if cfg.SweepInterval > 0 {
		go c.sweepLoop()
	}
	return c
}

// Set upserts key with value, expiring after ttl.
func (c *Cache) Set(key Key, value []byte, ttl time.Duration) {
	k := key.String()
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[k]; !exists {
		c.order = append(c.order, k)
	}
	c.entries[k] = &entry{value: value, insertedAt: now, expiresAt: now.Add(ttl)}

	if len(c.entries) > c.maxEntries {
		c.evictOldestLocked()
	}
}

// Get returns the cached value, or (nil, false) on miss or expiry.
func (c *Cache) Get(key Key) ([]byte, bool) {
	k := key.String()

	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.Invalidate(key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Exists(key Key) bool {
	_, ok := c.Get(key)
	return ok
}

// TTL returns the remaining time-to-live for key, or 0 if absent/expired.
func (c *Cache) TTL(key Key) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return 0
	}
	if remaining := time.Until(e.expiresAt); remaining > 0 {
		return remaining
	}
	return 0
}

func (c *Cache) Invalidate(key Key) {
	k := key.String()
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, k)
}

// InvalidatePattern removes every entry whose key begins with prefix
// (build prefix with Prefix()).
func (c *Cache) InvalidatePattern(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.order = nil
}

// evictOldestLocked removes the oldest ~10% of entries by insertion order.
// Caller holds c.mu. Soft overshoot between sweeps is acceptable per
// spec §4.5's capacity note; exact LRU is not required.
func (c *Cache) evictOldestLocked() {
	batch := c.maxEntries / 10
	if batch < 1 {
		batch = 1
	}

	evicted := 0
	remaining := c.order[:0]
	for _, k := range c.order {
		if evicted < batch {
			if _, ok := c.entries[k]; ok {
				delete(c.entries, k)
				evicted++
				continue
			}
		}
		remaining = append(remaining, k)
	}
	c.order = remaining
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweepExpired()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) sweepExpired() {
	now := time.Now()
	c.mu.Lock()
	removed := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		log.Debug().Int("count", removed).Msg("cache sweeper removed expired entries")
	}
}

// Close stops the background sweeper. Safe to call more than once.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
