package dashboard

import (
	"sync"
	"time"

	"github.com/brandpulse/brandpulse-bot/internal/models"
)

type cacheEntry struct {
	snapshot  models.DashboardSnapshot
	expiresAt time.Time
}

// Cache holds recently computed snapshots per scope for a bounded
// staleness window. Concurrent writers for the same scope race benignly;
// the last completed computation wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a snapshot cache with the given staleness bound
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached snapshot for a scope if it has not expired
func (c *Cache) Get(scope string) (models.DashboardSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[scope]
	if !ok || c.now().After(entry.expiresAt) {
		return models.DashboardSnapshot{}, false
	}
	return entry.snapshot, true
}

// Put stores a snapshot for a scope, restarting its staleness window
func (c *Cache) Put(scope string, snapshot models.DashboardSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[scope] = cacheEntry{
		snapshot:  snapshot,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Len returns the number of cached scopes, expired entries included
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
