package demo

import (
	"sync"
	"time"
)

// CountCache is a small TTL cache for remaining-count reads.
//
// It only ever serves the display path (GET /api/demo-count); the quota gate
// in Reserve always reads through to the store, so a stale cached count can
// never admit a submission. The cache is an explicit dependency owned by
// whoever composes the handler, not a package global.
type CountCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]countEntry
}

type countEntry struct {
	remaining int
	expires   time.Time
}

// NewCountCache constructs a cache whose entries expire after ttl.
func NewCountCache(ttl time.Duration) *CountCache {
	return &CountCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]countEntry),
	}
}

// Get returns the cached count for email if present and fresh.
func (c *CountCache) Get(email string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[email]
	if !ok {
		return 0, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, email)
		return 0, false
	}
	return e.remaining, true
}

// Set stores the count for email.
func (c *CountCache) Set(email string, remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[email] = countEntry{remaining: remaining, expires: c.now().Add(c.ttl)}
}

// Evict drops the entry for email, if any. Called after a reservation so the
// next read reflects the charge.
func (c *CountCache) Evict(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, email)
}
