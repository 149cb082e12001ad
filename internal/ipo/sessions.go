package ipo

import (
	"sync"
	"time"
)

// SessionCache correlates a client-supplied ID with the upstream captcha
// session cookies. It is bounded in both directions: entries expire after
// ttl, and when the cap is hit the oldest entry is evicted. The checker
// invalidates sessions aggressively, so nothing here needs to live long.
type SessionCache struct {
	mu      sync.Mutex
	entries map[string]sessionEntry
	ttl     time.Duration
	cap     int
	now     func() time.Time
}

type sessionEntry struct {
	cookies []string
	created time.Time
}

// NewSessionCache creates a cache holding at most capacity sessions for ttl.
func NewSessionCache(capacity int, ttl time.Duration) *SessionCache {
	return &SessionCache{
		entries: make(map[string]sessionEntry),
		ttl:     ttl,
		cap:     capacity,
		now:     time.Now,
	}
}

// Put stores the cookies for a session ID, evicting expired entries and, if
// still over capacity, the oldest one.
func (c *SessionCache) Put(id string, cookies []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.created) > c.ttl {
			delete(c.entries, k)
		}
	}
	if len(c.entries) >= c.cap {
		var oldest string
		var oldestAt time.Time
		for k, e := range c.entries {
			if oldest == "" || e.created.Before(oldestAt) {
				oldest, oldestAt = k, e.created
			}
		}
		delete(c.entries, oldest)
	}
	c.entries[id] = sessionEntry{cookies: cookies, created: now}
}

// Get returns the cookies for id, or false when absent or expired.
func (c *SessionCache) Get(id string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.created) > c.ttl {
		delete(c.entries, id)
		return nil, false
	}
	return e.cookies, true
}

// Delete drops a session, forcing the client to reload the captcha.
func (c *SessionCache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Len reports the number of cached sessions, expired ones included.
func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
