// Package pwcache holds a vault's unlock password in memory for a
// short, renewable window so a multi-step signer flow doesn't reprompt
// on every call, wiping it on expiry or explicit release (spec §4.5,
// "password handling").
package pwcache

import (
	"sync"
	"time"
)

// DefaultTTL is how long a cached password survives without being
// touched again.
const DefaultTTL = 5 * time.Minute

type entry struct {
	password []byte
	timer    *time.Timer
}

// Cache is a TTL-bounded store of one password per vault ID. It is
// safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
}

// New returns a Cache with ttl as its expiry window. A zero ttl uses
// DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{entries: make(map[string]*entry), ttl: ttl}
}

// Set stores password for vaultID, resetting its expiry timer. Any
// previously cached password for the same ID is wiped first.
func (c *Cache) Set(vaultID, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[vaultID]; ok {
		old.timer.Stop()
		wipe(old.password)
	}

	buf := []byte(password)
	e := &entry{password: buf}
	e.timer = time.AfterFunc(c.ttl, func() { c.Destroy(vaultID) })
	c.entries[vaultID] = e
}

// Get returns the cached password for vaultID and whether it was
// present, without resetting its expiry.
func (c *Cache) Get(vaultID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[vaultID]
	if !ok {
		return "", false
	}
	return string(e.password), true
}

// Touch extends vaultID's expiry by the cache's configured TTL,
// keeping an in-progress multi-step flow from losing its password
// mid-sequence.
func (c *Cache) Touch(vaultID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[vaultID]
	if !ok {
		return false
	}
	e.timer.Stop()
	e.timer = time.AfterFunc(c.ttl, func() { c.Destroy(vaultID) })
	return true
}

// Destroy wipes and removes vaultID's cached password, if any.
func (c *Cache) Destroy(vaultID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[vaultID]
	if !ok {
		return
	}
	e.timer.Stop()
	wipe(e.password)
	delete(c.entries, vaultID)
}

// DestroyAll wipes every cached password, for use on process shutdown
// or an explicit "lock everything" action.
func (c *Cache) DestroyAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, e := range c.entries {
		e.timer.Stop()
		wipe(e.password)
		delete(c.entries, id)
	}
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
