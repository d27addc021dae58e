package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL matches the five-minute expiry the dashboard relies on.
const DefaultTTL = 5 * time.Minute

type entry struct {
	payload  interface{}
	storedAt time.Time
}

// Cache is a process-wide in-memory TTL cache keyed by "kind" or
// "kind:scope" (e.g. "lectures:<courseId>"). It is a derived, disposable
// view: discarding it never loses data, only forces a re-read through the
// data store.
//
// Each key carries a logical sequence number, bumped on every Set and
// Invalidate. Readers snapshot the sequence before starting a fetch and
// store the result with SetIfCurrent, so a late-arriving remote response
// cannot overwrite a newer entry with stale data.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
	seqs    map[string]uint64
}

// New returns a cache with the given TTL and clock. A nil clock uses
// time.Now.
func New(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]entry),
		seqs:    make(map[string]uint64),
	}
}

// Key builds a cache key from a kind and an optional scope.
func Key(kind, scope string) string {
	if scope == "" {
		return kind
	}
	return kind + ":" + scope
}

// Get returns the cached payload if the entry exists and has not expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.payload, true
}

// Seq returns the current sequence number for a key. The key is
// materialized so a later Invalidate bumps it even before any Set.
func (c *Cache) Seq(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seqs[key]; !ok {
		c.seqs[key] = 0
	}
	return c.seqs[key]
}

// Set stores the payload with the current time and bumps the key's
// sequence number.
func (c *Cache) Set(key string, payload interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{payload: payload, storedAt: c.now()}
	c.seqs[key]++
}

// SetIfCurrent stores the payload only if the key's sequence number still
// matches seq, i.e. no Set or Invalidate happened since the caller
// snapshotted it. Reports whether the write was applied.
func (c *Cache) SetIfCurrent(key string, seq uint64, payload interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seqs[key] != seq {
		return false
	}
	c.entries[key] = entry{payload: payload, storedAt: c.now()}
	c.seqs[key]++
	return true
}

// Invalidate removes every entry for the kind, including all scoped
// variants. Invalidating a kind with no entries is a no-op, and
// invalidating twice equals invalidating once.
func (c *Cache) Invalidate(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := kind + ":"
	for key := range c.entries {
		if key == kind || strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			c.seqs[key]++
		}
	}
	// Keys with in-flight fetches may have a sequence but no entry yet;
	// bump those too so their late writes are discarded.
	for key := range c.seqs {
		if _, live := c.entries[key]; live {
			continue
		}
		if key == kind || strings.HasPrefix(key, prefix) {
			c.seqs[key]++
		}
	}
}

// Len reports the number of live entries. Used by tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
