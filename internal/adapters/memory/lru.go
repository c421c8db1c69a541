// Package memory provides process-local session and draft stores for
// development and single-instance deployments.
package memory

import (
	"container/list"
	"sync"
	"time"
)

const defaultCapacity = 10_000

// lru is a bounded LRU of encoded records with absolute expiries.
// Methods are safe for concurrent use.
type lru struct {
	mu    sync.Mutex
	cap   int
	ll    *list.List // front = most recently used
	items map[string]*list.Element
	now   func() time.Time
}

type lruEntry struct {
	key     string
	value   []byte
	expires time.Time // zero means no expiry
}

func newLRU(capacity int, now func() time.Time) *lru {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &lru{
		cap:   capacity,
		ll:    list.New(),
		items: make(map[string]*list.Element),
		now:   now,
	}
}

func (c *lru) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	ent := el.Value.(*lruEntry)
	if c.expired(ent) {
		c.remove(el)
		return nil, false
	}
	c.ll.MoveToFront(el)
	return ent.value, true
}

func (c *lru) set(key string, value []byte, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		ent := el.Value.(*lruEntry)
		ent.value = value
		ent.expires = expires
		c.ll.MoveToFront(el)
		return
	}
	c.items[key] = c.ll.PushFront(&lruEntry{key: key, value: value, expires: expires})
	for c.ll.Len() > c.cap {
		c.remove(c.ll.Back())
	}
}

// replace overwrites a live entry and reports whether one existed.
func (c *lru) replace(key string, value []byte, expires time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	ent := el.Value.(*lruEntry)
	if c.expired(ent) {
		c.remove(el)
		return false
	}
	ent.value = value
	ent.expires = expires
	c.ll.MoveToFront(el)
	return true
}

// take removes a live entry and returns its value.
func (c *lru) take(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.remove(el)
	ent := el.Value.(*lruEntry)
	if c.expired(ent) {
		return nil, false
	}
	return ent.value, true
}

func (c *lru) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.remove(el)
	}
}

// keys returns up to limit live keys, most recently used first.
func (c *lru) keys(limit int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for el := c.ll.Front(); el != nil; {
		next := el.Next()
		ent := el.Value.(*lruEntry)
		if c.expired(ent) {
			c.remove(el)
		} else if limit <= 0 || len(out) < limit {
			out = append(out, ent.key)
		}
		el = next
	}
	return out
}

// sweep drops every expired entry and returns how many were removed.
func (c *lru) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.ll.Front(); el != nil; {
		next := el.Next()
		if c.expired(el.Value.(*lruEntry)) {
			c.remove(el)
			removed++
		}
		el = next
	}
	return removed
}

func (c *lru) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// caller must hold c.mu
func (c *lru) expired(e *lruEntry) bool {
	return !e.expires.IsZero() && !c.now().Before(e.expires)
}

// caller must hold c.mu
func (c *lru) remove(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*lruEntry).key)
}
