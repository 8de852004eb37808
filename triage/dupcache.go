package triage

import (
	"container/list"
	"sync"
)

// dupCache is the bounded set of recently-seen content hashes the
// triage tier uses for duplicate detection (§4.2): capacity ≤ 10,000,
// evict by oldest, guarded by a single mutex since the operation is
// O(1) and contention is acceptable (§5).
//
// No corpus example wires a dedicated LRU library for a cache this
// small and internal; container/list is the stdlib building block the
// ecosystem itself reaches for here (see DESIGN.md).
type dupCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[string]*list.Element
}

func newDupCache(capacity int) *dupCache {
	return &dupCache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element),
	}
}

// SeenOrAdd reports whether hash was already present, and inserts it
// if not, evicting the oldest entry once over capacity.
func (c *dupCache) SeenOrAdd(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[hash]; ok {
		return true
	}

	elem := c.order.PushBack(hash)
	c.index[hash] = elem

	if c.order.Len() > c.capacity {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.index, oldest.Value.(string))
		}
	}
	return false
}

// Len reports the current number of entries, for tests.
func (c *dupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
