// Package cache provides the bounded, least-recently-used cache that maps a
// span string to its resolved candidates for the duration of one
// annotation batch.
package cache

import (
	"container/list"
)

// DefaultCapacity is the default number of cached span resolutions.
const DefaultCapacity = 10000

// Stats reports cache activity.
type Stats struct {
	Len       int
	Capacity  int
	Hits      int64
	Misses    int64
	Evictions int64
}

type item[V any] struct {
	key        string
	value      V
	lastAccess int64
}

// LRU is a fixed-capacity map with touch-on-read semantics. A stored value
// (including an empty one) is distinguished from an absent key by the
// boolean returned from Get.
//
// LRU is not safe for concurrent use; a batch owns its cache.
type LRU[V any] struct {
	capacity int
	items    map[string]*list.Element
	order    *list.List // front is most recently used
	clock    int64

	hits, misses, evictions int64
}

// New creates a cache holding at most capacity entries. A capacity below 1
// falls back to DefaultCapacity.
func New[V any](capacity int) *LRU[V] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &LRU[V]{
		capacity: capacity,
		items:    make(map[string]*list.Element, min(capacity, 1024)),
		order:    list.New(),
	}
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	el, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.touch(el)
	return el.Value.(*item[V]).value, true
}

// Put stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *LRU[V]) Put(key string, value V) {
	if el, ok := c.items[key]; ok {
		el.Value.(*item[V]).value = value
		c.touch(el)
		return
	}

	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}

	c.clock++
	el := c.order.PushFront(&item[V]{key: key, value: value, lastAccess: c.clock})
	c.items[key] = el
}

// LastAccess returns the access stamp of key, or 0 when absent. Stamps
// increase monotonically with every Get hit and Put.
func (c *LRU[V]) LastAccess(key string) int64 {
	if el, ok := c.items[key]; ok {
		return el.Value.(*item[V]).lastAccess
	}
	return 0
}

// Len returns the number of cached entries.
func (c *LRU[V]) Len() int {
	return c.order.Len()
}

// Clear drops every entry. Counters are kept.
func (c *LRU[V]) Clear() {
	c.items = make(map[string]*list.Element, min(c.capacity, 1024))
	c.order.Init()
}

// Stats returns a snapshot of cache activity.
func (c *LRU[V]) Stats() Stats {
	return Stats{
		Len:       c.order.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (c *LRU[V]) touch(el *list.Element) {
	c.clock++
	el.Value.(*item[V]).lastAccess = c.clock
	c.order.MoveToFront(el)
}

func (c *LRU[V]) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.items, el.Value.(*item[V]).key)
	c.evictions++
}
