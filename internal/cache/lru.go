package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// LRU implements Cache with least-recently-used eviction.
type LRU[K comparable, V any] struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	cost      CostFunc[V]
	items     map[K]*list.Element
	evictList *list.List
	onEvict   func(key K, v V)

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type entry[K comparable, V any] struct {
	key   K
	value V
	cost  int64
}

// LRUOption configures an LRU.
type LRUOption[K comparable, V any] func(*LRU[K, V])

// WithCost sets the cost function. The default charges 1 per entry.
func WithCost[K comparable, V any](fn CostFunc[V]) LRUOption[K, V] {
	return func(c *LRU[K, V]) {
		c.cost = fn
	}
}

// WithEvictCallback registers fn to run for every entry evicted for capacity.
// fn runs with the cache lock held and must not call back into the cache.
func WithEvictCallback[K comparable, V any](fn func(key K, v V)) LRUOption[K, V] {
	return func(c *LRU[K, V]) {
		c.onEvict = fn
	}
}

// NewLRU creates a new LRU cache with the given capacity.
// Capacity is measured by the cost function (entry count by default).
func NewLRU[K comparable, V any](capacity int64, optFns ...LRUOption[K, V]) *LRU[K, V] {
	c := &LRU[K, V]{
		capacity:  capacity,
		cost:      CountCost[V],
		items:     make(map[K]*list.Element),
		evictList: list.New(),
	}
	for _, fn := range optFns {
		fn(c)
	}
	return c
}

// Get returns a cached value.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry[K, V]).value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Put caches a value.
func (c *LRU[K, V]) Put(key K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	itemCost := c.cost(v)

	// If item is larger than capacity, don't cache
	if itemCost > c.capacity {
		if ent, ok := c.items[key]; ok {
			c.removeElement(ent)
		}
		return
	}

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		e := ent.Value.(*entry[K, V])
		c.size += itemCost - e.cost
		e.value = v
		e.cost = itemCost
		c.evict()
		return
	}

	ent := &entry[K, V]{key: key, value: v, cost: itemCost}
	c.items[key] = c.evictList.PushFront(ent)
	c.size += itemCost
	c.evict()
}

// Remove drops a single key.
func (c *LRU[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
	}
}

// Invalidate removes entries matching the predicate.
func (c *LRU[K, V]) Invalidate(predicate func(key K) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Collect first; removeElement modifies the list.
	var toRemove []*list.Element
	for key, element := range c.items {
		if predicate(key) {
			toRemove = append(toRemove, element)
		}
	}

	for _, e := range toRemove {
		c.removeElement(e)
	}
}

// Len returns the number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Size returns the current total cost of the cached entries.
func (c *LRU[K, V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns cache statistics.
func (c *LRU[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (c *LRU[K, V]) evict() {
	for c.size > c.capacity {
		element := c.evictList.Back()
		if element == nil {
			break
		}
		c.removeElement(element)
		c.evictions.Add(1)
		if c.onEvict != nil {
			e := element.Value.(*entry[K, V])
			c.onEvict(e.key, e.value)
		}
	}
}

func (c *LRU[K, V]) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	kv := e.Value.(*entry[K, V])
	delete(c.items, kv.key)
	c.size -= kv.cost
}
