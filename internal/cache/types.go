package cache

// Cache is a keyed cache with get/put semantics.
// Implementations must be safe for concurrent use.
type Cache[K comparable, V any] interface {
	// Get returns a cached value. ok=false if missing.
	Get(key K) (v V, ok bool)
	// Put caches a value, replacing any existing value for key.
	Put(key K, v V)
	// Remove drops a single key.
	Remove(key K)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key K) bool)
	// Len returns the number of entries.
	Len() int
	// Stats returns cache statistics.
	Stats() Stats
}

// Stats are cumulative counters of a cache.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// CostFunc returns the cost of a value against the cache capacity.
type CostFunc[V any] func(v V) int64

// CountCost charges every entry a cost of 1, so capacity is an entry count.
func CountCost[V any](V) int64 { return 1 }
