package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_GetPut(t *testing.T) {
	c := NewLRU[string, int](2)

	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// "b" is now least recently used
	c.Put("c", 3)
	_, ok = c.Get("b")
	assert.False(t, ok, "b should have been evicted")

	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(3), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_Replace(t *testing.T) {
	c := NewLRU[string, []byte](100, WithCost[string, []byte](func(b []byte) int64 { return int64(len(b)) }))

	c.Put("k", make([]byte, 10))
	assert.Equal(t, int64(10), c.Size())

	c.Put("k", make([]byte, 20))
	assert.Equal(t, int64(20), c.Size())

	c.Put("k", make([]byte, 5))
	assert.Equal(t, int64(5), c.Size())
	assert.Equal(t, 1, c.Len())
}

func TestLRU_ItemLargerThanCapacity(t *testing.T) {
	c := NewLRU[string, []byte](50, WithCost[string, []byte](func(b []byte) int64 { return int64(len(b)) }))

	c.Put("big", make([]byte, 60))
	_, ok := c.Get("big")
	assert.False(t, ok, "Item > capacity should not be cached")

	c.Put("k", make([]byte, 10))
	c.Put("k", make([]byte, 60))
	_, ok = c.Get("k")
	assert.False(t, ok, "oversized replacement drops the old value")
	assert.Equal(t, int64(0), c.Size())
}

func TestLRU_Invalidate(t *testing.T) {
	var evicted []string
	c := NewLRU[string, int](10, WithEvictCallback[string, int](func(k string, _ int) {
		evicted = append(evicted, k)
	}))

	c.Put("gen-1", 1)
	c.Put("gen-2", 2)
	c.Put("gen-3", 3)

	c.Invalidate(func(k string) bool { return k != "gen-3" })
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("gen-3")
	assert.True(t, ok)

	c.Remove("gen-3")
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, evicted, "explicit invalidation is not an eviction")
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int, int](64)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				c.Put(i%128, g)
				c.Get((i + g) % 128)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 64)
}
