package blobstore

import (
	"context"
	"sync"

	"github.com/hupe1980/bitsieve/internal/cache"
)

// CachingStore wraps a BlobStore and caches whole blob contents.
//
// Column files are immutable once written and read in full, so a blob-level
// cache removes repeated remote round trips when segments are reopened after
// a refresh. Names registered with WithUncached are mutable and always read
// through.
type CachingStore struct {
	inner    BlobStore
	cache    *cache.LRU[string, []byte]
	uncached map[string]struct{}

	// inflight collapses concurrent misses for the same name.
	mu       sync.Mutex
	inflight map[string]*fetch
}

type fetch struct {
	done chan struct{}
	data []byte
	err  error
}

// CachingOption configures a CachingStore.
type CachingOption func(*CachingStore)

// WithUncached reads the given names through on every Open.
func WithUncached(names ...string) CachingOption {
	return func(s *CachingStore) {
		for _, n := range names {
			s.uncached[n] = struct{}{}
		}
	}
}

// NewCachingStore creates a new CachingStore with a capacity in bytes.
func NewCachingStore(inner BlobStore, capacityBytes int64, optFns ...CachingOption) *CachingStore {
	s := &CachingStore{
		inner: inner,
		cache: cache.NewLRU[string, []byte](capacityBytes,
			cache.WithCost[string, []byte](func(b []byte) int64 { return int64(len(b)) })),
		uncached: make(map[string]struct{}),
		inflight: make(map[string]*fetch),
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// Open returns the cached contents of name, fetching them on a miss.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if _, ok := s.uncached[name]; ok {
		return s.inner.Open(ctx, name)
	}
	if data, ok := s.cache.Get(name); ok {
		return &bytesBlob{data: data}, nil
	}

	s.mu.Lock()
	if f, ok := s.inflight[name]; ok {
		s.mu.Unlock()
		select {
		case <-f.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if f.err != nil {
			return nil, f.err
		}
		return &bytesBlob{data: f.data}, nil
	}
	f := &fetch{done: make(chan struct{})}
	s.inflight[name] = f
	s.mu.Unlock()

	f.data, f.err = Get(ctx, s.inner, name)
	if f.err == nil {
		s.cache.Put(name, f.data)
	}

	s.mu.Lock()
	delete(s.inflight, name)
	s.mu.Unlock()
	close(f.done)

	if f.err != nil {
		return nil, f.err
	}
	return &bytesBlob{data: f.data}, nil
}

// Put writes through and drops any cached copy.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Remove(name)
	return s.inner.Put(ctx, name, data)
}

// Delete deletes through and drops any cached copy.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Remove(name)
	return s.inner.Delete(ctx, name)
}

// List is not cached.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Stats returns the statistics of the underlying cache.
func (s *CachingStore) Stats() cache.Stats {
	return s.cache.Stats()
}
