package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreLifecycle(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	data := []byte("hello world, this is a test column")
	require.NoError(t, store.Put(ctx, "seg-000001/title.col", data))
	require.NoError(t, store.Put(ctx, "seg-000001/id.col", []byte("ids")))
	require.NoError(t, store.Put(ctx, "MANIFEST-000001", []byte("{}")))

	blob, err := store.Open(ctx, "seg-000001/title.col")
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))

	n, err = blob.ReadAt(ctx, buf, int64(len(data))-2)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)

	all, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, data, all)

	names, err := store.List(ctx, "seg-000001/")
	require.NoError(t, err)
	assert.Equal(t, []string{"seg-000001/id.col", "seg-000001/title.col"}, names)

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, names, 3)

	// Overwrite
	require.NoError(t, store.Put(ctx, "MANIFEST-000001", []byte(`{"id":1}`)))
	got, err := Get(ctx, store, "MANIFEST-000001")
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(got))

	require.NoError(t, store.Delete(ctx, "MANIFEST-000001"))
	require.NoError(t, store.Delete(ctx, "MANIFEST-000001"), "deleting a missing blob is not an error")

	_, err = store.Open(ctx, "MANIFEST-000001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_Lifecycle(t *testing.T) {
	testStoreLifecycle(t, NewLocalStore(t.TempDir()))
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	testStoreLifecycle(t, NewMemoryStore())
}

func TestCachingStore_Lifecycle(t *testing.T) {
	testStoreLifecycle(t, NewCachingStore(NewMemoryStore(), 1<<20))
}

func TestLocalStore_Layout(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "seg-000002/year.col", []byte{1, 2, 3}))

	fi, err := os.Stat(filepath.Join(root, "seg-000002", "year.col"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), fi.Size())

	entries, err := os.ReadDir(filepath.Join(root, "seg-000002"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")

	empty, err := NewLocalStore(filepath.Join(root, "missing")).List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLocalStore_EmptyBlob(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "empty", nil))

	data, err := Get(ctx, store, "empty")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestMemoryStore_PutCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	data := []byte("abc")
	require.NoError(t, store.Put(ctx, "k", data))
	data[0] = 'x'

	got, err := Get(ctx, store, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

type countingStore struct {
	BlobStore
	opens atomic.Int64
}

func (c *countingStore) Open(ctx context.Context, name string) (Blob, error) {
	c.opens.Add(1)
	return c.BlobStore.Open(ctx, name)
}

func TestCachingStore_Hits(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{BlobStore: NewMemoryStore()}
	store := NewCachingStore(inner, 1<<20)

	require.NoError(t, store.Put(ctx, "seg-000001/id.col", []byte("payload")))

	for i := 0; i < 5; i++ {
		data, err := Get(ctx, store, "seg-000001/id.col")
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	}
	assert.Equal(t, int64(1), inner.opens.Load())

	stats := store.Stats()
	assert.Equal(t, int64(4), stats.Hits)

	// Put invalidates
	require.NoError(t, store.Put(ctx, "seg-000001/id.col", []byte("updated")))
	data, err := Get(ctx, store, "seg-000001/id.col")
	require.NoError(t, err)
	assert.Equal(t, "updated", string(data))
	assert.Equal(t, int64(2), inner.opens.Load())
}

func TestCachingStore_Uncached(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{BlobStore: NewMemoryStore()}
	store := NewCachingStore(inner, 1<<20, WithUncached("CURRENT"))

	require.NoError(t, inner.Put(ctx, "CURRENT", []byte("MANIFEST-000001")))
	data, err := Get(ctx, store, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "MANIFEST-000001", string(data))

	// A writer behind the cache moves the pointer.
	require.NoError(t, inner.Put(ctx, "CURRENT", []byte("MANIFEST-000002")))
	data, err = Get(ctx, store, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "MANIFEST-000002", string(data))
	assert.Equal(t, int64(2), inner.opens.Load())
}

func TestCachingStore_ConcurrentMiss(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{BlobStore: NewMemoryStore()}
	require.NoError(t, inner.Put(ctx, "blob", []byte("shared")))
	store := NewCachingStore(inner, 1<<20)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := Get(ctx, store, "blob")
			assert.NoError(t, err)
			assert.Equal(t, "shared", string(data))
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, inner.opens.Load(), int64(16))
	_, err := store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFaultyStore(t *testing.T) {
	ctx := context.Background()
	store := NewFaultyStore(NewMemoryStore())

	require.NoError(t, store.Put(ctx, "seg-000001/title.col", []byte("ok")))
	require.NoError(t, store.Put(ctx, "seg-000001/id.col", []byte("ok")))

	boom := errors.New("disk on fire")
	store.AddRule("title.col", Fault{FailRead: true, Err: boom})
	store.AddRule("id.col", Fault{FailOpen: true})

	blob, err := store.Open(ctx, "seg-000001/title.col")
	require.NoError(t, err)
	_, err = ReadAll(ctx, blob)
	assert.ErrorIs(t, err, boom)

	_, err = store.Open(ctx, "seg-000001/id.col")
	assert.ErrorIs(t, err, ErrInjected)

	store.AddRule("MANIFEST", Fault{FailPut: true})
	assert.ErrorIs(t, store.Put(ctx, "MANIFEST-000001", nil), ErrInjected)

	store.ClearRules()
	data, err := Get(ctx, store, "seg-000001/title.col")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
}
