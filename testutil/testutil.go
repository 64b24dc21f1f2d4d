package testutil

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/bitsieve/bitvector"
	"github.com/hupe1980/bitsieve/codec"
	"github.com/hupe1980/bitsieve/model"
)

// Schema is the schema of the generated documents.
var Schema = model.Schema{
	"id":    model.FieldInteger,
	"title": model.FieldString,
	"year":  model.FieldInteger,
	"score": model.FieldFloat,
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// SparseIDs returns n distinct ids in [0, limit) in ascending order.
func (r *RNG) SparseIDs(n int, limit int64) []int64 {
	if int64(n) > limit {
		panic(fmt.Sprintf("testutil: %d ids do not fit below %d", n, limit))
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int64]struct{}, n)
	ids := make([]int64, 0, n)
	for len(ids) < n {
		id := r.rand.Int63n(limit)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Sample returns k distinct elements of ids, keeping their order.
func (r *RNG) Sample(ids []int64, k int) []int64 {
	r.mu.Lock()
	perm := r.rand.Perm(len(ids))
	r.mu.Unlock()

	if k > len(ids) {
		k = len(ids)
	}
	picked := perm[:k]
	slices.Sort(picked)
	out := make([]int64, k)
	for i, p := range picked {
		out[i] = ids[p]
	}
	return out
}

// Documents generates n documents with sparse ids below limit.
func (r *RNG) Documents(n int, limit int64) []model.Document {
	return DocumentsFor(r.SparseIDs(n, limit))
}

// DocumentsFor generates one document of Schema per id.
func DocumentsFor(ids []int64) []model.Document {
	docs := make([]model.Document, len(ids))
	for i, id := range ids {
		docs[i] = model.Document{
			"id":    id,
			"title": Title(id),
			"year":  Year(id),
			"score": float64(id%100) / 10,
		}
	}
	return docs
}

// Title is the title DocumentsFor assigns to id.
func Title(id int64) string { return fmt.Sprintf("doc-%d", id) }

// Year is the year DocumentsFor assigns to id.
func Year(id int64) int64 { return 1950 + id%75 }

// EncodeBitset returns the zlib compressed encoded bit vector of ids.
func EncodeBitset(ids ...int64) []byte {
	v := bitvector.New()
	for _, id := range ids {
		v.Set(uint64(id))
	}
	b, err := codec.NewFastestStream().Compress(bitvector.Encode(v))
	if err != nil {
		panic(err)
	}
	return b
}

// BitsetReader returns EncodeBitset(ids...) as a request body.
func BitsetReader(ids ...int64) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(EncodeBitset(ids...)))
}

// TB is the subset of testing.TB used by the helpers.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// DecodeBitset decompresses and decodes a bitset payload into ids.
func DecodeBitset(t TB, payload []byte) []int64 {
	t.Helper()
	raw, err := codec.NewFastestStream().DecompressBytes(payload)
	if err != nil {
		t.Fatalf("decompress bitset: %v", err)
	}
	var ids []int64
	bitvector.Decode(raw).ForEach(func(p uint64) bool {
		ids = append(ids, int64(p))
		return true
	})
	return ids
}
