package bitvector

import (
	"math/bits"
)

const (
	wordBits  = 64
	wordShift = 6
	wordMask  = wordBits - 1
)

// BitVector is a growable set of non-negative positions.
//
// BitVector is NOT thread-safe. Vectors are built by a single goroutine and
// then only read.
type BitVector struct {
	words []uint64
}

// New creates an empty BitVector.
func New() *BitVector {
	return &BitVector{}
}

// WithCapacity creates an empty BitVector able to hold positions [0, n)
// without growing.
func WithCapacity(n uint64) *BitVector {
	return &BitVector{words: make([]uint64, wordsFor(n))}
}

// FromPositions creates a BitVector with the given positions set.
func FromPositions(positions ...uint64) *BitVector {
	v := New()
	for _, p := range positions {
		v.Set(p)
	}
	return v
}

func wordsFor(n uint64) int {
	return int((n + wordMask) >> wordShift)
}

// Set marks position p. Capacity grows as needed; the vector never shrinks.
func (v *BitVector) Set(p uint64) {
	wordIdx := int(p >> wordShift)
	if wordIdx >= len(v.words) {
		v.grow(wordIdx + 1)
	}
	v.words[wordIdx] |= uint64(1) << (p & wordMask)
}

// Test reports whether position p is set. Positions past the capacity are off.
func (v *BitVector) Test(p uint64) bool {
	wordIdx := p >> wordShift
	if wordIdx >= uint64(len(v.words)) {
		return false
	}
	return v.words[wordIdx]&(uint64(1)<<(p&wordMask)) != 0
}

// NextSetBit returns the first set position at or after p.
// Returns -1 if no bit is set at or after p.
func (v *BitVector) NextSetBit(p uint64) int64 {
	wordIdx := p >> wordShift
	if wordIdx >= uint64(len(v.words)) {
		return -1
	}

	// Mask out bits before p in the first word
	w := v.words[wordIdx] & (^uint64(0) << (p & wordMask))
	for {
		if w != 0 {
			return int64(wordIdx<<wordShift) + int64(bits.TrailingZeros64(w))
		}
		wordIdx++
		if wordIdx >= uint64(len(v.words)) {
			return -1
		}
		w = v.words[wordIdx]
	}
}

// Highest returns the highest set position, or -1 if the vector is empty.
func (v *BitVector) Highest() int64 {
	for i := len(v.words) - 1; i >= 0; i-- {
		if w := v.words[i]; w != 0 {
			return int64(i)<<wordShift + int64(wordMask-bits.LeadingZeros64(w))
		}
	}
	return -1
}

// Len returns the logical length: highest set position + 1, or 0 if empty.
func (v *BitVector) Len() uint64 {
	return uint64(v.Highest() + 1)
}

// IsEmpty reports whether no position is set.
func (v *BitVector) IsEmpty() bool {
	return v.Highest() < 0
}

// Count returns the number of set positions.
func (v *BitVector) Count() int {
	n := 0
	for _, w := range v.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// ForEach calls fn for every set position in ascending order.
// Iteration stops early when fn returns false.
func (v *BitVector) ForEach(fn func(p uint64) bool) {
	for i, w := range v.words {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			if !fn(uint64(i)<<wordShift + uint64(tz)) {
				return
			}
			w &= w - 1
		}
	}
}

// Positions returns all set positions in ascending order.
func (v *BitVector) Positions() []uint64 {
	out := make([]uint64, 0, v.Count())
	v.ForEach(func(p uint64) bool {
		out = append(out, p)
		return true
	})
	return out
}

// Equal reports whether both vectors have exactly the same set positions,
// regardless of their capacities.
func (v *BitVector) Equal(o *BitVector) bool {
	a, b := v.words, o.words
	if len(a) < len(b) {
		a, b = b, a
	}
	for i := range a {
		var w uint64
		if i < len(b) {
			w = b[i]
		}
		if a[i] != w {
			return false
		}
	}
	return true
}

func (v *BitVector) grow(newLen int) {
	newCap := len(v.words) * 2
	if newCap < newLen {
		newCap = newLen
	}

	newWords := make([]uint64, newCap)
	copy(newWords, v.words)
	v.words = newWords
}
