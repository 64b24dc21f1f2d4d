package bitvector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitVector(t *testing.T) {
	v := New()
	assert.True(t, v.IsEmpty())
	assert.Equal(t, int64(-1), v.Highest())
	assert.Equal(t, uint64(0), v.Len())

	v.Set(10)
	v.Set(20)
	v.Set(640)

	assert.True(t, v.Test(10))
	assert.True(t, v.Test(640))
	assert.False(t, v.Test(11))
	assert.False(t, v.Test(1<<40), "out of range reads are off")
	assert.Equal(t, 3, v.Count())
	assert.Equal(t, int64(640), v.Highest())
	assert.Equal(t, uint64(641), v.Len())
	assert.Equal(t, []uint64{10, 20, 640}, v.Positions())
}

func TestBitVector_NextSetBit(t *testing.T) {
	v := FromPositions(0, 63, 64, 1000)

	tests := []struct {
		from uint64
		want int64
	}{
		{0, 0},
		{1, 63},
		{63, 63},
		{64, 64},
		{65, 1000},
		{1000, 1000},
		{1001, -1},
		{1 << 30, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, v.NextSetBit(tt.from), "NextSetBit(%d)", tt.from)
	}

	var walked []uint64
	for p := v.NextSetBit(0); p >= 0; p = v.NextSetBit(uint64(p) + 1) {
		walked = append(walked, uint64(p))
	}
	assert.Equal(t, v.Positions(), walked)
}

func TestBitVector_GrowKeepsBits(t *testing.T) {
	v := WithCapacity(10)
	v.Set(5)
	v.Set(99999)

	assert.True(t, v.Test(5), "expected bit 5 to persist after grow")
	assert.True(t, v.Test(99999))
	assert.Equal(t, 2, v.Count())
}

func TestBitVector_Equal(t *testing.T) {
	a := FromPositions(1, 2, 3)
	b := WithCapacity(10000)
	b.Set(3)
	b.Set(1)
	b.Set(2)

	assert.True(t, a.Equal(b), "capacity must not affect equality")
	assert.True(t, b.Equal(a))

	b.Set(5000)
	assert.False(t, a.Equal(b))
	assert.True(t, New().Equal(WithCapacity(128)))
}

func TestBitVector_ForEachStops(t *testing.T) {
	v := FromPositions(1, 5, 9)

	var seen []uint64
	v.ForEach(func(p uint64) bool {
		seen = append(seen, p)
		return len(seen) < 2
	})
	require.Len(t, seen, 2)
	assert.Equal(t, []uint64{1, 5}, seen)
}
