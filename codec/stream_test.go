package codec

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bitsieve/bitvector"
)

func TestStream_RoundTripEncodedVector(t *testing.T) {
	s := NewFastestStream()
	assert.Equal(t, zlib.BestSpeed, s.Level())

	raw := bitvector.Encode(bitvector.FromPositions(0))
	require.Len(t, raw, 16)

	compressed, err := s.Compress(raw)
	require.NoError(t, err)

	out, err := s.DecompressBytes(compressed)
	require.NoError(t, err)
	assert.Equal(t, raw, out, "stream must return identical bytes before decode")
	assert.Equal(t, []uint64{0}, bitvector.Decode(out).Positions())
}

func TestStream_EightByteBuffer(t *testing.T) {
	s := NewFastestStream()
	raw := []byte{0x01, 0, 0, 0, 0, 0, 0, 0}

	compressed, err := s.Compress(raw)
	require.NoError(t, err)

	out, err := s.DecompressBytes(compressed)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestStream_EmptyPayload(t *testing.T) {
	s := NewFastestStream()

	out, err := s.Decompress(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Len(t, out, 0)

	// A compressed empty buffer decodes to empty as well
	compressed, err := s.Compress(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, compressed)

	out, err = s.DecompressBytes(compressed)
	require.NoError(t, err)
	assert.Len(t, out, 0)
	assert.True(t, bitvector.Decode(out).IsEmpty())
}

func TestStream_Corrupt(t *testing.T) {
	s := NewFastestStream()

	_, err := s.DecompressBytes([]byte("definitely not zlib"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptStream))

	good, err := s.Compress(bytes.Repeat([]byte{0xAB}, 4096))
	require.NoError(t, err)
	_, err = s.DecompressBytes(good[:len(good)/2])
	assert.ErrorIs(t, err, ErrCorruptStream)
}

func TestStream_MaxDecompressedBytes(t *testing.T) {
	s := NewFastestStream(WithMaxDecompressedBytes(1024))

	small, err := s.Compress(make([]byte, 1024))
	require.NoError(t, err)
	out, err := s.DecompressBytes(small)
	require.NoError(t, err)
	assert.Len(t, out, 1024)

	big, err := s.Compress(make([]byte, 1025))
	require.NoError(t, err)
	_, err = s.DecompressBytes(big)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestStream_Concurrent(t *testing.T) {
	s := NewFastestStream()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := bitvector.New()
			for j := 0; j < 100; j++ {
				v.Set(uint64(i*1000 + j*7))
			}
			raw := bitvector.Encode(v)
			c, err := s.Compress(raw)
			if !assert.NoError(t, err) {
				return
			}
			out, err := s.DecompressBytes(c)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, raw, out)
		}(i)
	}
	wg.Wait()
}
