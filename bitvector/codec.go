package bitvector

import (
	"encoding/binary"
)

// wordBytes is the width of one encoded word.
const wordBytes = 8

// EncodedLen returns the encoded size in bytes of a vector whose highest set
// position is highest: ((highest + 128) / 64) * 8.
//
// The extra 64 bits reserve one all-zero word beyond the last word holding
// data, so a "next set bit" scan over the decoded buffer runs off real content
// before it runs off the buffer. The value is part of the wire contract.
func EncodedLen(highest uint64) uint64 {
	return ((highest + 2*wordBits) / wordBits) * wordBytes
}

// Encode returns the padded byte layout of v.
// An empty vector encodes to a zero-length buffer.
func Encode(v *BitVector) []byte {
	return AppendEncode(nil, v)
}

// AppendEncode appends the padded byte layout of v to dst.
func AppendEncode(dst []byte, v *BitVector) []byte {
	highest := v.Highest()
	if highest < 0 {
		if dst == nil {
			return []byte{}
		}
		return dst
	}

	n := int(EncodedLen(uint64(highest)))
	off := len(dst)
	if cap(dst)-off < n {
		grown := make([]byte, off, off+n)
		copy(grown, dst)
		dst = grown
	}
	dst = dst[:off+n]
	buf := dst[off:]
	clear(buf)

	lastWord := int(highest >> wordShift)
	for i := 0; i <= lastWord; i++ {
		binary.LittleEndian.PutUint64(buf[i*wordBytes:], v.words[i])
	}
	return dst
}

// Decode reads the byte layout produced by Encode.
//
// The addressable bit space is len(b)*8; every on bit is copied. Buffers that
// are not word aligned are accepted. A nil or empty buffer decodes to an empty
// vector.
func Decode(b []byte) *BitVector {
	if len(b) == 0 {
		return New()
	}

	v := &BitVector{words: make([]uint64, (len(b)+wordBytes-1)/wordBytes)}
	full := len(b) / wordBytes
	for i := 0; i < full; i++ {
		v.words[i] = binary.LittleEndian.Uint64(b[i*wordBytes:])
	}

	// Tail bytes of a non-aligned buffer
	for j, c := range b[full*wordBytes:] {
		v.words[full] |= uint64(c) << (uint(j) * 8)
	}
	return v
}
