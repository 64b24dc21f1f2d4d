// Package bitvector provides a growable bit vector and the padded byte layout
// used to exchange record id sets with clients.
//
// Layout:
//   - 64-bit words, little-endian byte order
//   - bit i of a byte is mask 1<<i (least-significant bit first)
//   - the buffer always ends with one all-zero word past the highest set bit
//
// For a highest set bit h the encoded length is ((h+128)/64)*8 bytes. An empty
// vector encodes to a zero-length buffer. Compression of the encoded bytes is
// applied by the caller (see package codec); this package only deals with raw
// bytes.
package bitvector
