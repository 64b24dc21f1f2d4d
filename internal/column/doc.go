// Package column implements the column file format backing segment accessors.
//
// Every segment stores one column file per field. A column file is a fixed
// header followed by a single (optionally compressed) payload block:
//
//	Header (40 bytes, little endian):
//	  Magic       (4 bytes) - "BSCL"
//	  Version     (2 bytes) - format version (currently 1)
//	  Type        (1 byte)  - int64 | string | float64
//	  Compression (1 byte)  - none | lz4 | zstd
//	  Rows        (8 bytes) - number of values
//	  RawLen      (8 bytes) - uncompressed payload length
//	  PayloadLen  (8 bytes) - stored payload length
//	  Checksum    (8 bytes) - xxhash64 of the stored payload
//
// Payload encodings:
//
//	int64, float64: Rows * 8 bytes
//	string:         (Rows+1) uint32 offsets, then the concatenated bytes
//
// A value missing from a document is stored as the type's zero value.
package column
