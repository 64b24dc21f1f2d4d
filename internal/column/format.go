package column

import (
	"errors"
	"fmt"
)

// Magic identifies a column file.
var Magic = [4]byte{'B', 'S', 'C', 'L'}

const (
	// FormatVersion is the current column file version.
	FormatVersion uint16 = 1

	// HeaderSize is the fixed header length in bytes.
	HeaderSize = 40
)

// ValueType is the physical type of a column.
type ValueType uint8

const (
	TypeInt64   ValueType = 1
	TypeString  ValueType = 2
	TypeFloat64 ValueType = 3
)

func (t ValueType) String() string {
	switch t {
	case TypeInt64:
		return "int64"
	case TypeString:
		return "string"
	case TypeFloat64:
		return "float64"
	default:
		return fmt.Sprintf("ValueType(%d)", uint8(t))
	}
}

// Compression is the payload compression algorithm.
type Compression uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, good for hot data).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd (better ratio, good for cold data).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// ParseCompression parses "none", "lz4" or "zstd". Empty means none.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("column: unknown compression %q", s)
	}
}

var (
	// ErrBadMagic is returned when data is not a column file.
	ErrBadMagic = errors.New("column: invalid magic")
	// ErrUnsupportedVersion is returned for unknown format versions.
	ErrUnsupportedVersion = errors.New("column: unsupported version")
	// ErrTruncated is returned when the file is shorter than its header says.
	ErrTruncated = errors.New("column: truncated")
	// ErrChecksum is returned when the payload checksum does not match.
	ErrChecksum = errors.New("column: checksum mismatch")
	// ErrTypeMismatch is returned when a column is read as the wrong type.
	ErrTypeMismatch = errors.New("column: type mismatch")
)

// Header is the decoded column file header.
type Header struct {
	Version     uint16
	Type        ValueType
	Compression Compression
	Rows        uint64
	RawLen      uint64
	PayloadLen  uint64
	Checksum    uint64
}
