package column

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Column is a decoded column. Exactly one value slice is set, matching Type.
type Column struct {
	Type    ValueType
	Ints    []int64
	Strings []string
	Floats  []float64
}

// Int64s returns an int64 column.
func Int64s(v []int64) *Column { return &Column{Type: TypeInt64, Ints: v} }

// Strings returns a string column.
func Strings(v []string) *Column { return &Column{Type: TypeString, Strings: v} }

// Float64s returns a float64 column.
func Float64s(v []float64) *Column { return &Column{Type: TypeFloat64, Floats: v} }

// Len returns the number of rows.
func (c *Column) Len() int {
	switch c.Type {
	case TypeInt64:
		return len(c.Ints)
	case TypeString:
		return len(c.Strings)
	case TypeFloat64:
		return len(c.Floats)
	default:
		return 0
	}
}

// SizeBytes approximates the in-memory footprint of the decoded values.
func (c *Column) SizeBytes() int64 {
	switch c.Type {
	case TypeInt64:
		return int64(len(c.Ints)) * 8
	case TypeFloat64:
		return int64(len(c.Floats)) * 8
	case TypeString:
		n := int64(len(c.Strings)) * 16
		for _, s := range c.Strings {
			n += int64(len(s))
		}
		return n
	default:
		return 0
	}
}

// Encode serializes c into a column file.
func Encode(c *Column, comp Compression) ([]byte, error) {
	raw, err := encodeRaw(c)
	if err != nil {
		return nil, err
	}

	payload, used, err := compress(raw, comp)
	if err != nil {
		return nil, fmt.Errorf("column: compress: %w", err)
	}

	out := make([]byte, HeaderSize+len(payload))
	copy(out[0:4], Magic[:])
	binary.LittleEndian.PutUint16(out[4:], FormatVersion)
	out[6] = byte(c.Type)
	out[7] = byte(used)
	binary.LittleEndian.PutUint64(out[8:], uint64(c.Len()))
	binary.LittleEndian.PutUint64(out[16:], uint64(len(raw)))
	binary.LittleEndian.PutUint64(out[24:], uint64(len(payload)))
	binary.LittleEndian.PutUint64(out[32:], xxhash.Sum64(payload))
	copy(out[HeaderSize:], payload)
	return out, nil
}

func encodeRaw(c *Column) ([]byte, error) {
	switch c.Type {
	case TypeInt64:
		raw := make([]byte, len(c.Ints)*8)
		for i, v := range c.Ints {
			binary.LittleEndian.PutUint64(raw[i*8:], uint64(v))
		}
		return raw, nil
	case TypeFloat64:
		raw := make([]byte, len(c.Floats)*8)
		for i, v := range c.Floats {
			binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
		}
		return raw, nil
	case TypeString:
		var total int
		for _, s := range c.Strings {
			total += len(s)
		}
		if total > math.MaxUint32 {
			return nil, fmt.Errorf("column: string payload too large (%d bytes)", total)
		}
		offsets := (len(c.Strings) + 1) * 4
		raw := make([]byte, offsets, offsets+total)
		var off uint32
		for i, s := range c.Strings {
			binary.LittleEndian.PutUint32(raw[i*4:], off)
			off += uint32(len(s))
			raw = append(raw, s...)
		}
		binary.LittleEndian.PutUint32(raw[len(c.Strings)*4:], off)
		return raw, nil
	default:
		return nil, fmt.Errorf("column: cannot encode %s", c.Type)
	}
}

// ReadHeader decodes and validates the header of a column file.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrTruncated
	}
	if !bytes.Equal(data[0:4], Magic[:]) {
		return Header{}, ErrBadMagic
	}
	h := Header{
		Version:     binary.LittleEndian.Uint16(data[4:]),
		Type:        ValueType(data[6]),
		Compression: Compression(data[7]),
		Rows:        binary.LittleEndian.Uint64(data[8:]),
		RawLen:      binary.LittleEndian.Uint64(data[16:]),
		PayloadLen:  binary.LittleEndian.Uint64(data[24:]),
		Checksum:    binary.LittleEndian.Uint64(data[32:]),
	}
	if h.Version != FormatVersion {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}

// Decode parses a column file.
func Decode(data []byte) (*Column, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)-HeaderSize) < h.PayloadLen {
		return nil, ErrTruncated
	}
	payload := data[HeaderSize : HeaderSize+h.PayloadLen]
	if xxhash.Sum64(payload) != h.Checksum {
		return nil, ErrChecksum
	}

	raw, err := decompress(payload, h.Compression, h.RawLen)
	if err != nil {
		return nil, fmt.Errorf("column: decompress: %w", err)
	}
	return decodeRaw(h, raw)
}

func decodeRaw(h Header, raw []byte) (*Column, error) {
	switch h.Type {
	case TypeInt64:
		if uint64(len(raw)) != h.Rows*8 {
			return nil, ErrTruncated
		}
		v := make([]int64, h.Rows)
		for i := range v {
			v[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		return Int64s(v), nil
	case TypeFloat64:
		if uint64(len(raw)) != h.Rows*8 {
			return nil, ErrTruncated
		}
		v := make([]float64, h.Rows)
		for i := range v {
			v[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		return Float64s(v), nil
	case TypeString:
		offsets := (h.Rows + 1) * 4
		if uint64(len(raw)) < offsets {
			return nil, ErrTruncated
		}
		data := raw[offsets:]
		v := make([]string, h.Rows)
		for i := range v {
			start := binary.LittleEndian.Uint32(raw[i*4:])
			end := binary.LittleEndian.Uint32(raw[(i+1)*4:])
			if start > end || uint64(end) > uint64(len(data)) {
				return nil, ErrTruncated
			}
			v[i] = string(data[start:end])
		}
		return Strings(v), nil
	default:
		return nil, fmt.Errorf("column: unknown value type %d", uint8(h.Type))
	}
}
