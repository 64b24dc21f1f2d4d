package codec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

var (
	// ErrTooLarge is returned when a decompressed payload exceeds the stream limit.
	ErrTooLarge = errors.New("codec: decompressed payload exceeds limit")

	// ErrCorruptStream is returned when the payload is not a valid zlib stream.
	ErrCorruptStream = errors.New("codec: corrupt zlib stream")
)

// Stream is the zlib transform applied around encoded bit vectors.
//
// Writers are pooled per Stream; a Stream is safe for concurrent use.
type Stream struct {
	level    int
	maxBytes int64

	writers sync.Pool
	readers sync.Pool
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithMaxDecompressedBytes caps the size of a decompressed payload.
// Zero or negative means unlimited.
func WithMaxDecompressedBytes(n int64) StreamOption {
	return func(s *Stream) {
		s.maxBytes = n
	}
}

// NewStream creates a zlib Stream with the given compression level
// (zlib.BestSpeed .. zlib.BestCompression).
func NewStream(level int, optFns ...StreamOption) *Stream {
	s := &Stream{level: level}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// NewFastestStream creates the Stream used for responses: zlib at the fastest
// compression level.
func NewFastestStream(optFns ...StreamOption) *Stream {
	return NewStream(zlib.BestSpeed, optFns...)
}

// Level returns the compression level.
func (s *Stream) Level() int { return s.level }

func (s *Stream) getWriter(w io.Writer) (*zlib.Writer, error) {
	if v := s.writers.Get(); v != nil {
		zw := v.(*zlib.Writer)
		zw.Reset(w)
		return zw, nil
	}
	return zlib.NewWriterLevel(w, s.level)
}

func (s *Stream) putWriter(zw *zlib.Writer) {
	s.writers.Put(zw)
}

// Compress returns the zlib-compressed form of src.
// An empty src still produces a valid (non-empty) zlib stream.
func (s *Stream) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.CompressTo(&buf, src); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CompressTo writes the zlib-compressed form of src to w.
func (s *Stream) CompressTo(w io.Writer, src []byte) error {
	zw, err := s.getWriter(w)
	if err != nil {
		return err
	}
	defer s.putWriter(zw)

	if _, err := zw.Write(src); err != nil {
		return err
	}
	return zw.Close()
}

// Decompress reads a complete zlib stream from r into memory.
//
// A payload with zero bytes is treated as an empty stream and returns an
// empty, non-nil slice. The caller owns r and is responsible for closing it.
func (s *Stream) Decompress(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return []byte{}, nil
		}
		return nil, err
	}

	zr, err := s.getReader(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptStream, err)
	}
	defer s.readers.Put(zr)

	var src io.Reader = zr
	if s.maxBytes > 0 {
		src = io.LimitReader(zr, s.maxBytes+1)
	}

	var out bytes.Buffer
	if _, err := out.ReadFrom(src); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptStream, err)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptStream, err)
	}
	if s.maxBytes > 0 && int64(out.Len()) > s.maxBytes {
		return nil, ErrTooLarge
	}
	if out.Len() == 0 {
		return []byte{}, nil
	}
	return out.Bytes(), nil
}

// DecompressBytes is Decompress over an in-memory payload.
func (s *Stream) DecompressBytes(b []byte) ([]byte, error) {
	return s.Decompress(bytes.NewReader(b))
}

func (s *Stream) getReader(r io.Reader) (io.ReadCloser, error) {
	if v := s.readers.Get(); v != nil {
		zr := v.(io.ReadCloser)
		if err := zr.(zlib.Resetter).Reset(r, nil); err != nil {
			return nil, err
		}
		return zr, nil
	}
	return zlib.NewReader(r)
}
