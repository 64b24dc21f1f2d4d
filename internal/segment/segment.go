package segment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/bitsieve/blobstore"
	"github.com/hupe1980/bitsieve/internal/cache"
	"github.com/hupe1980/bitsieve/internal/column"
	"github.com/hupe1980/bitsieve/internal/manifest"
	"github.com/hupe1980/bitsieve/model"
)

var (
	// ErrUnknownField is returned when a field is not declared in the schema.
	ErrUnknownField = errors.New("segment: unknown field")
	// ErrRowCount is returned when a column does not hold one value per row.
	ErrRowCount = errors.New("segment: column row count mismatch")
)

// ColumnCache caches decoded columns keyed by blob name.
type ColumnCache = cache.Cache[string, *column.Column]

// NewColumnCache returns an LRU column cache bounded by approximate decoded bytes.
func NewColumnCache(capacityBytes int64) *cache.LRU[string, *column.Column] {
	return cache.NewLRU[string, *column.Column](capacityBytes,
		cache.WithCost[string, *column.Column](func(c *column.Column) int64 { return c.SizeBytes() }))
}

// ColumnName returns the blob name of a field's column file.
func ColumnName(id model.SegmentID, field string) string {
	return id.String() + "/" + field + ".col"
}

// Segment is a read-only view of one segment positioned in a generation.
// It is safe for concurrent use.
type Segment struct {
	info    manifest.SegmentInfo
	docBase uint32
	schema  model.Schema
	store   blobstore.BlobStore
	cache   ColumnCache
	logger  *slog.Logger
}

// Option configures a Segment.
type Option func(*Segment)

// WithColumnCache shares decoded columns through c.
func WithColumnCache(c ColumnCache) Option {
	return func(s *Segment) {
		s.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Segment) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open returns a segment reading from store. Column files are loaded lazily.
func Open(store blobstore.BlobStore, info manifest.SegmentInfo, docBase uint32, schema model.Schema, optFns ...Option) *Segment {
	s := &Segment{
		info:    info,
		docBase: docBase,
		schema:  schema,
		store:   store,
		logger:  slog.Default(),
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// ID returns the segment ID.
func (s *Segment) ID() model.SegmentID { return s.info.ID }

// DocBase returns the global row of the segment's first document.
func (s *Segment) DocBase() uint32 { return s.docBase }

// NumRows returns the number of documents in the segment.
func (s *Segment) NumRows() uint32 { return s.info.Rows }

// Ints returns the values of an integer field, indexed by local doc.
func (s *Segment) Ints(ctx context.Context, field string) ([]int64, error) {
	c, err := s.load(ctx, field, column.TypeInt64)
	if err != nil {
		return nil, err
	}
	return c.Ints, nil
}

// Strings returns the values of a string field, indexed by local doc.
func (s *Segment) Strings(ctx context.Context, field string) ([]string, error) {
	c, err := s.load(ctx, field, column.TypeString)
	if err != nil {
		return nil, err
	}
	return c.Strings, nil
}

// Floats returns the values of a float field, indexed by local doc.
func (s *Segment) Floats(ctx context.Context, field string) ([]float64, error) {
	c, err := s.load(ctx, field, column.TypeFloat64)
	if err != nil {
		return nil, err
	}
	return c.Floats, nil
}

func (s *Segment) load(ctx context.Context, field string, want column.ValueType) (*column.Column, error) {
	declared, ok := s.schema.Lookup(field)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if vt, _ := ValueTypeOf(declared); vt != want {
		return nil, fmt.Errorf("%w: field %q is %s, read as %s", column.ErrTypeMismatch, field, declared, want)
	}

	name := ColumnName(s.info.ID, field)
	if s.cache != nil {
		if c, ok := s.cache.Get(name); ok {
			return c, nil
		}
	}

	data, err := blobstore.Get(ctx, s.store, name)
	if err != nil {
		return nil, fmt.Errorf("segment %s: read %s: %w", s.info.ID, field, err)
	}
	c, err := column.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("segment %s: decode %s: %w", s.info.ID, field, err)
	}
	if c.Type != want {
		return nil, fmt.Errorf("%w: %s holds %s", column.ErrTypeMismatch, name, c.Type)
	}
	if c.Len() != int(s.info.Rows) {
		return nil, fmt.Errorf("%w: %s has %d values for %d rows", ErrRowCount, name, c.Len(), s.info.Rows)
	}

	s.logger.Debug("column loaded",
		"segment", s.info.ID.String(),
		"field", field,
		"stored", humanize.Bytes(uint64(len(data))),
		"decoded", humanize.Bytes(uint64(c.SizeBytes())))

	if s.cache != nil {
		s.cache.Put(name, c)
	}
	return c, nil
}

// ValueTypeOf maps a declared field type to its column type.
func ValueTypeOf(t model.FieldType) (column.ValueType, bool) {
	switch t {
	case model.FieldInteger:
		return column.TypeInt64, true
	case model.FieldString:
		return column.TypeString, true
	case model.FieldFloat:
		return column.TypeFloat64, true
	default:
		return 0, false
	}
}
