package segment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/bitsieve/blobstore"
	"github.com/hupe1980/bitsieve/internal/column"
	"github.com/hupe1980/bitsieve/internal/manifest"
	"github.com/hupe1980/bitsieve/model"
)

var (
	// ErrMissingID is returned when a document has no value for the id field.
	ErrMissingID = errors.New("segment: document without id")
	// ErrValueType is returned when a document value does not match the schema.
	ErrValueType = errors.New("segment: value does not match field type")
)

// BuildOptions control segment construction.
type BuildOptions struct {
	IDField     string
	Compression column.Compression
}

// Build writes one column file per schema field for docs and returns the
// segment's manifest entry. Documents keep their slice order as local docs.
func Build(ctx context.Context, store blobstore.BlobStore, id model.SegmentID, schema model.Schema, docs []model.Document, opts BuildOptions) (manifest.SegmentInfo, error) {
	if uint64(len(docs)) > math.MaxUint32 {
		return manifest.SegmentInfo{}, fmt.Errorf("segment: %d documents exceed the row space", len(docs))
	}

	info := manifest.SegmentInfo{
		ID:          id,
		Rows:        uint32(len(docs)),
		Compression: opts.Compression.String(),
	}

	for _, field := range schema.Fields() {
		col, err := buildColumn(field, schema[field], docs, field == opts.IDField)
		if err != nil {
			return manifest.SegmentInfo{}, err
		}
		data, err := column.Encode(col, opts.Compression)
		if err != nil {
			return manifest.SegmentInfo{}, err
		}
		if err := store.Put(ctx, ColumnName(id, field), data); err != nil {
			return manifest.SegmentInfo{}, fmt.Errorf("segment %s: write %s: %w", id, field, err)
		}
		info.Size += int64(len(data))
	}
	return info, nil
}

func buildColumn(field string, t model.FieldType, docs []model.Document, required bool) (*column.Column, error) {
	switch t {
	case model.FieldInteger:
		v := make([]int64, len(docs))
		for i, doc := range docs {
			raw, ok := doc[field]
			if !ok || raw == nil {
				if required {
					return nil, fmt.Errorf("%w: document %d", ErrMissingID, i)
				}
				continue
			}
			n, ok := toInt64(raw)
			if !ok {
				return nil, fmt.Errorf("%w: %q=%v (document %d) is not an integer", ErrValueType, field, raw, i)
			}
			v[i] = n
		}
		return column.Int64s(v), nil
	case model.FieldString:
		v := make([]string, len(docs))
		for i, doc := range docs {
			raw, ok := doc[field]
			if !ok || raw == nil {
				continue
			}
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %q=%v (document %d) is not a string", ErrValueType, field, raw, i)
			}
			v[i] = s
		}
		return column.Strings(v), nil
	case model.FieldFloat:
		v := make([]float64, len(docs))
		for i, doc := range docs {
			raw, ok := doc[field]
			if !ok || raw == nil {
				continue
			}
			f, ok := toFloat64(raw)
			if !ok {
				return nil, fmt.Errorf("%w: %q=%v (document %d) is not a number", ErrValueType, field, raw, i)
			}
			v[i] = f
		}
		return column.Float64s(v), nil
	default:
		return nil, fmt.Errorf("%w: field %q has type %q", ErrValueType, field, t)
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case float64:
		// JSON numbers decode as float64.
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case interface{ Int64() (int64, error) }:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
