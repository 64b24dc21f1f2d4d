package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/hupe1980/bitsieve/bitvector"
	"github.com/hupe1980/bitsieve/codec"
	"github.com/hupe1980/bitsieve/internal/engine"
	"github.com/hupe1980/bitsieve/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errAccessor = errors.New("column unreadable")

type fakeSegment struct {
	id      model.SegmentID
	base    uint32
	rows    uint32
	ints    map[string][]int64
	strings map[string][]string
	fail    map[string]error
	reads   map[string]int
}

func (s *fakeSegment) ID() model.SegmentID { return s.id }
func (s *fakeSegment) DocBase() uint32     { return s.base }
func (s *fakeSegment) NumRows() uint32     { return s.rows }

func (s *fakeSegment) read(field string) error {
	if s.reads == nil {
		s.reads = map[string]int{}
	}
	s.reads[field]++
	if err := s.fail[field]; err != nil {
		return err
	}
	return nil
}

func (s *fakeSegment) Ints(_ context.Context, field string) ([]int64, error) {
	if err := s.read(field); err != nil {
		return nil, err
	}
	v, ok := s.ints[field]
	if !ok {
		return nil, fmt.Errorf("no int column %q", field)
	}
	return v, nil
}

func (s *fakeSegment) Strings(_ context.Context, field string) ([]string, error) {
	if err := s.read(field); err != nil {
		return nil, err
	}
	v, ok := s.strings[field]
	if !ok {
		return nil, fmt.Errorf("no string column %q", field)
	}
	return v, nil
}

func (s *fakeSegment) Floats(context.Context, string) ([]float64, error) {
	return nil, errors.New("not supported")
}

var schema = model.Schema{
	"id":    model.FieldInteger,
	"title": model.FieldString,
	"year":  model.FieldInteger,
	"score": model.FieldFloat,
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func segmentA() *fakeSegment {
	return &fakeSegment{
		id: 1, base: 0, rows: 3,
		ints:    map[string][]int64{"id": {10, 20, 30}, "year": {1999, 2005, 2020}},
		strings: map[string][]string{"title": {"A", "B", "C"}},
	}
}

func segmentB() *fakeSegment {
	return &fakeSegment{
		id: 2, base: 3, rows: 2,
		ints:    map[string][]int64{"id": {40, -1}, "year": {2021, 2022}},
		strings: map[string][]string{"title": {"D", "E"}},
	}
}

func decodeBits(t *testing.T, compressed []byte) *bitvector.BitVector {
	t.Helper()
	raw, err := codec.NewFastestStream().DecompressBytes(compressed)
	require.NoError(t, err)
	return bitvector.Decode(raw)
}

func TestFieldSpecsFromSchema(t *testing.T) {
	specs, err := FieldSpecsFromSchema(schema, []string{"title", "year", "bitset"}, map[string]string{"title": "headline"})
	require.NoError(t, err)
	assert.Equal(t, []FieldSpec{
		{Name: "title", Kind: KindString, Output: "headline"},
		{Name: "year", Kind: KindInteger},
		{Name: "bitset", Kind: KindRowID},
	}, specs)
	assert.Equal(t, "headline", specs[0].OutputName())
	assert.Equal(t, "year", specs[1].OutputName())
}

func TestFieldSpecsFromSchemaErrors(t *testing.T) {
	_, err := FieldSpecsFromSchema(schema, []string{"nope"}, nil)
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = FieldSpecsFromSchema(schema, []string{"title", "score"}, nil)
	require.ErrorIs(t, err, ErrUnsupportedFieldType)
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "score", fe.Field)
	assert.Equal(t, "float", fe.Type)
}

func TestNewErrors(t *testing.T) {
	_, err := New([]FieldSpec{{Name: "x", Kind: Kind(42)}})
	assert.ErrorIs(t, err, ErrUnsupportedFieldType)

	_, err = New([]FieldSpec{
		{Name: "title", Kind: KindString},
		{Name: "year", Kind: KindInteger, Output: "title"},
	})
	assert.ErrorIs(t, err, ErrDuplicateOutput)
}

func TestPipelineCollect(t *testing.T) {
	ctx := context.Background()
	p, err := New([]FieldSpec{
		{Name: "title", Kind: KindString},
		{Name: "year", Kind: KindInteger, Output: "published"},
		{Name: RowIDField, Kind: KindRowID},
	}, WithLogger(quietLogger()))
	require.NoError(t, err)

	// Out of row order: segment B first, then A in reverse.
	require.NoError(t, p.SetSegment(ctx, segmentB()))
	require.NoError(t, p.Collect(0))
	require.NoError(t, p.SetSegment(ctx, segmentA()))
	require.NoError(t, p.Collect(2))
	require.NoError(t, p.Collect(0))

	r, err := p.Finish()
	require.NoError(t, err)
	assert.Equal(t, 3, r.Matches)
	assert.Equal(t, 3, p.Matches())

	title, ok := r.Get("title")
	require.True(t, ok)
	assert.Equal(t, []string{"D", "C", "A"}, title.Strings)

	year, ok := r.Get("published")
	require.True(t, ok)
	assert.Equal(t, []int64{2021, 2020, 1999}, year.Ints)

	bits, ok := r.Bitset()
	require.True(t, ok)
	assert.Equal(t, []uint64{10, 30, 40}, decodeBits(t, bits.Bitset).Positions())
	assert.Nil(t, r.Skipped())

	fields := r.Fields()
	assert.Equal(t, []string{"D", "C", "A"}, fields["title"])
	assert.IsType(t, []byte{}, fields["bitset"])
}

func TestPipelineEmpty(t *testing.T) {
	p, err := New([]FieldSpec{
		{Name: "title", Kind: KindString},
		{Name: "year", Kind: KindInteger},
		{Name: RowIDField, Kind: KindRowID},
	})
	require.NoError(t, err)

	r, err := p.Finish()
	require.NoError(t, err)
	assert.Zero(t, r.Matches)
	assert.Equal(t, map[string]any{
		"title":  []string{},
		"year":   []int64{},
		"bitset": r.Entries[2].Bitset,
	}, r.Fields())
	assert.True(t, decodeBits(t, r.Entries[2].Bitset).IsEmpty())
}

func TestPipelineNegativeIDSkipped(t *testing.T) {
	ctx := context.Background()
	p, err := New([]FieldSpec{{Name: RowIDField, Kind: KindRowID}})
	require.NoError(t, err)

	require.NoError(t, p.SetSegment(ctx, segmentB()))
	require.NoError(t, p.Collect(0))
	require.NoError(t, p.Collect(1))

	r, err := p.Finish()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"bitset": 1}, r.Skipped())
	assert.Equal(t, []uint64{40}, decodeBits(t, r.Entries[0].Bitset).Positions())
}

func TestPipelineCustomIDField(t *testing.T) {
	ctx := context.Background()
	p, err := New([]FieldSpec{{Name: RowIDField, Kind: KindRowID, Output: "ids"}}, WithIDField("year"))
	require.NoError(t, err)

	require.NoError(t, p.SetSegment(ctx, segmentA()))
	require.NoError(t, p.Collect(1))

	r, err := p.Finish()
	require.NoError(t, err)
	e, ok := r.Get("ids")
	require.True(t, ok)
	assert.Equal(t, []uint64{2005}, e.Bits.Positions())
}

func TestPipelineAccessorFailure(t *testing.T) {
	ctx := context.Background()
	p, err := New([]FieldSpec{
		{Name: "title", Kind: KindString},
		{Name: "year", Kind: KindInteger},
	}, WithLogger(quietLogger()))
	require.NoError(t, err)

	broken := segmentA()
	broken.fail = map[string]error{"title": errAccessor}

	require.NoError(t, p.SetSegment(ctx, broken))
	require.NoError(t, p.Collect(0))
	require.NoError(t, p.Collect(1))
	require.NoError(t, p.SetSegment(ctx, segmentB()))
	require.NoError(t, p.Collect(0))

	r, err := p.Finish()
	require.NoError(t, err)

	title, _ := r.Get("title")
	assert.Equal(t, []string{"D"}, title.Strings)
	assert.Equal(t, 2, title.Skipped)

	year, _ := r.Get("year")
	assert.Equal(t, []int64{1999, 2005, 2021}, year.Ints)
	assert.Equal(t, map[string]int{"title": 2}, r.Skipped())
	assert.Len(t, p.failures, 1)
}

func TestPipelineContextErrorPropagates(t *testing.T) {
	p, err := New([]FieldSpec{{Name: "title", Kind: KindString}})
	require.NoError(t, err)

	seg := segmentA()
	seg.fail = map[string]error{"title": context.DeadlineExceeded}
	assert.ErrorIs(t, p.SetSegment(context.Background(), seg), context.DeadlineExceeded)
}

func TestPipelineAbort(t *testing.T) {
	p, err := New([]FieldSpec{{Name: "title", Kind: KindString}})
	require.NoError(t, err)
	require.NoError(t, p.SetSegment(context.Background(), segmentA()))
	require.NoError(t, p.Collect(0))

	p.Abort(engine.ErrTimeAllowedExceeded)
	_, err = p.Finish()
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.ErrorIs(t, err, engine.ErrTimeAllowedExceeded)
}

func TestCollectBeforeSetSegment(t *testing.T) {
	p, err := New([]FieldSpec{{Name: "title", Kind: KindString}})
	require.NoError(t, err)
	assert.Error(t, p.Collect(0))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "string", KindString.String())
	assert.Equal(t, "integer", KindInteger.String())
	assert.Equal(t, "rowid", KindRowID.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
