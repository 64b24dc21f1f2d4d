package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/bitsieve/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCollector struct {
	seg      SegmentReader
	segments []uint32
	rows     []uint32
	delay    time.Duration
	failAt   int
}

func (c *recordingCollector) SetSegment(_ context.Context, seg SegmentReader) error {
	c.seg = seg
	c.segments = append(c.segments, seg.DocBase())
	return nil
}

func (c *recordingCollector) Collect(local uint32) error {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.rows = append(c.rows, c.seg.DocBase()+local)
	if c.failAt > 0 && len(c.rows) == c.failAt {
		return errors.New("collector failed")
	}
	return nil
}

// openTestSnapshot commits three segments: ids 10,20 | 30,40,50 | 60.
func openTestSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	w := newTestWriter(store)
	for _, batch := range [][]int64{{10, 20}, {30, 40, 50}, {60}} {
		_, err := w.Append(ctx, docs(batch...))
		require.NoError(t, err)
	}
	e, err := Open(ctx, store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e.Snapshot()
}

func TestExecuteMatchAll(t *testing.T) {
	snap := openTestSnapshot(t)
	c := &recordingCollector{}

	stats, err := Execute(context.Background(), snap, MatchAll{}, nil, Options{}, c)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, c.rows)
	assert.Equal(t, []uint32{0, 2, 5}, c.segments)
	assert.Equal(t, int64(6), stats.Matched)
	assert.Equal(t, 3, stats.Segments)
}

func TestExecuteFilter(t *testing.T) {
	snap := openTestSnapshot(t)
	c := &recordingCollector{}

	filter := roaring.BitmapOf(1, 3, 4)
	stats, err := Execute(context.Background(), snap, nil, filter, Options{}, c)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 3, 4}, c.rows)
	assert.Equal(t, int64(3), stats.Visited)
	// The last segment does not intersect the filter.
	assert.Equal(t, 2, stats.Segments)
}

func TestExecuteFilterOutOfRange(t *testing.T) {
	snap := openTestSnapshot(t)
	c := &recordingCollector{}

	_, err := Execute(context.Background(), snap, nil, roaring.BitmapOf(5, 100, 1<<30), Options{}, c)
	require.NoError(t, err)
	assert.Equal(t, []uint32{5}, c.rows)
}

func TestExecuteEmptyFilter(t *testing.T) {
	snap := openTestSnapshot(t)
	c := &recordingCollector{}

	stats, err := Execute(context.Background(), snap, MatchAll{}, roaring.New(), Options{}, c)
	require.NoError(t, err)
	assert.Empty(t, c.rows)
	assert.Zero(t, stats.Segments)
}

func TestExecuteQueryAndFilter(t *testing.T) {
	snap := openTestSnapshot(t)

	tests := []struct {
		query string
		want  []uint32
	}{
		{"id:[20 TO 50]", []uint32{1, 3}},
		{"title:t40", []uint32{3}},
		{"score:[4.5 TO *]", []uint32{4}},
		{"id:[* TO 40] AND title:t20", []uint32{1}},
		{"title:none", nil},
	}

	filter := roaring.BitmapOf(0, 1, 3, 4)
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, err := Parse(tt.query)
			require.NoError(t, err)
			c := &recordingCollector{}
			_, err = Execute(context.Background(), snap, q, filter, Options{}, c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.rows)
		})
	}
}

func TestExecuteReverseSegments(t *testing.T) {
	snap := openTestSnapshot(t)
	c := &recordingCollector{}

	_, err := Execute(context.Background(), snap, nil, nil, Options{Order: OrderReverseSegments}, c)
	require.NoError(t, err)
	assert.Equal(t, []uint32{5, 2, 3, 4, 0, 1}, c.rows)
	assert.Equal(t, "reverse_segments", OrderReverseSegments.String())
}

func TestExecuteInvalidQuery(t *testing.T) {
	snap := openTestSnapshot(t)
	_, err := Execute(context.Background(), snap, Term{Field: "nope", Value: "1"}, nil, Options{}, &recordingCollector{})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestExecuteCollectorError(t *testing.T) {
	snap := openTestSnapshot(t)
	c := &recordingCollector{failAt: 2}

	_, err := Execute(context.Background(), snap, nil, nil, Options{}, c)
	assert.EqualError(t, err, "collector failed")
	assert.Len(t, c.rows, 2)
}

func TestExecuteTimeAllowed(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	ids := make([]int64, 2000)
	for i := range ids {
		ids[i] = int64(i)
	}
	_, err := newTestWriter(store).Append(ctx, docs(ids...))
	require.NoError(t, err)

	e, err := Open(ctx, store)
	require.NoError(t, err)
	defer e.Close()

	c := &recordingCollector{delay: time.Millisecond}
	_, err = Execute(ctx, e.Snapshot(), nil, nil, Options{TimeAllowed: 5 * time.Millisecond}, c)
	require.ErrorIs(t, err, ErrTimeAllowedExceeded)
	assert.Less(t, len(c.rows), len(ids))
}

func TestExecuteCanceled(t *testing.T) {
	snap := openTestSnapshot(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Execute(ctx, snap, nil, nil, Options{}, &recordingCollector{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueryBudget(t *testing.T) {
	var nilBudget *QueryBudget
	assert.True(t, nilBudget.Visit())
	assert.False(t, nilBudget.IsExhausted())

	b := NewQueryBudget(0)
	for i := 0; i < 1000; i++ {
		require.True(t, b.Visit())
	}
	assert.Equal(t, int64(1000), b.Stats().Visited)

	b = NewQueryBudget(time.Nanosecond)
	time.Sleep(time.Millisecond)
	assert.False(t, b.CheckDeadline())
	assert.True(t, b.IsExhausted())
	assert.Equal(t, "deadline", b.ExhaustedReason())

	ctx := WithBudget(context.Background(), b)
	assert.Same(t, b, BudgetFromContext(ctx))
	assert.Nil(t, BudgetFromContext(context.Background()))
}
