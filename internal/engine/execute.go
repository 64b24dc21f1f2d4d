package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
)

// Collector receives matching documents.
type Collector interface {
	// SetSegment is called before the first Collect of each segment.
	SetSegment(ctx context.Context, seg SegmentReader) error
	// Collect is called once per matching local doc of the current segment.
	Collect(local uint32) error
}

// Order selects the order segments are visited in.
type Order int

const (
	// OrderIndex visits segments in row order.
	OrderIndex Order = iota
	// OrderReverseSegments visits the newest segment first.
	OrderReverseSegments
)

func (o Order) String() string {
	switch o {
	case OrderIndex:
		return "index"
	case OrderReverseSegments:
		return "reverse_segments"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// Options control one execution.
type Options struct {
	// TimeAllowed bounds execution. 0 means unbounded.
	TimeAllowed time.Duration
	// Order selects segment visiting order.
	Order Order
}

// Stats describe one execution.
type Stats struct {
	Segments int
	Visited  int64 // docs the query was evaluated on
	Matched  int64
	Elapsed  time.Duration
}

// Execute runs q over snap, restricted to the global rows in filter when
// filter is non-nil, and delivers matches to c.
//
// Rows outside the filter are skipped before the query is evaluated. An
// execution that runs out of time returns ErrTimeAllowedExceeded; an error
// always means the collector saw an incomplete match set.
func Execute(ctx context.Context, snap *Snapshot, q Query, filter *roaring.Bitmap, opts Options, c Collector) (Stats, error) {
	var stats Stats
	start := time.Now()
	defer func() { stats.Elapsed = time.Since(start) }()

	if q == nil {
		q = MatchAll{}
	}
	schema := snap.Schema()
	if err := q.Validate(schema); err != nil {
		return stats, err
	}

	budget := NewQueryBudget(opts.TimeAllowed)
	if opts.TimeAllowed > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeAllowed)
		defer cancel()
	}
	ctx = WithBudget(ctx, budget)

	segments := snap.Segments()
	order := make([]int, len(segments))
	for i := range order {
		if opts.Order == OrderReverseSegments {
			order[i] = len(segments) - 1 - i
		} else {
			order[i] = i
		}
	}

	for _, i := range order {
		seg := segments[i]
		if err := checkAbort(ctx, budget); err != nil {
			return stats, err
		}
		if seg.NumRows() == 0 {
			continue
		}

		base := seg.DocBase()
		end := uint64(base) + uint64(seg.NumRows())
		if filter != nil && !intersectsRange(filter, uint64(base), end) {
			continue
		}

		m, err := q.bind(ctx, seg, schema)
		if err != nil {
			if abortErr := checkAbort(ctx, budget); abortErr != nil {
				return stats, abortErr
			}
			return stats, fmt.Errorf("segment %s: %w", seg.ID(), err)
		}

		stats.Segments++
		bound := false
		deliver := func(local uint32) error {
			stats.Visited++
			if !budget.Visit() || (stats.Visited%checkInterval == 0 && ctx.Err() != nil) {
				return checkAbort(ctx, budget)
			}
			if !m(local) {
				return nil
			}
			if !bound {
				if err := c.SetSegment(ctx, seg); err != nil {
					return err
				}
				bound = true
			}
			stats.Matched++
			return c.Collect(local)
		}

		if filter == nil {
			for local := uint32(0); local < seg.NumRows(); local++ {
				if err := deliver(local); err != nil {
					return stats, err
				}
			}
			continue
		}

		it := filter.Iterator()
		it.AdvanceIfNeeded(base)
		for it.HasNext() {
			row := it.Next()
			if uint64(row) >= end {
				break
			}
			if err := deliver(row - base); err != nil {
				return stats, err
			}
		}
	}

	if err := checkAbort(ctx, budget); err != nil {
		return stats, err
	}
	return stats, nil
}

// checkAbort translates budget exhaustion and context errors.
func checkAbort(ctx context.Context, budget *QueryBudget) error {
	if !budget.CheckDeadline() {
		return fmt.Errorf("%w: after %d docs", ErrTimeAllowedExceeded, budget.Stats().Visited)
	}
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !budget.deadline.IsZero() {
			return fmt.Errorf("%w: after %d docs", ErrTimeAllowedExceeded, budget.Stats().Visited)
		}
		return err
	}
	return nil
}

func intersectsRange(b *roaring.Bitmap, start, end uint64) bool {
	if b.IsEmpty() {
		return false
	}
	if uint64(b.Minimum()) >= end || uint64(b.Maximum()) < start {
		return false
	}
	return b.IntersectsWithInterval(start, end)
}
