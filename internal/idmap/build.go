package idmap

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Build scans src and returns its IdMap. For duplicate external ids the
// highest row wins. Segmented sources are scanned with up to concurrency
// goroutines and merged in segment order.
func Build(ctx context.Context, src Source, concurrency int) (*IdMap, error) {
	gen := src.Generation()

	seg, ok := src.(SegmentedSource)
	if !ok || seg.NumSegments() < 2 || concurrency < 2 {
		rows := make(map[int64]uint32)
		err := src.ScanIDs(ctx, func(row uint32, id int64) error {
			rows[id] = row
			return nil
		})
		if err != nil {
			return nil, err
		}
		return New(gen, rows), nil
	}

	parts := make([]map[int64]uint32, seg.NumSegments())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range parts {
		g.Go(func() error {
			part := make(map[int64]uint32)
			err := seg.ScanSegment(gctx, i, func(row uint32, id int64) error {
				part[id] = row
				return nil
			})
			if err != nil {
				return err
			}
			parts[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var n int
	for _, p := range parts {
		n += len(p)
	}
	rows := make(map[int64]uint32, n)
	for _, p := range parts {
		for id, row := range p {
			rows[id] = row
		}
	}
	return New(gen, rows), nil
}
