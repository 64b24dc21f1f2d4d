package engine

import (
	"context"

	"github.com/hupe1980/bitsieve/internal/manifest"
	"github.com/hupe1980/bitsieve/model"
)

// SegmentReader is the columnar accessor of one segment.
// Values are indexed by local doc, 0 <= local < NumRows.
type SegmentReader interface {
	ID() model.SegmentID
	// DocBase is the global row of local doc 0.
	DocBase() uint32
	NumRows() uint32
	Ints(ctx context.Context, field string) ([]int64, error)
	Strings(ctx context.Context, field string) ([]string, error)
	Floats(ctx context.Context, field string) ([]float64, error)
}

// Snapshot is an immutable view of one generation.
// Queries hold the snapshot they started with across a Refresh.
type Snapshot struct {
	manifest   *manifest.Manifest
	generation model.Generation
	segments   []SegmentReader
	numRows    uint32
}

// NewSnapshot assembles a snapshot. Segment DocBases must be contiguous in
// slice order starting at 0.
func NewSnapshot(m *manifest.Manifest, segments []SegmentReader) *Snapshot {
	s := &Snapshot{
		manifest:   m,
		generation: m.Generation(),
		segments:   segments,
	}
	for _, seg := range segments {
		s.numRows += seg.NumRows()
	}
	return s
}

// Generation returns the generation token.
func (s *Snapshot) Generation() model.Generation { return s.generation }

// ManifestID returns the ID of the manifest the snapshot was loaded from.
func (s *Snapshot) ManifestID() uint64 { return s.manifest.ID }

// Schema returns the declared field types.
func (s *Snapshot) Schema() model.Schema { return s.manifest.Schema }

// IDField returns the name of the external id field.
func (s *Snapshot) IDField() string { return s.manifest.IDField }

// Segments returns the segments in row order.
func (s *Snapshot) Segments() []SegmentReader { return s.segments }

// NumRows returns the total row count; valid rows are [0, NumRows).
func (s *Snapshot) NumRows() uint32 { return s.numRows }

// ScanIDs calls fn for every row in ascending global row order with the
// value of the id field.
func (s *Snapshot) ScanIDs(ctx context.Context, fn func(row uint32, id int64) error) error {
	for _, seg := range s.segments {
		if err := s.ScanSegmentIDs(ctx, seg, fn); err != nil {
			return err
		}
	}
	return nil
}

// ScanSegmentIDs is ScanIDs restricted to one segment.
func (s *Snapshot) ScanSegmentIDs(ctx context.Context, seg SegmentReader, fn func(row uint32, id int64) error) error {
	ids, err := seg.Ints(ctx, s.manifest.IDField)
	if err != nil {
		return err
	}
	base := seg.DocBase()
	for local, id := range ids {
		if local%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := fn(base+uint32(local), id); err != nil {
			return err
		}
	}
	return nil
}

// NumSegments returns the number of segments.
func (s *Snapshot) NumSegments() int { return len(s.segments) }

// ScanSegment is ScanSegmentIDs addressed by segment index.
func (s *Snapshot) ScanSegment(ctx context.Context, i int, fn func(row uint32, id int64) error) error {
	return s.ScanSegmentIDs(ctx, s.segments[i], fn)
}
