package idmap

import (
	"context"
	"time"

	"github.com/hupe1980/bitsieve/model"
)

// Source is the id-field view of one generation.
type Source interface {
	Generation() model.Generation
	// ScanIDs calls fn for every row in ascending row order.
	ScanIDs(ctx context.Context, fn func(row uint32, id int64) error) error
}

// SegmentedSource is a Source whose rows are split into independently
// scannable segments. Segment i covers rows below those of segment i+1.
type SegmentedSource interface {
	Source
	NumSegments() int
	ScanSegment(ctx context.Context, i int, fn func(row uint32, id int64) error) error
}

// IdMap is the immutable external id to internal row mapping of one generation.
type IdMap struct {
	generation model.Generation
	rows       map[int64]uint32
	err        error
	builtAt    time.Time
}

// New returns an IdMap over rows. The map is owned by the IdMap afterwards.
func New(gen model.Generation, rows map[int64]uint32) *IdMap {
	if rows == nil {
		rows = map[int64]uint32{}
	}
	return &IdMap{generation: gen, rows: rows, builtAt: time.Now()}
}

func failed(gen model.Generation, err error) *IdMap {
	return &IdMap{generation: gen, rows: map[int64]uint32{}, err: err, builtAt: time.Now()}
}

// Translate returns the internal row of externalID.
func (m *IdMap) Translate(externalID int64) (uint32, bool) {
	row, ok := m.rows[externalID]
	return row, ok
}

// Generation returns the generation the map was built from.
func (m *IdMap) Generation() model.Generation { return m.generation }

// Len returns the number of distinct external ids.
func (m *IdMap) Len() int { return len(m.rows) }

// Failed reports whether the map is the empty placeholder of a failed build.
func (m *IdMap) Failed() bool { return m.err != nil }

// Err returns the build error of a failed map.
func (m *IdMap) Err() error { return m.err }

// BuiltAt returns when the map was built.
func (m *IdMap) BuiltAt() time.Time { return m.builtAt }
