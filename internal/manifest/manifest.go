package manifest

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hupe1980/bitsieve/model"
)

const (
	ManifestFileName = "MANIFEST"
	CurrentFileName  = "CURRENT"
	// CurrentVersion is the version of the manifest format.
	CurrentVersion = 1
)

// Manifest describes the state of an index at a specific point in time.
type Manifest struct {
	Version       int             `json:"version"`
	ID            uint64          `json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	IDField       string          `json:"id_field"`
	Schema        model.Schema    `json:"schema"`
	NextSegmentID model.SegmentID `json:"next_segment_id"`
	Segments      []SegmentInfo   `json:"segments"`
}

// SegmentInfo describes a single segment.
type SegmentInfo struct {
	ID          model.SegmentID `json:"id"`
	Rows        uint32          `json:"rows"`
	Size        int64           `json:"size"` // Sum of column file sizes in bytes
	Compression string          `json:"compression,omitempty"`
}

// New creates a new empty manifest.
func New(idField string, schema model.Schema) *Manifest {
	return &Manifest{
		Version:       CurrentVersion,
		CreatedAt:     time.Now(),
		IDField:       idField,
		Schema:        schema.Clone(),
		NextSegmentID: 1, // Start segment IDs at 1
	}
}

// Clone returns a deep copy, suitable as the base of the next manifest.
func (m *Manifest) Clone() *Manifest {
	out := *m
	out.Schema = m.Schema.Clone()
	out.Segments = append([]SegmentInfo(nil), m.Segments...)
	return &out
}

// NumRows returns the total number of rows across all segments.
func (m *Manifest) NumRows() uint64 {
	var n uint64
	for _, s := range m.Segments {
		n += uint64(s.Rows)
	}
	return n
}

// Generation returns the cache token of this manifest.
func (m *Manifest) Generation() model.Generation {
	d := xxhash.New()
	var buf [12]byte
	for _, s := range m.Segments {
		binary.LittleEndian.PutUint64(buf[0:], uint64(s.ID))
		binary.LittleEndian.PutUint32(buf[8:], s.Rows)
		_, _ = d.Write(buf[:])
	}
	return model.Generation(fmt.Sprintf("%06d-%016x", m.ID, d.Sum64()))
}

// Validate checks the invariants readers rely on.
func (m *Manifest) Validate() error {
	if m.Version != CurrentVersion {
		return fmt.Errorf("%w: %d", ErrIncompatibleVersion, m.Version)
	}
	if m.IDField == "" {
		return fmt.Errorf("%w: empty id field", ErrInvalid)
	}
	if t, ok := m.Schema.Lookup(m.IDField); !ok || t != model.FieldInteger {
		return fmt.Errorf("%w: id field %q must be declared integer", ErrInvalid, m.IDField)
	}
	for name, t := range m.Schema {
		if !t.Valid() {
			return fmt.Errorf("%w: field %q has unknown type %q", ErrInvalid, name, t)
		}
	}
	if m.NumRows() > math.MaxUint32 {
		return fmt.Errorf("%w: %d rows exceed the row space", ErrInvalid, m.NumRows())
	}
	seen := make(map[model.SegmentID]struct{}, len(m.Segments))
	for _, s := range m.Segments {
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate segment %s", ErrInvalid, s.ID)
		}
		if s.ID >= m.NextSegmentID {
			return fmt.Errorf("%w: segment %s not below next id %d", ErrInvalid, s.ID, m.NextSegmentID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// FileName returns the blob name of the manifest with the given ID.
func FileName(id uint64) string {
	return fmt.Sprintf("%s-%06d.json", ManifestFileName, id)
}
