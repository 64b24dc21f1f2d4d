package model

import (
	"fmt"
	"sort"
)

// SegmentID is the unique identifier for a segment within a generation.
type SegmentID uint64

// String returns the segment directory name.
func (id SegmentID) String() string {
	return fmt.Sprintf("seg-%06d", uint64(id))
}

// Row is the dense internal row number of a document. Rows are global to a
// generation: the first document of a segment has row DocBase.
type Row = uint32

// ExternalID is the application-level identifier stored in the id field.
type ExternalID = int64

// Generation identifies an immutable snapshot of the index.
// Two snapshots with the same token always have the same id field contents.
type Generation string

// IsZero reports whether the token is unset.
func (g Generation) IsZero() bool { return g == "" }

// FieldType is the declared type of a stored field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldFloat   FieldType = "float"
)

// Valid reports whether the type can be stored in a column.
func (t FieldType) Valid() bool {
	switch t {
	case FieldString, FieldInteger, FieldFloat:
		return true
	default:
		return false
	}
}

// Schema maps stored field names to their declared types.
type Schema map[string]FieldType

// Lookup returns the declared type of the field.
func (s Schema) Lookup(name string) (FieldType, bool) {
	t, ok := s[name]
	return t, ok
}

// Fields returns the field names in sorted order.
func (s Schema) Fields() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy of the schema.
func (s Schema) Clone() Schema {
	out := make(Schema, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Document is a single record handed to the ingest path.
// Values are string, int64 or float64 according to the schema.
type Document map[string]any
