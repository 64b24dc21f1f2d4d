package collector

import (
	"fmt"

	"github.com/hupe1980/bitsieve/model"
)

// RowIDField is the requested name of the external id bitset.
const RowIDField = "bitset"

// Kind is the value type of a collector.
type Kind int

const (
	KindString Kind = iota + 1
	KindInteger
	// KindRowID collects the external ids of matches into a bit vector.
	KindRowID
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindRowID:
		return "rowid"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// KindOf returns the collector kind of a declared field type.
func KindOf(t model.FieldType) (Kind, bool) {
	switch t {
	case model.FieldString:
		return KindString, true
	case model.FieldInteger:
		return KindInteger, true
	default:
		return 0, false
	}
}

// FieldSpec requests one field.
type FieldSpec struct {
	Name string
	Kind Kind
	// Output is the result key. Empty means Name.
	Output string
}

// OutputName returns the result key of s.
func (s FieldSpec) OutputName() string {
	if s.Output != "" {
		return s.Output
	}
	return s.Name
}

// FieldSpecsFromSchema resolves requested field names against schema.
// renames maps a requested name to its output name. RowIDField requests the
// external id bitset.
func FieldSpecsFromSchema(schema model.Schema, names []string, renames map[string]string) ([]FieldSpec, error) {
	specs := make([]FieldSpec, 0, len(names))
	for _, name := range names {
		spec := FieldSpec{Name: name, Output: renames[name]}
		if name == RowIDField {
			spec.Kind = KindRowID
			specs = append(specs, spec)
			continue
		}

		ft, ok := schema.Lookup(name)
		if !ok {
			return nil, &FieldError{Field: name, Err: ErrUnknownField}
		}
		kind, ok := KindOf(ft)
		if !ok {
			return nil, &FieldError{Field: name, Type: string(ft), Err: ErrUnsupportedFieldType}
		}
		spec.Kind = kind
		specs = append(specs, spec)
	}
	return specs, nil
}
