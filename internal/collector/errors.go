package collector

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFieldType is returned for fields whose type has no collector.
	ErrUnsupportedFieldType = errors.New("collector: unsupported field type")
	// ErrUnknownField is returned for fields the schema does not declare.
	ErrUnknownField = errors.New("collector: unknown field")
	// ErrDuplicateOutput is returned when two fields share an output name.
	ErrDuplicateOutput = errors.New("collector: duplicate output name")
	// ErrIncomplete is returned by Finish after the execution was aborted.
	ErrIncomplete = errors.New("collector: execution aborted, result incomplete")
)

// FieldError describes the field a pipeline could not be built for.
type FieldError struct {
	Field string
	Type  string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%v: field %q (type %s)", e.Err, e.Field, e.Type)
	}
	return fmt.Sprintf("%v: field %q", e.Err, e.Field)
}

func (e *FieldError) Unwrap() error { return e.Err }
