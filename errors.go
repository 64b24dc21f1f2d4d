package bitsieve

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bitsieve/codec"
	"github.com/hupe1980/bitsieve/internal/collector"
	"github.com/hupe1980/bitsieve/internal/engine"
	"github.com/hupe1980/bitsieve/internal/filter"
	"github.com/hupe1980/bitsieve/internal/resource"
	"github.com/hupe1980/bitsieve/internal/segment"
)

var (
	// ErrBadRequest is returned for malformed requests: a missing or corrupt
	// bitset stream, an unparsable query or conflicting field names.
	ErrBadRequest = errors.New("bad request")
	// ErrUnsupportedFieldType is returned when a requested field has a type
	// that cannot be collected.
	ErrUnsupportedFieldType = errors.New("unsupported field type")
	// ErrUnknownField is returned when a requested field is not in the schema.
	ErrUnknownField = errors.New("unknown field")
	// ErrTimeAllowedExceeded is returned when a query runs out of time.
	ErrTimeAllowedExceeded = errors.New("time allowed exceeded")
	// ErrSchemaMismatch is returned when appended documents do not fit the
	// committed schema or id field.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrOverloaded is returned when a select cannot be admitted under the
	// configured resource limits.
	ErrOverloaded = errors.New("overloaded")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("service closed")
)

// IsClientError reports whether err was caused by the request rather than
// the service.
func IsClientError(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, ErrUnsupportedFieldType) ||
		errors.Is(err, ErrUnknownField)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, engine.ErrTimeAllowedExceeded):
		return fmt.Errorf("%w: %w", ErrTimeAllowedExceeded, err)
	case errors.Is(err, engine.ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	case errors.Is(err, collector.ErrUnsupportedFieldType):
		return fmt.Errorf("%w: %w", ErrUnsupportedFieldType, err)
	case errors.Is(err, collector.ErrUnknownField):
		return fmt.Errorf("%w: %w", ErrUnknownField, err)
	case errors.Is(err, resource.ErrMemoryLimitExceeded):
		return fmt.Errorf("%w: %w", ErrOverloaded, err)
	case errors.Is(err, engine.ErrSchemaMismatch):
		return fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}

	// Request format.
	if errors.Is(err, filter.ErrMissingBitset) ||
		errors.Is(err, filter.ErrBadBitset) ||
		errors.Is(err, codec.ErrTooLarge) ||
		errors.Is(err, engine.ErrInvalidQuery) ||
		errors.Is(err, collector.ErrDuplicateOutput) ||
		errors.Is(err, segment.ErrMissingID) ||
		errors.Is(err, segment.ErrValueType) {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	return err
}
