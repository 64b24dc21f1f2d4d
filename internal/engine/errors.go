package engine

import "errors"

var (
	// ErrClosed is returned when an operation is attempted on a closed engine.
	ErrClosed = errors.New("engine closed")

	// ErrInvalidQuery is returned when a query string cannot be parsed or
	// does not fit the schema.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrTimeAllowedExceeded is returned when execution exceeds its time budget.
	// No partial result is produced.
	ErrTimeAllowedExceeded = errors.New("time allowed exceeded")

	// ErrSchemaMismatch is returned when a writer's schema conflicts with the index.
	ErrSchemaMismatch = errors.New("schema mismatch")
)
