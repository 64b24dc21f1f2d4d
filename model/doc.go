// Package model defines core types shared by the engine, the id remapping
// cache and the collectors.
//
// # Identity Types
//
//   - ExternalID: application-level record identifier (sparse, int64)
//   - SegmentID: unique identifier of an immutable segment (uint64)
//   - Row: dense, generation-global internal row number (uint32)
//   - Generation: opaque token naming one immutable index snapshot
//
// # Schema Types
//
//   - FieldType: declared type of a stored field
//   - Schema: field name to declared type
package model
