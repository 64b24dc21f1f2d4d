// Package engine implements the search backend bitmap filtering runs on.
//
// The engine orchestrates:
//   - Generations loaded from manifests and swapped atomically on Refresh
//   - Snapshots that pin one generation for the lifetime of a query
//   - A minimal predicate language (match-all, term, range, conjunction)
//   - Filtered execution that skips rows outside a caller-supplied bitmap
//     before the query is evaluated
//   - A per-query time budget
//   - A Writer that commits new segments as new generations
//
// Matching documents are delivered to a Collector one segment at a time.
// Each segment starts with SetSegment followed by Collect calls for its
// local docs. Within a segment docs arrive in ascending order; the order of
// segments is chosen by Options.Order.
package engine
