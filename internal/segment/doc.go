// Package segment provides read access to the immutable segments of a
// generation and builds new segments from documents.
//
// A segment holds one column file per schema field under its directory:
//
//	seg-000001/id.col
//	seg-000001/title.col
//	seg-000001/year.col
//
// Decoded columns are shared through a byte-bounded LRU so reopening the same
// segment in a later generation does not decode its columns again.
package segment
