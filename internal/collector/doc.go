// Package collector gathers typed per-document field values for matched
// documents.
//
// A Pipeline holds one collector per requested field. The engine binds it
// to each segment with SetSegment and then calls Collect once per match;
// values come out in the order they were collected, which need not be row
// order.
package collector
