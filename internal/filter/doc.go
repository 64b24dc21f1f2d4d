// Package filter runs a query restricted to an externally supplied set of
// document ids.
//
// A Stage consumes one request: it decompresses and decodes the incoming
// bit vector, translates every set external id to an internal row through
// the generation's IdMap, installs the rows as the engine's pre-query
// filter, executes the query into a collector pipeline, and returns the
// collected fields.
package filter
