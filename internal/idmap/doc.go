// Package idmap maps sparse external document ids to dense internal rows.
//
// An IdMap is built once per index generation by scanning the id field of
// every segment and is cached by generation token. Builds are not locked:
// two requests that miss at the same time both build, and the maps they
// produce are identical.
package idmap
