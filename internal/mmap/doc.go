// Package mmap provides read-only memory mappings of segment files.
//
// A Mapping owns its byte range until Close. Slices returned by Bytes or
// Slice alias the mapping and must not be used after Close.
package mmap
