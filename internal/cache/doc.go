// Package cache provides keyed LRU caches with explicit invalidation.
//
// The cache is used for two things:
//   - generation-keyed id maps (a handful of large entries, bounded by count)
//   - decoded segment columns (many entries, bounded by approximate bytes)
//
// Entries are never mutated after Put; values handed out by Get are shared
// read-only between goroutines.
package cache
