// Package blobstore provides storage abstraction for bitsieve's manifests and
// column files.
//
// BlobStore is the interface for reading and writing immutable blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem with mmap reads
//   - MemoryStore: in-process map, for tests and ephemeral indexes
//   - CachingStore: whole-blob read cache in front of a remote store
//   - FaultyStore: fault injection wrapper for tests
//   - s3.Store, s3.CommitStore: Amazon S3, optionally with DynamoDB commits
//   - minio.Store: MinIO and other S3-compatible services
//
// Blob names are slash separated (for example "seg-000001/title.col") on
// every backend.
package blobstore
