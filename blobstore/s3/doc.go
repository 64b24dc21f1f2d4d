// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "indexes/books")
//
// Wrap the store in a CommitStore to move the CURRENT pointer into DynamoDB
// when several ingest writers share a prefix.
//
// # Features
//
//   - Range reads for blob access
//   - Multipart uploads through the s3 manager for large column files
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
