package main

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/bitsieve/blobstore"
	bsminio "github.com/hupe1980/bitsieve/blobstore/minio"
	bss3 "github.com/hupe1980/bitsieve/blobstore/s3"
	"github.com/hupe1980/bitsieve/internal/manifest"
)

// openStore builds the blob store named by cfg.Backend.
func openStore(ctx context.Context, cfg StorageConfig) (blobstore.BlobStore, error) {
	var (
		store  blobstore.BlobStore
		remote bool
	)

	switch cfg.Backend {
	case "local":
		store = blobstore.NewLocalStore(cfg.Local.Directory)
	case "s3":
		s, err := openS3(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		store, remote = s, true
	case "minio":
		client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.Secure,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		store, remote = bsminio.NewStore(client, cfg.MinIO.Bucket, cfg.MinIO.Prefix), true
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if remote && cfg.CacheBytes > 0 {
		store = blobstore.NewCachingStore(store, cfg.CacheBytes, blobstore.WithUncached(manifest.CurrentFileName))
	}
	return store, nil
}

func openS3(ctx context.Context, cfg S3Config) (blobstore.BlobStore, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	upload := bss3.DefaultUploadConfig()
	if cfg.UploadPartSize > 0 {
		upload.PartSize = cfg.UploadPartSize
	}
	if cfg.UploadConcurrency > 0 {
		upload.Concurrency = cfg.UploadConcurrency
	}
	store := bss3.NewStore(client, cfg.Bucket, cfg.Prefix, bss3.WithUploadConfig(upload))
	if cfg.DynamoDBTable == "" {
		return store, nil
	}
	baseURI := "s3://" + cfg.Bucket + "/" + cfg.Prefix
	return bss3.NewCommitStore(store, dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable, baseURI), nil
}
