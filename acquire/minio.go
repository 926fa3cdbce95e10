package acquire

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/qtshock/qtshockd/pkg/options"
)

// MinioFetcher reads artifacts from an S3-compatible bucket.
type MinioFetcher struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioFetcher creates a fetcher for the bucket described by opts.
func NewMinioFetcher(opts *options.S3Options) (*MinioFetcher, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioFetcher{
		client: client,
		bucket: opts.BucketName,
		prefix: opts.Prefix,
	}, nil
}

// Key returns the object key of name.
func (f *MinioFetcher) Key(name string) string {
	return path.Join(f.prefix, name)
}

// Fetch opens the object. The object is stat'ed first so a missing key
// fails here instead of on the first read.
func (f *MinioFetcher) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	key := f.Key(name)
	obj, err := f.client.GetObject(ctx, f.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", f.bucket, key, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("stat object %s/%s: %w", f.bucket, key, err)
	}
	return obj, nil
}
