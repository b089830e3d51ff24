package storage

import (
	"context"
	"fmt"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver
	"gocloud.dev/gcerrors"
)

// BucketStore writes run artifacts to a blob bucket. Any bucket URL the
// gocloud drivers accept works, including S3-compatible endpoints such as
// B2, R2, and MinIO via s3:// query parameters.
type BucketStore struct {
	bucket    *blob.Bucket
	bucketURL string
	prefix    string
}

// NewBucketStore opens a bucket URL as a result store.
func NewBucketStore(ctx context.Context, bucketURL, prefix string) (*BucketStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}

	return &BucketStore{
		bucket:    bucket,
		bucketURL: bucketURL,
		prefix:    prefix,
	}, nil
}

// WriteParquet writes parquet bytes to the bucket.
func (s *BucketStore) WriteParquet(ctx context.Context, ref ResultRef, data []byte) error {
	return s.write(ctx, ref.Path(s.prefix), data)
}

// WriteManifest writes a manifest file to the bucket.
func (s *BucketStore) WriteManifest(ctx context.Context, ref ResultRef, manifest *Manifest) error {
	data, err := manifest.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return s.write(ctx, ref.ManifestPath(s.prefix), data)
}

func (s *BucketStore) write(ctx context.Context, key string, data []byte) error {
	w, err := s.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", key, err)
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write data to %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}

	return nil
}

// Exists checks if the run's manifest already exists.
func (s *BucketStore) Exists(ctx context.Context, ref ResultRef) (bool, error) {
	_, err := s.bucket.Attributes(ctx, ref.ManifestPath(s.prefix))
	if err == nil {
		return true, nil
	}
	if gcerrors.Code(err) == gcerrors.NotFound {
		return false, nil
	}
	return false, err
}

// URI returns the canonical URI for the given key.
func (s *BucketStore) URI(key string) string {
	base := s.bucketURL
	if i := strings.Index(base, "?"); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSuffix(base, "/") + "/" + key
}

// Close releases the bucket.
func (s *BucketStore) Close() error {
	return s.bucket.Close()
}
