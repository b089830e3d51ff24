package runtime

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver

	"github.com/B612-Asteroid-Institute/ipod/internal/metrics"
	"github.com/B612-Asteroid-Institute/ipod/internal/orbits"
)

func init() {
	// Concrete types carried through the store's `any` surface.
	gob.Register([]string(nil))
	gob.Register(&orbits.Orbits{})
	gob.Register(&orbits.Members{})
	gob.Register(&orbits.Observations{})
}

// payload wraps a stored value so gob can round-trip interface-typed
// objects.
type payload struct {
	V any
}

// BlobStore is an object store backed by a blob bucket (local directory,
// GCS, or S3). Values are gob-encoded and zstd-compressed. It serves runs
// whose shared inputs should live outside process memory or be visible to
// out-of-process workers.
type BlobStore struct {
	bucket *blob.Bucket
	prefix string
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// OpenBlobStore opens a bucket URL (file://, gs://, s3://) as an object
// store. Keys are placed under the given prefix.
func OpenBlobStore(ctx context.Context, bucketURL, prefix string) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		bucket.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		enc.Close()
		bucket.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &BlobStore{bucket: bucket, prefix: prefix, enc: enc, dec: dec}, nil
}

// Put gob-encodes, compresses, and writes the value under a fresh key.
func (s *BlobStore) Put(ctx context.Context, value any) (Ref, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload{V: value}); err != nil {
		return Ref{}, fmt.Errorf("encode object: %w", err)
	}

	key := s.prefix + uuid.New().String() + ".gob.zst"
	compressed := s.enc.EncodeAll(buf.Bytes(), nil)

	if err := s.bucket.WriteAll(ctx, key, compressed, nil); err != nil {
		return Ref{}, fmt.Errorf("write object %s: %w", key, err)
	}

	if m := metrics.Get(); m != nil {
		m.IncStorePuts()
		m.AddStoreBytes(float64(len(compressed)))
	}
	return Ref{Key: key}, nil
}

// Get reads, decompresses, and decodes the value behind a reference.
func (s *BlobStore) Get(ctx context.Context, ref Ref) (any, error) {
	compressed, err := s.bucket.ReadAll(ctx, ref.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, ref.Key, err)
	}

	raw, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress object %s: %w", ref.Key, err)
	}

	var p payload
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode object %s: %w", ref.Key, err)
	}
	return p.V, nil
}

// Free deletes the referenced objects from the bucket.
func (s *BlobStore) Free(ctx context.Context, refs []Ref) error {
	for _, r := range refs {
		if err := s.bucket.Delete(ctx, r.Key); err != nil {
			return fmt.Errorf("delete object %s: %w", r.Key, err)
		}
	}
	return nil
}

// Close releases the bucket and codec resources.
func (s *BlobStore) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.bucket.Close()
}
