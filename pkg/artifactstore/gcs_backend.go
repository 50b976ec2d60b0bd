package artifactstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSBackend stores artifacts as objects in a Google Cloud Storage bucket,
// using the same two-level prefix key layout as the other backends.
type GCSBackend struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSBackend wraps a GCS client for a given bucket.
func NewGCSBackend(client *storage.Client, bucket, prefix string) *GCSBackend {
	return &GCSBackend{client: client, bucket: bucket, prefix: prefix}
}

func (b *GCSBackend) key(hash string) string {
	if b.prefix == "" {
		return fmt.Sprintf("%s/%s", hash[:2], hash)
	}
	return fmt.Sprintf("%s/%s/%s", b.prefix, hash[:2], hash)
}

func (b *GCSBackend) WriteBlob(ctx context.Context, hash string, data []byte) error {
	if !hashPattern.MatchString(hash) {
		return fmt.Errorf("invalid artifact hash: %q", hash)
	}
	exists, err := b.ExistsBlob(ctx, hash)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	obj := b.client.Bucket(b.bucket).Object(b.key(hash))
	w := obj.NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write %s: %w", hash, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs finalize %s: %w", hash, err)
	}
	return nil
}

func (b *GCSBackend) ReadBlob(ctx context.Context, hash string) ([]byte, error) {
	if !hashPattern.MatchString(hash) {
		return nil, fmt.Errorf("invalid artifact hash: %q", hash)
	}
	r, err := b.client.Bucket(b.bucket).Object(b.key(hash)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs read %s: %w", hash, err)
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

func (b *GCSBackend) ExistsBlob(ctx context.Context, hash string) (bool, error) {
	if !hashPattern.MatchString(hash) {
		return false, fmt.Errorf("invalid artifact hash: %q", hash)
	}
	_, err := b.client.Bucket(b.bucket).Object(b.key(hash)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("gcs stat %s: %w", hash, err)
	}
	return true, nil
}
