package artifactstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client is the subset of the S3 API the backend needs, so tests can
// supply a fake without pulling in a real AWS session.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Backend stores artifacts as objects under the same two-level prefix key
// layout used by the filesystem backend, so the key scheme is portable
// across drivers.
type S3Backend struct {
	client S3Client
	bucket string
	prefix string
}

// NewS3Backend wraps an S3 client for a given bucket. prefix, if non-empty,
// is joined to every object key with a "/" (e.g. prefix "artifacts" gives
// keys of the form "artifacts/ab/ab...").
func NewS3Backend(client S3Client, bucket, prefix string) *S3Backend {
	return &S3Backend{client: client, bucket: bucket, prefix: prefix}
}

func (b *S3Backend) key(hash string) string {
	if b.prefix == "" {
		return fmt.Sprintf("%s/%s", hash[:2], hash)
	}
	return fmt.Sprintf("%s/%s/%s", b.prefix, hash[:2], hash)
}

func (b *S3Backend) WriteBlob(ctx context.Context, hash string, data []byte) error {
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
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(hash)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", hash, err)
	}
	return nil
}

func (b *S3Backend) ReadBlob(ctx context.Context, hash string) ([]byte, error) {
	if !hashPattern.MatchString(hash) {
		return nil, fmt.Errorf("invalid artifact hash: %q", hash)
	}
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(hash)),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", hash, err)
	}
	defer func() { _ = out.Body.Close() }()
	return io.ReadAll(out.Body)
}

func (b *S3Backend) ExistsBlob(ctx context.Context, hash string) (bool, error) {
	if !hashPattern.MatchString(hash) {
		return false, fmt.Errorf("invalid artifact hash: %q", hash)
	}
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(hash)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("s3 head %s: %w", hash, err)
	}
	return true, nil
}
