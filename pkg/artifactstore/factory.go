package artifactstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BackendKind selects which concrete Backend NewFromConfig constructs.
type BackendKind string

const (
	BackendLocal BackendKind = "local"
	BackendS3    BackendKind = "s3"
	BackendGCS   BackendKind = "gcs"
)

// BackendConfig configures whichever backend BackendKind selects.
type BackendConfig struct {
	Kind BackendKind

	// local
	BaseDir string

	// s3 / gcs
	Bucket string
	Prefix string
}

// NewFromConfig constructs the Store's Backend from configuration, wiring
// the AWS or GCS SDK as needed. Only the selected kind's client is
// constructed; the others are left untouched.
func NewFromConfig(ctx context.Context, cfg BackendConfig) (Backend, error) {
	switch cfg.Kind {
	case BackendLocal:
		return NewFileBackend(cfg.BaseDir)
	case BackendS3:
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg)
		return NewS3Backend(client, cfg.Bucket, cfg.Prefix), nil
	case BackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return NewGCSBackend(client, cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown artifact store backend kind %q", cfg.Kind)
	}
}
