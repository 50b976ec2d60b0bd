// Package config loads the Kernel's process-level configuration from the
// environment: where its event log and artifact store live, which schema
// major version it accepts, and which artifact-store backend to construct.
package config

import (
	"os"
	"strconv"
)

// Config holds Kernel configuration.
type Config struct {
	// LogLevel controls the structured logger's minimum level.
	LogLevel string
	// EventStorePath is the SQLite database path for the event log.
	EventStorePath string
	// ArtifactBackend selects the artifact store driver: "local", "s3", or "gcs".
	ArtifactBackend string
	// ArtifactBaseDir is the FileBackend root when ArtifactBackend is "local".
	ArtifactBaseDir string
	// ArtifactBucket names the S3/GCS bucket when ArtifactBackend is "s3" or "gcs".
	ArtifactBucket string
	// ArtifactRegion is the S3 region when ArtifactBackend is "s3".
	ArtifactRegion string
	// SchemaMajor is the required major version for every artifact's schemaVersion field.
	SchemaMajor int
	// ManifestIncludeThresholdBytes bounds which artifacts a manifest marks Included.
	ManifestIncludeThresholdBytes int64
}

// Load reads configuration from the environment, applying the Kernel's
// defaults where a variable is unset.
func Load() *Config {
	logLevel := os.Getenv("KERNEL_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	eventStorePath := os.Getenv("KERNEL_EVENT_STORE_PATH")
	if eventStorePath == "" {
		eventStorePath = "kernel_events.db"
	}

	backend := os.Getenv("KERNEL_ARTIFACT_BACKEND")
	if backend == "" {
		backend = "local"
	}

	baseDir := os.Getenv("KERNEL_ARTIFACT_BASE_DIR")
	if baseDir == "" {
		baseDir = "kernel_artifacts"
	}

	schemaMajor := 1
	if v := os.Getenv("KERNEL_SCHEMA_MAJOR"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			schemaMajor = parsed
		}
	}

	threshold := int64(1 << 20)
	if v := os.Getenv("KERNEL_MANIFEST_INCLUDE_THRESHOLD_BYTES"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			threshold = parsed
		}
	}

	return &Config{
		LogLevel:                       logLevel,
		EventStorePath:                 eventStorePath,
		ArtifactBackend:                backend,
		ArtifactBaseDir:                baseDir,
		ArtifactBucket:                 os.Getenv("KERNEL_ARTIFACT_BUCKET"),
		ArtifactRegion:                 os.Getenv("KERNEL_ARTIFACT_REGION"),
		SchemaMajor:                    schemaMajor,
		ManifestIncludeThresholdBytes:  threshold,
	}
}
