// Package artifactstore implements the Kernel's content-addressed artifact
// store (C4): a SHA-256-keyed blob store with a two-level prefix tree
// filesystem layout, integrity-checked reads, and pluggable backends
// (local filesystem, S3, GCS).
package artifactstore

import (
	"context"
	"sort"

	"github.com/clawforge/kernel/pkg/crypto"
	"github.com/clawforge/kernel/pkg/kernelerrors"
)

func sha256Hex(data []byte) string { return crypto.Sha256Hex(data) }

// PutResult is returned by Put.
type PutResult struct {
	ArtifactID string `json:"artifactId"`
	SHA256     string `json:"sha256"`
	Size       int64  `json:"size"`
	MIME       string `json:"mime"`
	Label      string `json:"label"`
}

// Backend is the storage contract a concrete artifact-store driver
// implements; Store wraps a Backend with hashing, verification, and
// manifest logic common to every driver.
type Backend interface {
	WriteBlob(ctx context.Context, hash string, data []byte) error
	ReadBlob(ctx context.Context, hash string) ([]byte, error)
	ExistsBlob(ctx context.Context, hash string) (bool, error)
}

// Store is the content-addressed artifact store.
type Store struct {
	backend Backend
}

// NewStore wraps a Backend in the Store's hashing/verification logic.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Put persists data, keyed by its SHA-256 digest, and returns its descriptor.
func (s *Store) Put(ctx context.Context, data []byte, mime, label string) (*PutResult, error) {
	hash := sha256Hex(data)
	if err := s.backend.WriteBlob(ctx, hash, data); err != nil {
		return nil, err
	}
	return &PutResult{
		ArtifactID: hash,
		SHA256:     hash,
		Size:       int64(len(data)),
		MIME:       mime,
		Label:      label,
	}, nil
}

// Get retrieves bytes by hash, re-hashing on read and refusing to return
// bytes whose digest does not match the requested hash.
func (s *Store) Get(ctx context.Context, hash string) ([]byte, error) {
	data, err := s.backend.ReadBlob(ctx, hash)
	if err != nil {
		return nil, err
	}
	if sha256Hex(data) != hash {
		return nil, kernelerrors.New(kernelerrors.CodeArtifactVerificationFail,
			"stored bytes do not hash to the requested artifact id")
	}
	return data, nil
}

// Exists reports whether an artifact with the given hash is present,
// without reading or re-verifying its bytes.
func (s *Store) Exists(ctx context.Context, hash string) (bool, error) {
	return s.backend.ExistsBlob(ctx, hash)
}

// ManifestEntry is one row of a deterministic artifact manifest.
type ManifestEntry struct {
	ArtifactID string `json:"artifactId"`
	Size       int64  `json:"size"`
	MIME       string `json:"mime"`
	Label      string `json:"label"`
	Included   bool   `json:"included"`
}

// BuildManifest produces an ordered, deterministic manifest sorted by
// artifactId, marking each entry Included according to whether its size is
// at-or-below the caller-specified threshold.
func BuildManifest(entries []PutResult, includeThresholdBytes int64) []ManifestEntry {
	sorted := make([]PutResult, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ArtifactID < sorted[j].ArtifactID })

	out := make([]ManifestEntry, len(sorted))
	for i, e := range sorted {
		out[i] = ManifestEntry{
			ArtifactID: e.ArtifactID,
			Size:       e.Size,
			MIME:       e.MIME,
			Label:      e.Label,
			Included:   e.Size <= includeThresholdBytes,
		}
	}
	return out
}
