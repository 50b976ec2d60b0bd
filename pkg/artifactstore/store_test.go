package artifactstore

import (
	"context"
	"os"
	"testing"

	"github.com/clawforge/kernel/pkg/kernelerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	return NewStore(backend)
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.Put(ctx, []byte("hello kernel"), "text/plain", "greeting")
	require.NoError(t, err)
	assert.Len(t, res.SHA256, 64)

	data, err := s.Get(ctx, res.SHA256)
	require.NoError(t, err)
	assert.Equal(t, "hello kernel", string(data))

	exists, err := s.Exists(ctx, res.SHA256)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetMissingArtifact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	missingHash := "0000000000000000000000000000000000000000000000000000000000000000"[:64]
	_, err := s.Get(ctx, missingHash)
	assert.Error(t, err)
}

func TestGetTamperedBlobFailsVerification(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.Put(ctx, []byte("original content"), "text/plain", "doc")
	require.NoError(t, err)

	fb := s.backend.(*FileBackend)
	path, err := fb.pathFor(res.SHA256)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("tampered content"), 0o644))

	_, err = s.Get(ctx, res.SHA256)
	require.Error(t, err)
	code, ok := kernelerrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, kernelerrors.CodeArtifactVerificationFail, code)
}

func TestBuildManifestDeterministicOrder(t *testing.T) {
	entries := []PutResult{
		{ArtifactID: "b", Size: 10},
		{ArtifactID: "a", Size: 2000},
		{ArtifactID: "c", Size: 5},
	}
	manifest := BuildManifest(entries, 100)
	require.Len(t, manifest, 3)
	assert.Equal(t, "a", manifest[0].ArtifactID)
	assert.Equal(t, "b", manifest[1].ArtifactID)
	assert.Equal(t, "c", manifest[2].ArtifactID)
	assert.False(t, manifest[0].Included) // 2000 > 100
	assert.True(t, manifest[1].Included)
	assert.True(t, manifest[2].Included)
}
