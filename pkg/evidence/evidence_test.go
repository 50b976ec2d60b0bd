package evidence

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/clawforge/kernel/pkg/artifactstore"
	"github.com/clawforge/kernel/pkg/crypto"
	"github.com/clawforge/kernel/pkg/eventstore"
	"github.com/clawforge/kernel/pkg/kernelerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleBlob = []byte(`{"title":"ship it"}`)
var sampleBlobID = crypto.Sha256Hex(sampleBlob)

func sampleBundle() Bundle {
	return Bundle{
		Run: RunInfo{RunID: "run-1", SessionID: "session-1", Status: "sealed"},
		Events: []eventstore.Event{
			{RunID: "run-1", Seq: 1, Type: "RunStarted", Hash: "h1"},
		},
		Artifacts: []artifactstore.PutResult{
			{ArtifactID: sampleBlobID, Size: int64(len(sampleBlob)), MIME: "application/json", Label: "dod"},
		},
		Blobs:                 map[string][]byte{sampleBlobID: sampleBlob},
		Chain:                 eventstore.ChainVerification{Valid: true, EventCount: 1, Hashes: []string{"h1"}},
		IncludeThresholdBytes: 1024,
	}
}

func TestExportProducesExpectedEntries(t *testing.T) {
	data, err := Export(sampleBundle())
	require.NoError(t, err)

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, entryRun)
	assert.Contains(t, names, entryEvents)
	assert.Contains(t, names, entryManifest)
	assert.Contains(t, names, entryArtifactPre+sampleBlobID)
	assert.Contains(t, names, entryChain)
}

func TestExportIsDeterministic(t *testing.T) {
	bundle := sampleBundle()
	first, err := Export(bundle)
	require.NoError(t, err)
	second, err := Export(bundle)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// An artifact over the threshold is listed in the manifest but its bytes
// are not streamed into the archive.
func TestExportExcludesArtifactsOverThreshold(t *testing.T) {
	bundle := sampleBundle()
	bundle.IncludeThresholdBytes = 1

	data, err := Export(bundle)
	require.NoError(t, err)

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, entryManifest)
	assert.NotContains(t, names, entryArtifactPre+sampleBlobID)
}

// A blob whose bytes no longer hash to its claimed artifact id aborts the
// export instead of shipping tampered evidence.
func TestExportAbortsOnArtifactHashMismatch(t *testing.T) {
	bundle := sampleBundle()
	bundle.Blobs[sampleBlobID] = []byte(`{"title":"tampered"}`)

	_, err := Export(bundle)
	require.Error(t, err)
	code, ok := kernelerrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, kernelerrors.CodeArtifactVerificationFail, code)
}
