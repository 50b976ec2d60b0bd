// Package evidence implements the deterministic evidence bundle exporter
// (C13): a fixed-layout zip archive a third party can independently verify
// without access to the live Kernel, containing the run's events, every
// recorded artifact, their manifest, and the chain verification result.
package evidence

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/clawforge/kernel/pkg/artifactstore"
	"github.com/clawforge/kernel/pkg/crypto"
	"github.com/clawforge/kernel/pkg/eventstore"
	"github.com/clawforge/kernel/pkg/kernelerrors"
)

const (
	entryRun          = "evidence/run.json"
	entryEvents       = "evidence/events.jsonl"
	entrySchemaPrefix = "evidence/schemas/"
	entryManifest     = "evidence/artifacts/manifest.json"
	entryArtifactPre  = "evidence/artifacts/"
	entryChain        = "evidence/integrity/chain.json"
)

// RunInfo is the summary record written to evidence/run.json.
type RunInfo struct {
	RunID     string `json:"runId"`
	SessionID string `json:"sessionId"`
	SealedAt  string `json:"sealedAt,omitempty"`
	Status    string `json:"status"`
}

// SchemaDoc is one named JSON schema document bundled for offline
// verification (keyed by artifact type name, e.g. "DefinitionOfDone").
type SchemaDoc struct {
	Name string
	JSON []byte
}

// Bundle is everything an export pass assembles into the archive.
type Bundle struct {
	Run       RunInfo
	Events    []eventstore.Event
	Schemas   []SchemaDoc
	Artifacts []artifactstore.PutResult
	Blobs     map[string][]byte // artifactId -> bytes, keyed same as Artifacts
	Chain     eventstore.ChainVerification

	// IncludeThresholdBytes is the at-or-below size an artifact must be to
	// be streamed into the archive; artifacts over the threshold are listed
	// in the manifest (included: false) but their bytes are not written.
	// Zero includes only the bytes of zero-length artifacts.
	IncludeThresholdBytes int64
}

// Export writes bundle into a deterministic zip archive: entries are
// written in a fixed order with a fixed name layout, so two exports of the
// same bundle produce byte-identical archives. Every artifact marked
// included in the manifest has its bytes re-hashed against its claimed
// artifact id immediately before being written; a mismatch aborts the
// export with ARTIFACT_VERIFICATION_FAILED rather than shipping tampered
// evidence.
func Export(bundle Bundle) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	if err := writeJSON(w, entryRun, bundle.Run); err != nil {
		return nil, err
	}
	if err := writeEvents(w, bundle.Events); err != nil {
		return nil, err
	}

	schemas := make([]SchemaDoc, len(bundle.Schemas))
	copy(schemas, bundle.Schemas)
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
	for _, s := range schemas {
		if err := writeEntry(w, entrySchemaPrefix+s.Name+".json", s.JSON); err != nil {
			return nil, err
		}
	}

	manifest := artifactstore.BuildManifest(bundle.Artifacts, bundle.IncludeThresholdBytes)
	if err := writeJSON(w, entryManifest, manifest); err != nil {
		return nil, err
	}

	included := make(map[string]struct{}, len(manifest))
	for _, m := range manifest {
		if m.Included {
			included[m.ArtifactID] = struct{}{}
		}
	}

	artifactIDs := make([]string, 0, len(bundle.Blobs))
	for id := range bundle.Blobs {
		if _, ok := included[id]; !ok {
			continue
		}
		artifactIDs = append(artifactIDs, id)
	}
	sort.Strings(artifactIDs)
	for _, id := range artifactIDs {
		blob := bundle.Blobs[id]
		if got := crypto.Sha256Hex(blob); got != id {
			return nil, kernelerrors.Newf(kernelerrors.CodeArtifactVerificationFail,
				"artifact %s: blob hashes to %s, refusing to export", id, got)
		}
		if err := writeEntry(w, entryArtifactPre+id, blob); err != nil {
			return nil, err
		}
	}

	if err := writeJSON(w, entryChain, bundle.Chain); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

func writeJSON(w *zip.Writer, name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return writeEntry(w, name, data)
}

func writeEvents(w *zip.Writer, events []eventstore.Event) error {
	var buf bytes.Buffer
	for _, e := range events {
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event seq %d: %w", e.Seq, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return writeEntry(w, entryEvents, buf.Bytes())
}

// writeEntry writes one zip entry with a fixed, zero modtime header so the
// archive's bytes are a pure function of its contents.
func writeEntry(w *zip.Writer, name string, data []byte) error {
	header := &zip.FileHeader{Name: name, Method: zip.Deflate}
	fw, err := w.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	_, err = fw.Write(data)
	return err
}
