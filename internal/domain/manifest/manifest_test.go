package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/corey/mixdown/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest_CountAndReconcile(t *testing.T) {
	m := New("build-profile", "test")
	m.Count(&ports.Record{Source: "a", Category: ports.BucketInstruction})
	m.Count(&ports.Record{Source: "a", Category: ports.BucketCode})
	m.Count(&ports.Record{Source: "b", Category: ports.BucketCode})

	assert.Equal(t, 3, m.Written)
	assert.Equal(t, 2, m.CategoryCounts[ports.BucketCode])
	assert.Equal(t, 2, m.SourceCounts["a"])
	assert.NoError(t, m.Reconcile())

	m.Written++ // force a mismatch
	assert.Error(t, m.Reconcile())
}

func TestManifest_Finalize(t *testing.T) {
	m := New("build-profile", "test")
	m.Count(&ports.Record{Source: "a", Category: ports.BucketInstruction})
	m.Drops.Duplicate = 3

	m.Finalize(4, []string{"b", "a", "c"})
	assert.Equal(t, 0.75, m.DedupRate)
	assert.Equal(t, []string{"b", "c"}, m.EmptySources)
}

func TestManifest_FinalizeZeroNormalized(t *testing.T) {
	m := New("merge-all", "test")
	m.Finalize(0, nil)
	assert.Equal(t, 0.0, m.DedupRate)
}

func TestManifest_Write(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "corpus.manifest.json")

	m := New("merge-all", "test")
	m.Count(&ports.Record{Source: "a", Category: ports.BucketInstruction})
	m.Drops.ParseError = 1
	require.NoError(t, m.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var back Manifest
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 1, back.Written)
	assert.Equal(t, 1, back.Drops.ParseError)
	assert.Equal(t, "merge-all", back.Operation)
}

func TestManifest_WriteRejectsMismatch(t *testing.T) {
	m := New("merge-all", "test")
	m.Written = 5 // no per-category counts to match
	assert.Error(t, m.Write(filepath.Join(t.TempDir(), "m.json")))
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, "out/corpus.manifest.json", DefaultPath("out/corpus.jsonl"))
	assert.Equal(t, "corpus.manifest.json", DefaultPath("corpus.jsonl"))
}

func TestDrops_Total(t *testing.T) {
	d := Drops{MissingInstructionOrOutput: 1, Duplicate: 2, ExcludedSource: 3, SourceLoadFailed: 99, ParseError: 4}
	assert.Equal(t, 10, d.Total())
}
