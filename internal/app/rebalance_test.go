package app

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebalanceExcludeSource(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.jsonl")
	writeJSONL(t, base,
		`{"instruction":"keep me","output":"ok","_source":"good"}`,
		`{"instruction":"drop me","output":"gone","_source":"bad"}`,
		`{"instruction":"keep me too","output":"ok","_source":"good"}`,
	)

	man, err := Rebalance(context.Background(), testCfg(t), RebalanceOptions{
		Base:           base,
		Output:         filepath.Join(dir, "out.jsonl"),
		ManifestPath:   filepath.Join(dir, "out.manifest.json"),
		ExcludeSources: []string{"bad"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, man.Written)
	assert.Equal(t, 1, man.Drops.ExcludedSource)
	assert.Equal(t, 2, man.SourceCounts["good"])
	assert.Zero(t, man.SourceCounts["bad"])
}

func TestRebalancePersonaOverride(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.jsonl")
	writeJSONL(t, base,
		`{"instruction":"hi","output":"hello","_source":"dialogs"}`,
		`{"instruction":"bye","output":"farewell","_source":"other"}`,
	)

	out := filepath.Join(dir, "out.jsonl")
	_, err := Rebalance(context.Background(), testCfg(t), RebalanceOptions{
		Base:         base,
		Output:       out,
		ManifestPath: filepath.Join(dir, "out.manifest.json"),
		Personas:     map[string]string{"dialogs": "sage"},
	})
	require.NoError(t, err)

	tagged := 0
	for _, line := range readLines(t, out) {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if rec["_source"] == "dialogs" {
			assert.Equal(t, "sage", rec["_persona"])
			tagged++
		} else {
			assert.NotContains(t, rec, "_persona")
		}
	}
	assert.Equal(t, 1, tagged)
}

func TestRebalanceInjectDedupsAgainstBase(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.jsonl")
	writeJSONL(t, base, `{"instruction":"hi","output":"hello","_source":"base"}`)

	inject := filepath.Join(dir, "extra.jsonl")
	writeJSONL(t, inject,
		`{"instruction":"hi","output":"hello"}`,
		`{"instruction":"new","output":"fresh"}`,
	)

	man, err := Rebalance(context.Background(), testCfg(t), RebalanceOptions{
		Base:         base,
		Output:       filepath.Join(dir, "out.jsonl"),
		ManifestPath: filepath.Join(dir, "out.manifest.json"),
		Inject:       []string{inject},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, man.Written)
	assert.Equal(t, 1, man.Drops.Duplicate)
	assert.Equal(t, 1, man.SourceCounts["extra"])
}

func TestRebalanceRequiresManifestPath(t *testing.T) {
	_, err := Rebalance(context.Background(), testCfg(t), RebalanceOptions{
		Base:   "base.jsonl",
		Output: "out.jsonl",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest")
}
