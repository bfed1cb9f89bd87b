package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeAllDropsUnnormalizable(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	writeJSONL(t, filepath.Join(in, "mixed.jsonl"),
		`{"instruction":""}`,
		`{"instruction":"x","output":"y"}`,
	)

	out := filepath.Join(dir, "corpus.jsonl")
	man, err := MergeAll(context.Background(), testCfg(t), MergeOptions{
		InputDir: in, Output: out,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, man.Written)
	assert.Equal(t, 1, man.Drops.MissingInstructionOrOutput)
	assert.Len(t, readLines(t, out), 1)
}

func TestMergeAllIdempotent(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	writeJSONL(t, filepath.Join(in, "a.jsonl"), numbered("a", 10)...)
	writeJSONL(t, filepath.Join(in, "b.jsonl"), numbered("b", 10)...)

	merge := func(out string) []byte {
		_, err := MergeAll(context.Background(), testCfg(t), MergeOptions{
			InputDir: in, Output: out,
		})
		require.NoError(t, err)
		data, err := os.ReadFile(out)
		require.NoError(t, err)
		return data
	}

	first := merge(filepath.Join(dir, "one.jsonl"))
	second := merge(filepath.Join(dir, "two.jsonl"))
	assert.Equal(t, first, second)
}

func TestMergeAllStreamOrder(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	// Files merge in lexical order, lines in file order.
	writeJSONL(t, filepath.Join(in, "b.jsonl"), `{"instruction":"third","output":"3"}`)
	writeJSONL(t, filepath.Join(in, "a.jsonl"),
		`{"instruction":"first","output":"1"}`,
		`{"instruction":"second","output":"2"}`,
	)

	out := filepath.Join(dir, "corpus.jsonl")
	_, err := MergeAll(context.Background(), testCfg(t), MergeOptions{
		InputDir: in, Output: out,
	})
	require.NoError(t, err)

	lines := readLines(t, out)
	require.Len(t, lines, 3)
	for i, want := range []string{"first", "second", "third"} {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[i]), &rec))
		assert.Equal(t, want, rec["instruction"])
	}
}

func TestMergeAllLabelsByFileStem(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	writeJSONL(t, filepath.Join(in, "dialogs.jsonl"), `{"instruction":"hi","output":"hello"}`)

	out := filepath.Join(dir, "corpus.jsonl")
	man, err := MergeAll(context.Background(), testCfg(t), MergeOptions{
		InputDir: in, Output: out,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, man.SourceCounts["dialogs"])

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(readLines(t, out)[0]), &rec))
	assert.Equal(t, "dialogs", rec["_source"])
}

func TestMergeAllCrossFileDedup(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	writeJSONL(t, filepath.Join(in, "a.jsonl"), `{"instruction":"hi","output":"hello"}`)
	writeJSONL(t, filepath.Join(in, "b.jsonl"), `{"instruction":"hi","output":"hello"}`)

	man, err := MergeAll(context.Background(), testCfg(t), MergeOptions{
		InputDir: in, Output: filepath.Join(dir, "corpus.jsonl"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, man.Written)
	assert.Equal(t, 1, man.Drops.Duplicate)
	assert.InDelta(t, 0.5, man.DedupRate, 1e-9)
}

func TestMergeAllParseErrorSkipsLine(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	writeJSONL(t, filepath.Join(in, "a.jsonl"),
		`{"instruction":"good","output":"fine"}`,
		`{not json`,
		`{"instruction":"also good","output":"fine too"}`,
	)

	man, err := MergeAll(context.Background(), testCfg(t), MergeOptions{
		InputDir: in, Output: filepath.Join(dir, "corpus.jsonl"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, man.Written)
	assert.Equal(t, 1, man.Drops.ParseError)
}

func TestMergeAllEmptyTree(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	require.NoError(t, os.MkdirAll(in, 0o755))

	_, err := MergeAll(context.Background(), testCfg(t), MergeOptions{
		InputDir: in, Output: filepath.Join(dir, "corpus.jsonl"),
	})
	assert.True(t, errors.Is(err, ErrZeroOutput))
}

func TestMergeAllWatchRequiresCache(t *testing.T) {
	err := MergeAllWatch(context.Background(), testCfg(t), MergeOptions{
		InputDir: t.TempDir(), Output: filepath.Join(t.TempDir(), "out.jsonl"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "global-cache")
}
