package app

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/mixdown/internal/ports"
)

func TestRecategorizeRewritesUnknown(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")

	lines := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		cat := ""
		if i%5 == 0 {
			cat = `,"_category":"unknown"`
		}
		lines = append(lines, fmt.Sprintf(`{"instruction":"task %d","output":"result %d"%s}`, i, i, cat))
	}
	writeJSONL(t, in, lines...)

	out := filepath.Join(dir, "out.jsonl")
	man, err := Recategorize(context.Background(), testCfg(t), RecategorizeOptions{
		Input: in, Output: out,
	})
	require.NoError(t, err)
	assert.Equal(t, 200, man.Written)

	got := readLines(t, out)
	require.Len(t, got, 200)
	for i, line := range got {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.Equal(t, fmt.Sprintf("task %d", i), rec["instruction"], "order preserved")
		assert.NotEqual(t, "unknown", rec["_category"])
		assert.True(t, ports.Bucket(rec["_category"].(string)).Valid())
	}
}

func TestRecategorizeKeepsValidCategories(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	writeJSONL(t, in,
		`{"instruction":"write a sorting function","output":"done","_category":"esoteric"}`,
	)

	out := filepath.Join(dir, "out.jsonl")
	_, err := Recategorize(context.Background(), testCfg(t), RecategorizeOptions{
		Input: in, Output: out,
	})
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(readLines(t, out)[0]), &rec))
	// A taxonomy tag other than unknown is stable under reclassification,
	// even when the keyword rules would disagree.
	assert.Equal(t, "esoteric", rec["_category"])
}

func TestRecategorizePassesBadLinesThrough(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	writeJSONL(t, in,
		`{"instruction":"good","output":"fine"}`,
		`{not json at all`,
		`{"instruction":"","output":"unnormalizable"}`,
	)

	out := filepath.Join(dir, "out.jsonl")
	man, err := Recategorize(context.Background(), testCfg(t), RecategorizeOptions{
		Input: in, Output: out,
	})
	require.NoError(t, err)

	got := readLines(t, out)
	require.Len(t, got, 3, "no line added or removed")
	assert.Equal(t, `{not json at all`, got[1])
	assert.Equal(t, `{"instruction":"","output":"unnormalizable"}`, got[2])
	assert.Equal(t, 1, man.Written)
	assert.Equal(t, 1, man.Drops.ParseError)
	assert.Equal(t, 1, man.Drops.MissingInstructionOrOutput)
}

func TestRecategorizePreservesOtherFields(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	writeJSONL(t, in,
		`{"instruction":"hi","output":"hello","_category":"unknown","_persona":"sage","extra":42}`,
	)

	out := filepath.Join(dir, "out.jsonl")
	_, err := Recategorize(context.Background(), testCfg(t), RecategorizeOptions{
		Input: in, Output: out,
	})
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(readLines(t, out)[0]), &rec))
	assert.Equal(t, "sage", rec["_persona"])
	assert.Equal(t, float64(42), rec["extra"])
	assert.NotEqual(t, "unknown", rec["_category"])
}
