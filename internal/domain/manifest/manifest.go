// Package manifest models the machine-readable sidecar each operation emits:
// what was written, where it came from, and why everything else was dropped.
// Manifest counts reconcile exactly with the output file — no record ever
// silently disappears.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/corey/mixdown/internal/ports"
)

// Drops counts every non-fatal drop reason.
type Drops struct {
	MissingInstructionOrOutput int `json:"missing_instruction_or_output"`
	Duplicate                  int `json:"duplicate"`
	ExcludedSource             int `json:"excluded_source"`
	SourceLoadFailed           int `json:"source_load_failed"`
	ParseError                 int `json:"parse_error"`
}

// Total returns the sum of all drop counters except source_load_failed,
// which counts sources, not records.
func (d Drops) Total() int {
	return d.MissingInstructionOrOutput + d.Duplicate + d.ExcludedSource + d.ParseError
}

// Manifest summarizes one corpus operation.
type Manifest struct {
	Operation   string `json:"operation"`
	Profile     string `json:"profile,omitempty"`
	ProfileHash string `json:"profile_hash,omitempty"`
	Seed        int64  `json:"seed"`
	Output      string `json:"output"`
	GeneratedAt string `json:"generated_at"`
	Version     string `json:"version"`

	Written        int                      `json:"written"`
	CategoryCounts map[ports.Bucket]int     `json:"category_counts"`
	SourceCounts   map[string]int           `json:"source_counts"`
	Shortfalls     map[ports.Bucket]int     `json:"shortfalls,omitempty"`
	DedupRate      float64                  `json:"dedup_rate"`
	Weights        map[ports.Bucket]float64 `json:"weights,omitempty"`
	Oversample     map[string]float64       `json:"oversample,omitempty"`
	Drops          Drops                    `json:"drop_reasons"`
	EmptySources   []string                 `json:"empty_sources"`
}

// New returns a manifest shell for one operation, stamped now.
func New(operation, version string) *Manifest {
	return &Manifest{
		Operation:      operation,
		Version:        version,
		GeneratedAt:    time.Now().UTC().Format(time.RFC3339),
		CategoryCounts: make(map[ports.Bucket]int),
		SourceCounts:   make(map[string]int),
		EmptySources:   []string{},
	}
}

// Count records one emitted record.
func (m *Manifest) Count(rec *ports.Record) {
	m.Written++
	m.CategoryCounts[rec.Category]++
	m.SourceCounts[rec.Source]++
}

// Finalize computes the dedup rate and the list of sources that contributed
// zero records. normalized is the number of records that survived
// canonicalization (the dedup gate's denominator).
func (m *Manifest) Finalize(normalized int, sourceLabels []string) {
	if normalized > 0 {
		m.DedupRate = float64(m.Drops.Duplicate) / float64(normalized)
	}
	m.EmptySources = m.EmptySources[:0]
	for _, label := range sourceLabels {
		if m.SourceCounts[label] == 0 {
			m.EmptySources = append(m.EmptySources, label)
		}
	}
	sort.Strings(m.EmptySources)
}

// Reconcile verifies the core invariant: written equals the per-category sum
// and the per-source sum.
func (m *Manifest) Reconcile() error {
	catSum, srcSum := 0, 0
	for _, n := range m.CategoryCounts {
		catSum += n
	}
	for _, n := range m.SourceCounts {
		srcSum += n
	}
	if m.Written != catSum || m.Written != srcSum {
		return fmt.Errorf("manifest mismatch: written=%d category_sum=%d source_sum=%d",
			m.Written, catSum, srcSum)
	}
	return nil
}

// Write emits the manifest as indented JSON at path, creating parent
// directories as needed.
func (m *Manifest) Write(path string) error {
	if err := m.Reconcile(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// DefaultPath derives the manifest path from an output path:
// corpus.jsonl -> corpus.manifest.json.
func DefaultPath(outputPath string) string {
	base := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))
	return base + ".manifest.json"
}
