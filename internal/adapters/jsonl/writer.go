package jsonl

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/corey/mixdown/internal/domain/record"
	"github.com/corey/mixdown/internal/ports"
)

// Writer emits canonical records as JSONL, one per line with sorted keys.
// Output goes to a temp file and moves into place on Commit, so a crashed
// run never leaves a half-written corpus at the final path.
type Writer struct {
	final string
	tmp   string
	file  *os.File
	buf   *bufio.Writer
	count int
}

// NewWriter opens a writer targeting path, creating parent directories.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return &Writer{
		final: path,
		tmp:   tmp,
		file:  f,
		buf:   bufio.NewWriterSize(f, 1<<20),
	}, nil
}

// Write appends one record.
func (w *Writer) Write(rec *ports.Record) error {
	line, err := record.EncodeLine(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if _, err := w.buf.Write(line); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	w.count++
	return nil
}

// Count returns how many records have been written.
func (w *Writer) Count() int {
	return w.count
}

// Commit flushes, closes, and atomically moves the output into place.
func (w *Writer) Commit() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("flush output: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(w.tmp, w.final); err != nil {
		return fmt.Errorf("finalize output: %w", err)
	}
	return nil
}

// Abort discards the temp file. Safe to call after a failed Commit.
func (w *Writer) Abort() {
	w.file.Close()
	os.Remove(w.tmp)
}
