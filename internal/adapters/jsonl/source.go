// Package jsonl implements the filesystem side of the pipeline: lazy JSONL
// record sources (with glob expansion and malformed-line tolerance), the
// atomic output writer, and corpus-tree discovery for merge-all.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/corey/mixdown/internal/ports"
)

// Scanner limits. Instruction-tuning records routinely carry long outputs;
// lines beyond maxLineBytes fail as parse errors rather than aborting.
const (
	initialLineBytes = 64 * 1024
	maxLineBytes     = 32 * 1024 * 1024
)

// rawTextPrompt is the instruction used when wrapping bare-text records.
const rawTextPrompt = "Analyze the following:"

// FileSource streams raw records from one or more local files. Memory use is
// one line at a time regardless of file size.
type FileSource struct {
	files   []string
	wrapRaw bool

	idx     int
	file    *os.File
	scanner *bufio.Scanner

	// Parked records from a .json top-level array file.
	pending []ports.RawRecord
}

// Open expands pathOrGlob and returns a lazy source over the matching files,
// in sorted order. A pattern matching zero files is an error — the caller
// records it as source_load_failed and moves on.
func Open(pathOrGlob string, wrapRaw bool) (*FileSource, error) {
	var files []string
	if strings.ContainsAny(pathOrGlob, "*?[") {
		matches, err := filepath.Glob(pathOrGlob)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", pathOrGlob, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("glob %q matched no files", pathOrGlob)
		}
		sort.Strings(matches)
		files = matches
	} else {
		if _, err := os.Stat(pathOrGlob); err != nil {
			return nil, fmt.Errorf("open source: %w", err)
		}
		files = []string{pathOrGlob}
	}
	return &FileSource{files: files, wrapRaw: wrapRaw}, nil
}

// Next returns the next raw record. Malformed lines yield ports.ErrParse and
// the source keeps going; io.EOF marks exhaustion of every matched file.
func (s *FileSource) Next() (ports.RawRecord, error) {
	for {
		if len(s.pending) > 0 {
			raw := s.pending[0]
			s.pending = s.pending[1:]
			return s.finish(raw), nil
		}

		if s.scanner == nil {
			if err := s.advance(); err != nil {
				return nil, err
			}
			continue
		}

		if !s.scanner.Scan() {
			err := s.scanner.Err()
			s.closeCurrent()
			if err != nil {
				// Oversized or unreadable line: count it, keep going with
				// the next file rather than aborting the source.
				return nil, fmt.Errorf("%w: %v", ports.ErrParse, err)
			}
			continue
		}

		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var raw ports.RawRecord
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrParse, err)
		}
		return s.finish(raw), nil
	}
}

// advance opens the next file, loading .json array files eagerly and setting
// up a line scanner for everything else.
func (s *FileSource) advance() error {
	if s.idx >= len(s.files) {
		return io.EOF
	}
	path := s.files[s.idx]
	s.idx++

	if strings.EqualFold(filepath.Ext(path), ".json") {
		records, err := readJSONArray(path)
		if err != nil {
			return err
		}
		s.pending = records
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	s.file = f
	s.scanner = bufio.NewScanner(f)
	s.scanner.Buffer(make([]byte, initialLineBytes), maxLineBytes)
	return nil
}

// readJSONArray loads a .json file whose top level must be a list of objects.
// Any other shape rejects the file.
func readJSONArray(path string) ([]ports.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%s: top level is not a list: %w", path, err)
	}
	records := make([]ports.RawRecord, 0, len(items))
	for _, item := range items {
		var raw ports.RawRecord
		if err := json.Unmarshal(item, &raw); err != nil {
			continue // skip non-object entries, same tolerance as bad lines
		}
		records = append(records, raw)
	}
	return records, nil
}

// finish applies per-source cleaning to a parsed record.
func (s *FileSource) finish(raw ports.RawRecord) ports.RawRecord {
	if s.wrapRaw {
		wrapRawText(raw)
	}
	return raw
}

// wrapRawText turns a classification-style {"text", "label"} record into an
// analysis pair: the bare text moves under an explicit prompt and the label
// becomes the output. Records with real instruction/output fields pass
// through untouched.
func wrapRawText(raw ports.RawRecord) {
	text, hasText := raw["text"]
	label, hasLabel := raw["label"]
	if !hasText || !hasLabel {
		return
	}
	if _, has := raw["instruction"]; has {
		return
	}
	if _, has := raw["output"]; has {
		return
	}
	delete(raw, "text")
	delete(raw, "label")
	raw["instruction"] = rawTextPrompt + "\n\n" + coerceString(text)
	raw["output"] = coerceString(label)
}

func coerceString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func (s *FileSource) closeCurrent() {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	s.scanner = nil
}

// Close releases the currently open file, if any.
func (s *FileSource) Close() error {
	s.closeCurrent()
	return nil
}
