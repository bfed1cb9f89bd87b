package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/corey/mixdown/internal/config"
	"github.com/corey/mixdown/internal/domain/classify"
	"github.com/corey/mixdown/internal/domain/manifest"
	"github.com/corey/mixdown/internal/domain/record"
	"github.com/corey/mixdown/internal/ports"
)

// RecategorizeOptions carries the recategorize flags.
type RecategorizeOptions struct {
	Input        string
	Output       string
	ManifestPath string // empty derives from Output
}

// Recategorize rewrites only the _category field of a consolidated corpus
// with the current classifier. It never adds, removes, or reorders records
// and never touches the dedup store. Lines that cannot be parsed or
// normalized pass through untouched, so the output always has exactly the
// input's lines in the input's order.
func Recategorize(ctx context.Context, cfg *config.Config, opts RecategorizeOptions) (*manifest.Manifest, error) {
	in, err := os.Open(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Input, err)
	}
	defer in.Close()

	tmp := opts.Output + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", tmp, err)
	}
	w := bufio.NewWriterSize(out, 1<<20)

	man := manifest.New("recategorize", Version)
	man.Output = opts.Output

	abort := func(err error) (*manifest.Manifest, error) {
		out.Close()
		os.Remove(tmp)
		return nil, err
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 32*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		line := scanner.Bytes()
		rewritten, rec, outcome := recategorizeLine(line)
		if _, err := w.Write(rewritten); err != nil {
			return abort(fmt.Errorf("write %s: %w", tmp, err))
		}
		if err := w.WriteByte('\n'); err != nil {
			return abort(fmt.Errorf("write %s: %w", tmp, err))
		}
		// Passthrough lines stay in the output; the tallies below are
		// informational, not drops.
		switch outcome {
		case lineReclassified:
			man.Count(rec)
		case lineUnparseable:
			man.Drops.ParseError++
		case lineUnnormalizable:
			man.Drops.MissingInstructionOrOutput++
		}
	}
	if err := scanner.Err(); err != nil {
		return abort(fmt.Errorf("read %s: %w", opts.Input, err))
	}

	if err := w.Flush(); err != nil {
		return abort(fmt.Errorf("flush %s: %w", tmp, err))
	}
	if err := out.Close(); err != nil {
		return abort(fmt.Errorf("close %s: %w", tmp, err))
	}
	if err := os.Rename(tmp, opts.Output); err != nil {
		return nil, fmt.Errorf("commit %s: %w", opts.Output, err)
	}

	man.Finalize(0, nil)
	manifestPath := opts.ManifestPath
	if manifestPath == "" {
		manifestPath = manifest.DefaultPath(opts.Output)
	}
	if err := man.Write(manifestPath); err != nil {
		return nil, err
	}
	return man, nil
}

type lineOutcome int

const (
	lineBlank lineOutcome = iota
	lineReclassified
	lineUnparseable
	lineUnnormalizable
)

// recategorizeLine rewrites one line's _category, leaving every other field
// alone. On any failure the input line comes back verbatim.
func recategorizeLine(line []byte) ([]byte, *ports.Record, lineOutcome) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return line, nil, lineBlank
	}
	raw, err := record.DecodeLine(trimmed)
	if err != nil {
		return line, nil, lineUnparseable
	}
	rec, ok := record.Canonicalize(raw)
	if !ok {
		return line, nil, lineUnnormalizable
	}

	// A stale "unknown" tag would survive the classifier's own-tag rule, so
	// it is cleared first. Every other taxonomy value is stable under
	// reclassification.
	if rec.Category == ports.BucketUnknown {
		rec.Category = ""
	}
	rec.Category = classify.Classify(rec, ports.BucketAuto)

	raw["_category"] = string(rec.Category)
	encoded, err := json.Marshal(map[string]any(raw))
	if err != nil {
		return line, nil, lineUnparseable
	}
	return encoded, rec, lineReclassified
}
