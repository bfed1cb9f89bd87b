package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/corey/mixdown/internal/adapters/fswatch"
	"github.com/corey/mixdown/internal/adapters/jsonl"
	"github.com/corey/mixdown/internal/config"
	"github.com/corey/mixdown/internal/domain/manifest"
	"github.com/corey/mixdown/internal/domain/record"
	"github.com/corey/mixdown/internal/ports"
)

// MergeOptions carries the merge-all flags.
type MergeOptions struct {
	InputDir     string
	Output       string
	CachePath    string
	ManifestPath string // empty derives from Output
}

// writerSink streams gate survivors straight to the output file, counting
// them in the manifest as they land. Merge order is stream order, so no
// staging is needed.
type writerSink struct {
	w   *jsonl.Writer
	man *manifest.Manifest
}

func (s *writerSink) add(rec *ports.Record) error {
	if err := s.w.Write(rec); err != nil {
		return err
	}
	s.man.Count(rec)
	return nil
}

// MergeAll consolidates every JSONL file under a directory tree into one
// deduplicated corpus. Records keep their stream order: files sort
// lexically, lines keep file order. Without a cache path the dedup store is
// in-memory, which makes repeat runs reproduce the same output byte for
// byte.
func MergeAll(ctx context.Context, cfg *config.Config, opts MergeOptions) (*manifest.Manifest, error) {
	return mergeAll(ctx, opts, false)
}

func mergeAll(ctx context.Context, opts MergeOptions, resetCache bool) (*manifest.Manifest, error) {
	store, err := OpenStore(opts.CachePath, resetCache)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	man := manifest.New("merge-all", Version)
	man.Output = opts.Output

	writer, err := jsonl.NewWriter(opts.Output)
	if err != nil {
		return nil, err
	}

	in := &ingestor{
		store: store,
		sink:  &writerSink{w: writer, man: man},
		man:   man,
	}

	labels, err := mergeTree(ctx, in, opts.InputDir)
	if err != nil {
		writer.Abort()
		return nil, err
	}
	if writer.Count() == 0 {
		writer.Abort()
		return nil, fmt.Errorf("no records under %s: %w", opts.InputDir, ErrZeroOutput)
	}
	if err := writer.Commit(); err != nil {
		return nil, err
	}

	man.Finalize(in.normalized, labels)
	manifestPath := opts.ManifestPath
	if manifestPath == "" {
		manifestPath = manifest.DefaultPath(opts.Output)
	}
	if err := man.Write(manifestPath); err != nil {
		return nil, err
	}
	return man, nil
}

// mergeTree ingests every corpus file under root, labeled by file stem.
func mergeTree(ctx context.Context, in *ingestor, root string) ([]string, error) {
	files, err := jsonl.ListTree(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	labels := make([]string, 0, len(files))
	for _, path := range files {
		label := fileStem(path)
		labels = append(labels, label)
		desc := ports.SourceDescriptor{Label: label, Path: path}
		if err := in.ingestSource(ctx, desc, 1); err != nil {
			return nil, err
		}
	}
	return labels, nil
}

// fileStem returns a file's base name without its extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// MergeAllWatch runs one full merge, then keeps the output current: whenever
// a corpus file under the input directory changes, its records stream through
// the same dedup store and any new ones append to the output. The manifest is
// rewritten after every increment. Blocks until ctx is cancelled.
func MergeAllWatch(ctx context.Context, cfg *config.Config, opts MergeOptions) error {
	// Watch mode needs the store to outlive the initial merge, so the cache
	// has to be real. An in-memory store would forget the initial output.
	if opts.CachePath == "" {
		return fmt.Errorf("merge-all --watch requires --global-cache")
	}

	// Reset so a restarted watch rebuilds the output instead of seeing its
	// own previous session as all duplicates.
	man, err := mergeAll(ctx, opts, true)
	if err != nil {
		return err
	}

	store, err := OpenStore(opts.CachePath, false)
	if err != nil {
		return err
	}
	defer store.Close()

	changed := make(chan string, 64)

	watcher, err := fswatch.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if err := watcher.Watch(opts.InputDir, func(path string) {
		select {
		case changed <- path:
		default:
		}
	}); err != nil {
		watcher.Stop()
		return fmt.Errorf("watch %s: %w", opts.InputDir, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer watcher.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case path := <-changed:
				if err := mergeIncrement(ctx, store, man, opts, path); err != nil {
					return err
				}
			}
		}
	})
	return g.Wait()
}

// mergeIncrement streams one changed file through the dedup store and appends
// whatever is new to the committed output, then rewrites the manifest.
func mergeIncrement(ctx context.Context, store ports.DedupStore, man *manifest.Manifest, opts MergeOptions, path string) error {
	f, err := os.OpenFile(opts.Output, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("append to %s: %w", opts.Output, err)
	}
	defer f.Close()

	in := &ingestor{
		store: store,
		sink:  &appendSink{f: f, man: man},
		man:   man,
	}
	desc := ports.SourceDescriptor{Label: fileStem(path), Path: path}
	if err := in.ingestSource(ctx, desc, 1); err != nil {
		return err
	}

	manifestPath := opts.ManifestPath
	if manifestPath == "" {
		manifestPath = manifest.DefaultPath(opts.Output)
	}
	return man.Write(manifestPath)
}

// appendSink writes gate survivors onto an already committed output file.
type appendSink struct {
	f   *os.File
	man *manifest.Manifest
}

func (s *appendSink) add(rec *ports.Record) error {
	line, err := record.EncodeLine(rec)
	if err != nil {
		return err
	}
	if _, err := s.f.Write(append(line, '\n')); err != nil {
		return err
	}
	s.man.Count(rec)
	return nil
}
