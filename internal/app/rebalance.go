package app

import (
	"context"
	"fmt"

	"github.com/corey/mixdown/internal/adapters/jsonl"
	"github.com/corey/mixdown/internal/config"
	"github.com/corey/mixdown/internal/domain/manifest"
	"github.com/corey/mixdown/internal/ports"
)

// RebalanceOptions carries the rebalance flags. ExcludeSources drops every
// record whose source label matches; Personas stamps a persona tag onto
// records by source label; Inject lists extra corpus files mixed in after
// the base, under the same dedup store.
type RebalanceOptions struct {
	Base           string
	Output         string
	ManifestPath   string
	ExcludeSources []string
	Personas       map[string]string
	Inject         []string
}

// Rebalance rewrites an existing consolidated corpus: re-normalize and
// re-classify every base record, drop excluded sources, apply persona
// overrides, then stream the injection corpora through the same dedup store
// so only genuinely new records join. Output keeps stream order, base first.
func Rebalance(ctx context.Context, cfg *config.Config, opts RebalanceOptions) (*manifest.Manifest, error) {
	if opts.ManifestPath == "" {
		return nil, fmt.Errorf("rebalance requires an explicit manifest path")
	}

	// The store only needs to live for this pass, so it stays in memory.
	store, err := OpenStore("", false)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	man := manifest.New("rebalance", Version)
	man.Output = opts.Output

	writer, err := jsonl.NewWriter(opts.Output)
	if err != nil {
		return nil, err
	}

	exclude := make(map[string]bool, len(opts.ExcludeSources))
	for _, label := range opts.ExcludeSources {
		exclude[label] = true
	}

	in := &ingestor{
		store:   store,
		sink:    &writerSink{w: writer, man: man},
		man:     man,
		exclude: exclude,
		persona: opts.Personas,
	}

	labels := []string{fileStem(opts.Base)}
	base := ports.SourceDescriptor{Label: labels[0], Path: opts.Base}
	if err := in.ingestSource(ctx, base, 1); err != nil {
		writer.Abort()
		return nil, err
	}
	for _, path := range opts.Inject {
		label := fileStem(path)
		labels = append(labels, label)
		desc := ports.SourceDescriptor{Label: label, Path: path}
		if err := in.ingestSource(ctx, desc, 1); err != nil {
			writer.Abort()
			return nil, err
		}
	}

	if writer.Count() == 0 {
		writer.Abort()
		return nil, fmt.Errorf("rebalance of %s: %w", opts.Base, ErrZeroOutput)
	}
	if err := writer.Commit(); err != nil {
		return nil, err
	}

	man.Finalize(in.normalized, labels)
	if err := man.Write(opts.ManifestPath); err != nil {
		return nil, err
	}
	return man, nil
}
