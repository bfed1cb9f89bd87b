package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/corey/mixdown/internal/adapters/hub"
	"github.com/corey/mixdown/internal/adapters/jsonl"
	"github.com/corey/mixdown/internal/config"
	"github.com/corey/mixdown/internal/domain/manifest"
	"github.com/corey/mixdown/internal/domain/mix"
	"github.com/corey/mixdown/internal/domain/plan"
	"github.com/corey/mixdown/internal/ports"
)

// BuildOptions carries the build-profile flags.
type BuildOptions struct {
	Profile      *plan.Profile
	Output       string
	MaxTotal     int
	Seed         int64
	CachePath    string
	ResetCache   bool
	ManifestPath string // empty derives from Output
}

// BuildProfile assembles a corpus from a profile: ingest every source into
// bucket pools, plan per-bucket targets from the weights, sample, shuffle,
// and write the output JSONL plus its manifest.
func BuildProfile(ctx context.Context, cfg *config.Config, opts BuildOptions) (*manifest.Manifest, error) {
	profile := opts.Profile
	if opts.MaxTotal <= 0 {
		return nil, fmt.Errorf("max-total must be positive, got %d", opts.MaxTotal)
	}

	seed := mix.DeriveSeed(profile.Name, opts.Seed)
	rng := mix.NewRand(seed)

	store, err := OpenStore(opts.CachePath, opts.ResetCache)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if err := ensureSpillDir(cfg.Pools.SpillDir); err != nil {
		return nil, fmt.Errorf("create spill dir: %w", err)
	}
	pools := newPoolSet(cfg.Pools.MaxInMemory, cfg.Pools.SpillDir)
	defer pools.close()

	man := manifest.New("build-profile", Version)
	man.Profile = profile.Name
	man.ProfileHash = profile.Hash()
	man.Seed = seed
	man.Output = opts.Output
	man.Weights = profile.Weights
	man.Oversample = profile.Oversample

	in := &ingestor{
		store: store,
		sink:  pools,
		man:   man,
		rng:   rng,
		provider: hub.NewClient(
			hub.WithEndpoint(cfg.Hub.Endpoint),
			hub.WithToken(cfg.Hub.Token),
			hub.WithTimeout(cfg.HubTimeout()),
		),
	}

	// Profile order decides ingest order; priority reorders it and the
	// stable sort keeps the listed order among equal priorities.
	sources := make([]ports.SourceDescriptor, len(profile.Sources))
	copy(sources, profile.Sources)
	sort.SliceStable(sources, func(i, j int) bool { return sources[i].Priority < sources[j].Priority })

	labels := make([]string, 0, len(sources))
	for _, desc := range sources {
		labels = append(labels, desc.Label)
		if err := in.ingestSource(ctx, desc, profile.OversampleWeight(desc.Label)); err != nil {
			return nil, err
		}
	}

	targets := plan.Build(profile.Weights, opts.MaxTotal)
	records, shortfalls, err := sampleMix(rng, pools, targets, opts.MaxTotal)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("profile %q: %w", profile.Name, ErrZeroOutput)
	}
	man.Shortfalls = shortfalls

	writer, err := jsonl.NewWriter(opts.Output)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := writer.Write(rec); err != nil {
			writer.Abort()
			return nil, err
		}
		man.Count(rec)
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
