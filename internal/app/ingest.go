package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"

	"github.com/corey/mixdown/internal/adapters/jsonl"
	"github.com/corey/mixdown/internal/domain/classify"
	"github.com/corey/mixdown/internal/domain/manifest"
	"github.com/corey/mixdown/internal/domain/mix"
	"github.com/corey/mixdown/internal/domain/record"
	"github.com/corey/mixdown/internal/ports"
)

// recordSink receives records that survive the dedup gate. build-profile
// stages them in bucket pools; merge-all writes them straight out.
type recordSink interface {
	add(*ports.Record) error
}

// ingestor streams raw records from sources into a sink: normalize, classify,
// fingerprint, dedup, deliver. It owns no I/O beyond what the source and
// store adapters expose, and it never aborts on a bad source.
type ingestor struct {
	store    ports.DedupStore
	sink     recordSink
	man      *manifest.Manifest
	provider ports.Provider
	rng      *rand.Rand

	// exclude drops records by source label; persona stamps a persona tag
	// onto records by source label. Both are rebalance rules, empty
	// elsewhere.
	exclude map[string]bool
	persona map[string]string

	// normalized counts records that survived canonicalization and reached
	// the dedup gate. It is the denominator of the dedup rate.
	normalized int
}

// ingestSource drains one descriptor into the sink. oversample > 1 buffers
// the source in memory and replays it through the dedup gate, so oversampled
// sources should be small.
//
// Source failures are recorded, never fatal: an open error, a mid-stream
// error, or a zero-record yield each count one source_load_failed and the
// run moves on.
func (in *ingestor) ingestSource(ctx context.Context, desc ports.SourceDescriptor, oversample float64) error {
	src, err := in.open(ctx, desc)
	if err != nil {
		slog.Warn("source failed to open", "label", desc.Label, "error", err)
		in.man.Drops.SourceLoadFailed++
		return nil
	}
	defer src.Close()

	var buffered []*ports.Record
	buffering := oversample > 1

	yielded := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if desc.MaxExamples > 0 && yielded >= desc.MaxExamples {
			break
		}
		raw, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, ports.ErrParse) {
			in.man.Drops.ParseError++
			continue
		}
		if err != nil {
			slog.Warn("source failed mid-stream", "label", desc.Label, "error", err)
			in.man.Drops.SourceLoadFailed++
			return nil
		}
		yielded++

		rec, ok := record.Canonicalize(raw)
		if !ok {
			in.man.Drops.MissingInstructionOrOutput++
			continue
		}
		if rec.Source == "" {
			rec.Source = desc.Label
		}
		if in.exclude[rec.Source] {
			in.man.Drops.ExcludedSource++
			continue
		}
		if tag, ok := in.persona[rec.Source]; ok {
			if rec.Meta == nil {
				rec.Meta = make(map[string]any)
			}
			rec.Meta["_persona"] = tag
		}
		rec.Category = classify.Classify(rec, desc.BucketOverride)

		if buffering {
			buffered = append(buffered, rec)
			continue
		}
		if err := in.gate(rec); err != nil {
			return err
		}
	}

	if yielded == 0 {
		slog.Warn("source yielded no records", "label", desc.Label)
		in.man.Drops.SourceLoadFailed++
		return nil
	}

	if buffering {
		return in.replay(buffered, oversample)
	}
	return nil
}

// open resolves a descriptor to a record stream.
func (in *ingestor) open(ctx context.Context, desc ports.SourceDescriptor) (ports.Source, error) {
	if desc.Remote() {
		return in.provider.Open(ctx, desc.Dataset, desc.Config, desc.Split, desc.TrustRemoteCode)
	}
	return jsonl.Open(desc.Path, desc.WrapRawText)
}

// gate runs one record through exact dedup and, if it is new, stages it.
func (in *ingestor) gate(rec *ports.Record) error {
	in.normalized++
	added, err := in.store.AddIfAbsent(record.Fingerprint(rec))
	if err != nil {
		return err
	}
	if !added {
		in.man.Drops.Duplicate++
		return nil
	}
	return in.sink.add(rec)
}

// replay applies an oversampling weight to a buffered source by repetition
// ahead of the dedup gate: floor(w) full passes plus a reservoir-sampled
// fractional remainder, every copy fed through the gate. The gate collapses
// the repeats, so the net effect is that all of the source's distinct records
// reach the pools even when the weight's emphasis is lost to exact dedup.
func (in *ingestor) replay(buffered []*ports.Record, oversample float64) error {
	passes, extra := mix.OversampleCounts(oversample, len(buffered))
	for i := 0; i < passes; i++ {
		for _, rec := range buffered {
			if err := in.gate(rec); err != nil {
				return err
			}
		}
	}
	if extra > 0 {
		res := mix.NewReservoir(in.rng, extra)
		for _, rec := range buffered {
			res.Add(rec)
		}
		for _, rec := range res.Items() {
			if err := in.gate(rec); err != nil {
				return err
			}
		}
	}
	return nil
}
