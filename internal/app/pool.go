package app

import (
	"bufio"
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/corey/mixdown/internal/domain/mix"
	"github.com/corey/mixdown/internal/domain/record"
	"github.com/corey/mixdown/internal/ports"
)

// pool stages deduplicated, classified records for one bucket until the
// sampler draws from it. The first maxInMemory records stay in memory;
// everything past the cap spills to a JSONL shard so pool size is bounded
// by configuration, not corpus size. Insertion order is preserved: memory
// first, shard after.
type pool struct {
	bucket      ports.Bucket
	maxInMemory int
	spillDir    string

	mem       []*ports.Record
	shardPath string
	shardFile *os.File
	shardBuf  *bufio.Writer
	spilled   int
}

func newPool(bucket ports.Bucket, maxInMemory int, spillDir string) *pool {
	return &pool{bucket: bucket, maxInMemory: maxInMemory, spillDir: spillDir}
}

// add appends one record.
func (p *pool) add(rec *ports.Record) error {
	if len(p.mem) < p.maxInMemory {
		p.mem = append(p.mem, rec)
		return nil
	}
	if p.shardFile == nil {
		dir := p.spillDir
		if dir == "" {
			dir = os.TempDir()
		}
		f, err := os.CreateTemp(dir, fmt.Sprintf("mixdown-pool-%s-*.jsonl", p.bucket))
		if err != nil {
			return fmt.Errorf("create pool shard: %w", err)
		}
		p.shardFile = f
		p.shardPath = f.Name()
		p.shardBuf = bufio.NewWriterSize(f, 1<<20)
	}
	line, err := record.EncodeLine(rec)
	if err != nil {
		return fmt.Errorf("encode pool record: %w", err)
	}
	if _, err := p.shardBuf.Write(line); err != nil {
		return fmt.Errorf("write pool shard: %w", err)
	}
	if err := p.shardBuf.WriteByte('\n'); err != nil {
		return fmt.Errorf("write pool shard: %w", err)
	}
	p.spilled++
	return nil
}

// size returns the total number of staged records.
func (p *pool) size() int {
	return len(p.mem) + p.spilled
}

// iterate walks every staged record in insertion order. Returning false from
// fn stops the walk.
func (p *pool) iterate(fn func(*ports.Record) bool) error {
	for _, rec := range p.mem {
		if !fn(rec) {
			return nil
		}
	}
	if p.spilled == 0 {
		return nil
	}
	if err := p.flush(); err != nil {
		return err
	}
	f, err := os.Open(p.shardPath)
	if err != nil {
		return fmt.Errorf("open pool shard: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 32*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		raw, err := record.DecodeLine(line)
		if err != nil {
			return fmt.Errorf("decode pool shard: %w", err)
		}
		rec, ok := record.Canonicalize(raw)
		if !ok {
			return fmt.Errorf("pool shard entry lost its instruction/output")
		}
		if !fn(rec) {
			return nil
		}
	}
	return scanner.Err()
}

// draw samples k records uniformly without replacement, in one pass over the
// staged entries. Sampled indices ascend, so memory and shard are both read
// in insertion order.
func (p *pool) draw(rng *rand.Rand, k int) ([]*ports.Record, error) {
	total := p.size()
	if k >= total {
		out := make([]*ports.Record, 0, total)
		err := p.iterate(func(rec *ports.Record) bool {
			out = append(out, rec)
			return true
		})
		return out, err
	}

	indices := mix.SampleIndices(rng, total, k)
	out := make([]*ports.Record, 0, k)
	pos, next := 0, 0
	err := p.iterate(func(rec *ports.Record) bool {
		if next < len(indices) && pos == indices[next] {
			out = append(out, rec)
			next++
		}
		pos++
		return next < len(indices)
	})
	return out, err
}

// flush makes buffered shard writes visible to readers.
func (p *pool) flush() error {
	if p.shardBuf != nil {
		if err := p.shardBuf.Flush(); err != nil {
			return fmt.Errorf("flush pool shard: %w", err)
		}
	}
	return nil
}

// close removes the shard file.
func (p *pool) close() {
	if p.shardFile != nil {
		p.shardFile.Close()
		os.Remove(p.shardPath)
		p.shardFile = nil
	}
}

// poolSet is the per-run collection of bucket pools.
type poolSet struct {
	maxInMemory int
	spillDir    string
	pools       map[ports.Bucket]*pool
}

func newPoolSet(maxInMemory int, spillDir string) *poolSet {
	return &poolSet{
		maxInMemory: maxInMemory,
		spillDir:    spillDir,
		pools:       make(map[ports.Bucket]*pool),
	}
}

// add stages a record under its category.
func (ps *poolSet) add(rec *ports.Record) error {
	p, ok := ps.pools[rec.Category]
	if !ok {
		p = newPool(rec.Category, ps.maxInMemory, ps.spillDir)
		ps.pools[rec.Category] = p
	}
	return p.add(rec)
}

// get returns the pool for a bucket, or nil.
func (ps *poolSet) get(bucket ports.Bucket) *pool {
	return ps.pools[bucket]
}

// totalSize returns the number of staged records across all buckets.
func (ps *poolSet) totalSize() int {
	total := 0
	for _, p := range ps.pools {
		total += p.size()
	}
	return total
}

// close releases every shard.
func (ps *poolSet) close() {
	for _, p := range ps.pools {
		p.close()
	}
}

// ensureSpillDir creates the spill directory when one is configured.
func ensureSpillDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(filepath.Clean(dir), 0o755)
}
