// Package mix holds the deterministic sampling primitives behind the mixer:
// seeded randomness, uniform draws without replacement, reservoir sampling,
// and the oversampling arithmetic. Everything here is pure CPU; given the
// same seed the output is identical across runs and platforms.
package mix

import (
	"hash/fnv"
	"math"
	"math/rand"
	"sort"

	"github.com/corey/mixdown/internal/ports"
)

// DeriveSeed folds a profile name into a base seed so two profiles built with
// the same --seed still shuffle differently.
func DeriveSeed(name string, seed int64) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return seed ^ int64(h.Sum64())
}

// NewRand returns the deterministic random source used throughout a run.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// SampleIndices draws k distinct indices uniformly from [0, n), returned in
// ascending order so callers can satisfy them in one streaming pass. Uses
// Floyd's algorithm: k map insertions, no n-sized allocation.
func SampleIndices(rng *rand.Rand, n, k int) []int {
	if k >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	chosen := make(map[int]bool, k)
	for i := n - k; i < n; i++ {
		j := rng.Intn(i + 1)
		if chosen[j] {
			chosen[i] = true
		} else {
			chosen[j] = true
		}
	}
	out := make([]int, 0, k)
	for idx := range chosen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Reservoir keeps a uniform sample of size k over a stream of unknown length
// (algorithm R). Order of the kept items is unspecified.
type Reservoir struct {
	rng   *rand.Rand
	k     int
	seen  int
	items []*ports.Record
}

// NewReservoir returns a reservoir of capacity k.
func NewReservoir(rng *rand.Rand, k int) *Reservoir {
	return &Reservoir{rng: rng, k: k}
}

// Add offers one record to the reservoir.
func (r *Reservoir) Add(rec *ports.Record) {
	r.seen++
	if len(r.items) < r.k {
		r.items = append(r.items, rec)
		return
	}
	if j := r.rng.Intn(r.seen); j < r.k {
		r.items[j] = rec
	}
}

// Items returns the sampled records.
func (r *Reservoir) Items() []*ports.Record {
	return r.items
}

// Shuffle permutes recs in place with a Fisher–Yates shuffle.
func Shuffle(rng *rand.Rand, recs []*ports.Record) {
	rng.Shuffle(len(recs), func(i, j int) {
		recs[i], recs[j] = recs[j], recs[i]
	})
}

// OversampleCounts splits an oversampling weight into whole passes over the
// source plus a fractional reservoir size. A source of n records at weight w
// enters the pool floor(w) times, plus floor(frac(w)*n) reservoir-sampled
// extras. Weights at or below 1 mean one pass, no extras.
func OversampleCounts(w float64, n int) (passes, extra int) {
	if w <= 1 {
		return 1, 0
	}
	passes = int(math.Floor(w))
	frac := w - float64(passes)
	extra = int(math.Floor(frac * float64(n)))
	return passes, extra
}
