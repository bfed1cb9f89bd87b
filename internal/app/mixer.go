package app

import (
	"math/rand"
	"sort"

	"github.com/corey/mixdown/internal/domain/mix"
	"github.com/corey/mixdown/internal/domain/plan"
	"github.com/corey/mixdown/internal/domain/record"
	"github.com/corey/mixdown/internal/ports"
)

// sampleMix executes a plan against the staged pools: per-bucket uniform
// draws, shortfall accounting, a top-up walk when the draws underrun the
// budget, then the deterministic shuffle. The returned slice is the final
// output order, at most budget long, with no repeated fingerprints.
func sampleMix(rng *rand.Rand, pools *poolSet, targets plan.Plan, budget int) ([]*ports.Record, map[ports.Bucket]int, error) {
	emitted := make([]*ports.Record, 0, budget)
	seen := make(map[ports.Fingerprint]bool, budget)
	shortfalls := make(map[ports.Bucket]int)

	for _, b := range ports.AllBuckets() {
		target := targets[b]
		if target <= 0 {
			continue
		}
		p := pools.get(b)
		if p == nil {
			shortfalls[b] = target
			continue
		}
		if p.size() < target {
			shortfalls[b] = target - p.size()
		}
		recs, err := p.draw(rng, target)
		if err != nil {
			return nil, nil, err
		}
		for _, rec := range recs {
			seen[record.Fingerprint(rec)] = true
			emitted = append(emitted, rec)
		}
	}

	// Underrun: spend the leftover budget on whatever the pools still hold,
	// starving buckets first, insertion order within each pool.
	if len(emitted) < budget {
		for _, b := range topUpOrder(shortfalls) {
			p := pools.get(b)
			if p == nil {
				continue
			}
			err := p.iterate(func(rec *ports.Record) bool {
				if len(emitted) >= budget {
					return false
				}
				fp := record.Fingerprint(rec)
				if seen[fp] {
					return true
				}
				seen[fp] = true
				emitted = append(emitted, rec)
				return true
			})
			if err != nil {
				return nil, nil, err
			}
			if len(emitted) >= budget {
				break
			}
		}
	}

	mix.Shuffle(rng, emitted)
	if len(emitted) > budget {
		emitted = emitted[:budget]
	}
	return emitted, shortfalls, nil
}

// topUpOrder returns all buckets sorted by shortfall, largest first, with the
// taxonomy's canonical order breaking ties.
func topUpOrder(shortfalls map[ports.Bucket]int) []ports.Bucket {
	buckets := ports.AllBuckets()
	sort.SliceStable(buckets, func(i, j int) bool {
		return shortfalls[buckets[i]] > shortfalls[buckets[j]]
	})
	return buckets
}
