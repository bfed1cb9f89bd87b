package plan

import (
	"math"
	"sort"

	"github.com/corey/mixdown/internal/ports"
)

// Plan maps each bucket to its target emission count. Targets are what the
// profile asks for; shortfalls against what pools actually hold are the
// sampler's problem.
type Plan map[ports.Bucket]int

// Total returns the sum of all targets.
func (p Plan) Total() int {
	total := 0
	for _, n := range p {
		total += n
	}
	return total
}

// Build apportions budget across buckets proportionally to weights, using the
// largest-remainder method: floor every share, then hand the leftover units
// to the buckets with the largest fractional parts. Ties break on canonical
// bucket order so the plan is deterministic.
func Build(weights map[ports.Bucket]float64, budget int) Plan {
	p := make(Plan, len(weights))
	if budget <= 0 || len(weights) == 0 {
		return p
	}

	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return p
	}

	type share struct {
		bucket ports.Bucket
		frac   float64
	}
	shares := make([]share, 0, len(weights))

	assigned := 0
	for _, bucket := range ports.AllBuckets() {
		w, ok := weights[bucket]
		if !ok || w <= 0 {
			continue
		}
		exact := w / total * float64(budget)
		floor := int(math.Floor(exact))
		p[bucket] = floor
		assigned += floor
		shares = append(shares, share{bucket: bucket, frac: exact - float64(floor)})
	}

	// Remainder goes to the largest fractional parts. shares is already in
	// canonical bucket order, and sort.SliceStable keeps that order on ties.
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].frac > shares[j].frac })
	for i := 0; assigned < budget && i < len(shares); i++ {
		p[shares[i].bucket]++
		assigned++
	}
	return p
}
