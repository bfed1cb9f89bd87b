package mix

import (
	"fmt"
	"testing"

	"github.com/corey/mixdown/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSeed(t *testing.T) {
	assert.Equal(t, DeriveSeed("a", 42), DeriveSeed("a", 42))
	assert.NotEqual(t, DeriveSeed("a", 42), DeriveSeed("b", 42))
	assert.NotEqual(t, DeriveSeed("a", 42), DeriveSeed("a", 43))
}

func TestSampleIndices(t *testing.T) {
	rng := NewRand(1)
	got := SampleIndices(rng, 100, 10)
	require.Len(t, got, 10)

	seen := make(map[int]bool)
	last := -1
	for _, idx := range got {
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 100)
		assert.False(t, seen[idx], "duplicate index %d", idx)
		assert.Greater(t, idx, last, "indices must ascend")
		seen[idx] = true
		last = idx
	}
}

func TestSampleIndices_KAtLeastN(t *testing.T) {
	rng := NewRand(1)
	assert.Equal(t, []int{0, 1, 2}, SampleIndices(rng, 3, 3))
	assert.Equal(t, []int{0, 1, 2}, SampleIndices(rng, 3, 10))
}

func TestSampleIndices_Deterministic(t *testing.T) {
	a := SampleIndices(NewRand(7), 1000, 50)
	b := SampleIndices(NewRand(7), 1000, 50)
	assert.Equal(t, a, b)
}

func TestReservoir(t *testing.T) {
	rng := NewRand(3)
	res := NewReservoir(rng, 5)
	for i := 0; i < 100; i++ {
		res.Add(&ports.Record{Instruction: fmt.Sprintf("r%d", i), Output: "x"})
	}
	require.Len(t, res.Items(), 5)

	seen := make(map[string]bool)
	for _, rec := range res.Items() {
		assert.False(t, seen[rec.Instruction])
		seen[rec.Instruction] = true
	}
}

func TestReservoir_FewerThanK(t *testing.T) {
	res := NewReservoir(NewRand(3), 10)
	for i := 0; i < 4; i++ {
		res.Add(&ports.Record{Instruction: fmt.Sprintf("r%d", i), Output: "x"})
	}
	assert.Len(t, res.Items(), 4)
}

func TestReservoir_Uniformity(t *testing.T) {
	// Each of 10 items should land in a size-5 reservoir about half the time.
	hits := make(map[string]int)
	for trial := 0; trial < 2000; trial++ {
		res := NewReservoir(NewRand(int64(trial)), 5)
		for i := 0; i < 10; i++ {
			res.Add(&ports.Record{Instruction: fmt.Sprintf("r%d", i), Output: "x"})
		}
		for _, rec := range res.Items() {
			hits[rec.Instruction]++
		}
	}
	for name, n := range hits {
		assert.InDelta(t, 1000, n, 120, "item %s kept %d times", name, n)
	}
}

func TestShuffle_Deterministic(t *testing.T) {
	build := func() []*ports.Record {
		recs := make([]*ports.Record, 20)
		for i := range recs {
			recs[i] = &ports.Record{Instruction: fmt.Sprintf("r%d", i), Output: "x"}
		}
		return recs
	}
	a, b := build(), build()
	Shuffle(NewRand(11), a)
	Shuffle(NewRand(11), b)
	for i := range a {
		assert.Equal(t, a[i].Instruction, b[i].Instruction)
	}
}

func TestOversampleCounts(t *testing.T) {
	tests := []struct {
		w       float64
		n       int
		passes  int
		extra   int
	}{
		{1, 100, 1, 0},
		{0.5, 100, 1, 0},
		{2, 100, 2, 0},
		{1.5, 100, 1, 50},
		{2.25, 80, 2, 20},
		{3.9, 10, 3, 9},
	}
	for _, tt := range tests {
		passes, extra := OversampleCounts(tt.w, tt.n)
		assert.Equal(t, tt.passes, passes, "w=%v", tt.w)
		assert.Equal(t, tt.extra, extra, "w=%v", tt.w)
	}
}
