package cvrp

import (
	"math/rand"
	"time"
)

// NewRand returns a *rand.Rand for seed. A zero seed draws one from the
// clock, so runs are reproducible only when the caller fixes a seed.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// deriveSeed mixes a parent seed and a stream id with a SplitMix64 finalizer.
func deriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}

// streamSeeds draws one parent value from base and derives count independent
// seeds from it. base is only touched here, never by workers.
func streamSeeds(base *rand.Rand, count int) []int64 {
	if base == nil {
		base = NewRand(0)
	}
	parent := base.Int63()
	seeds := make([]int64, count)
	for i := range seeds {
		seeds[i] = deriveSeed(parent, uint64(i))
	}
	return seeds
}
