package rng

import (
	"math/rand/v2"

	"trgemu/domain/dataset"
)

// PCGAdapter derives one PCG stream per (seed, directive, row origin).
// Streams never depend on evaluation order, so batches may run in any
// order and on any worker.
type PCGAdapter struct{}

func NewPCGAdapter() *PCGAdapter { return &PCGAdapter{} }

// RowStream creates the stream of one row for one directive
func (a *PCGAdapter) RowStream(seed uint64, directive string, origin uint32) *rand.Rand {
	return rand.New(rand.NewPCG(streamKey(seed, directive), uint64(origin)))
}

// Streams binds RowStream to a directive
func (a *PCGAdapter) Streams(seed uint64, directive string) dataset.StreamFunc {
	key := streamKey(seed, directive)
	return func(origin uint32) *rand.Rand {
		return rand.New(rand.NewPCG(key, uint64(origin)))
	}
}

// streamKey mixes the run seed with the directive name so that two
// stochastic directives in one plan never share a sequence.
func streamKey(seed uint64, directive string) uint64 {
	h := uint64(hashString(directive))
	return seed ^ (h<<32 | h) ^ 0x9e3779b97f4a7c15
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}
