package ports

import (
	"math/rand/v2"

	"trgemu/domain/dataset"
)

// RNGPort provides seeded random streams for deterministic emulation
type RNGPort interface {
	// RowStream returns the stream of one row for one directive. The same
	// (seed, directive, origin) triple always yields the same sequence.
	RowStream(seed uint64, directive string, origin uint32) *rand.Rand

	// Streams binds RowStream to a directive for use by row cursors
	Streams(seed uint64, directive string) dataset.StreamFunc
}
