package dataset

import (
	"math/rand/v2"

	"trgemu/domain/core"
)

// StreamFunc returns the random stream for a row given its origin ordinal.
type StreamFunc func(origin uint32) *rand.Rand

// Row is a read cursor over one event of a dataset. Lookups of unknown
// columns record a sticky error (see Err) and return zero values, so that
// directive closures can read columns without checking every access.
type Row struct {
	ds     *Dataset
	idx    int
	err    error
	stream StreamFunc
	rng    *rand.Rand
}

// NewRow positions a cursor at row idx. stream may be nil when the caller
// never draws random numbers.
func NewRow(ds *Dataset, idx int, stream StreamFunc) *Row {
	return &Row{ds: ds, idx: idx, stream: stream}
}

// Reset repositions the cursor and clears the sticky error and stream.
func (r *Row) Reset(idx int) {
	r.idx = idx
	r.err = nil
	r.rng = nil
}

// Index returns the row position in the current dataset.
func (r *Row) Index() int { return r.idx }

// Origin returns the row ordinal in the initial dataset.
func (r *Row) Origin() uint32 { return r.ds.Origin(r.idx) }

// Err returns the first lookup error since the last Reset.
func (r *Row) Err() error { return r.err }

func (r *Row) col(name string) *Column {
	c, ok := r.ds.Column(name)
	if !ok {
		if r.err == nil {
			r.err = core.NewUnknownColumnError(name)
		}
		return nil
	}
	return c
}

func (r *Row) Float(name string) float64 {
	if c := r.col(name); c != nil {
		return c.Float(r.idx)
	}
	return 0
}

func (r *Row) Int(name string) int64 {
	if c := r.col(name); c != nil {
		return c.Int(r.idx)
	}
	return 0
}

func (r *Row) Bool(name string) bool {
	if c := r.col(name); c != nil {
		return c.Bool(r.idx)
	}
	return false
}

func (r *Row) String(name string) string {
	if c := r.col(name); c != nil {
		return c.String(r.idx)
	}
	return ""
}

func (r *Row) Value(name string) Value {
	if c := r.col(name); c != nil {
		return c.Value(r.idx)
	}
	return Value{}
}

// Rand returns the row's random stream, created on first use. Rows without
// a stream function fall back to a stream seeded by the origin ordinal.
func (r *Row) Rand() *rand.Rand {
	if r.rng == nil {
		if r.stream != nil {
			r.rng = r.stream(r.Origin())
		} else {
			r.rng = rand.New(rand.NewPCG(0, uint64(r.Origin())))
		}
	}
	return r.rng
}
