package dataset

import (
	"fmt"

	"trgemu/domain/core"

	"github.com/RoaringBitmap/roaring/v2"
)

// Dataset is an ordered, column-oriented, immutable table of events. Every
// transformation returns a new Dataset that shares the unchanged columns
// with its parent.
type Dataset struct {
	columns []*Column
	index   map[string]int
	// origin maps each row to its ordinal in the initial dataset so that
	// per-row random streams survive filtering.
	origin []uint32
	rows   int
}

// New builds a dataset from columns of equal length. Row origins are the
// row ordinals.
func New(columns ...*Column) (*Dataset, error) {
	d := &Dataset{index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if i == 0 {
			d.rows = c.Len()
		} else if c.Len() != d.rows {
			return nil, fmt.Errorf("%w: column %s has %d rows, expected %d", core.ErrShapeMismatch, c.Name(), c.Len(), d.rows)
		}
		if _, dup := d.index[c.Name()]; dup {
			return nil, core.NewValidationError("columns", "duplicate column "+c.Name())
		}
		d.index[c.Name()] = len(d.columns)
		d.columns = append(d.columns, c)
	}
	d.origin = make([]uint32, d.rows)
	for i := range d.origin {
		d.origin[i] = uint32(i)
	}
	return d, nil
}

// MustNew is New for fixtures; it panics on error.
func MustNew(columns ...*Column) *Dataset {
	d, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return d
}

// NumRows returns the number of events.
func (d *Dataset) NumRows() int { return d.rows }

// NumColumns returns the number of columns.
func (d *Dataset) NumColumns() int { return len(d.columns) }

// Names returns column names in order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name()
	}
	return names
}

// Has reports whether a column exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column returns the named column.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// Origin returns the initial-dataset ordinal of row i.
func (d *Dataset) Origin(i int) uint32 { return d.origin[i] }

// WithColumn returns a new dataset with c appended, or replacing an
// existing column of the same name in place.
func (d *Dataset) WithColumn(c *Column) (*Dataset, error) {
	if c.Len() != d.rows {
		return nil, fmt.Errorf("%w: column %s has %d rows, expected %d", core.ErrShapeMismatch, c.Name(), c.Len(), d.rows)
	}
	out := &Dataset{
		columns: make([]*Column, len(d.columns), len(d.columns)+1),
		index:   make(map[string]int, len(d.columns)+1),
		origin:  d.origin,
		rows:    d.rows,
	}
	copy(out.columns, d.columns)
	for k, v := range d.index {
		out.index[k] = v
	}
	if i, ok := out.index[c.Name()]; ok {
		out.columns[i] = c
		return out, nil
	}
	out.index[c.Name()] = len(out.columns)
	out.columns = append(out.columns, c)
	return out, nil
}

// Select returns a new dataset restricted to the rows in keep, in order.
func (d *Dataset) Select(keep *roaring.Bitmap) *Dataset {
	rows := make([]int, 0, keep.GetCardinality())
	it := keep.Iterator()
	for it.HasNext() {
		r := int(it.Next())
		if r < d.rows {
			rows = append(rows, r)
		}
	}

	out := &Dataset{
		columns: make([]*Column, len(d.columns)),
		index:   d.index,
		origin:  make([]uint32, len(rows)),
		rows:    len(rows),
	}
	for i, c := range d.columns {
		out.columns[i] = c.gather(rows)
	}
	for j, r := range rows {
		out.origin[j] = d.origin[r]
	}
	return out
}

// Project returns a dataset holding only the named columns, in the given
// order. Unknown names are a configuration error.
func (d *Dataset) Project(names []string) (*Dataset, error) {
	out := &Dataset{
		columns: make([]*Column, 0, len(names)),
		index:   make(map[string]int, len(names)),
		origin:  d.origin,
		rows:    d.rows,
	}
	for _, name := range names {
		c, ok := d.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", core.ErrMissingColumn, name)
		}
		if _, dup := out.index[name]; dup {
			continue
		}
		out.index[name] = len(out.columns)
		out.columns = append(out.columns, c)
	}
	return out, nil
}

// Floats returns a float64 copy of the named column.
func (d *Dataset) Floats(name string) ([]float64, error) {
	c, ok := d.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrMissingColumn, name)
	}
	return c.Floats(), nil
}

// Matrix returns the named columns as a row-major feature matrix, the
// layout oracles consume.
func (d *Dataset) Matrix(names []string) ([][]float64, error) {
	cols := make([]*Column, len(names))
	for j, name := range names {
		c, ok := d.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", core.ErrMissingColumn, name)
		}
		cols[j] = c
	}
	out := make([][]float64, d.rows)
	for i := range out {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = c.Float(i)
		}
		out[i] = row
	}
	return out, nil
}

// RequireColumns fails with a configuration error naming the first missing column.
func (d *Dataset) RequireColumns(names ...string) error {
	for _, name := range names {
		if !d.Has(name) {
			return fmt.Errorf("%w: %s", core.ErrMissingColumn, name)
		}
	}
	return nil
}
