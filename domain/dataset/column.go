package dataset

import (
	"fmt"
	"strconv"

	"trgemu/domain/core"
)

// Kind is the storage type of a column.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	}
	return "unknown"
}

// Column is a named, typed, immutable sequence of values. Exactly one of
// the backing slices is populated, selected by Kind.
type Column struct {
	name    string
	kind    Kind
	floats  []float64
	ints    []int64
	bools   []bool
	strings []string
}

// NewFloatColumn wraps values without copying; callers must not mutate them afterwards.
func NewFloatColumn(name string, values []float64) *Column {
	return &Column{name: name, kind: KindFloat, floats: values}
}

func NewIntColumn(name string, values []int64) *Column {
	return &Column{name: name, kind: KindInt, ints: values}
}

func NewBoolColumn(name string, values []bool) *Column {
	return &Column{name: name, kind: KindBool, bools: values}
}

func NewStringColumn(name string, values []string) *Column {
	return &Column{name: name, kind: KindString, strings: values}
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }

// Len returns the number of values in the column.
func (c *Column) Len() int {
	switch c.kind {
	case KindFloat:
		return len(c.floats)
	case KindInt:
		return len(c.ints)
	case KindBool:
		return len(c.bools)
	default:
		return len(c.strings)
	}
}

// Float returns value i converted to float64. Booleans map to 0/1 and
// strings that do not parse map to NaN.
func (c *Column) Float(i int) float64 {
	switch c.kind {
	case KindFloat:
		return c.floats[i]
	case KindInt:
		return float64(c.ints[i])
	case KindBool:
		if c.bools[i] {
			return 1
		}
		return 0
	default:
		v, err := strconv.ParseFloat(c.strings[i], 64)
		if err != nil {
			return nan
		}
		return v
	}
}

// Int returns value i converted to int64 (floats truncate).
func (c *Column) Int(i int) int64 {
	switch c.kind {
	case KindInt:
		return c.ints[i]
	case KindFloat:
		return int64(c.floats[i])
	case KindBool:
		if c.bools[i] {
			return 1
		}
		return 0
	default:
		v, _ := strconv.ParseInt(c.strings[i], 10, 64)
		return v
	}
}

// Bool returns value i as a boolean; numbers are true when non-zero.
func (c *Column) Bool(i int) bool {
	switch c.kind {
	case KindBool:
		return c.bools[i]
	case KindInt:
		return c.ints[i] != 0
	case KindFloat:
		return c.floats[i] != 0
	default:
		v, _ := strconv.ParseBool(c.strings[i])
		return v
	}
}

// String returns value i formatted as text.
func (c *Column) String(i int) string {
	switch c.kind {
	case KindString:
		return c.strings[i]
	case KindInt:
		return strconv.FormatInt(c.ints[i], 10)
	case KindBool:
		return strconv.FormatBool(c.bools[i])
	default:
		return strconv.FormatFloat(c.floats[i], 'g', -1, 64)
	}
}

// Value returns value i as a tagged Value.
func (c *Column) Value(i int) Value {
	switch c.kind {
	case KindFloat:
		return Float(c.floats[i])
	case KindInt:
		return Int(c.ints[i])
	case KindBool:
		return Bool(c.bools[i])
	default:
		return String(c.strings[i])
	}
}

// Floats returns a float64 copy of the whole column.
func (c *Column) Floats() []float64 {
	out := make([]float64, c.Len())
	for i := range out {
		out[i] = c.Float(i)
	}
	return out
}

// gather returns a new column holding the values at the given row indices.
func (c *Column) gather(rows []int) *Column {
	out := &Column{name: c.name, kind: c.kind}
	switch c.kind {
	case KindFloat:
		out.floats = make([]float64, len(rows))
		for j, i := range rows {
			out.floats[j] = c.floats[i]
		}
	case KindInt:
		out.ints = make([]int64, len(rows))
		for j, i := range rows {
			out.ints[j] = c.ints[i]
		}
	case KindBool:
		out.bools = make([]bool, len(rows))
		for j, i := range rows {
			out.bools[j] = c.bools[i]
		}
	default:
		out.strings = make([]string, len(rows))
		for j, i := range rows {
			out.strings[j] = c.strings[i]
		}
	}
	return out
}

// ColumnBuilder assembles a column from per-row Values. The kind is fixed
// by the first row; a later value of a different kind is an error.
type ColumnBuilder struct {
	name   string
	n      int
	values []Value
}

// NewColumnBuilder creates a builder for n rows.
func NewColumnBuilder(name string, n int) *ColumnBuilder {
	return &ColumnBuilder{name: name, n: n, values: make([]Value, n)}
}

// Set stores v at row i. Concurrent calls must use distinct rows.
func (b *ColumnBuilder) Set(i int, v Value) {
	b.values[i] = v
}

// Build validates the kinds and produces the column. Ints widen to floats
// when mixed with floats; any other mixture is a type mismatch.
func (b *ColumnBuilder) Build() (*Column, error) {
	kind := KindFloat
	for i, v := range b.values {
		if !v.valid {
			return nil, fmt.Errorf("%w: column %s row %d has no value", core.ErrExpressionEvaluation, b.name, i)
		}
		if i == 0 {
			kind = v.kind
			continue
		}
		if v.kind == kind {
			continue
		}
		if (kind == KindInt && v.kind == KindFloat) || (kind == KindFloat && v.kind == KindInt) {
			kind = KindFloat
			continue
		}
		return nil, fmt.Errorf("%w: column %s mixes %s and %s", core.ErrTypeMismatch, b.name, kind, v.kind)
	}

	switch kind {
	case KindFloat:
		out := make([]float64, b.n)
		for i, v := range b.values {
			out[i] = v.AsFloat()
		}
		return NewFloatColumn(b.name, out), nil
	case KindInt:
		out := make([]int64, b.n)
		for i, v := range b.values {
			out[i] = v.i
		}
		return NewIntColumn(b.name, out), nil
	case KindBool:
		out := make([]bool, b.n)
		for i, v := range b.values {
			out[i] = v.b
		}
		return NewBoolColumn(b.name, out), nil
	default:
		out := make([]string, b.n)
		for i, v := range b.values {
			out[i] = v.s
		}
		return NewStringColumn(b.name, out), nil
	}
}
