package dataset

import (
	"testing"

	"trgemu/domain/core"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) *Dataset {
	t.Helper()
	ds, err := New(
		NewFloatColumn("a", []float64{1, -2, 3}),
		NewIntColumn("runNumber", []int64{10, 10, 11}),
		NewBoolColumn("flag", []bool{true, false, true}),
	)
	require.NoError(t, err)
	return ds
}

func TestNewRejectsShapeMismatch(t *testing.T) {
	_, err := New(
		NewFloatColumn("a", []float64{1, 2}),
		NewFloatColumn("b", []float64{1}),
	)
	assert.ErrorIs(t, err, core.ErrShapeMismatch)

	_, err = New(NewFloatColumn("a", nil), NewFloatColumn("a", nil))
	assert.Error(t, err)
}

func TestWithColumnAppendsAndReplaces(t *testing.T) {
	ds := fixture(t)

	added, err := ds.WithColumn(NewFloatColumn("b", []float64{0, 0, 0}))
	require.NoError(t, err)
	assert.Equal(t, 3, ds.NumColumns(), "parent must be unchanged")
	assert.Equal(t, []string{"a", "runNumber", "flag", "b"}, added.Names())

	replaced, err := added.WithColumn(NewBoolColumn("a", []bool{false, false, true}))
	require.NoError(t, err)
	assert.Equal(t, added.Names(), replaced.Names())
	c, _ := replaced.Column("a")
	assert.Equal(t, KindBool, c.Kind())
	orig, _ := ds.Column("a")
	assert.Equal(t, KindFloat, orig.Kind())

	_, err = ds.WithColumn(NewFloatColumn("short", []float64{1}))
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
}

func TestSelectKeepsOrigins(t *testing.T) {
	ds := fixture(t)
	keep := roaring.BitmapOf(0, 2)

	sub := ds.Select(keep)
	assert.Equal(t, 2, sub.NumRows())
	assert.Equal(t, ds.NumColumns(), sub.NumColumns())
	assert.Equal(t, uint32(2), sub.Origin(1))

	again := sub.Select(roaring.BitmapOf(1))
	assert.Equal(t, uint32(2), again.Origin(0))
	v, _ := again.Column("a")
	assert.Equal(t, 3.0, v.Float(0))
}

func TestMatrixAndProject(t *testing.T) {
	ds := fixture(t)

	m, err := ds.Matrix([]string{"flag", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 1}, {0, -2}, {1, 3}}, m)

	_, err = ds.Matrix([]string{"missing"})
	assert.ErrorIs(t, err, core.ErrMissingColumn)

	p, err := ds.Project([]string{"runNumber", "a", "runNumber"})
	require.NoError(t, err)
	assert.Equal(t, []string{"runNumber", "a"}, p.Names())
}

func TestRowStickyError(t *testing.T) {
	ds := fixture(t)
	r := NewRow(ds, 1, nil)

	assert.Equal(t, -2.0, r.Float("a"))
	assert.NoError(t, r.Err())

	assert.Equal(t, 0.0, r.Float("nope"))
	assert.Equal(t, int64(10), r.Int("runNumber"))
	assert.ErrorIs(t, r.Err(), core.ErrUnknownColumn)

	r.Reset(2)
	assert.NoError(t, r.Err())
	assert.True(t, r.Bool("flag"))
}

func TestRowRandIsStablePerOrigin(t *testing.T) {
	ds := fixture(t)
	a := NewRow(ds, 2, nil).Rand().Float64()
	b := NewRow(ds.Select(roaring.BitmapOf(2)), 0, nil).Rand().Float64()
	assert.Equal(t, a, b)
}

func TestColumnBuilder(t *testing.T) {
	b := NewColumnBuilder("x", 3)
	b.Set(0, Int(1))
	b.Set(1, Float(2.5))
	b.Set(2, Int(3))
	c, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, KindFloat, c.Kind())
	assert.Equal(t, []float64{1, 2.5, 3}, c.Floats())

	bad := NewColumnBuilder("y", 2)
	bad.Set(0, Bool(true))
	bad.Set(1, String("x"))
	_, err = bad.Build()
	assert.ErrorIs(t, err, core.ErrTypeMismatch)

	unset := NewColumnBuilder("z", 1)
	_, err = unset.Build()
	assert.ErrorIs(t, err, core.ErrExpressionEvaluation)
}
