package calib

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"trgemu/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAxisBinClamps(t *testing.T) {
	pAxis, ptAxis := DefaultResponseAxes()

	tests := []struct {
		name string
		axis Axis
		x    float64
		want int
	}{
		{"first bin", pAxis, 0, 0},
		{"interior", pAxis, 25_000, 2},
		{"upper edge is exclusive", pAxis, 1e5, 9},
		{"far above", pAxis, 1e9, 9},
		{"negative", pAxis, -5, 0},
		{"nan", pAxis, math.NaN(), 0},
		{"pt interior", ptAxis, 7_499, 2},
		{"pt above", ptAxis, 20_000, 5},
		{"offset axis", Axis{Bins: 4, Low: 10, High: 20}, 12.5, 1},
		{"offset axis below", Axis{Bins: 4, Low: 10, High: 20}, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.axis.Bin(tt.x))
		})
	}
}

func TestAxisValidate(t *testing.T) {
	_, err := NewAxis(0, 0, 1)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	_, err = NewAxis(3, 1, 1)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestHist1DSampleStaysInsideFilledBins(t *testing.T) {
	h, err := NewHist1D(Axis{Bins: 4, Low: 0, High: 1}, []float64{0, 3, 0, 1}, 4)
	require.NoError(t, err)

	src := rand.NewPCG(1, 2)
	for i := 0; i < 2000; i++ {
		x := h.Sample(src)
		inSecond := x >= 0.25 && x < 0.5
		inFourth := x >= 0.75 && x < 1
		require.True(t, inSecond || inFourth, "sample %g landed in an empty bin", x)
	}
}

func TestHist1DSampleFrequencies(t *testing.T) {
	h, err := NewHist1D(Axis{Bins: 2, Low: 0, High: 2}, []float64{3, 1}, 4)
	require.NoError(t, err)

	src := rand.NewPCG(7, 7)
	low := 0
	const n = 20000
	for i := 0; i < n; i++ {
		if h.Sample(src) < 1 {
			low++
		}
	}
	assert.InDelta(t, 0.75, float64(low)/n, 0.02)
}

func TestHist1DEmptySamplesZero(t *testing.T) {
	h, err := NewHist1D(Axis{Bins: 3, Low: 0, High: 1}, []float64{0, 0, 0}, 0)
	require.NoError(t, err)
	assert.True(t, h.IsEmpty())
	assert.Equal(t, 0.0, h.Sample(rand.NewPCG(1, 1)))
}

func TestHist1DRejectsBadShape(t *testing.T) {
	_, err := NewHist1D(Axis{Bins: 3, Low: 0, High: 1}, []float64{1, 2}, 3)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	_, err = NewHist1D(Axis{Bins: 1, Low: 0, High: 1}, []float64{-1}, 1)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestHist2DContent(t *testing.T) {
	h, err := NewHist2D(Axis{Bins: 2, Low: 0, High: 2}, Axis{Bins: 3, Low: 0, High: 3}, []float64{
		1, 2, 3,
		4, 5, 6,
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, h.Content(0.5, 1.5))
	assert.Equal(t, 6.0, h.Content(9, 9))
	assert.Equal(t, 1.0, h.Content(-1, -1))

	_, err = NewHist2D(Axis{Bins: 2, Low: 0, High: 2}, Axis{Bins: 2, Low: 0, High: 2}, []float64{1})
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func flat(v float64) *Hist1D {
	return &Hist1D{Axis: Axis{Bins: 5, Low: 0, High: 500}, Contents: []float64{v, v, v, v, v}, Entries: 5}
}

func TestClusterTableLookup(t *testing.T) {
	table := &ClusterTable{
		RadialCut: 140,
		Pairs: map[RegionPair]ClusterHists{
			{A: 0, B: 1}: {Inner: flat(0.1), Outer: flat(0.3)},
		},
	}
	require.NoError(t, table.Init())

	v, err := table.Lookup(50, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.1, v)

	v, err = table.Lookup(400, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.3, v)

	mirrored, err := table.Lookup(50, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.1, mirrored)

	_, err = table.Lookup(50, 2, 2)
	assert.ErrorIs(t, err, core.ErrMissingRegionPair)
	assert.True(t, core.IsConfigurationError(err))
}

func TestClusterTableJSONRoundTrip(t *testing.T) {
	table := ClusterTable{
		RadialCut: 140,
		Pairs: map[RegionPair]ClusterHists{
			{A: 1, B: 1}: {Inner: flat(0.2), Outer: flat(0.4)},
			{A: 0, B: 1}: {Inner: flat(0.1), Outer: flat(0.3)},
		},
	}
	data, err := json.Marshal(table)
	require.NoError(t, err)

	var back ClusterTable
	require.NoError(t, json.Unmarshal(data, &back))
	require.NoError(t, back.Init())
	assert.Equal(t, table.SortedPairs(), back.SortedPairs())
	assert.Equal(t, 140.0, back.RadialCut)

	dup := []byte(`{"radial_cut":1,"pairs":[{"a":0,"b":0},{"a":0,"b":0}]}`)
	assert.ErrorIs(t, json.Unmarshal(dup, &back), core.ErrConfiguration)
}

func TestTisHistName(t *testing.T) {
	for year, want := range map[int]string{2015: "Jpsi_data_eff0", 2016: "Jpsi_data_eff1", 2017: "Jpsi_data_eff1", 2018: "Jpsi_data_eff1"} {
		got, err := TisHistName(year)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := TisHistName(2012)
	assert.ErrorIs(t, err, core.ErrUnsupportedPeriod)
}

func TestSetRequirements(t *testing.T) {
	s := &Set{}
	assert.ErrorIs(t, s.RequireHadron(), core.ErrMissingCalibration)
	assert.ErrorIs(t, s.RequireTis(2016), core.ErrMissingCalibration)

	h, err := NewHist2D(Axis{Bins: 1, Low: 0, High: 1}, Axis{Bins: 1, Low: 0, High: 1}, []float64{0.5})
	require.NoError(t, err)
	s.GlobalTis = &EfficiencyTable{Hists: map[string]*Hist2D{"Jpsi_data_eff1": h}}
	require.NoError(t, s.Init())
	assert.NoError(t, s.RequireTis(2018))
	assert.ErrorIs(t, s.RequireTis(2015), core.ErrMissingCalibration)
}
