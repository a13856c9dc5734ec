package trigger

import (
	"math"
	"math/rand/v2"
	"testing"

	"trgemu/domain/calib"
	"trgemu/domain/core"
	"trgemu/domain/feature"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func responseSet(t *testing.T, entries float64) *calib.Set {
	t.Helper()
	pAxis, ptAxis := calib.DefaultResponseAxes()
	cells := make([]*calib.Hist1D, pAxis.Bins*ptAxis.Bins)
	for i := range cells {
		cells[i] = &calib.Hist1D{
			Axis:     calib.Axis{Bins: 4, Low: -0.5, High: 1.5},
			Contents: []float64{1, 2, 2, 1},
			Entries:  entries,
		}
	}
	frac := func(v float64) *calib.Hist1D {
		return &calib.Hist1D{Axis: calib.Axis{Bins: 2, Low: 0, High: 400}, Contents: []float64{v, v / 2}, Entries: 2}
	}
	set := &calib.Set{
		Response: &calib.ResponseGrid{P: pAxis, PT: ptAxis, Cells: cells},
		Shared: &calib.ClusterTable{RadialCut: 150, Pairs: map[calib.RegionPair]calib.ClusterHists{
			{A: 0, B: 1}: {Inner: frac(0.2), Outer: frac(0.1)},
			{A: 1, B: 1}: {Inner: frac(0.4), Outer: frac(0.05)},
		}},
		Missing: &calib.ClusterTable{RadialCut: 150, Pairs: map[calib.RegionPair]calib.ClusterHists{
			{A: 0, B: 1}: {Inner: frac(0.1), Outer: frac(0.02)},
			{A: 1, B: 1}: {Inner: frac(0.1), Outer: frac(0.02)},
		}},
	}
	require.NoError(t, set.Init())
	return set
}

func TestSmearEmptyBinIsZero(t *testing.T) {
	set := responseSet(t, 6)
	set.Response = &calib.ResponseGrid{
		P:  calib.Axis{Bins: 1, Low: 0, High: 100_000},
		PT: calib.Axis{Bins: 1, Low: 0, High: 20_000},
		Cells: []*calib.Hist1D{{
			Axis:     calib.Axis{Bins: 1, Low: -0.5, High: 1.5},
			Contents: []float64{0},
			Entries:  0,
		}},
	}
	require.NoError(t, set.Init())

	m, err := NewHadronModel(set)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Smear(10_000, 2_000, 5_000, rand.NewPCG(1, 1)))

	grid, err := NewHadronModel(responseSet(t, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, grid.Smear(20_000, 3_000, 4_000, rand.NewPCG(1, 1)))
}

func TestSmearRange(t *testing.T) {
	m, err := NewHadronModel(responseSet(t, 6))
	require.NoError(t, err)

	src := rand.NewPCG(42, 0)
	for i := 0; i < 5000; i++ {
		realET := float64(i % 9000)
		e := m.Smear(float64(i*37), float64(i*11), realET, src)
		require.GreaterOrEqual(t, e, 0.0)
		require.LessOrEqual(t, e, HCALSaturation)
		require.LessOrEqual(t, e, realET*1.5+1e-9)
	}
}

func TestSmearIsDeterministicForSameStream(t *testing.T) {
	m, err := NewHadronModel(responseSet(t, 6))
	require.NoError(t, err)
	a := m.Smear(30_000, 2_000, 3_000, rand.NewPCG(9, 9))
	b := m.Smear(30_000, 2_000, 3_000, rand.NewPCG(9, 9))
	assert.Equal(t, a, b)
}

func TestCapAtSaturation(t *testing.T) {
	assert.Equal(t, HCALSaturation, Cap(6200))
	assert.Equal(t, 0.0, Cap(-3))
	assert.Equal(t, 0.0, Cap(math.NaN()))
	assert.Equal(t, 4000.0, Cap(4000))
	assert.Equal(t, HCALSaturation, CapPair(100, 9000))
	assert.Equal(t, 6050.0, CorrectEnergy(6000, 50))
}

func TestSharedAndMissingAreSymmetric(t *testing.T) {
	m, err := NewHadronModel(responseSet(t, 6))
	require.NoError(t, err)

	for _, sep := range []float64{0, 120, 149.9, 150, 300, 5000} {
		ab, err := m.SharedFraction(sep, 0, 1)
		require.NoError(t, err)
		ba, err := m.SharedFraction(sep, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, ab, ba)

		mab, err := m.MissingFraction(sep, 0, 1)
		require.NoError(t, err)
		mba, err := m.MissingFraction(sep, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, mab, mba)

		eA, eB, err := m.PairEnergies(2500, 1800, sep, 0, 1)
		require.NoError(t, err)
		fB, fA, err := m.PairEnergies(1800, 2500, sep, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, eA, fA)
		assert.Equal(t, eB, fB)
	}
}

func TestInnerOuterRadialRegimes(t *testing.T) {
	m, err := NewHadronModel(responseSet(t, 6))
	require.NoError(t, err)

	inner, err := m.SharedFraction(100, 1, 1)
	require.NoError(t, err)
	outer, err := m.SharedFraction(100+150, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.4, inner)
	assert.Equal(t, 0.025, outer)
}

func TestUnknownRegionPairIsConfigurationError(t *testing.T) {
	m, err := NewHadronModel(responseSet(t, 6))
	require.NoError(t, err)
	_, _, err = m.PairEnergies(1, 1, 10, 2, 3)
	assert.True(t, core.IsConfigurationError(err))
	assert.ErrorIs(t, err, core.ErrMissingRegionPair)
}

func TestCombinedEnergy(t *testing.T) {
	assert.InDelta(t, (3000+0.5*2000)*0.9, CombinedEnergy(3000, 2000, 0.5, 0.1), 1e-9)
	assert.Equal(t, HCALSaturation, CombinedEnergy(6000, 6000, 0.5, 0))
	assert.Equal(t, 3000.0, CandidateEnergy(1200, 3000))
	assert.InDelta(t, 5.0, RDiff(0, 0, 3, 4), 1e-12)
}

func TestHadronDecision(t *testing.T) {
	tests := []struct {
		year   int
		energy float64
		want   bool
	}{
		{2015, 3600, true},
		{2015, 3599.9, false},
		{2016, 3700, true},
		{2016, 3650, false},
		{2017, 3460, true},
		{2018, 3619, false},
	}
	for _, tt := range tests {
		got, err := HadronDecision(tt.energy, tt.year)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "year %d energy %g", tt.year, tt.energy)
	}

	_, err := HadronDecision(5000, 2012)
	assert.ErrorIs(t, err, core.ErrUnsupportedPeriod)
	assert.True(t, core.IsConfigurationError(err))
}

func TestMissingTablesRejected(t *testing.T) {
	_, err := NewHadronModel(&calib.Set{})
	assert.ErrorIs(t, err, core.ErrMissingCalibration)
	_, err = NewTisModel(&calib.Set{}, 2016, nil)
	assert.ErrorIs(t, err, core.ErrMissingCalibration)
}

func tisSet(t *testing.T) *calib.Set {
	t.Helper()
	// x: log(pz) in [8, 14), y: log(pt) in [6, 10)
	h, err := calib.NewHist2D(calib.Axis{Bins: 2, Low: 8, High: 14}, calib.Axis{Bins: 2, Low: 6, High: 10}, []float64{
		0.2, 0.4,
		0.6, 0.8,
	})
	require.NoError(t, err)
	return &calib.Set{GlobalTis: &calib.EfficiencyTable{Hists: map[string]*calib.Hist2D{
		"Jpsi_data_eff0": h,
		"Jpsi_data_eff1": h,
	}}}
}

func TestTisEfficiency(t *testing.T) {
	m, err := NewTisModel(tisSet(t), 2017, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.Efficiency(0, 5000))
	assert.Equal(t, 0.0, m.Efficiency(-10, 5000))
	assert.Equal(t, 0.0, m.Efficiency(1e5, 0))
	assert.Equal(t, 0.2, m.Efficiency(math.Exp(9), math.Exp(7)))
	assert.Equal(t, 0.8, m.Efficiency(math.Exp(13), math.Exp(9)))
	// clamped far outside the map
	assert.Equal(t, 0.8, m.Efficiency(math.Exp(30), math.Exp(30)))

	_, err = NewTisModel(tisSet(t), 2019, nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedPeriod)
}

func TestTisAdHocCorrection(t *testing.T) {
	m, err := NewTisModel(tisSet(t), 2016, &AdHocCorrection{PTThreshold: math.Exp(8), Scale: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 0.2, m.Efficiency(math.Exp(9), math.Exp(7)))
	assert.Equal(t, 0.2, m.Efficiency(math.Exp(9), math.Exp(9)))

	boost, err := NewTisModel(tisSet(t), 2016, &AdHocCorrection{PTThreshold: 0, Scale: 5})
	require.NoError(t, err)
	assert.Equal(t, 1.0, boost.Efficiency(math.Exp(13), math.Exp(9)))
}

func TestTisDecisionFrequency(t *testing.T) {
	m, err := NewTisModel(tisSet(t), 2016, nil)
	require.NoError(t, err)

	src := rand.NewPCG(3, 4)
	hits := 0
	const n = 20000
	for i := 0; i < n; i++ {
		if m.Decision(math.Exp(13), math.Exp(7), src) {
			hits++
		}
	}
	assert.InDelta(t, 0.6, float64(hits)/n, 0.02)
	assert.False(t, m.Decision(0, 1, src))
}

func TestGlobalEventCutBoundaries(t *testing.T) {
	tests := []struct {
		name         string
		velo, it, ot float64
		want         bool
	}{
		{"all inside", 51, 51, 51, true},
		{"velo lower edge", 50, 100, 100, false},
		{"velo just above lower edge", 51, 100, 100, true},
		{"it lower edge", 100, 50, 100, false},
		{"it just above lower edge", 100, 51, 100, true},
		{"ot lower edge", 100, 100, 50, false},
		{"ot just above lower edge", 100, 100, 51, true},
		{"velo 100 with it and ot at 50", 100, 50, 50, false},
		{"velo upper edge", 6000, 100, 100, false},
		{"it upper edge", 100, 3000, 100, false},
		{"ot upper edge", 100, 100, 15000, false},
		{"just inside uppers", 5999, 2999, 14999, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GlobalEventCut(tt.velo, tt.it, tt.ot))
		})
	}
}

func TestPerTrackGlobalCorrection(t *testing.T) {
	src := rand.NewPCG(11, 0)
	passed := 0
	const n = 20000
	for i := 0; i < n; i++ {
		ok, err := PerTrackGlobalCorrection(5, 100, 100, 100, 2016, src)
		require.NoError(t, err)
		if ok {
			passed++
		}
	}
	assert.InDelta(t, 1-0.042, float64(passed)/n, 0.01)

	ok, err := PerTrackGlobalCorrection(2, 100, 100, 100, 2016, src)
	require.NoError(t, err)
	assert.False(t, ok, "too few TT hits")

	ok, err = PerTrackGlobalCorrection(5, 10, 100, 100, 2016, src)
	require.NoError(t, err)
	assert.False(t, ok, "fails global event cut")

	_, err = PerTrackGlobalCorrection(5, 100, 100, 100, 2014, src)
	assert.ErrorIs(t, err, core.ErrUnsupportedPeriod)
}

func TestTrackMVADecision(t *testing.T) {
	tests := []struct {
		name                  string
		pt, p, chi2, ip, ghst float64
		pass                  bool
		year                  int
		want                  bool
	}{
		{"2017 passes hyperbola", 2000, 20000, 1, 100, 0.05, true, 2017, true},
		{"2016 tighter hyperbola", 2000, 20000, 1, 100, 0.05, true, 2016, false},
		{"2016 large ip", 2000, 20000, 1, 500, 0.05, true, 2016, true},
		{"high pt branch", 30000, 200000, 1, 8, 0.05, true, 2018, true},
		{"high pt low ip", 30000, 200000, 1, 7, 0.05, true, 2018, false},
		{"failed correction", 2000, 20000, 1, 500, 0.05, false, 2016, false},
		{"ghost cut", 2000, 20000, 1, 500, 0.3, true, 2016, false},
		{"2015 ignores ghost", 2000, 20000, 1, 100, 0.3, true, 2015, true},
		{"2015 loose P", 2000, 4000, 1, 100, 0.3, true, 2015, true},
		{"low P", 2000, 4000, 1, 100, 0.05, true, 2017, false},
		{"track chi2", 2000, 20000, 3, 500, 0.05, true, 2017, false},
		{"below mva pt", 900, 20000, 1, 500, 0.05, true, 2017, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TrackMVADecision(tt.pt, tt.p, tt.chi2, tt.ip, tt.ghst, tt.pass, tt.year)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := TrackMVADecision(1, 1, 1, 1, 1, true, 2019)
	assert.ErrorIs(t, err, core.ErrUnsupportedPeriod)
}

func twoTrackRecords(sumPT float64) ([]feature.Record, []feature.Record) {
	trackKeys := feature.TwoTrackInputs.Keys()
	k := feature.NewRecord(trackKeys, []float64{1500, 10000, 1, 10, 0.1, 1000, 1118.034})
	pi := feature.NewRecord(trackKeys, []float64{1200, 8000, 1.2, 12, 0.05, 1200, 0})

	combKeys := feature.TwoTrackCombination.Keys()
	vertex := feature.NewRecord(combKeys, []float64{50, sumPT, 0.1, 2, 3, 3000, 0.99, 0.99})
	decoy := feature.NewRecord(combKeys, []float64{50, 9999, 0.1, 2, 3, 3000, 0.99, 0.99})
	return []feature.Record{k, pi}, []feature.Record{decoy, vertex}
}

func TestTwoTrackMVADecision(t *testing.T) {
	tracks, pairs := twoTrackRecords(2700.5)

	ok, err := TwoTrackMVADecision(tracks, pairs, []bool{true, true}, 2016)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = TwoTrackMVADecision(tracks, pairs, []bool{true, false}, 2016)
	require.NoError(t, err)
	assert.False(t, ok, "pass flag vetoes the pair")

	tracks, pairs = twoTrackRecords(2702)
	ok, err = TwoTrackMVADecision(tracks, pairs, []bool{true, true}, 2016)
	require.NoError(t, err)
	assert.False(t, ok, "SUMPT outside tolerance")

	_, err = TwoTrackMVADecision(tracks, pairs, []bool{true, true}, 2011)
	assert.ErrorIs(t, err, core.ErrUnsupportedPeriod)
}

func TestTwoTrackMVAPeriodCuts(t *testing.T) {
	c16, _ := TwoTrackMVACutsFor(2016)
	c17, _ := TwoTrackMVACutsFor(2017)
	v := Vertex{VDChi2: 50, DOCA: 0.1, VChi2: 2, Eta: 3, CorrM: 500, Dira: 0.99, MVA: 0.99}

	assert.True(t, c16.MVADecision(v, 2500))
	assert.False(t, c17.MVADecision(v, 2500), "corrected mass below 2017 floor")
	assert.False(t, c16.MVADecision(v, 1500), "vector PT too low")

	v.MVA = 0.96
	v.CorrM = 3000
	assert.False(t, c16.MVADecision(v, 2500))
	assert.True(t, c17.MVADecision(v, 2500))
}

func TestKinematics(t *testing.T) {
	assert.InDelta(t, math.Pi/4, Phi(1, 1), 1e-12)
	assert.InDelta(t, math.Pi/2, Theta(0, 5), 1e-12)
	assert.InDelta(t, 5.0, VectorPT(3, 4), 1e-12)
}
