package testkit

import (
	"trgemu/domain/calib"
)

// Fixture region codes. Inner HCAL cells sit close to the beam pipe.
const (
	RegionOuter = 0
	RegionInner = 1
)

// FixtureCalibration builds a small, fully populated calibration set. The
// response cell at the highest P and PT bin is left empty so that the
// empty-bin path is reachable from generated events.
func FixtureCalibration() (*calib.Set, error) {
	pAxis, ptAxis := calib.DefaultResponseAxes()
	response := &calib.ResponseGrid{P: pAxis, PT: ptAxis, Cells: make([]*calib.Hist1D, pAxis.Bins*ptAxis.Bins)}
	factor := calib.Axis{Bins: 8, Low: -0.4, High: 0.4}
	for i := range response.Cells {
		contents := []float64{1, 3, 8, 14, 12, 6, 3, 1}
		entries := 48.0
		if i == len(response.Cells)-1 {
			contents = make([]float64, factor.Bins)
			entries = 0
		}
		response.Cells[i] = &calib.Hist1D{Axis: factor, Contents: contents, Entries: entries}
	}

	radial := calib.Axis{Bins: 4, Low: 0, High: 800}
	fraction := func(values ...float64) *calib.Hist1D {
		return &calib.Hist1D{Axis: radial, Contents: values, Entries: 100}
	}
	shared := &calib.ClusterTable{RadialCut: 200, Pairs: map[calib.RegionPair]calib.ClusterHists{
		{A: RegionOuter, B: RegionOuter}: {Inner: fraction(0.30, 0.20, 0.10, 0.05), Outer: fraction(0.10, 0.05, 0.02, 0.01)},
		{A: RegionOuter, B: RegionInner}: {Inner: fraction(0.25, 0.15, 0.08, 0.04), Outer: fraction(0.08, 0.04, 0.02, 0.01)},
		{A: RegionInner, B: RegionInner}: {Inner: fraction(0.35, 0.25, 0.12, 0.06), Outer: fraction(0.12, 0.06, 0.03, 0.01)},
	}}
	missing := &calib.ClusterTable{RadialCut: 200, Pairs: map[calib.RegionPair]calib.ClusterHists{
		{A: RegionOuter, B: RegionOuter}: {Inner: fraction(0.05, 0.04, 0.03, 0.02), Outer: fraction(0.02, 0.02, 0.01, 0.01)},
		{A: RegionOuter, B: RegionInner}: {Inner: fraction(0.06, 0.05, 0.03, 0.02), Outer: fraction(0.03, 0.02, 0.01, 0.01)},
		{A: RegionInner, B: RegionInner}: {Inner: fraction(0.07, 0.05, 0.04, 0.02), Outer: fraction(0.03, 0.02, 0.02, 0.01)},
	}}

	logPZ := calib.Axis{Bins: 3, Low: 9, High: 13}
	logPT := calib.Axis{Bins: 3, Low: 7, High: 10}
	tis := &calib.EfficiencyTable{Hists: map[string]*calib.Hist2D{
		calib.TisHistPrefix + "0": {X: logPZ, Y: logPT, Contents: []float64{
			0.10, 0.20, 0.35,
			0.15, 0.30, 0.45,
			0.20, 0.40, 0.60,
		}},
		calib.TisHistPrefix + "1": {X: logPZ, Y: logPT, Contents: []float64{
			0.12, 0.25, 0.40,
			0.18, 0.35, 0.50,
			0.25, 0.45, 0.65,
		}},
	}}

	set := &calib.Set{Response: response, Shared: shared, Missing: missing, GlobalTis: tis}
	if err := set.Init(); err != nil {
		return nil, err
	}
	return set, nil
}
