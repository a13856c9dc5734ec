package trigger

import (
	"fmt"
	"math"
	"math/rand/v2"

	"trgemu/domain/calib"
	"trgemu/domain/core"

	"gonum.org/v1/gonum/stat/distuv"
)

// AdHocCorrection scales the TIS efficiency of candidates above a PT
// threshold, for high-PT regions the efficiency map does not model well.
type AdHocCorrection struct {
	PTThreshold float64
	Scale       float64
}

func (c *AdHocCorrection) apply(pt, eff float64) float64 {
	if c == nil || pt <= c.PTThreshold {
		return eff
	}
	return eff * c.Scale
}

// TisModel is the L0Global TIS efficiency map of one run period.
type TisModel struct {
	Year  int
	hist  *calib.Hist2D
	adHoc *AdHocCorrection
}

// NewTisModel selects the period's efficiency map. adHoc may be nil.
func NewTisModel(set *calib.Set, year int, adHoc *AdHocCorrection) (*TisModel, error) {
	if set == nil {
		return nil, fmt.Errorf("%w: no calibration set", core.ErrMissingCalibration)
	}
	if err := set.RequireTis(year); err != nil {
		return nil, err
	}
	h, _ := set.GlobalTis.ForYear(year)
	return &TisModel{Year: year, hist: h, adHoc: adHoc}, nil
}

// Efficiency returns the TIS probability of a candidate with momentum
// components pz and pt, looked up at (log pz, log pt).
func (m *TisModel) Efficiency(pz, pt float64) float64 {
	if pz <= 0 || pt <= 0 {
		return 0
	}
	eff := m.hist.Content(math.Log(pz), math.Log(pt))
	eff = m.adHoc.apply(pt, eff)
	return math.Min(math.Max(eff, 0), 1)
}

// Decision draws a TIS outcome with probability Efficiency(pz, pt).
func (m *TisModel) Decision(pz, pt float64, src rand.Source) bool {
	return distuv.Bernoulli{P: m.Efficiency(pz, pt), Src: src}.Rand() == 1
}
