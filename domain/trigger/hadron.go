package trigger

import (
	"fmt"
	"math"
	"math/rand/v2"

	"trgemu/domain/calib"
	"trgemu/domain/core"
)

// HCALSaturation is the maximum transverse energy (MeV) the HCAL readout reports.
const HCALSaturation = 6100.0

// L0Hadron transverse energy thresholds (MeV) per run period.
var hadronThresholds = map[int]float64{
	2015: 3600,
	2016: 3700,
	2017: 3460,
	2018: 3620,
}

// HadronThreshold returns the L0Hadron cutoff for year.
func HadronThreshold(year int) (float64, error) {
	th, ok := hadronThresholds[year]
	if !ok {
		return 0, core.NewPeriodError(year)
	}
	return th, nil
}

// HadronDecision reports whether energy fires L0Hadron in year.
func HadronDecision(energy float64, year int) (bool, error) {
	th, err := HadronThreshold(year)
	if err != nil {
		return false, err
	}
	return energy >= th, nil
}

// Cap clamps an energy to [0, HCALSaturation].
func Cap(energy float64) float64 {
	if energy < 0 || math.IsNaN(energy) {
		return 0
	}
	if energy > HCALSaturation {
		return HCALSaturation
	}
	return energy
}

// CapPair caps the larger of two energies.
func CapPair(a, b float64) float64 {
	return Cap(math.Max(a, b))
}

// CorrectEnergy applies a regressor residual and re-applies the saturation cap.
func CorrectEnergy(energy, residual float64) float64 {
	return Cap(energy + residual)
}

// RDiff is the distance between two HCAL cluster projections.
func RDiff(xA, yA, xB, yB float64) float64 {
	return math.Hypot(xA-xB, yA-yB)
}

// CombinedEnergy corrects the energy of particle A for the fraction of B's
// cluster it shares and for the fraction of energy leaking out of the cluster.
func CombinedEnergy(eA, eB, shared, missing float64) float64 {
	return Cap((eA + shared*eB) * (1 - missing))
}

// CandidateEnergy is the candidate-level energy: the larger corrected particle energy.
func CandidateEnergy(correctedA, correctedB float64) float64 {
	return math.Max(correctedA, correctedB)
}

// HadronModel binds the single particle response and the two-particle
// cluster tables.
type HadronModel struct {
	response *calib.ResponseGrid
	shared   *calib.ClusterTable
	missing  *calib.ClusterTable
}

// NewHadronModel fails when any table needed by L0Hadron is absent.
func NewHadronModel(set *calib.Set) (*HadronModel, error) {
	if set == nil {
		return nil, fmt.Errorf("%w: no calibration set", core.ErrMissingCalibration)
	}
	if err := set.RequireHadron(); err != nil {
		return nil, err
	}
	return &HadronModel{response: set.Response, shared: set.Shared, missing: set.Missing}, nil
}

// Smear draws the HCAL response of one particle. The smearing factor r is
// sampled from the response histogram of the (p, pt) cell and the result
// realET*(1-r) is capped. Cells without entries return 0.
func (m *HadronModel) Smear(p, pt, realET float64, src rand.Source) float64 {
	h := m.response.Cell(p, pt)
	if h.IsEmpty() {
		return 0
	}
	r := h.Sample(src)
	return Cap(realET * (1 - r))
}

// SharedFraction is the fraction of B's energy deposited in A's cluster.
func (m *HadronModel) SharedFraction(sep float64, regionA, regionB int) (float64, error) {
	return m.shared.Lookup(sep, regionA, regionB)
}

// MissingFraction is the fraction of energy lost outside the clusters.
func (m *HadronModel) MissingFraction(sep float64, regionA, regionB int) (float64, error) {
	return m.missing.Lookup(sep, regionA, regionB)
}

// PairEnergies returns the corrected energies of both particles.
func (m *HadronModel) PairEnergies(eA, eB, sep float64, regionA, regionB int) (float64, float64, error) {
	shared, err := m.SharedFraction(sep, regionA, regionB)
	if err != nil {
		return 0, 0, err
	}
	missing, err := m.MissingFraction(sep, regionA, regionB)
	if err != nil {
		return 0, 0, err
	}
	return CombinedEnergy(eA, eB, shared, missing), CombinedEnergy(eB, eA, shared, missing), nil
}
