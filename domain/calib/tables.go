package calib

import (
	"fmt"
	"sort"

	"trgemu/domain/core"
)

// Reference binning of the single-particle HCAL response.
const (
	ResponsePBins  = 10
	ResponsePLow   = 0
	ResponsePHigh  = 1e5
	ResponsePTBins = 6
	ResponsePTLow  = 0
	ResponsePTHigh = 15000
)

// ResponseGrid holds one smearing-factor histogram per (P, PT) cell.
// Cells is row-major by P bin.
type ResponseGrid struct {
	P     Axis      `json:"p"`
	PT    Axis      `json:"pt"`
	Cells []*Hist1D `json:"cells"`
}

// DefaultResponseAxes returns the reference P and PT binning.
func DefaultResponseAxes() (Axis, Axis) {
	return Axis{Bins: ResponsePBins, Low: ResponsePLow, High: ResponsePHigh},
		Axis{Bins: ResponsePTBins, Low: ResponsePTLow, High: ResponsePTHigh}
}

func (g *ResponseGrid) Init() error {
	if err := g.P.Validate(); err != nil {
		return fmt.Errorf("response P axis: %w", err)
	}
	if err := g.PT.Validate(); err != nil {
		return fmt.Errorf("response PT axis: %w", err)
	}
	if want := g.P.Bins * g.PT.Bins; len(g.Cells) != want {
		return fmt.Errorf("%w: response grid has %d cells, expected %d", core.ErrMissingCalibration, len(g.Cells), want)
	}
	for i, h := range g.Cells {
		if h == nil {
			return fmt.Errorf("%w: response cell %d_%d", core.ErrMissingCalibration, i/g.PT.Bins, i%g.PT.Bins)
		}
		if err := h.Init(); err != nil {
			return fmt.Errorf("response cell %d_%d: %w", i/g.PT.Bins, i%g.PT.Bins, err)
		}
	}
	return nil
}

// Cell returns the response histogram for the clamped (p, pt) bin.
func (g *ResponseGrid) Cell(p, pt float64) *Hist1D {
	return g.Cells[g.P.Bin(p)*g.PT.Bins+g.PT.Bin(pt)]
}

// RegionPair identifies the HCAL regions hit by two particles.
type RegionPair struct {
	A int `json:"a"`
	B int `json:"b"`
}

func (p RegionPair) String() string { return fmt.Sprintf("%d_%d", p.A, p.B) }

// Swap returns the pair with roles exchanged.
func (p RegionPair) Swap() RegionPair { return RegionPair{A: p.B, B: p.A} }

// ClusterHists is the inner/outer radial histogram pair for one region pair.
type ClusterHists struct {
	Inner *Hist1D `json:"inner"`
	Outer *Hist1D `json:"outer"`
}

// ClusterTable maps region pairs to fraction histograms binned in cluster
// separation. Separations below RadialCut use the inner histogram.
type ClusterTable struct {
	RadialCut float64                     `json:"radial_cut"`
	Pairs     map[RegionPair]ClusterHists `json:"-"`
}

func (t *ClusterTable) Init() error {
	if len(t.Pairs) == 0 {
		return fmt.Errorf("%w: cluster table has no region pairs", core.ErrMissingCalibration)
	}
	for pair, hs := range t.Pairs {
		if hs.Inner == nil || hs.Outer == nil {
			return fmt.Errorf("%w: region pair %s lacks inner or outer histogram", core.ErrMissingCalibration, pair)
		}
		if err := hs.Inner.Init(); err != nil {
			return fmt.Errorf("region pair %s inner: %w", pair, err)
		}
		if err := hs.Outer.Init(); err != nil {
			return fmt.Errorf("region pair %s outer: %w", pair, err)
		}
	}
	return nil
}

// Lookup returns the fraction for a pair at separation sep. A pair that is
// registered only in the mirrored order is served from the mirror.
func (t *ClusterTable) Lookup(sep float64, regionA, regionB int) (float64, error) {
	pair := RegionPair{A: regionA, B: regionB}
	hs, ok := t.Pairs[pair]
	if !ok {
		hs, ok = t.Pairs[pair.Swap()]
	}
	if !ok {
		return 0, core.NewRegionPairError(regionA, regionB)
	}
	if sep < t.RadialCut {
		return hs.Inner.Content(sep), nil
	}
	return hs.Outer.Content(sep), nil
}

// SortedPairs returns the registered pairs in a stable order.
func (t *ClusterTable) SortedPairs() []RegionPair {
	out := make([]RegionPair, 0, len(t.Pairs))
	for p := range t.Pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// TisHistPrefix names the global TIS efficiency histograms.
const TisHistPrefix = "Jpsi_data_eff"

// tisHistSuffix maps run periods to efficiency histograms. 2017 and 2018 reuse the 2016 map.
var tisHistSuffix = map[int]string{
	2015: "0",
	2016: "1",
	2017: "1",
	2018: "1",
}

// TisHistName returns the efficiency histogram name for a run period.
func TisHistName(year int) (string, error) {
	suffix, ok := tisHistSuffix[year]
	if !ok {
		return "", core.NewPeriodError(year)
	}
	return TisHistPrefix + suffix, nil
}

// EfficiencyTable holds named 2D efficiency maps addressed by (log PZ, log PT).
type EfficiencyTable struct {
	Hists map[string]*Hist2D `json:"hists"`
}

func (t *EfficiencyTable) Init() error {
	if len(t.Hists) == 0 {
		return fmt.Errorf("%w: efficiency table is empty", core.ErrMissingCalibration)
	}
	for name, h := range t.Hists {
		if h == nil {
			return fmt.Errorf("%w: efficiency histogram %s", core.ErrMissingCalibration, name)
		}
		if err := h.Validate(); err != nil {
			return fmt.Errorf("efficiency histogram %s: %w", name, err)
		}
	}
	return nil
}

// ForYear returns the efficiency histogram used for a run period.
func (t *EfficiencyTable) ForYear(year int) (*Hist2D, error) {
	name, err := TisHistName(year)
	if err != nil {
		return nil, err
	}
	h, ok := t.Hists[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrMissingCalibration, name)
	}
	return h, nil
}

// Set bundles every calibration table a run may need. Tables a run does
// not use may be nil.
type Set struct {
	Response  *ResponseGrid    `json:"single_particle_response,omitempty"`
	Shared    *ClusterTable    `json:"cluster_shared,omitempty"`
	Missing   *ClusterTable    `json:"cluster_missing,omitempty"`
	GlobalTis *EfficiencyTable `json:"global_tis,omitempty"`
}

// Init validates every present table.
func (s *Set) Init() error {
	if s.Response != nil {
		if err := s.Response.Init(); err != nil {
			return err
		}
	}
	if s.Shared != nil {
		if err := s.Shared.Init(); err != nil {
			return fmt.Errorf("cluster_shared: %w", err)
		}
	}
	if s.Missing != nil {
		if err := s.Missing.Init(); err != nil {
			return fmt.Errorf("cluster_missing: %w", err)
		}
	}
	if s.GlobalTis != nil {
		if err := s.GlobalTis.Init(); err != nil {
			return fmt.Errorf("global_tis: %w", err)
		}
	}
	return nil
}

// RequireHadron checks the tables used by the L0Hadron emulation.
func (s *Set) RequireHadron() error {
	switch {
	case s.Response == nil:
		return fmt.Errorf("%w: single_particle_response", core.ErrMissingCalibration)
	case s.Shared == nil:
		return fmt.Errorf("%w: cluster_shared", core.ErrMissingCalibration)
	case s.Missing == nil:
		return fmt.Errorf("%w: cluster_missing", core.ErrMissingCalibration)
	}
	return nil
}

// RequireTis checks the table used by the L0Global TIS emulation for year.
func (s *Set) RequireTis(year int) error {
	if s.GlobalTis == nil {
		return fmt.Errorf("%w: global_tis", core.ErrMissingCalibration)
	}
	_, err := s.GlobalTis.ForYear(year)
	return err
}
