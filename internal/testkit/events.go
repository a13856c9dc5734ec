package testkit

import (
	"fmt"
	"math"
	"math/rand/v2"

	"trgemu/domain/dataset"
	"trgemu/domain/feature"

	"gonum.org/v1/gonum/stat/distuv"
)

// EventGeneratorConfig configures the synthetic event generator
type EventGeneratorConfig struct {
	Events    int    `json:"events"`
	Seed      uint64 `json:"seed"`
	BMeson    string `json:"bmeson"`
	RunNumber int64  `json:"run_number"`
}

// DefaultEventConfig returns sensible defaults for event generation
func DefaultEventConfig() EventGeneratorConfig {
	return EventGeneratorConfig{
		Events:    200,
		Seed:      42,
		BMeson:    "b0",
		RunNumber: 174612,
	}
}

// Tracks of the D0 -> K pi candidate, in two-track order.
var Tracks = []string{"k", "pi"}

// EventGenerator produces columnar events carrying every input branch the
// emulation lines read: D0 daughter kinematics and HCAL clusters, HLT1 track
// quality, two-track combinations on the B candidate and global event counts.
type EventGenerator struct {
	config EventGeneratorConfig
	rng    *rand.Rand

	floats map[string][]float64
	ints   map[string][]int64
	bools  map[string][]bool
	order  []string
}

// NewEventGenerator creates a new event generator
func NewEventGenerator(config EventGeneratorConfig) *EventGenerator {
	return &EventGenerator{
		config: config,
		rng:    rand.New(rand.NewPCG(config.Seed, 0x5eed)),
	}
}

// Generate builds a fresh dataset. Calling it twice on generators with the
// same config yields identical data.
func (g *EventGenerator) Generate() (*dataset.Dataset, error) {
	g.floats = make(map[string][]float64)
	g.ints = make(map[string][]int64)
	g.bools = make(map[string][]bool)
	g.order = nil

	for i := 0; i < g.config.Events; i++ {
		g.generateEvent(int64(i))
	}

	columns := make([]*dataset.Column, 0, len(g.order))
	for _, name := range g.order {
		switch {
		case g.floats[name] != nil:
			columns = append(columns, dataset.NewFloatColumn(name, g.floats[name]))
		case g.ints[name] != nil:
			columns = append(columns, dataset.NewIntColumn(name, g.ints[name]))
		default:
			columns = append(columns, dataset.NewBoolColumn(name, g.bools[name]))
		}
	}
	return dataset.New(columns...)
}

func (g *EventGenerator) track(name string) {
	if g.floats[name] == nil && g.ints[name] == nil && g.bools[name] == nil {
		g.order = append(g.order, name)
	}
}

func (g *EventGenerator) setFloat(name string, v float64) {
	g.track(name)
	if g.floats[name] == nil {
		g.floats[name] = make([]float64, 0, g.config.Events)
	}
	g.floats[name] = append(g.floats[name], v)
}

func (g *EventGenerator) setInt(name string, v int64) {
	g.track(name)
	if g.ints[name] == nil {
		g.ints[name] = make([]int64, 0, g.config.Events)
	}
	g.ints[name] = append(g.ints[name], v)
}

func (g *EventGenerator) setBool(name string, v bool) {
	g.track(name)
	if g.bools[name] == nil {
		g.bools[name] = make([]bool, 0, g.config.Events)
	}
	g.bools[name] = append(g.bools[name], v)
}

func (g *EventGenerator) uniform(lo, hi float64) float64 {
	return distuv.Uniform{Min: lo, Max: hi, Src: g.rng}.Rand()
}

func (g *EventGenerator) logNormal(median, sigma float64) float64 {
	return distuv.LogNormal{Mu: math.Log(median), Sigma: sigma, Src: g.rng}.Rand()
}

func (g *EventGenerator) intBetween(lo, hi int64) int64 {
	return lo + g.rng.Int64N(hi-lo+1)
}

// generateEvent appends one event to every column
func (g *EventGenerator) generateEvent(i int64) {
	g.setInt("runNumber", g.config.RunNumber)
	g.setInt("eventNumber", 1000+i)

	// Global event quantities, a few of them outside the GEC window
	g.setInt("nTracks", g.intBetween(20, 450))
	g.setInt("NumSPDHits", g.intBetween(40, 600))
	g.setInt("NumVeloClusters", g.intBetween(30, 6500))
	g.setInt("NumITClusters", g.intBetween(30, 3300))
	g.setInt("NumOTClusters", g.intBetween(30, 16000))

	var sumPX, sumPY, sumP, sumPT, maxTrgET float64
	for _, p := range Tracks {
		pt := g.logNormal(1800, 0.6)
		eta := g.uniform(2, 5)
		phi := g.uniform(-math.Pi, math.Pi)
		px, py := pt*math.Cos(phi), pt*math.Sin(phi)
		mom := pt * math.Cosh(eta)

		g.setFloat(p+"_PT", pt)
		g.setFloat(p+"_P", mom)
		g.setFloat(p+"_PX", px)
		g.setFloat(p+"_PY", py)
		g.setFloat(p+"_PZ", pt*math.Sinh(eta))

		realET := pt * g.uniform(0.5, 1.1)
		trgET := math.Min(realET*g.uniform(0.85, 1.05), 6100)
		x, y := g.uniform(-4000, 4000), g.uniform(-3200, 3200)
		region := int64(RegionOuter)
		if math.Abs(x) < 2000 && math.Abs(y) < 1600 {
			region = RegionInner
		}
		g.setFloat(p+"_L0Calo_HCAL_realET", realET)
		g.setFloat(p+"_L0Calo_HCAL_TriggerET", trgET)
		g.setFloat(p+"_L0Calo_HCAL_xProjection", x)
		g.setFloat(p+"_L0Calo_HCAL_yProjection", y)
		g.setInt(p+"_L0Calo_HCAL_region", region)

		g.setFloat(p+"_TRACK_CHI2NDOF", g.uniform(0.2, 3))
		g.setFloat(p+"_IPCHI2_OWNPV", g.logNormal(40, 1.2))
		g.setFloat(p+"_TRACK_GhostProb", g.uniform(0, 0.3))
		g.setInt(p+"_TRACK_nTTHits", g.intBetween(0, 8))

		sumPX += px
		sumPY += py
		sumP += mom
		sumPT += pt
		maxTrgET = math.Max(maxTrgET, trgET)
	}

	g.setFloat("d0_P", sumP)
	g.setFloat("d0_PT", math.Hypot(sumPX, sumPY))
	g.setBool("d0_L0HadronDecision_TOS", maxTrgET >= 3700)

	b := g.config.BMeson
	bpt := g.logNormal(7000, 0.5)
	g.setFloat(b+"_PT", bpt)
	g.setFloat(b+"_PZ", g.logNormal(60000, 0.6))
	g.setBool(b+"_L0Global_TIS", g.rng.Float64() < 0.35)

	// Two-track combinations 1_2, 1_3 and 2_3. Only 1_2 is built from the
	// K pi pair so its SUMPT matches their scalar PT sum.
	for _, idx := range feature.Combinations(3, 2) {
		suffix := fmt.Sprintf("_%d_%d", idx[0]+1, idx[1]+1)
		pairPT := g.logNormal(3000, 0.5)
		if idx[0] == 0 && idx[1] == 1 {
			pairPT = sumPT
		}
		g.setFloat(b+"_VDCHI2_OWNPV_COMB"+suffix, g.logNormal(400, 1))
		g.setFloat(b+"_SUMPT_COMB"+suffix, pairPT)
		g.setFloat(b+"_DOCA_COMB"+suffix, g.uniform(0, 0.5))
		g.setFloat(b+"_VERTEX_CHI2_COMB"+suffix, g.uniform(0.1, 14))
		g.setFloat(b+"_ETA_COMB"+suffix, g.uniform(1.8, 5.2))
		g.setFloat(b+"_MCORR_OWNPV_COMB"+suffix, g.uniform(500, 9000))
		g.setFloat(b+"_DIRA_OWNPV_COMB"+suffix, g.uniform(0.95, 1))
		g.setFloat(b+"_Matrixnet_Hlt1TwoTrackMVAEmulations"+suffix, g.uniform(0.85, 1))
	}

	g.setFloat("FitVar_q2", g.uniform(-2e6, 12e6))
	g.setFloat("FitVar_Mmiss2", g.uniform(-2e6, 10e6))
	g.setFloat("FitVar_El", g.uniform(0, 2.6e3))
}
