package trigger

import (
	"math"
	"math/rand/v2"

	"trgemu/domain/core"
	"trgemu/domain/feature"

	"gonum.org/v1/gonum/stat/distuv"
)

// GlobalEventCut rejects events with too few or too many tracker clusters.
func GlobalEventCut(velo, it, ot float64) bool {
	return velo > 50 && velo < 6000 &&
		it > 50 && it < 3000 &&
		ot > 50 && ot < 15000
}

// TrackRecoCorrection models tracks the online reconstruction loses.
type TrackRecoCorrection struct {
	MinTTHits    float64
	Inefficiency float64
}

var trackRecoCorrections = map[int]TrackRecoCorrection{
	2015: {MinTTHits: 3, Inefficiency: 0.042},
	2016: {MinTTHits: 3, Inefficiency: 0.042},
	2017: {MinTTHits: 3, Inefficiency: 0.042},
	2018: {MinTTHits: 3, Inefficiency: 0.042},
}

// TrackRecoCorrectionFor returns the correction of a run period.
func TrackRecoCorrectionFor(year int) (TrackRecoCorrection, error) {
	c, ok := trackRecoCorrections[year]
	if !ok {
		return TrackRecoCorrection{}, core.NewPeriodError(year)
	}
	return c, nil
}

// Pass draws whether the track survives online reconstruction. The draw is
// always consumed so the stream position does not depend on nTT.
func (c TrackRecoCorrection) Pass(nTT float64, src rand.Source) bool {
	u := distuv.Uniform{Min: 0, Max: 1, Src: src}.Rand()
	return u >= c.Inefficiency && nTT >= c.MinTTHits
}

// PerTrackGlobalCorrection combines the global event cut with the per-track
// reconstruction correction.
func PerTrackGlobalCorrection(nTT, velo, it, ot float64, year int, src rand.Source) (bool, error) {
	c, err := TrackRecoCorrectionFor(year)
	if err != nil {
		return false, err
	}
	pass := c.Pass(nTT, src)
	return pass && GlobalEventCut(velo, it, ot), nil
}

// Track is the per-track view used by the HLT1 selections.
type Track struct {
	PT        float64
	P         float64
	Chi2NDOF  float64
	IPChi2    float64
	GhostProb float64
	PX        float64
	PY        float64
}

// TrackFromRecord reads a track from a feature record keyed like
// feature.TwoTrackInputs.
func TrackFromRecord(r feature.Record) Track {
	return Track{
		PT:        r.Get("PT"),
		P:         r.Get("P"),
		Chi2NDOF:  r.Get("TRCHI2DOF"),
		IPChi2:    r.Get("BPVIPCHI2"),
		GhostProb: r.Get("TRGHOSTPROB"),
		PX:        r.Get("PX"),
		PY:        r.Get("PY"),
	}
}

const (
	trackMVAMaxPT   = 25000.0
	trackMVAMinPT   = 1000.0
	trackMVAHighIP  = 7.4
	trackMVAMaxChi2 = 2.5
)

// TrackMVACuts are the Hlt1TrackMVA selection parameters of one run period.
type TrackMVACuts struct {
	Year          int
	InputMinPT    float64
	InputMinP     float64
	InputMaxChi2  float64
	InputMaxGhost float64
	MVAMaxGhost   float64
	Param3        float64
}

var trackMVACuts = map[int]TrackMVACuts{
	2015: {Year: 2015, InputMinPT: 500, InputMinP: 3000, InputMaxChi2: 4, InputMaxGhost: math.Inf(1), MVAMaxGhost: math.Inf(1), Param3: 1.1},
	2016: {Year: 2016, InputMinPT: 600, InputMinP: 5000, InputMaxChi2: 4, InputMaxGhost: 0.999, MVAMaxGhost: 0.2, Param3: 2.3},
	2017: {Year: 2017, InputMinPT: 600, InputMinP: 5000, InputMaxChi2: 4, InputMaxGhost: 0.999, MVAMaxGhost: 0.2, Param3: 1.1},
	2018: {Year: 2018, InputMinPT: 600, InputMinP: 5000, InputMaxChi2: 4, InputMaxGhost: 0.999, MVAMaxGhost: 0.2, Param3: 1.1},
}

// TrackMVACutsFor returns the Hlt1TrackMVA parameters of a run period.
func TrackMVACutsFor(year int) (TrackMVACuts, error) {
	c, ok := trackMVACuts[year]
	if !ok {
		return TrackMVACuts{}, core.NewPeriodError(year)
	}
	return c, nil
}

// trackMVAValue is the hyperbolic IP chi2 requirement of the 1D MVA.
func trackMVAValue(ipChi2, pt, p1, p2, p3 float64) bool {
	return math.Log(ipChi2) > p1/math.Pow(pt/1000-p2, 2)+(p3/trackMVAMaxPT)*(trackMVAMaxPT-pt)+math.Log(trackMVAHighIP)
}

func (c TrackMVACuts) InputDecision(t Track) bool {
	return t.PT > c.InputMinPT && t.P > c.InputMinP && t.Chi2NDOF < c.InputMaxChi2 && t.GhostProb < c.InputMaxGhost
}

func (c TrackMVACuts) MVADecision(t Track) bool {
	if t.Chi2NDOF <= 0 || t.IPChi2 <= 0 {
		return false
	}
	if t.Chi2NDOF >= trackMVAMaxChi2 || t.GhostProb >= c.MVAMaxGhost {
		return false
	}
	if t.PT > trackMVAMaxPT && t.IPChi2 > trackMVAHighIP {
		return true
	}
	return t.PT > trackMVAMinPT && t.PT < trackMVAMaxPT && trackMVAValue(t.IPChi2, t.PT, 1.0, 1.0, c.Param3)
}

// Decision is the full Hlt1TrackMVA TOS emulation for one track.
func (c TrackMVACuts) Decision(t Track, passCorr bool) bool {
	return passCorr && c.InputDecision(t) && c.MVADecision(t)
}

// TrackMVADecision emulates Hlt1TrackMVA for a single track.
func TrackMVADecision(pt, p, chi2ndof, ipchi2, ghost float64, passCorr bool, year int) (bool, error) {
	c, err := TrackMVACutsFor(year)
	if err != nil {
		return false, err
	}
	t := Track{PT: pt, P: p, Chi2NDOF: chi2ndof, IPChi2: ipchi2, GhostProb: ghost}
	return c.Decision(t, passCorr), nil
}

// Vertex holds the two-track combination quantities of one track pair.
type Vertex struct {
	VDChi2 float64
	SumPT  float64
	DOCA   float64
	VChi2  float64
	Eta    float64
	CorrM  float64
	Dira   float64
	MVA    float64
}

// VertexFromRecord reads a combination keyed like feature.TwoTrackCombination.
func VertexFromRecord(r feature.Record) Vertex {
	return Vertex{
		VDChi2: r.Get("VDCHI2"),
		SumPT:  r.Get("SUMPT"),
		DOCA:   r.Get("DOCA"),
		VChi2:  r.Get("VCHI2"),
		Eta:    r.Get("BPVETA"),
		CorrM:  r.Get("BPVCORRM"),
		Dira:   r.Get("BPVDIRA"),
		MVA:    r.Get("MVA"),
	}
}

// SumPTTolerance is how close (MeV) a combination's SUMPT must be to the
// tracks' scalar PT sum to be matched to them.
const SumPTTolerance = 1.0

// TwoTrackMVACuts are the Hlt1TwoTrackMVA selection parameters of one run period.
type TwoTrackMVACuts struct {
	Year          int
	InputMinPT    float64
	InputMaxGhost float64
	MinCorrM      float64
	MinMVA        float64
}

var twoTrackMVACuts = map[int]TwoTrackMVACuts{
	2015: {Year: 2015, InputMinPT: 500, InputMaxGhost: math.Inf(1), MinCorrM: 1000, MinMVA: 0.95},
	2016: {Year: 2016, InputMinPT: 600, InputMaxGhost: 0.2, MinCorrM: 100, MinMVA: 0.97},
	2017: {Year: 2017, InputMinPT: 600, InputMaxGhost: 0.2, MinCorrM: 1000, MinMVA: 0.95},
	2018: {Year: 2018, InputMinPT: 600, InputMaxGhost: 0.2, MinCorrM: 1000, MinMVA: 0.95},
}

// TwoTrackMVACutsFor returns the Hlt1TwoTrackMVA parameters of a run period.
func TwoTrackMVACutsFor(year int) (TwoTrackMVACuts, error) {
	c, ok := twoTrackMVACuts[year]
	if !ok {
		return TwoTrackMVACuts{}, core.NewPeriodError(year)
	}
	return c, nil
}

func (c TwoTrackMVACuts) InputDecision(t Track) bool {
	if t.Chi2NDOF <= 0 {
		return false
	}
	return t.PT > c.InputMinPT && t.P > 5000 && t.Chi2NDOF < 2.5 && t.GhostProb < c.InputMaxGhost && t.IPChi2 > 4
}

// MVADecision evaluates the combination selection. apt is the PT of the
// vector sum of the two tracks.
func (c TwoTrackMVACuts) MVADecision(v Vertex, apt float64) bool {
	if v.VDChi2 <= 0 || apt <= 0 || v.VChi2 <= 0 || v.CorrM <= 0 {
		return false
	}
	preVertexing := v.DOCA > 0 && v.DOCA < 10 && apt > 2000
	combo := v.VChi2 < 10 && v.Eta > 2 && v.Eta < 5 &&
		v.CorrM > c.MinCorrM && v.CorrM < 1e9 &&
		v.Dira > 0 && v.MVA > c.MinMVA
	return preVertexing && combo
}

// Decision fires when some pair of tracks passing the input selection and
// their pass flags matches a combination that passes the MVA selection.
func (c TwoTrackMVACuts) Decision(tracks []Track, vertices []Vertex, pass []bool) bool {
	for _, idx := range feature.Combinations(len(tracks), 2) {
		ok := true
		var sumPT, sumPX, sumPY float64
		for _, i := range idx {
			t := tracks[i]
			ok = ok && c.InputDecision(t) && i < len(pass) && pass[i]
			sumPT += t.PT
			sumPX += t.PX
			sumPY += t.PY
		}
		if !ok {
			continue
		}
		apt := VectorPT(sumPX, sumPY)
		for _, v := range vertices {
			if math.Abs(v.SumPT-sumPT) <= SumPTTolerance && c.MVADecision(v, apt) {
				return true
			}
		}
	}
	return false
}

// TwoTrackMVADecision emulates Hlt1TwoTrackMVA from per-track and per-pair records.
func TwoTrackMVADecision(tracks, pairs []feature.Record, passFlags []bool, year int) (bool, error) {
	c, err := TwoTrackMVACutsFor(year)
	if err != nil {
		return false, err
	}
	ts := make([]Track, len(tracks))
	for i, r := range tracks {
		ts[i] = TrackFromRecord(r)
	}
	vs := make([]Vertex, len(pairs))
	for i, r := range pairs {
		vs[i] = VertexFromRecord(r)
	}
	return c.Decision(ts, vs, passFlags), nil
}
