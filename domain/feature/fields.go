package feature

// Field maps a logical feature key to the column suffix it is read from.
type Field struct {
	Key    string
	Column string
}

// Fields is an ordered field map. Order fixes the layout of every record
// built from it.
type Fields []Field

// Keys returns the logical keys in order.
func (fs Fields) Keys() []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Key
	}
	return out
}

// Same returns a field map whose keys equal their column suffixes.
func Same(columns ...string) Fields {
	out := make(Fields, len(columns))
	for i, c := range columns {
		out[i] = Field{Key: c, Column: c}
	}
	return out
}

// Track quantities read by the Hlt1TrackMVA selection, in argument order.
var TrackSelection = Fields{
	{Key: "PT", Column: "PT"},
	{Key: "P", Column: "P"},
	{Key: "TRCHI2DOF", Column: "TRACK_CHI2NDOF"},
	{Key: "BPVIPCHI2", Column: "IPCHI2_OWNPV"},
	{Key: "TRGHOSTPROB", Column: "TRACK_GhostProb"},
}

// Per-track inputs of the Hlt1TwoTrackMVA emulation.
var TwoTrackInputs = append(append(Fields{}, TrackSelection...), Same("PX", "PY")...)

// Two-track combination quantities stored per track pair on the B candidate.
var TwoTrackCombination = Fields{
	{Key: "VDCHI2", Column: "VDCHI2_OWNPV_COMB"},
	{Key: "SUMPT", Column: "SUMPT_COMB"},
	{Key: "DOCA", Column: "DOCA_COMB"},
	{Key: "VCHI2", Column: "VERTEX_CHI2_COMB"},
	{Key: "BPVETA", Column: "ETA_COMB"},
	{Key: "BPVCORRM", Column: "MCORR_OWNPV_COMB"},
	{Key: "BPVDIRA", Column: "DIRA_OWNPV_COMB"},
	{Key: "MVA", Column: "Matrixnet_Hlt1TwoTrackMVAEmulations"},
}

// Track-level inputs of the per-track online reconstruction correction.
var GlobalCorrectionTrack = Fields{{Key: "nTTHits", Column: "TRACK_nTTHits"}}

// Event-level cluster multiplicities used by the global event cut.
var GlobalEventColumns = []string{"NumVeloClusters", "NumITClusters", "NumOTClusters"}

// Feature order of the L0Hadron TOS classifier used by the combined emulation.
var ClassifierInputs = []string{
	"nTracks",
	"d0_P",
	"d0_PT",
	"k_P",
	"k_PT",
	"k_L0Calo_HCAL_realET",
	"k_L0Calo_HCAL_xProjection",
	"k_L0Calo_HCAL_yProjection",
	"k_L0Calo_HCAL_region",
	"pi_P",
	"pi_PT",
	"pi_L0Calo_HCAL_realET",
	"pi_L0Calo_HCAL_xProjection",
	"pi_L0Calo_HCAL_yProjection",
	"pi_L0Calo_HCAL_region",
}

// Feature order of the L0Hadron energy-residual regressor. rdiff_k_pi is
// computed by the emulation, not read from input.
var RegressorInputs = []string{
	"d0_PT",
	"d0_P",
	"k_L0Calo_HCAL_realET",
	"pi_L0Calo_HCAL_realET",
	"rdiff_k_pi",
}
