package app

import (
	"fmt"

	"trgemu/domain/dataset"
	"trgemu/domain/directive"
	"trgemu/domain/feature"
	"trgemu/domain/trigger"
)

// Identifier columns every output carries
var IdentifierColumns = []string{"runNumber", "eventNumber"}

// D0 daughters whose HCAL clusters form the L0Hadron candidate
const (
	kaon = "k"
	pion = "pi"
)

// Pair indices of the two-track combinations stored on the B candidate
var combinationIndices = []int{1, 2, 3}

func smearDirective(m *trigger.HadronModel, p string) directive.Directive {
	pCol, ptCol, etCol := p+"_P", p+"_PT", p+"_L0Calo_HCAL_realET"
	return directive.DefineFloat(p+"_et_smeared", func(r *dataset.Row) float64 {
		return m.Smear(r.Float(pCol), r.Float(ptCol), r.Float(etCol), r.Rand())
	}, true,
		directive.Uses(pCol, ptCol, etCol),
		directive.Describe("singlePartEt("+pCol+", "+ptCol+", "+etCol+")"))
}

func fractionDirective(name string, lookup func(sep float64, a, b int) (float64, error)) directive.Directive {
	ra, rb := kaon+"_L0Calo_HCAL_region", pion+"_L0Calo_HCAL_region"
	return directive.Define(name, func(r *dataset.Row) (dataset.Value, error) {
		f, err := lookup(r.Float("rdiff_k_pi"), int(r.Int(ra)), int(r.Int(rb)))
		return dataset.Float(f), err
	}, true,
		directive.Uses("rdiff_k_pi", ra, rb),
		directive.Describe(name+"(rdiff_k_pi, "+ra+", "+rb+")"))
}

func combinedDirective(name, a, b string) directive.Directive {
	ea, eb := a+"_et_smeared", b+"_et_smeared"
	return directive.DefineFloat(name, func(r *dataset.Row) float64 {
		return trigger.CombinedEnergy(r.Float(ea), r.Float(eb), r.Float("shared_k_pi"), r.Float("miss_k_pi"))
	}, true,
		directive.Uses(ea, eb, "shared_k_pi", "miss_k_pi"),
		directive.Describe("twoPartEt("+ea+", "+eb+", shared_k_pi, miss_k_pi)"))
}

// L0HadronDirectives is the physics-only L0Hadron chain. suffix is appended
// to the combined energy and decision columns, e.g. "_no_bdt" when a
// residual regressor is applied afterwards.
func L0HadronDirectives(m *trigger.HadronModel, year int, suffix string) ([]directive.Directive, error) {
	if _, err := trigger.HadronThreshold(year); err != nil {
		return nil, err
	}

	x := func(p string) string { return p + "_L0Calo_HCAL_xProjection" }
	y := func(p string) string { return p + "_L0Calo_HCAL_yProjection" }
	kEt, piEt, d0Et := kaon+"_et_emu"+suffix, pion+"_et_emu"+suffix, "d0_et_emu"+suffix

	return []directive.Directive{
		smearDirective(m, kaon),
		smearDirective(m, pion),
		directive.DefineFloat("rdiff_k_pi", func(r *dataset.Row) float64 {
			return trigger.RDiff(r.Float(x(kaon)), r.Float(y(kaon)), r.Float(x(pion)), r.Float(y(pion)))
		}, true,
			directive.Uses(x(kaon), y(kaon), x(pion), y(pion)),
			directive.Describe("rDiff("+x(kaon)+", "+y(kaon)+", "+x(pion)+", "+y(pion)+")")),
		fractionDirective("shared_k_pi", m.SharedFraction),
		fractionDirective("miss_k_pi", m.MissingFraction),
		combinedDirective(kEt, kaon, pion),
		combinedDirective(piEt, pion, kaon),
		directive.DefineExpr(d0Et, "fmax("+kEt+", "+piEt+")", true),
		hadronDecisionDirective("d0_l0_hadron_tos_emu"+suffix, d0Et, year),
	}, nil
}

func hadronDecisionDirective(name, energy string, year int) directive.Directive {
	return directive.Define(name, func(r *dataset.Row) (dataset.Value, error) {
		fired, err := trigger.HadronDecision(r.Float(energy), year)
		return dataset.Bool(fired), err
	}, true, directive.Uses(energy), directive.Describe(fmt.Sprintf("l0HadronTriggerEmu(%s, %d)", energy, year)))
}

// L0HadronDebugDirectives add the recorded trigger decision for comparison
func L0HadronDebugDirectives() []directive.Directive {
	return []directive.Directive{
		directive.Alias("d0_l0_hadron_tos", "d0_L0HadronDecision_TOS", true),
	}
}

// fitDirectives convert the fit variables to GeV units
func fitDirectives() []directive.Directive {
	return []directive.Directive{
		directive.DefineExpr("q2", "FitVar_q2 / 1e6", true),
		directive.DefineExpr("mmiss2", "FitVar_Mmiss2 / 1e6", true),
		directive.DefineExpr("el", "FitVar_El / 1e3", true),
	}
}

// TrainingDirectives build the regression sample for the residual
// regressor: the physics chain with "_no_bdt" columns, the reference trigger
// ET and the target d0_et_diff.
func TrainingDirectives(m *trigger.HadronModel, year int) ([]directive.Directive, error) {
	out, err := L0HadronDirectives(m, year, "_no_bdt")
	if err != nil {
		return nil, err
	}
	kTrg, piTrg := kaon+"_L0Calo_HCAL_TriggerET", pion+"_L0Calo_HCAL_TriggerET"
	return append(out,
		directive.DefineFloat("d0_trg_et", func(r *dataset.Row) float64 {
			return trigger.CapPair(r.Float(kTrg), r.Float(piTrg))
		}, true, directive.Uses(kTrg, piTrg), directive.Describe("capHcalResp("+kTrg+", "+piTrg+")")),
		directive.DefineExpr("d0_et_diff", "d0_trg_et - d0_et_emu_no_bdt", true),
	), nil
}

// TrainingDebugDirectives add reference and kinematic columns in GeV
func TrainingDebugDirectives() []directive.Directive {
	out := []directive.Directive{
		directive.Alias("d0_l0_hadron_tos", "d0_L0HadronDecision_TOS", true),
		directive.Alias("nspdhits", "NumSPDHits", true),
	}
	out = append(out, fitDirectives()...)
	for _, p := range []string{"d0", kaon, pion} {
		out = append(out,
			directive.DefineExpr(p+"_pt", p+"_PT / 1e3", true),
			directive.DefineExpr(p+"_p", p+"_P / 1e3", true),
		)
	}
	return out
}

// TrainingColumns is the export layout of a training sample
func TrainingColumns(debug bool) []string {
	cols := append([]string{}, feature.RegressorInputs...)
	cols = append(cols, IdentifierColumns...)
	cols = append(cols, "d0_et_diff", "d0_et_emu_no_bdt")
	if debug {
		cols = append(cols,
			"d0_l0_hadron_tos", "d0_l0_hadron_tos_emu_no_bdt",
			"k_pt", "pi_pt", "d0_pt", "k_p", "pi_p", "d0_p",
			"d0_trg_et", "nspdhits", "q2", "mmiss2", "el")
	}
	return cols
}

// PostOracleDirectives apply the predicted residual d0_et_diff_pred to the
// physics energy column. withTarget adds the prediction error when the
// regression target is present.
func PostOracleDirectives(energy string, year int, withTarget bool) []directive.Directive {
	out := []directive.Directive{
		directive.DefineFloat("d0_et_emu_bdt", func(r *dataset.Row) float64 {
			return trigger.CorrectEnergy(r.Float(energy), r.Float(PredictionColumn))
		}, true, directive.Uses(energy, PredictionColumn), directive.Describe("capHcalResp("+energy+" + "+PredictionColumn+")")),
	}
	if withTarget {
		out = append(out, directive.DefineExpr("d0_et_trg_pred_diff", "d0_et_diff - "+PredictionColumn, true))
	}
	return append(out, hadronDecisionDirective("d0_l0_hadron_tos_emu_bdt", "d0_et_emu_bdt", year))
}

// PredictionColumn holds the regressor output
const PredictionColumn = "d0_et_diff_pred"

// TisDirectives emulate L0Global TIS for the B candidate
func TisDirectives(m *trigger.TisModel, bmeson string) []directive.Directive {
	pz, pt := bmeson+"_pz", bmeson+"_pt"
	return []directive.Directive{
		directive.Alias(pz, bmeson+"_PZ", true),
		directive.Alias(pt, bmeson+"_PT", true),
		directive.DefineBool(bmeson+"_l0_global_tis_emu", func(r *dataset.Row) bool {
			return m.Decision(r.Float(pz), r.Float(pt), r.Rand())
		}, true, directive.Uses(pz, pt), directive.Describe(fmt.Sprintf("l0GlobalTisTriggerEmu(%s, %s, %d)", pz, pt, m.Year))),
	}
}

// TisDebugDirectives add the recorded TIS decision, fit variables and log
// momenta, then apply the nSPDHits cut.
func TisDebugDirectives(bmeson string) []directive.Directive {
	out := []directive.Directive{
		directive.Alias(bmeson+"_l0_global_tis", bmeson+"_L0Global_TIS", true),
	}
	out = append(out, fitDirectives()...)
	return append(out,
		directive.DefineExpr("log_"+bmeson+"_pz", "log("+bmeson+"_pz)", true),
		directive.DefineExpr("log_"+bmeson+"_pt", "log("+bmeson+"_pt)", true),
		directive.FilterExpr("NumSPDHits < 450"),
		directive.Alias("nspd_hits", "NumSPDHits", true),
	)
}

func passCorrDirective(p string, year int) directive.Directive {
	nTT := p + "_" + feature.GlobalCorrectionTrack[0].Column
	velo, it, ot := feature.GlobalEventColumns[0], feature.GlobalEventColumns[1], feature.GlobalEventColumns[2]
	return directive.Define(p+"_pass_hlt1_corr", func(r *dataset.Row) (dataset.Value, error) {
		pass, err := trigger.PerTrackGlobalCorrection(r.Float(nTT), r.Float(velo), r.Float(it), r.Float(ot), year, r.Rand())
		return dataset.Bool(pass), err
	}, true, directive.Uses(nTT, velo, it, ot), directive.Describe(fmt.Sprintf("hlt1GlobalPass(%s, %d)", nTT, year)))
}

func trackMVADirective(p string, year int) directive.Directive {
	spec := feature.TrackSpecs([]string{p}, feature.TrackSelection)[0]
	pass := p + "_pass_hlt1_corr"
	return directive.Define(p+"_hlt1_trackmva_tos_emu", func(r *dataset.Row) (dataset.Value, error) {
		t := spec.Bind(r)
		fired, err := trigger.TrackMVADecision(t.Get("PT"), t.Get("P"), t.Get("TRCHI2DOF"), t.Get("BPVIPCHI2"), t.Get("TRGHOSTPROB"), r.Bool(pass), year)
		return dataset.Bool(fired), err
	}, true, directive.Uses(append(spec.Columns(), pass)...), directive.Describe(fmt.Sprintf("hlt1TrackMVATriggerEmu(%s, %d)", p, year)))
}

// HLT1Directives emulate Hlt1TrackMVA and Hlt1TwoTrackMVA for the D0 daughters
func HLT1Directives(bmeson string, year int) ([]directive.Directive, error) {
	if _, err := trigger.TrackRecoCorrectionFor(year); err != nil {
		return nil, err
	}

	velo, it, ot := feature.GlobalEventColumns[0], feature.GlobalEventColumns[1], feature.GlobalEventColumns[2]
	tracks := feature.TrackSpecs([]string{kaon, pion}, feature.TwoTrackInputs)
	pairs := feature.PairSpecs(bmeson, feature.TwoTrackCombination, combinationIndices)
	passCols := []string{kaon + "_pass_hlt1_corr", pion + "_pass_hlt1_corr"}
	twoTrackUses := append(append(feature.ColumnsOf(tracks), feature.ColumnsOf(pairs)...), passCols...)

	return []directive.Directive{
		directive.DefineBool("pass_gec", func(r *dataset.Row) bool {
			return trigger.GlobalEventCut(r.Float(velo), r.Float(it), r.Float(ot))
		}, true, directive.Uses(feature.GlobalEventColumns...), directive.Describe("hlt1GEC("+velo+", "+it+", "+ot+")")),
		passCorrDirective(kaon, year),
		passCorrDirective(pion, year),
		trackMVADirective(kaon, year),
		trackMVADirective(pion, year),
		directive.DefineExpr("d0_hlt1_trackmva_tos_emu", "k_hlt1_trackmva_tos_emu || pi_hlt1_trackmva_tos_emu", true),
		directive.Define("d0_hlt1_twotrackmva_tos_emu", func(r *dataset.Row) (dataset.Value, error) {
			flags := make([]bool, len(passCols))
			for i, c := range passCols {
				flags[i] = r.Bool(c)
			}
			fired, err := trigger.TwoTrackMVADecision(feature.BindAll(tracks, r), feature.BindAll(pairs, r), flags, year)
			return dataset.Bool(fired), err
		}, true, directive.Uses(twoTrackUses...), directive.Describe(fmt.Sprintf("hlt1TwoTrackMVATriggerEmu(k, pi, %s_COMB, %d)", bmeson, year))),
	}, nil
}
