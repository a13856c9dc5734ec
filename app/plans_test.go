package app

import (
	"testing"

	"trgemu/domain/core"
	"trgemu/domain/directive"
	"trgemu/domain/feature"
	"trgemu/domain/trigger"
	"trgemu/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hadronModel(t *testing.T) *trigger.HadronModel {
	t.Helper()
	set, err := testkit.FixtureCalibration()
	require.NoError(t, err)
	m, err := trigger.NewHadronModel(set)
	require.NoError(t, err)
	return m
}

func TestL0HadronDirectivesSuffix(t *testing.T) {
	ds, err := L0HadronDirectives(hadronModel(t), 2017, "_no_bdt")
	require.NoError(t, err)
	retained := directive.NewPlan(ds...).Retained()
	assert.Contains(t, retained, "d0_et_emu_no_bdt")
	assert.Contains(t, retained, "d0_l0_hadron_tos_emu_no_bdt")
	assert.NotContains(t, retained, "d0_et_emu")
}

func TestPlansRejectUnknownPeriod(t *testing.T) {
	_, err := L0HadronDirectives(hadronModel(t), 2012, "")
	assert.ErrorIs(t, err, core.ErrUnsupportedPeriod)

	_, err = HLT1Directives("b0", 2019)
	assert.ErrorIs(t, err, core.ErrUnsupportedPeriod)
}

func TestTrainingColumns(t *testing.T) {
	cols := TrainingColumns(false)
	assert.Equal(t, feature.RegressorInputs, cols[:len(feature.RegressorInputs)])
	assert.Equal(t, []string{"runNumber", "eventNumber", "d0_et_diff", "d0_et_emu_no_bdt"}, cols[len(feature.RegressorInputs):])

	debug := TrainingColumns(true)
	assert.Equal(t, cols, debug[:len(cols)])
	assert.Contains(t, debug, "nspdhits")
	assert.Contains(t, debug, "d0_trg_et")
}

func TestPostOracleDirectivesTarget(t *testing.T) {
	with := directive.NewPlan(PostOracleDirectives("d0_et_emu_no_bdt", 2016, true)...).Retained()
	without := directive.NewPlan(PostOracleDirectives("d0_et_emu_no_bdt", 2016, false)...).Retained()
	assert.Equal(t, []string{"d0_et_emu_bdt", "d0_et_trg_pred_diff", "d0_l0_hadron_tos_emu_bdt"}, with)
	assert.Equal(t, []string{"d0_et_emu_bdt", "d0_l0_hadron_tos_emu_bdt"}, without)
}

func TestHLT1DirectivesReadPairColumns(t *testing.T) {
	ds, err := HLT1Directives("bs", 2016)
	require.NoError(t, err)
	last := ds[len(ds)-1]
	assert.Equal(t, "d0_hlt1_twotrackmva_tos_emu", last.Name())
	assert.Contains(t, last.String(), "bs_COMB")
}
