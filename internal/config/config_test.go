package config

import (
	"testing"

	"trgemu/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"TRGEMU_YEAR", "TRGEMU_BMESON", "TRGEMU_SEED", "TRGEMU_WORKERS", "TRGEMU_BATCH_SIZE", "TRGEMU_ADHOC", "TRGEMU_CALIBRATION"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2016, cfg.Run.Year)
	assert.Equal(t, "b0", cfg.Run.BMeson)
	assert.Equal(t, "TupleB0/DecayTree", cfg.Run.Tree)
	assert.Equal(t, uint64(7), cfg.Execution.Seed)
	assert.GreaterOrEqual(t, cfg.Execution.Workers, 1)
	assert.False(t, cfg.AdHoc.Enabled)
	assert.Error(t, cfg.RequireCalibration())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TRGEMU_YEAR", "2018")
	t.Setenv("TRGEMU_BMESON", "Bminus")
	t.Setenv("TRGEMU_WORKERS", "3")
	t.Setenv("TRGEMU_ADHOC", "true")
	t.Setenv("TRGEMU_ADHOC_SCALE", "0.8")
	t.Setenv("TRGEMU_CALIBRATION", "calib.json")
	t.Setenv("TRGEMU_PROFILE_COLUMNS", "d0_et_emu, b0_l0_global_tis_emu,,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2018, cfg.Run.Year)
	assert.Equal(t, "Bminus", cfg.Run.BMeson)
	assert.Equal(t, 3, cfg.Execution.Workers)
	assert.True(t, cfg.AdHoc.Enabled)
	assert.Equal(t, 0.8, cfg.AdHoc.Scale)
	assert.NoError(t, cfg.RequireCalibration())
	assert.Equal(t, []string{"d0_et_emu", "b0_l0_global_tis_emu"}, cfg.Profiling.Columns)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("TRGEMU_YEAR", "2012")
	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	cfg := &Config{Run: RunConfig{Year: 2016, BMeson: "b0"}, Execution: ExecutionConfig{Workers: 0, BatchSize: 1}}
	assert.Error(t, cfg.Validate())
	cfg.Execution.Workers = 2
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsMalformedSeed(t *testing.T) {
	t.Setenv("TRGEMU_YEAR", "2016")
	for _, seed := range []string{"-1", "seven"} {
		t.Run(seed, func(t *testing.T) {
			t.Setenv("TRGEMU_SEED", seed)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
			assert.Equal(t, 2, errors.ExitCode(err))
		})
	}

	t.Setenv("TRGEMU_SEED", "18446744073709551615")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), cfg.Execution.Seed)
}
