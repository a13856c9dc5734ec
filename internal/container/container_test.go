package container

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"trgemu/adapters/calibration"
	"trgemu/adapters/oracle"
	"trgemu/app"
	"trgemu/domain/core"
	"trgemu/domain/feature"
	"trgemu/internal/config"
	"trgemu/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tree = "TupleB0/DecayTree"

func testConfig() *config.Config {
	return &config.Config{
		Run:       config.RunConfig{Year: 2016, BMeson: "b0", Tree: tree},
		Execution: config.ExecutionConfig{Seed: 7, Workers: 2, BatchSize: 64},
		AdHoc:     config.AdHocConfig{PTThreshold: 20000, Scale: 0.9},
		Profiling: config.ProfilingConfig{Enabled: true},
	}
}

func writeRegressor(t *testing.T, dir string) string {
	t.Helper()
	model := oracle.Ensemble{
		FeatureNames: feature.RegressorInputs,
		BaseScore:    50,
		Objective:    oracle.ObjectiveRegression,
		Trees:        []oracle.Tree{{Nodes: []oracle.Node{{IsLeaf: true, Leaf: 25}}}},
	}
	data, err := json.Marshal(model)
	require.NoError(t, err)
	path := filepath.Join(dir, "oracle.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestInitLoadsInputsAndRuns(t *testing.T) {
	dir := t.TempDir()
	set, err := testkit.FixtureCalibration()
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Calibration.Path = filepath.Join(dir, "calibration.json.zst")
	require.NoError(t, calibration.Save(cfg.Calibration.Path, set))
	cfg.Oracle.Path = writeRegressor(t, dir)

	kit, err := testkit.NewTestKit(testkit.DefaultEventConfig(), tree)
	require.NoError(t, err)

	c, err := New(cfg)
	require.NoError(t, err)
	c.Tabular = kit.Tabular
	require.NoError(t, c.Init())
	defer c.Shutdown(context.Background())

	require.NotNil(t, c.Calibration)
	require.NotNil(t, c.Oracle)
	assert.Equal(t, 2, c.Executor.Config().Workers)
	assert.NotNil(t, c.Profiler)

	report, err := c.Emulation.Run(context.Background(), c.Request(app.LineL0Hadron, testkit.InputLocation, "mem://out"))
	require.NoError(t, err)
	assert.Contains(t, report.Columns, "d0_et_emu_bdt")

	out, ok := kit.Tabular.Get("mem://out", tree)
	require.True(t, ok)
	pred, _ := out.Column(app.PredictionColumn)
	assert.Equal(t, 75.0, pred.Float(0))
}

func TestInitRestrictsProfiledColumns(t *testing.T) {
	cfg := testConfig()
	cfg.Profiling.Columns = []string{"pass_gec", "d0_hlt1_trackmva_tos_emu"}

	kit, err := testkit.NewTestKit(testkit.DefaultEventConfig(), tree)
	require.NoError(t, err)

	c, err := New(cfg)
	require.NoError(t, err)
	c.Tabular = kit.Tabular
	require.NoError(t, c.Init())

	report, err := c.Emulation.Run(context.Background(), c.Request(app.LineHLT1, testkit.InputLocation, "mem://out"))
	require.NoError(t, err)
	require.Len(t, report.Summary, 2)
	assert.Equal(t, "pass_gec", report.Summary[0].Name)
	assert.Equal(t, "d0_hlt1_trackmva_tos_emu", report.Summary[1].Name)
}

func TestInitWithoutPaths(t *testing.T) {
	c, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, c.Init())
	assert.Nil(t, c.Calibration)
	assert.Nil(t, c.Oracle)
	assert.NotNil(t, c.Tabular)
}

func TestInitMissingCalibration(t *testing.T) {
	cfg := testConfig()
	cfg.Calibration.Path = filepath.Join(t.TempDir(), "absent.json")
	c, err := New(cfg)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Init(), core.ErrMissingCalibration)
}

func TestRequestAppliesAdHoc(t *testing.T) {
	cfg := testConfig()
	c, err := New(cfg)
	require.NoError(t, err)

	req := c.Request(app.LineL0GlobalTis, "in.csv", "out.csv")
	assert.Nil(t, req.AdHoc)
	assert.Equal(t, tree, req.Table)
	assert.Equal(t, 2016, req.Year)

	cfg.AdHoc.Enabled = true
	req = c.Request(app.LineL0GlobalTis, "in.csv", "out.csv")
	require.NotNil(t, req.AdHoc)
	assert.Equal(t, 0.9, req.AdHoc.Scale)
}
