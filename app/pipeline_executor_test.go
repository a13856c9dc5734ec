package app

import (
	"context"
	"errors"
	"testing"

	"trgemu/adapters/rng"
	"trgemu/domain/core"
	"trgemu/domain/dataset"
	"trgemu/domain/directive"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutor(workers, batch int) *PipelineExecutor {
	return NewPipelineExecutor(rng.NewPCGAdapter(), ExecutorConfig{Seed: 11, Workers: workers, BatchSize: batch})
}

func abDataset() *dataset.Dataset {
	return dataset.MustNew(
		dataset.NewFloatColumn("a", []float64{1, -5, 2}),
		dataset.NewFloatColumn("b", []float64{1, 1, 3}),
	)
}

func floatsOf(t *testing.T, ds *dataset.Dataset) map[string][]float64 {
	t.Helper()
	out := make(map[string][]float64, ds.NumColumns())
	for _, name := range ds.Names() {
		c, ok := ds.Column(name)
		require.True(t, ok)
		out[name] = c.Floats()
	}
	return out
}

func TestApplyDefineThenFilter(t *testing.T) {
	plan := directive.NewPlan(
		directive.DefineExpr("x", "a + b", true),
		directive.FilterExpr("x > 0"),
	)
	initial := abDataset()

	snapshots, retained, err := newExecutor(1, 2).Apply(context.Background(), plan, initial)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	assert.Equal(t, []string{"x"}, retained)
	assert.Equal(t, 3, snapshots[0].NumColumns())
	assert.Equal(t, 3, snapshots[0].NumRows())

	final := Final(snapshots, initial)
	assert.Equal(t, 2, final.NumRows())
	assert.Equal(t, 3, final.NumColumns())
	x, _ := final.Column("x")
	assert.Equal(t, []float64{2, 5}, x.Floats())
	assert.Equal(t, uint32(2), final.Origin(1))
}

func TestApplyEmptyPlan(t *testing.T) {
	initial := abDataset()
	snapshots, retained, err := newExecutor(4, 1).Apply(context.Background(), directive.NewPlan(), initial)
	require.NoError(t, err)
	assert.Empty(t, snapshots)
	assert.Empty(t, retained)
	assert.Same(t, initial, Final(snapshots, initial))
}

func TestApplyDefineReplacesExistingColumn(t *testing.T) {
	plan := directive.NewPlan(directive.DefineExpr("a", "a * 2", false))
	snapshots, retained, err := newExecutor(1, 8).Apply(context.Background(), plan, abDataset())
	require.NoError(t, err)
	assert.Empty(t, retained)
	assert.Equal(t, []string{"a", "b"}, snapshots[0].Names())
	a, _ := snapshots[0].Column("a")
	assert.Equal(t, []float64{2, -10, 4}, a.Floats())
}

func TestApplyRetainedKeepsDuplicates(t *testing.T) {
	plan := directive.NewPlan(
		directive.DefineExpr("x", "a", true),
		directive.DefineExpr("x", "b", true),
	)
	_, retained, err := newExecutor(1, 8).Apply(context.Background(), plan, abDataset())
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "x"}, retained)
}

func TestApplyChecksColumnsBeforeEvaluation(t *testing.T) {
	rngPort := &countingRNG{RNGPort: rng.NewPCGAdapter()}
	executor := NewPipelineExecutor(rngPort, ExecutorConfig{Seed: 11, Workers: 1, BatchSize: 8})
	plan := directive.NewPlan(
		directive.DefineFloat("smeared", func(r *dataset.Row) float64 {
			return r.Float("a") * r.Rand().Float64()
		}, true, directive.Uses("a")),
		directive.DefineExpr("late", "smeared + nope", true),
	)

	_, _, err := executor.Apply(context.Background(), plan, abDataset())
	assert.ErrorIs(t, err, core.ErrUnknownColumn)
	assert.Zero(t, rngPort.calls)
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name   string
		plan   *directive.Plan
		target error
	}{
		{"unknown expression column", directive.NewPlan(directive.DefineExpr("x", "a + nope", true)), core.ErrUnknownColumn},
		{"unknown closure column", directive.NewPlan(directive.DefineFloat("x", func(r *dataset.Row) float64 {
			return r.Float("nope")
		}, true)), core.ErrUnknownColumn},
		{"column defined later", directive.NewPlan(
			directive.DefineExpr("y", "x * 2", true),
			directive.DefineExpr("x", "a", true),
		), core.ErrUnknownColumn},
		{"non boolean filter", directive.NewPlan(directive.FilterExpr("a + b")), core.ErrExpressionEvaluation},
		{"closure failure", directive.NewPlan(directive.Define("x", func(r *dataset.Row) (dataset.Value, error) {
			return dataset.Value{}, errors.New("boom")
		}, true)), core.ErrExpressionEvaluation},
		{"mixed kinds", directive.NewPlan(directive.Define("x", func(r *dataset.Row) (dataset.Value, error) {
			if r.Index() == 0 {
				return dataset.String("a"), nil
			}
			return dataset.Float(1), nil
		}, true)), core.ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshots, retained, err := newExecutor(2, 1).Apply(context.Background(), tt.plan, abDataset())
			assert.ErrorIs(t, err, tt.target)
			assert.Nil(t, snapshots)
			assert.Nil(t, retained)
		})
	}
}

func TestApplyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := newExecutor(1, 1).Apply(ctx, directive.NewPlan(directive.DefineExpr("x", "a", true)), abDataset())
	assert.ErrorIs(t, err, context.Canceled)
}

func stochasticPlan() *directive.Plan {
	return directive.NewPlan(
		directive.DefineFloat("u", func(r *dataset.Row) float64 { return r.Rand().Float64() }, true),
		directive.Filter(func(r *dataset.Row) (bool, error) { return r.Rand().Float64() < 0.7, nil }, directive.Describe("coin")),
		directive.DefineFloat("v", func(r *dataset.Row) float64 { return r.Float("u") + r.Rand().Float64() }, true),
	)
}

func rampDataset(n int) *dataset.Dataset {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}
	return dataset.MustNew(dataset.NewFloatColumn("a", values))
}

func TestApplyIsDeterministic(t *testing.T) {
	initial := rampDataset(500)
	first, _, err := newExecutor(1, 64).Apply(context.Background(), stochasticPlan(), initial)
	require.NoError(t, err)
	second, _, err := newExecutor(1, 64).Apply(context.Background(), stochasticPlan(), initial)
	require.NoError(t, err)

	if diff := cmp.Diff(floatsOf(t, Final(first, initial)), floatsOf(t, Final(second, initial))); diff != "" {
		t.Errorf("repeated run differs (-first +second):\n%s", diff)
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	initial := rampDataset(1000)
	seq, _, err := newExecutor(1, 1000).Apply(context.Background(), stochasticPlan(), initial)
	require.NoError(t, err)

	for _, cfg := range []struct{ workers, batch int }{{2, 7}, {4, 64}, {8, 1}} {
		par, _, err := newExecutor(cfg.workers, cfg.batch).Apply(context.Background(), stochasticPlan(), initial)
		require.NoError(t, err)
		for i := range seq {
			if diff := cmp.Diff(floatsOf(t, seq[i]), floatsOf(t, par[i])); diff != "" {
				t.Errorf("workers=%d batch=%d snapshot %d differs:\n%s", cfg.workers, cfg.batch, i, diff)
			}
		}
	}
}

func TestSeedChangesDraws(t *testing.T) {
	initial := rampDataset(50)
	plan := directive.NewPlan(directive.DefineFloat("u", func(r *dataset.Row) float64 { return r.Rand().Float64() }, true))

	a, _, err := NewPipelineExecutor(rng.NewPCGAdapter(), ExecutorConfig{Seed: 1, Workers: 1}).Apply(context.Background(), plan, initial)
	require.NoError(t, err)
	b, _, err := NewPipelineExecutor(rng.NewPCGAdapter(), ExecutorConfig{Seed: 2, Workers: 1}).Apply(context.Background(), plan, initial)
	require.NoError(t, err)
	assert.NotEqual(t, floatsOf(t, a[0])["u"], floatsOf(t, b[0])["u"])
}
