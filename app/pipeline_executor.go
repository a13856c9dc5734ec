package app

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"time"

	"trgemu/domain/core"
	"trgemu/domain/dataset"
	"trgemu/domain/directive"
	"trgemu/ports"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"
)

// ExecutorConfig controls row-batch evaluation
type ExecutorConfig struct {
	Seed      uint64
	Workers   int
	BatchSize int
}

// DefaultExecutorConfig evaluates on every CPU with the default seed
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{Seed: 7, Workers: runtime.NumCPU(), BatchSize: 4096}
}

// PipelineExecutor folds a directive plan over a dataset, producing one
// snapshot per directive. Every stochastic draw comes from a stream keyed by
// (seed, directive, row origin), so the result does not depend on Workers.
type PipelineExecutor struct {
	rngPort ports.RNGPort
	config  ExecutorConfig
}

// NewPipelineExecutor creates a new pipeline executor
func NewPipelineExecutor(rngPort ports.RNGPort, config ExecutorConfig) *PipelineExecutor {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.BatchSize < 1 {
		config.BatchSize = DefaultExecutorConfig().BatchSize
	}
	return &PipelineExecutor{rngPort: rngPort, config: config}
}

// Config returns the effective configuration
func (e *PipelineExecutor) Config() ExecutorConfig { return e.config }

// Apply evaluates the plan against initial. snapshots[i] is the dataset after
// directive i; retained lists retained define names in declaration order.
// Any error aborts the whole plan and no snapshot is returned.
func (e *PipelineExecutor) Apply(ctx context.Context, plan *directive.Plan, initial *dataset.Dataset) ([]*dataset.Dataset, []string, error) {
	if err := plan.Validate(); err != nil {
		return nil, nil, core.NewExpressionError("plan", err)
	}
	if err := plan.Check(initial.Names()); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	snapshots := make([]*dataset.Dataset, 0, plan.Len())
	var retained []string

	base := initial
	for i, d := range plan.Directives() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		bound, err := d.Bind(base)
		if err != nil {
			return nil, nil, err
		}

		var next *dataset.Dataset
		switch d.Kind() {
		case directive.KindDefine:
			next, err = e.define(ctx, bound, base)
		case directive.KindFilter:
			next, err = e.filter(ctx, bound, base)
		}
		if err != nil {
			return nil, nil, err
		}

		if d.Kind() == directive.KindFilter && next.NumRows() < base.NumRows() {
			log.Printf("[Executor] Step %d %s kept %d of %d rows", i, d, next.NumRows(), base.NumRows())
		}

		snapshots = append(snapshots, next)
		if d.Retain() {
			retained = append(retained, d.Name())
		}
		base = next
	}

	log.Printf("[Executor] Applied %d directives to %d rows (%d remaining) in %.2fms",
		plan.Len(), initial.NumRows(), base.NumRows(), float64(time.Since(start).Nanoseconds())/1e6)
	return snapshots, retained, nil
}

// Final returns the last snapshot, or initial when the plan was empty.
func Final(snapshots []*dataset.Dataset, initial *dataset.Dataset) *dataset.Dataset {
	if len(snapshots) == 0 {
		return initial
	}
	return snapshots[len(snapshots)-1]
}

func streamName(d directive.Directive) string {
	if d.Kind() == directive.KindFilter {
		return d.String()
	}
	return d.Name()
}

func (e *PipelineExecutor) define(ctx context.Context, bound *directive.Bound, base *dataset.Dataset) (*dataset.Dataset, error) {
	d := bound.Directive()
	streams := e.rngPort.Streams(e.config.Seed, streamName(d))
	builder := dataset.NewColumnBuilder(d.Name(), base.NumRows())

	err := e.forEachBatch(ctx, base.NumRows(), func(lo, hi int) error {
		row := dataset.NewRow(base, lo, streams)
		for i := lo; i < hi; i++ {
			row.Reset(i)
			v, err := bound.Define(row)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			builder.Set(i, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	col, err := builder.Build()
	if err != nil {
		return nil, core.NewExpressionError(d.Name(), err)
	}
	return base.WithColumn(col)
}

func (e *PipelineExecutor) filter(ctx context.Context, bound *directive.Bound, base *dataset.Dataset) (*dataset.Dataset, error) {
	streams := e.rngPort.Streams(e.config.Seed, streamName(bound.Directive()))
	n := base.NumRows()
	parts := make([]*roaring.Bitmap, e.batchCount(n))

	err := e.forEachBatch(ctx, n, func(lo, hi int) error {
		keep := roaring.New()
		row := dataset.NewRow(base, lo, streams)
		for i := lo; i < hi; i++ {
			row.Reset(i)
			ok, err := bound.Keep(row)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			if ok {
				keep.Add(uint32(i))
			}
		}
		parts[lo/e.config.BatchSize] = keep
		return nil
	})
	if err != nil {
		return nil, err
	}

	return base.Select(roaring.FastOr(parts...)), nil
}

func (e *PipelineExecutor) batchCount(n int) int {
	return (n + e.config.BatchSize - 1) / e.config.BatchSize
}

// forEachBatch calls fn over [lo, hi) row ranges. With one worker the
// batches run in order on the calling goroutine. When several batches fail
// the error of the lowest batch is returned.
func (e *PipelineExecutor) forEachBatch(ctx context.Context, n int, fn func(lo, hi int) error) error {
	size := e.config.BatchSize
	if e.config.Workers <= 1 || n <= size {
		for lo := 0; lo < n; lo += size {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(lo, min(lo+size, n)); err != nil {
				return err
			}
		}
		return nil
	}

	errs := make([]error, e.batchCount(n))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for lo := 0; lo < n; lo += size {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(lo, min(lo+size, n)); err != nil {
				errs[lo/size] = err
				return err
			}
			return nil
		})
	}
	waitErr := g.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return waitErr
}
