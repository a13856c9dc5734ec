package container

import (
	"context"
	"fmt"
	"log"

	"trgemu/adapters/calibration"
	"trgemu/adapters/oracle"
	"trgemu/adapters/rng"
	"trgemu/adapters/tabular"
	"trgemu/app"
	"trgemu/domain/calib"
	"trgemu/domain/trigger"
	"trgemu/internal/config"
	"trgemu/internal/errors"
	"trgemu/internal/profiling"
	"trgemu/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	Tabular ports.TabularPort

	// Read-only inputs, loaded once
	Calibration *calib.Set
	Oracle      ports.Oracle

	// Services
	Executor  *app.PipelineExecutor
	Profiler  *profiling.ColumnProfiler
	Emulation *app.EmulationService
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
	}

	return c, nil
}

// Init loads calibration and oracle from the configured paths and wires the
// emulation service. A missing path leaves the corresponding input unset;
// lines that need it fail when their plan is built.
func (c *Container) Init() error {
	if c.Tabular == nil {
		c.Tabular = tabular.NewDefaultRouter()
	}

	if err := c.initCalibration(); err != nil {
		return err
	}
	if err := c.initOracle(); err != nil {
		return err
	}

	c.Executor = app.NewPipelineExecutor(rng.NewPCGAdapter(), app.ExecutorConfig{
		Seed:      c.Config.Execution.Seed,
		Workers:   c.Config.Execution.Workers,
		BatchSize: c.Config.Execution.BatchSize,
	})
	if c.Config.Profiling.Enabled {
		c.Profiler = profiling.NewColumnProfiler(c.Config.Profiling.Columns...)
	}
	c.Emulation = app.NewEmulationService(c.Executor, c.Tabular, c.Calibration, c.Oracle, c.Profiler)

	log.Printf("[Container] Initialized: workers=%d batch=%d seed=%d calibration=%t oracle=%t",
		c.Executor.Config().Workers, c.Executor.Config().BatchSize, c.Executor.Config().Seed,
		c.Calibration != nil, c.Oracle != nil)
	return nil
}

func (c *Container) initCalibration() error {
	if c.Calibration != nil || c.Config.Calibration.Path == "" {
		return nil
	}
	set, err := calibration.Load(c.Config.Calibration.Path)
	if err != nil {
		return errors.Wrapf(err, "load calibration %s", c.Config.Calibration.Path)
	}
	c.Calibration = set
	return nil
}

func (c *Container) initOracle() error {
	if c.Oracle != nil || c.Config.Oracle.Path == "" {
		return nil
	}
	model, err := oracle.Load(c.Config.Oracle.Path)
	if err != nil {
		return errors.Wrapf(err, "load oracle %s", c.Config.Oracle.Path)
	}
	c.Oracle = model
	return nil
}

// AdHocCorrection returns the configured TIS correction, or nil when disabled
func (c *Container) AdHocCorrection() *trigger.AdHocCorrection {
	if !c.Config.AdHoc.Enabled {
		return nil
	}
	return &trigger.AdHocCorrection{
		PTThreshold: c.Config.AdHoc.PTThreshold,
		Scale:       c.Config.AdHoc.Scale,
	}
}

// Request builds a run request for line from the configuration
func (c *Container) Request(line, input, output string) app.RunRequest {
	return app.RunRequest{
		Line:   line,
		Input:  input,
		Output: output,
		Table:  c.Config.Run.Tree,
		Year:   c.Config.Run.Year,
		BMeson: c.Config.Run.BMeson,
		Debug:  c.Config.Run.Debug,
		AdHoc:  c.AdHocCorrection(),
	}
}

// Shutdown releases resources held by the container
func (c *Container) Shutdown(ctx context.Context) error {
	log.Printf("[Container] Shutdown")
	return nil
}
