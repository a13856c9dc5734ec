package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"trgemu/adapters/oracle"
	"trgemu/domain/calib"
	"trgemu/domain/core"
	"trgemu/domain/dataset"
	"trgemu/domain/directive"
	"trgemu/domain/feature"
	"trgemu/domain/run"
	"trgemu/domain/trigger"
	apperrors "trgemu/internal/errors"
	"trgemu/internal/profiling"
	"trgemu/ports"
)

// Emulation lines
const (
	LineL0Hadron    = "l0-hadron"
	LineL0GlobalTis = "l0-global-tis"
	LineHLT1        = "hlt1"
	LineAll         = "all"
	LineTrainSample = "train-sample"
)

// Lines lists every line in CLI order
var Lines = []string{LineL0Hadron, LineL0GlobalTis, LineHLT1, LineAll, LineTrainSample}

// RunRequest describes one emulation run
type RunRequest struct {
	Line   string
	Input  string
	Output string
	Table  string
	Year   int
	BMeson string
	Debug  bool
	AdHoc  *trigger.AdHocCorrection
}

// RunReport summarises a finished run
type RunReport struct {
	RunID       core.RunID
	Line        string
	PlanHash    core.PlanHash
	Directives  int
	Plan        []string
	InputRows   int
	OutputRows  int
	Columns     []string
	Duration    time.Duration
	Fingerprint run.Fingerprint
	Summary     []profiling.Summary
	CreatedAt   core.Timestamp
}

// Manifest converts the report into the run record stored next to outputs
func (r *RunReport) Manifest(req RunRequest) *run.Manifest {
	return &run.Manifest{
		RunID:       r.RunID,
		Line:        r.Line,
		Year:        req.Year,
		BMeson:      req.BMeson,
		Debug:       req.Debug,
		Output:      req.Output,
		Columns:     r.Columns,
		Directives:  r.Plan,
		InputRows:   r.InputRows,
		OutputRows:  r.OutputRows,
		Duration:    r.Duration,
		Fingerprint: r.Fingerprint,
		CreatedAt:   r.CreatedAt,
	}
}

// EmulationService builds the directive plan of a trigger line, runs it
// through the executor and writes the retained columns. Calibration and the
// oracle are loaded once by the caller and only read here.
type EmulationService struct {
	executor *PipelineExecutor
	tabular  ports.TabularPort
	calib    *calib.Set
	oracle   ports.Oracle
	profiler *profiling.ColumnProfiler
}

// NewEmulationService creates a new emulation service. model and profiler
// may be nil.
func NewEmulationService(executor *PipelineExecutor, tabular ports.TabularPort, set *calib.Set, model ports.Oracle, profiler *profiling.ColumnProfiler) *EmulationService {
	return &EmulationService{
		executor: executor,
		tabular:  tabular,
		calib:    set,
		oracle:   model,
		profiler: profiler,
	}
}

type classifierFlag interface {
	IsClassifier() bool
}

func (s *EmulationService) classifier() (ports.Classifier, bool) {
	c, ok := s.oracle.(ports.Classifier)
	if !ok {
		return nil, false
	}
	if f, ok := s.oracle.(classifierFlag); ok && !f.IsClassifier() {
		return nil, false
	}
	return c, true
}

func (s *EmulationService) regressor() (ports.Regressor, bool) {
	r, ok := s.oracle.(ports.Regressor)
	if !ok {
		return nil, false
	}
	if f, ok := s.oracle.(classifierFlag); ok && f.IsClassifier() {
		return nil, false
	}
	return r, true
}

// oracleStage adds model output columns between the main and post plans
type oracleStage func(ds *dataset.Dataset) (*dataset.Dataset, error)

// linePlan is the staged plan of one run
type linePlan struct {
	main     *directive.Plan
	stage    oracleStage
	features []string
	staged   []string
	post     *directive.Plan
	columns  []string
}

// requireInputs checks that every column the plan reads from the input table
// is present, before any row is evaluated.
func (p *linePlan) requireInputs(columns []string) error {
	available := make(map[string]bool, len(columns))
	for _, c := range columns {
		available[c] = true
	}
	check := func(names []string) error {
		for _, name := range names {
			if !available[name] {
				return core.NewMissingColumnError(name)
			}
		}
		return nil
	}

	inputs, err := p.main.Inputs()
	if err != nil {
		return err
	}
	if err := check(inputs); err != nil {
		return err
	}
	for _, name := range p.main.Defines() {
		available[name] = true
	}
	if err := check(p.features); err != nil {
		return err
	}
	for _, name := range p.staged {
		available[name] = true
	}
	if inputs, err = p.post.Inputs(); err != nil {
		return err
	}
	return check(inputs)
}

func (p *linePlan) descriptions() []string {
	desc := p.main.Descriptions()
	for _, name := range p.staged {
		desc = append(desc, "oracle "+name)
	}
	return append(desc, p.post.Descriptions()...)
}

// Run executes one trigger line end to end
func (s *EmulationService) Run(ctx context.Context, req RunRequest) (*RunReport, error) {
	started := core.Now()
	runID := core.NewRunID()

	if req.Input == "" || req.Output == "" {
		return nil, apperrors.InvalidInput("input and output locations are required")
	}
	if _, err := trigger.HadronThreshold(req.Year); err != nil {
		return nil, apperrors.Wrapf(err, "line %s", req.Line)
	}

	plan, err := s.buildPlan(req)
	if err != nil {
		return nil, apperrors.Wrapf(err, "line %s", req.Line)
	}
	descriptions := plan.descriptions()
	hash := core.ComputePlanHash(descriptions)
	log.Printf("[Emulation] Run %s line=%s year=%d plan=%s (%d directives)",
		runID, req.Line, req.Year, hash.Short(), plan.main.Len()+plan.post.Len())

	initial, err := s.tabular.Open(ctx, req.Input, req.Table)
	if err != nil {
		if core.IsConfigurationError(err) {
			return nil, apperrors.Wrapf(err, "open %s", req.Input)
		}
		return nil, apperrors.IOError(req.Input, err)
	}
	if err := plan.requireInputs(initial.Names()); err != nil {
		return nil, apperrors.Wrapf(err, "line %s input %s", req.Line, req.Input)
	}

	snapshots, retained, err := s.executor.Apply(ctx, plan.main, initial)
	if err != nil {
		return nil, apperrors.Wrapf(err, "line %s", req.Line)
	}
	final := Final(snapshots, initial)

	if plan.stage != nil {
		if final, err = plan.stage(final); err != nil {
			return nil, apperrors.Wrapf(err, "line %s oracle", req.Line)
		}
		retained = append(retained, plan.staged...)

		snapshots, postRetained, err := s.executor.Apply(ctx, plan.post, final)
		if err != nil {
			return nil, apperrors.Wrapf(err, "line %s", req.Line)
		}
		final = Final(snapshots, final)
		retained = append(retained, postRetained...)
	}

	columns := plan.columns
	if columns == nil {
		columns = directive.MergeColumns(retained, IdentifierColumns...)
	}
	if err := s.tabular.Write(ctx, final, req.Output, req.Table, columns); err != nil {
		if core.IsConfigurationError(err) {
			return nil, apperrors.Wrapf(err, "write %s", req.Output)
		}
		return nil, apperrors.IOError(req.Output, err)
	}

	report := &RunReport{
		RunID:       runID,
		Line:        req.Line,
		PlanHash:    hash,
		Directives:  plan.main.Len() + plan.post.Len(),
		Plan:        descriptions,
		InputRows:   initial.NumRows(),
		OutputRows:  final.NumRows(),
		Columns:     columns,
		Duration:    started.Since(),
		Fingerprint: run.NewFingerprint(hash, s.executor.Config().Seed, req.Input, req.Table, run.CodeVersion),
		CreatedAt:   started,
	}
	if s.profiler != nil {
		report.Summary = s.profiler.Profile(final, columns)
	}

	log.Printf("[Emulation] Run %s wrote %d of %d rows (%d columns) to %s in %.2fms",
		runID, report.OutputRows, report.InputRows, len(columns), req.Output, float64(report.Duration.Nanoseconds())/1e6)
	return report, nil
}

// Plan returns the directives a request would run, for inspection. Oracle
// stages are not included.
func (s *EmulationService) Plan(req RunRequest) (*directive.Plan, error) {
	plan, err := s.buildPlan(req)
	if err != nil {
		return nil, err
	}
	return directive.NewPlan().Extend(plan.main).Extend(plan.post), nil
}

func (s *EmulationService) hadronModel() (*trigger.HadronModel, error) {
	return trigger.NewHadronModel(s.calib)
}

func (s *EmulationService) buildPlan(req RunRequest) (*linePlan, error) {
	plan := &linePlan{main: directive.NewPlan(), post: directive.NewPlan()}

	switch req.Line {
	case LineL0Hadron:
		if _, ok := s.classifier(); ok {
			return nil, core.NewConfigurationError("l0-hadron takes a regression oracle, got a classifier")
		}
		if err := s.addHadron(plan, req); err != nil {
			return nil, err
		}

	case LineL0GlobalTis:
		if err := s.addTis(plan, req); err != nil {
			return nil, err
		}

	case LineHLT1:
		if err := s.addHLT1(plan, req); err != nil {
			return nil, err
		}

	case LineAll:
		if err := s.addTis(plan, req); err != nil {
			return nil, err
		}
		if err := s.addHLT1(plan, req); err != nil {
			return nil, err
		}
		if c, ok := s.classifier(); ok {
			if err := oracle.CheckFeatures(c, feature.ClassifierInputs); err != nil {
				return nil, err
			}
			plan.stage = classifierStage(c)
			plan.features = c.Features()
			plan.staged = []string{"d0_l0_hadron_tos_emu"}
		} else if err := s.addHadron(plan, req); err != nil {
			return nil, err
		}

	case LineTrainSample:
		m, err := s.hadronModel()
		if err != nil {
			return nil, err
		}
		ds, err := TrainingDirectives(m, req.Year)
		if err != nil {
			return nil, err
		}
		plan.main.Append(ds...)
		if req.Debug {
			plan.main.Append(TrainingDebugDirectives()...)
		}
		plan.columns = TrainingColumns(req.Debug)

	default:
		return nil, core.NewConfigurationError(fmt.Sprintf("unknown line %q", req.Line))
	}

	if err := plan.main.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// addHadron appends the L0Hadron chain. With a regressor the physics chain
// is suffixed "_no_bdt" and the predicted residual corrects it.
func (s *EmulationService) addHadron(plan *linePlan, req RunRequest) error {
	m, err := s.hadronModel()
	if err != nil {
		return err
	}

	if r, ok := s.regressor(); ok {
		if err := oracle.CheckFeatures(r, feature.RegressorInputs); err != nil {
			return err
		}
		ds, err := TrainingDirectives(m, req.Year)
		if err != nil {
			return err
		}
		plan.main.Append(ds...)
		plan.stage = regressorStage(r)
		plan.features = r.Features()
		plan.staged = []string{PredictionColumn}
		plan.post.Append(PostOracleDirectives("d0_et_emu_no_bdt", req.Year, true)...)
	} else {
		ds, err := L0HadronDirectives(m, req.Year, "")
		if err != nil {
			return err
		}
		plan.main.Append(ds...)
	}

	if req.Debug {
		plan.main.Append(L0HadronDebugDirectives()...)
	}
	return nil
}

func (s *EmulationService) addTis(plan *linePlan, req RunRequest) error {
	m, err := trigger.NewTisModel(s.calib, req.Year, req.AdHoc)
	if err != nil {
		return err
	}
	plan.main.Append(TisDirectives(m, req.BMeson)...)
	if req.Debug {
		plan.main.Append(TisDebugDirectives(req.BMeson)...)
	}
	return nil
}

func (s *EmulationService) addHLT1(plan *linePlan, req RunRequest) error {
	ds, err := HLT1Directives(req.BMeson, req.Year)
	if err != nil {
		return err
	}
	plan.main.Append(ds...)
	return nil
}

func regressorStage(r ports.Regressor) oracleStage {
	return func(ds *dataset.Dataset) (*dataset.Dataset, error) {
		X, err := ds.Matrix(r.Features())
		if err != nil {
			return nil, err
		}
		pred, err := r.Predict(X)
		if err != nil {
			return nil, err
		}
		log.Printf("[Emulation] Regressor predicted %d residuals", len(pred))
		return ds.WithColumn(dataset.NewFloatColumn(PredictionColumn, pred))
	}
}

func classifierStage(c ports.Classifier) oracleStage {
	return func(ds *dataset.Dataset) (*dataset.Dataset, error) {
		X, err := ds.Matrix(c.Features())
		if err != nil {
			return nil, err
		}
		proba, err := c.PredictProba(X)
		if err != nil {
			return nil, err
		}
		positive := make([]float64, len(proba))
		for i, p := range proba {
			if len(p) < 2 {
				return nil, fmt.Errorf("%w: row %d has %d class probabilities", core.ErrShapeMismatch, i, len(p))
			}
			positive[i] = p[1]
		}
		log.Printf("[Emulation] Classifier scored %d candidates", len(positive))
		return ds.WithColumn(dataset.NewFloatColumn("d0_l0_hadron_tos_emu", positive))
	}
}
