package experiment

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/san-kum/fluidsim/internal/checkpoint"
	"github.com/san-kum/fluidsim/internal/fld"
	"github.com/san-kum/fluidsim/internal/grid"
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
)

type Config struct {
	Input  string
	Output string
	Steps  int
	Params physics.Params

	Rebucket        bool
	SelfInteraction bool
	ValidateState   bool

	// Metrics names registry entries; nil selects DefaultMetrics.
	Metrics []string

	// Checkpoint, when set, receives the full state after the run.
	Checkpoint string
}

// Outcome is a finished run.
type Outcome struct {
	Result    *sim.Result
	Header    fld.Header
	Particles []physics.Particle
	Elapsed   time.Duration
}

type Experiment struct {
	cfg      Config
	logger   *log.Logger
	registry *Registry

	header  fld.Header
	matches bool
	consts  *physics.Constants
	grid    *grid.Grid
	engine  *sim.Engine
}

// New creates an experiment. A nil logger discards all output.
func New(cfg Config, logger *log.Logger) *Experiment {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Experiment{
		cfg:      cfg,
		logger:   logger,
		registry: NewRegistry(),
	}
}

// Setup reads the input file and builds the grid and engine.
func (e *Experiment) Setup() error {
	f, err := fld.ReadFile(e.cfg.Input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", e.cfg.Input, err)
	}
	return e.SetupFile(f)
}

// SetupFile is Setup for an already parsed input.
func (e *Experiment) SetupFile(f *fld.File) error {
	e.header = f.Header
	e.matches = f.CountMatches()

	e.consts = physics.NewConstants(e.cfg.Params, float64(f.Header.PPM))
	ps := f.Particles(e.consts.Gravity)

	e.grid = grid.New(e.consts, grid.Options{SelfInteraction: e.cfg.SelfInteraction})
	e.grid.Load(ps)

	if !e.matches {
		e.logger.Warn("particle count mismatch, no steps will run",
			"header", f.Header.NP, "read", f.Count())
	}
	return e.build(0)
}

// SetupSnapshot restores a checkpoint. Physics parameters and engine options
// come from the snapshot, not from the config.
func (e *Experiment) SetupSnapshot(s *checkpoint.Snapshot) error {
	e.header = fld.Header{PPM: s.PPM, NP: s.NP}
	e.matches = true
	e.cfg.Params = s.Params
	e.cfg.Rebucket = s.Rebucket
	e.cfg.SelfInteraction = s.SelfInteraction

	e.consts = physics.NewConstants(s.Params, float64(s.PPM))
	e.grid = grid.New(e.consts, grid.Options{SelfInteraction: s.SelfInteraction})
	if err := e.grid.LoadMembership(s.Restore(), s.Blocks); err != nil {
		return err
	}
	return e.build(s.Step)
}

func (e *Experiment) build(start int) error {
	e.engine = sim.New(e.grid, sim.Config{
		Rebucket:      e.cfg.Rebucket,
		ValidateState: e.cfg.ValidateState,
		StartStep:     start,
	})

	names := e.cfg.Metrics
	if names == nil {
		names = DefaultMetrics
	}
	for _, name := range names {
		m, err := e.registry.GetMetric(name, e.consts)
		if err != nil {
			return err
		}
		e.engine.AddMetric(m)
	}

	counts, size := e.grid.Counts(), e.grid.BlockSize()
	e.logger.Debug("simulation parameters",
		"ppm", e.consts.PPM,
		"particles", e.grid.Len(),
		"h", e.consts.H,
		"mass", e.consts.Mass,
		"grid", fmt.Sprintf("%dx%dx%d", counts[0], counts[1], counts[2]),
		"block", fmt.Sprintf("%.6gx%.6gx%.6g", size[0], size[1], size[2]),
		"start", start,
	)
	return nil
}

func (e *Experiment) Constants() *physics.Constants { return e.consts }
func (e *Experiment) Header() fld.Header            { return e.header }
func (e *Experiment) CountMatches() bool            { return e.matches }
func (e *Experiment) Rebucket() bool                { return e.cfg.Rebucket }
func (e *Experiment) SelfInteraction() bool         { return e.cfg.SelfInteraction }

// GetEngine returns the underlying engine for adding observers.
func (e *Experiment) GetEngine() *sim.Engine {
	return e.engine
}

// Run advances the simulation, then writes the output file and checkpoint if
// configured. On a count mismatch no steps run, ErrCountMismatch is recorded
// in the result and the output is still written.
func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	if e.engine == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	start := time.Now()
	steps := e.cfg.Steps
	if !e.matches {
		steps = 0
	}

	res, err := e.engine.Run(ctx, steps)
	if err != nil {
		return nil, err
	}
	if !e.matches {
		res.Errors = append(res.Errors, sim.ErrCountMismatch)
	}
	for _, stepErr := range res.Errors {
		e.logger.Error("run stopped", "err", stepErr)
	}

	out := &Outcome{
		Result:    res,
		Header:    e.header,
		Particles: e.engine.Sorted(),
		Elapsed:   time.Since(start),
	}
	e.logger.Info("simulation finished",
		"steps", res.StepsTaken,
		"elapsed", out.Elapsed.Round(time.Microsecond),
	)

	if e.cfg.Output != "" {
		if err := fld.WriteFile(e.cfg.Output, e.header, out.Particles); err != nil {
			return out, fmt.Errorf("writing %s: %w", e.cfg.Output, err)
		}
		e.logger.Debug("output written", "path", e.cfg.Output)
	}

	if e.cfg.Checkpoint != "" {
		if err := checkpoint.Save(e.cfg.Checkpoint, e.Snapshot()); err != nil {
			return out, fmt.Errorf("writing checkpoint %s: %w", e.cfg.Checkpoint, err)
		}
		e.logger.Debug("checkpoint written", "path", e.cfg.Checkpoint, "step", e.engine.StepCount())
	}

	return out, nil
}

// Snapshot captures the current state for a later resume.
func (e *Experiment) Snapshot() *checkpoint.Snapshot {
	s := checkpoint.Capture(e.header.PPM, e.header.NP, e.engine.StepCount(), e.cfg.Params, e.grid.Arena())
	s.Rebucket = e.cfg.Rebucket
	s.SelfInteraction = e.cfg.SelfInteraction
	s.Input = e.cfg.Input
	s.Blocks = e.grid.Membership()
	return s
}
