package sim

import (
	"context"

	"github.com/san-kum/fluidsim/internal/grid"
	"github.com/san-kum/fluidsim/internal/physics"
)

type pass func(b *grid.Block, g *grid.Grid, h int)

const maxSeriesHint = 1 << 16

// Engine advances the particles of a grid step by step. Every step runs the
// same sequence of passes over all blocks:
//
//	reset -> density -> acceleration -> box collisions -> motion -> boundary
//
// Each pass completes for every particle before the next begins.
type Engine struct {
	grid      *grid.Grid
	cfg       Config
	metrics   []Metric
	observers []Observer
	step      int
}

func New(g *grid.Grid, cfg Config) *Engine {
	return &Engine{
		grid:      g,
		cfg:       cfg,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		step:      cfg.StartStep,
	}
}

func (e *Engine) AddMetric(m Metric)     { e.metrics = append(e.metrics, m) }
func (e *Engine) AddObserver(o Observer) { e.observers = append(e.observers, o) }

func (e *Engine) Grid() *grid.Grid { return e.grid }

// Metrics returns the metrics in the order they were added.
func (e *Engine) Metrics() []Metric { return e.metrics }

// StepCount returns the number of steps taken so far, including StartStep.
func (e *Engine) StepCount() int { return e.step }

// Step runs one full time step.
func (e *Engine) Step() error {
	c := e.grid.Constants()
	if e.cfg.Rebucket {
		e.grid.Rebucket()
	}

	arena := e.grid.Arena()
	for i := range arena {
		arena[i].Reset(c.Gravity)
	}

	e.run((*grid.Block).IncDensity)
	e.run((*grid.Block).AccelerationTransfer)
	e.run((*grid.Block).BoxCollisions)
	e.run((*grid.Block).ParticleMotion)
	e.run((*grid.Block).BoundaryCollisions)
	e.step++

	if e.cfg.ValidateState {
		for i := range arena {
			if !arena[i].IsValid() {
				return &StepError{Step: e.step, Particle: arena[i].ID, Wrapped: ErrInvalidState}
			}
		}
	}
	return nil
}

func (e *Engine) run(fn pass) {
	e.grid.ForEach(func(b *grid.Block, h int) {
		fn(b, e.grid, h)
	})
}

// Run takes up to steps steps. The context is checked between steps; a step
// in progress is always completed.
func (e *Engine) Run(ctx context.Context, steps int) (*Result, error) {
	if steps < 0 {
		return nil, ErrInvalidSteps
	}

	// steps comes from the command line; it only hints the series capacity.
	hint := min(steps, maxSeriesHint)
	if len(e.metrics) == 0 {
		hint = 0
	}
	result := &Result{
		Metrics: make(map[string]float64),
		Series: Series{
			Names: make([]string, 0, len(e.metrics)),
			Steps: make([]int, 0, hint),
			Rows:  make([][]float64, 0, hint),
		},
		Errors: make([]error, 0),
	}

	for _, m := range e.metrics {
		m.Reset()
		result.Series.Names = append(result.Series.Names, m.Name())
	}

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			e.summarize(result)
			return result, ctx.Err()
		default:
		}

		err := e.Step()
		result.StepsTaken++
		if err != nil {
			result.Errors = append(result.Errors, err)
			break
		}
		e.observe(result)
	}

	e.summarize(result)
	return result, nil
}

func (e *Engine) observe(result *Result) {
	ps := e.grid.Arena()

	row := make([]float64, len(e.metrics))
	for i, m := range e.metrics {
		m.Observe(e.step, ps)
		row[i] = m.Last()
	}
	for _, o := range e.observers {
		o.OnStep(e.step, ps)
	}

	if len(row) > 0 {
		result.Series.Steps = append(result.Series.Steps, e.step)
		result.Series.Rows = append(result.Series.Rows, row)
	}
}

func (e *Engine) summarize(result *Result) {
	for _, m := range e.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

// Sorted returns a copy of every particle ordered by ID.
func (e *Engine) Sorted() []physics.Particle {
	ps := e.grid.Particles()
	MergeSort(ps)
	return ps
}
