// Package automation runs batches of simulations: scripted scenarios from a
// YAML file and Monte Carlo trials over perturbed initial positions.
package automation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/fld"
	"github.com/san-kum/fluidsim/internal/physics"
)

// Scenario is a sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run of a scenario. Preset selects the starting
// configuration; Params then override single physical parameters by key.
type ScenarioStep struct {
	Name    string             `yaml:"name"`
	Input   string             `yaml:"input"`
	Output  string             `yaml:"output"`
	Steps   int                `yaml:"steps"`
	Preset  string             `yaml:"preset"`
	Params  map[string]float64 `yaml:"params"`
	Metrics []string           `yaml:"metrics"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	return &scenario, nil
}

// Config builds the experiment configuration of a step.
func (s ScenarioStep) Config() (experiment.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return experiment.Config{}, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}

	params := cfg.Params()
	for name, v := range s.Params {
		if err := params.Set(name, v); err != nil {
			return experiment.Config{}, err
		}
	}

	steps := s.Steps
	if steps == 0 {
		steps = cfg.Steps
	}

	return experiment.Config{
		Input:           s.Input,
		Output:          s.Output,
		Steps:           steps,
		Params:          params,
		Rebucket:        cfg.Engine.Rebucket,
		SelfInteraction: cfg.Engine.SelfInteraction,
		ValidateState:   cfg.Engine.ValidateState,
		Metrics:         s.Metrics,
	}, nil
}

// RunScenario executes every step in order and stops at the first failure.
// Outcomes of the steps that finished are returned with the error.
func RunScenario(ctx context.Context, scenario *Scenario, logger *log.Logger) ([]*experiment.Outcome, error) {
	results := make([]*experiment.Outcome, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		if logger != nil {
			logger.Info("scenario step", "n", fmt.Sprintf("%d/%d", i+1, len(scenario.Steps)), "name", step.Name, "input", step.Input)
		}

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp := experiment.New(cfg, logger)
		if err := exp.Setup(); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		outcome, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, outcome)
	}

	return results, nil
}

type MonteCarloConfig struct {
	Base   *fld.File
	Params physics.Params
	Steps  int
	// Perturbation is the largest offset added to each coordinate, in meters.
	Perturbation float64
	NumTrials    int
	Seed         uint64
}

type MonteCarloResult struct {
	TrialID int
	Metrics map[string]float64
	// Stable reports that every particle stayed finite and inside the box
	// for the whole run.
	Stable bool
	Err    error
}

// RunMonteCarlo repeats a run with every initial position jittered
// uniformly. Trials are reproducible for a given seed.
func RunMonteCarlo(ctx context.Context, cfg MonteCarloConfig) ([]MonteCarloResult, error) {
	if cfg.Base == nil {
		return nil, fmt.Errorf("monte carlo: no base input")
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	for trial := 0; trial < cfg.NumTrials; trial++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		f := &fld.File{Header: cfg.Base.Header, Records: make([]fld.Record, len(cfg.Base.Records))}
		for i, r := range cfg.Base.Records {
			for a := 0; a < 3; a++ {
				r.Position[a] += float32((rng.Float64()*2 - 1) * cfg.Perturbation)
			}
			f.Records[i] = r
		}

		exp := experiment.New(experiment.Config{
			Steps:         cfg.Steps,
			Params:        cfg.Params,
			ValidateState: true,
			Metrics:       []string{"containment", "kinetic_energy", "max_speed"},
		}, nil)
		res := MonteCarloResult{TrialID: trial}
		if err := exp.SetupFile(f); err != nil {
			return results, err
		}

		outcome, err := exp.Run(ctx)
		if err != nil {
			return results, err
		}
		res.Metrics = outcome.Result.Metrics
		if len(outcome.Result.Errors) > 0 {
			res.Err = outcome.Result.Errors[0]
		}
		res.Stable = res.Err == nil && res.Metrics["containment"] == 1
		results = append(results, res)
	}

	return results, nil
}

func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
