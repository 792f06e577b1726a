package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/fluidsim/internal/catalog"
	"github.com/san-kum/fluidsim/internal/checkpoint"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/storage"
	"github.com/san-kum/fluidsim/internal/tui"
	"github.com/san-kum/fluidsim/internal/viz"
)

const catalogFile = "catalog.db"

var (
	checkpointPath  string
	rebucket        bool
	selfInteraction bool
	validate        bool
	metricNames     []string
	progress        bool
	lineRate        int
	quiet           bool
	noStore         bool

	resumeSteps  int
	resumeOutput string
)

func addEngineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&checkpointPath, "checkpoint", "", "write a resumable checkpoint after the run")
	f.StringSliceVar(&metricNames, "metrics", nil, "per-step diagnostics (see 'fluidsim metrics')")
	f.BoolVar(&progress, "progress", false, "interactive progress display")
	f.IntVar(&lineRate, "lines", 0, "print a status line at most this many times per second")
	f.BoolVarP(&quiet, "quiet", "q", false, "skip the parameter and result panels")
	f.BoolVar(&noStore, "no-store", false, "do not record the run")
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [steps] [input] [output]",
		Short: "advance an input file by a number of time steps",
		Args:  cobra.ArbitraryArgs,
		RunE:  runSimulation,
	}
	addEngineFlags(cmd)
	cmd.Flags().BoolVar(&rebucket, "rebucket", false, "reassign particles to blocks every step")
	cmd.Flags().BoolVar(&selfInteraction, "self-interaction", false, "include pairs within the same block")
	cmd.Flags().BoolVar(&validate, "validate", false, "stop on the first non-finite particle")
	return cmd
}

func newResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume [checkpoint]",
		Short: "continue a run from a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE:  resumeSimulation,
	}
	addEngineFlags(cmd)
	cmd.Flags().IntVar(&resumeSteps, "steps", config.DefaultSteps, "number of additional steps")
	cmd.Flags().StringVarP(&resumeOutput, "output", "o", "", "output file")
	return cmd
}

func runSimulation(cmd *cobra.Command, args []string) error {
	ra, err := parseRunArgs(args)
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Steps, cfg.Input, cfg.Output = ra.steps, ra.input, ra.output
	if err := cfg.Validate(); err != nil {
		return err
	}

	exp := experiment.New(experiment.Config{
		Input:           cfg.Input,
		Output:          cfg.Output,
		Steps:           cfg.Steps,
		Params:          cfg.Params(),
		Rebucket:        cfg.Engine.Rebucket,
		SelfInteraction: cfg.Engine.SelfInteraction,
		ValidateState:   cfg.Engine.ValidateState,
		Metrics:         metricNames,
		Checkpoint:      cfg.Checkpoint,
	}, logger)
	if err := exp.Setup(); err != nil {
		return err
	}
	return execute(exp, cfg, preset)
}

func resumeSimulation(cmd *cobra.Command, args []string) error {
	if resumeSteps < 0 {
		return fmt.Errorf("steps must not be negative, got %d", resumeSteps)
	}
	snap, err := checkpoint.Load(args[0])
	if err != nil {
		return fmt.Errorf("reading checkpoint: %w", err)
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Steps, cfg.Input, cfg.Output = resumeSteps, snap.Input, resumeOutput

	exp := experiment.New(experiment.Config{
		Output:        cfg.Output,
		Steps:         cfg.Steps,
		ValidateState: cfg.Engine.ValidateState,
		Metrics:       metricNames,
		Checkpoint:    cfg.Checkpoint,
	}, logger)
	if err := exp.SetupSnapshot(snap); err != nil {
		return err
	}
	logger.Info("resuming", "checkpoint", args[0], "step", snap.Step)
	return execute(exp, cfg, "resume")
}

// execute runs a prepared experiment with the requested observers and
// records the outcome. Interrupts stop the run between steps.
func execute(exp *experiment.Experiment, cfg *config.Config, label string) error {
	engine := exp.GetEngine()
	g := engine.Grid()

	if !quiet {
		fmt.Println(viz.ParametersPanel(exp.Constants(), g.Len(), g.Counts(), g.BlockSize()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var display *tui.Progress
	switch {
	case progress:
		display = tui.NewProgress(engine.Metrics(), engine.StepCount(), cfg.Steps, cancel)
		engine.AddObserver(display)
		display.Start()
	case lineRate > 0:
		engine.AddObserver(tui.NewLineRenderer(os.Stdout, engine.Metrics(), lineRate))
	}

	outcome, runErr := exp.Run(ctx)
	if display != nil {
		var stepErr error
		if outcome != nil && len(outcome.Result.Errors) > 0 {
			stepErr = outcome.Result.Errors[0]
		}
		if runErr != nil {
			stepErr = runErr
		}
		if err := display.Finish(stepErr); err != nil {
			logger.Warn("progress display failed", "err", err)
		}
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("run interrupted before writing output: %w", runErr)
		}
		return runErr
	}

	res := outcome.Result
	if !quiet {
		fmt.Println(viz.MetricsPanel(fmt.Sprintf("%d steps in %s", res.StepsTaken, outcome.Elapsed.Round(time.Millisecond)), res.Metrics))
	}

	if !noStore {
		if err := record(cfg, label, exp, outcome); err != nil {
			logger.Warn("run not recorded", "err", err)
		}
	}

	// a count mismatch is reported but still produces output
	for _, err := range res.Errors {
		if !errors.Is(err, sim.ErrCountMismatch) {
			return err
		}
	}
	return nil
}

func record(cfg *config.Config, label string, exp *experiment.Experiment, outcome *experiment.Outcome) error {
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}

	res := outcome.Result
	meta := storage.RunMetadata{
		Input:           cfg.Input,
		Output:          cfg.Output,
		Preset:          label,
		Steps:           cfg.Steps,
		StepsTaken:      res.StepsTaken,
		PPM:             float64(outcome.Header.PPM),
		Particles:       len(outcome.Particles),
		Rebucket:        exp.Rebucket(),
		SelfInteraction: exp.SelfInteraction(),
		ElapsedSeconds:  outcome.Elapsed.Seconds(),
		Metrics:         res.Metrics,
	}
	for _, err := range res.Errors {
		meta.Errors = append(meta.Errors, err.Error())
	}

	runID, err := st.Save(meta, &res.Series)
	if err != nil {
		return err
	}

	cat, err := catalog.Open(filepath.Join(cfg.DataDir, catalogFile))
	if err != nil {
		return err
	}
	defer cat.Close()

	if _, err := cat.Record(catalog.RunRow{
		RunID:      runID,
		Input:      meta.Input,
		Output:     meta.Output,
		Steps:      meta.Steps,
		StepsTaken: meta.StepsTaken,
		PPM:        meta.PPM,
		Particles:  meta.Particles,
		Elapsed:    meta.ElapsedSeconds,
		Metrics:    meta.Metrics,
	}); err != nil {
		return err
	}

	logger.Info("run recorded", "id", runID)
	return nil
}
