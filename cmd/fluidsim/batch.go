package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/fluidsim/internal/analysis"
	"github.com/san-kum/fluidsim/internal/automation"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/fld"
	"github.com/san-kum/fluidsim/internal/optim"
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/storage"
	"github.com/san-kum/fluidsim/internal/viz"
)

var (
	analyzeMetric string

	sweepSteps  int
	sweepMetric string
	sweepParams []string

	mcSteps  int
	mcTrials int
	mcJitter float64
	mcSeed   uint64
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "summarize a diagnostic and find its dominant frequency",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	cmd.Flags().StringVar(&analyzeMetric, "metric", "kinetic_energy", "diagnostic to analyze")
	return cmd
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep [input]",
		Short: "grid search physical parameters for the lowest diagnostic",
		Long: "sweep runs the input once per parameter combination and reports the\n" +
			"combination with the smallest summary value of --metric. Parameters are\n" +
			"given as name=v1,v2,... with names from the config physics section.",
		Example: "  fluidsim sweep small.fld --param viscosity=0.2,0.4,0.8 --param damping=64,128",
		Args:    cobra.ExactArgs(1),
		RunE:    sweepInput,
	}
	cmd.Flags().IntVar(&sweepSteps, "steps", 5, "steps per run")
	cmd.Flags().StringVar(&sweepMetric, "metric", "max_speed", "diagnostic to minimize")
	cmd.Flags().StringArrayVar(&sweepParams, "param", nil, "parameter range name=v1,v2,...")
	return cmd
}

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run every step of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
}

func newMonteCarloCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "montecarlo [input]",
		Short: "repeat a run with jittered initial positions",
		Args:  cobra.ExactArgs(1),
		RunE:  runMonteCarlo,
	}
	cmd.Flags().IntVar(&mcSteps, "steps", 5, "steps per trial")
	cmd.Flags().IntVar(&mcTrials, "trials", 10, "number of trials")
	cmd.Flags().Float64Var(&mcJitter, "jitter", 1e-4, "largest position offset per axis in meters")
	cmd.Flags().Uint64Var(&mcSeed, "seed", 1, "random seed")
	return cmd
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	col := series.Column(analyzeMetric)
	if col == nil {
		return fmt.Errorf("run %s has no %s series (recorded: %v)", meta.ID, analyzeMetric, series.Names)
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	dt := cfg.Physics.TimeStep

	s := analysis.Summarize(col)
	freq, amp := analysis.PowerSpectrum(col, dt).Dominant()

	rows := []viz.Row{
		{Label: "Samples", Value: strconv.Itoa(s.Samples)},
		{Label: "Mean", Value: viz.FormatValue(s.Mean)},
		{Label: "Std dev", Value: viz.FormatValue(s.StdDev)},
		{Label: "Min", Value: viz.FormatValue(s.Min)},
		{Label: "Max", Value: viz.FormatValue(s.Max)},
		{Label: "Drift", Value: viz.FormatValue(s.Drift)},
	}
	if freq > 0 {
		rows = append(rows,
			viz.Row{Label: "Dominant", Value: fmt.Sprintf("%.4g Hz", freq)},
			viz.Row{Label: "Period", Value: fmt.Sprintf("%.4g s", 1/freq)},
			viz.Row{Label: "Amplitude", Value: viz.FormatValue(amp)},
		)
	}
	fmt.Println(viz.Default.Render(fmt.Sprintf("%s of %s", analyzeMetric, meta.ID), rows))
	return nil
}

// parseRange reads name=v1,v2,... into a parameter name and its values.
func parseRange(raw string) (string, []float64, error) {
	name, list, ok := strings.Cut(raw, "=")
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("invalid parameter range %q, want name=v1,v2", raw)
	}
	parts := strings.Split(list, ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return "", nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}

func sweepInput(cmd *cobra.Command, args []string) error {
	if len(sweepParams) == 0 {
		return fmt.Errorf("at least one --param is required (names: %s)", strings.Join(physics.ParamNames, ", "))
	}
	names := make([]string, 0, len(sweepParams))
	ranges := make([][]float64, 0, len(sweepParams))
	for _, raw := range sweepParams {
		name, values, err := parseRange(raw)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	gs, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	f, err := fld.ReadFile(args[0])
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("sweeping", "input", args[0], "runs", gs.Size(), "metric", sweepMetric)
	best, points, err := gs.Search(ctx, cfg.Params(), func(p physics.Params) (*experiment.Experiment, error) {
		exp := experiment.New(experiment.Config{
			Steps:           sweepSteps,
			Params:          p,
			Rebucket:        cfg.Engine.Rebucket,
			SelfInteraction: cfg.Engine.SelfInteraction,
			Metrics:         []string{sweepMetric},
		}, nil)
		return exp, exp.SetupFile(f)
	}, sweepMetric)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\t"+strings.ToUpper(sweepMetric))
	for _, pt := range points {
		cols := make([]string, len(names))
		for i, name := range names {
			cols[i] = strconv.FormatFloat(pt.Values[name], 'g', -1, 64)
		}
		score := viz.FormatValue(pt.Score)
		if pt.Err != nil {
			score = "error: " + pt.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\n", strings.Join(cols, "\t"), score)
	}
	if flushErr := w.Flush(); flushErr != nil {
		return flushErr
	}
	if err != nil {
		return err
	}

	if best == nil {
		return fmt.Errorf("no combination produced a finite %s", sweepMetric)
	}
	keys := make([]string, 0, len(best.Values))
	for k := range best.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, best.Values[k])
	}
	fmt.Printf("\nbest: %s (%s=%s)\n", strings.Join(parts, " "), sweepMetric, viz.FormatValue(best.Score))
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outcomes, err := automation.RunScenario(ctx, scenario, logger)
	for i, o := range outcomes {
		step := scenario.Steps[i]
		title := step.Name
		if title == "" {
			title = step.Input
		}
		fmt.Println(viz.MetricsPanel(fmt.Sprintf("%s: %d steps", title, o.Result.StepsTaken), o.Result.Metrics))
	}
	return err
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	f, err := fld.ReadFile(args[0])
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunMonteCarlo(ctx, automation.MonteCarloConfig{
		Base:         f,
		Params:       cfg.Params(),
		Steps:        mcSteps,
		Perturbation: mcJitter,
		NumTrials:    mcTrials,
		Seed:         mcSeed,
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tSTABLE\tMAX SPEED\tKINETIC ENERGY")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%t\t%s\t%s\n", r.TrialID, r.Stable,
			viz.FormatValue(r.Metrics["max_speed"]), viz.FormatValue(r.Metrics["kinetic_energy"]))
	}
	if flushErr := w.Flush(); flushErr != nil {
		return flushErr
	}

	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("\nstable: %d  unstable: %d\n", stable, unstable)
	return err
}
