package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/fluidsim/internal/catalog"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/export"
	"github.com/san-kum/fluidsim/internal/fld"
	"github.com/san-kum/fluidsim/internal/grid"
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/storage"
	"github.com/san-kum/fluidsim/internal/viz"
)

var (
	listLimit   int
	plotMetrics []string
	plotWidth   int
	plotHeight  int
	exportOut   string
	exportSVG   string
	benchSteps  []int
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	cmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "maximum number of runs (0 for all)")
	return cmd
}

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the per-step diagnostics of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	cmd.Flags().StringSliceVar(&plotMetrics, "metrics", nil, "metrics to plot (default all)")
	cmd.Flags().IntVar(&plotWidth, "width", 70, "chart width")
	cmd.Flags().IntVar(&plotHeight, "height", 10, "chart height")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and diagnostics as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	cmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to a file instead of stdout")
	cmd.Flags().StringVar(&exportSVG, "svg", "", "also draw the diagnostics to an SVG file")
	cmd.Flags().StringSliceVar(&plotMetrics, "metrics", nil, "metrics to draw (default all)")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [run_id]",
		Short: "remove a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteRun,
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file]",
		Short: "show the header, particle count and grid layout of a file",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectFile,
	}
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench [input]",
		Short: "measure step throughput on an input file",
		Args:  cobra.ExactArgs(1),
		RunE:  benchInput,
	}
	cmd.Flags().IntSliceVar(&benchSteps, "steps", []int{1, 5, 20}, "step counts to time")
	return cmd
}

func openCatalog() (*catalog.Catalog, bool, error) {
	path := filepath.Join(dataDir, catalogFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	cat, err := catalog.Open(path)
	if err != nil {
		return nil, false, err
	}
	return cat, true, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	cat, ok, err := openCatalog()
	if err != nil {
		return err
	}
	if !ok {
		return listStoredRuns()
	}
	defer cat.Close()

	runs, err := cat.Recent(listLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tINPUT\tSTEPS\tPPM\tPARTICLES\tELAPSED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%g\t%d\t%.3fs\n",
			r.RunID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Input,
			r.StepsTaken, r.Steps,
			r.PPM,
			r.Particles,
			r.Elapsed,
		)
	}
	return w.Flush()
}

// listStoredRuns walks the run directories when no catalog exists.
func listStoredRuns() error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tINPUT\tSTEPS\tPPM\tPARTICLES\tELAPSED")
	for i := len(runs) - 1; i >= 0; i-- {
		r := runs[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%g\t%d\t%.3fs\n",
			r.ID,
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Input,
			r.StepsTaken, r.Steps,
			r.PPM,
			r.Particles,
			r.ElapsedSeconds,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("input: %s\n", meta.Input)
	fmt.Printf("steps: %d\n\n", series.Len())
	fmt.Println(viz.PlotSeries(series, plotMetrics, plotWidth, plotHeight))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}

	if exportSVG != "" {
		if err := export.WriteSVG(exportSVG, series, plotMetrics, 800, 160); err != nil {
			return err
		}
		logger.Info("chart written", "run", meta.ID, "path", exportSVG)
	}

	if exportOut != "" {
		if err := storage.ExportJSONFile(exportOut, *meta, series); err != nil {
			return err
		}
		logger.Info("exported", "run", meta.ID, "path", exportOut)
		return nil
	}
	return storage.ExportJSON(os.Stdout, *meta, series)
}

func deleteRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	if err := storage.New(dataDir).Delete(runID); err != nil {
		return err
	}

	cat, ok, err := openCatalog()
	if err != nil {
		return err
	}
	if ok {
		defer cat.Close()
		if err := cat.Delete(runID); err != nil {
			return err
		}
	}
	logger.Info("deleted", "run", runID)
	return nil
}

func inspectFile(cmd *cobra.Command, args []string) error {
	f, err := fld.ReadFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	c := physics.NewConstants(cfg.Params(), float64(f.Header.PPM))
	g := grid.New(c, grid.Options{})

	fmt.Println(viz.ParametersPanel(c, f.Count(), g.Counts(), g.BlockSize()))
	if f.CountMatches() {
		fmt.Println(viz.Default.StatusOK.Render(fmt.Sprintf("header count %d matches", f.Header.NP)))
	} else {
		fmt.Println(viz.Default.StatusWarn.Render(fmt.Sprintf("header declares %d particles, file holds %d", f.Header.NP, f.Count())))
	}
	return nil
}

func benchInput(cmd *cobra.Command, args []string) error {
	f, err := fld.ReadFile(args[0])
	if err != nil {
		return err
	}
	if !f.CountMatches() {
		return fmt.Errorf("%s: header declares %d particles, file holds %d", args[0], f.Header.NP, f.Count())
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s (%d particles)\n\n", args[0], f.Count())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEPS\tTIME\tSTEPS/SEC")

	for _, steps := range benchSteps {
		exp := experiment.New(experiment.Config{
			Steps:           steps,
			Params:          cfg.Params(),
			Rebucket:        cfg.Engine.Rebucket,
			SelfInteraction: cfg.Engine.SelfInteraction,
			Metrics:         []string{},
		}, nil)
		if err := exp.SetupFile(f); err != nil {
			return err
		}

		start := time.Now()
		outcome, err := exp.Run(context.Background())
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		fmt.Fprintf(w, "%d\t%v\t%.1f\n",
			outcome.Result.StepsTaken,
			elapsed.Round(time.Microsecond),
			float64(outcome.Result.StepsTaken)/elapsed.Seconds(),
		)
	}
	return w.Flush()
}
