package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool
	theme      string

	logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "fluidsim"})
)

// main runs the fluidsim CLI. A rejected run command line exits with the
// code of its ArgError, any other failure with 1.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		var argErr *ArgError
		if errors.As(err, &argErr) {
			os.Exit(argErr.Code)
		}
		os.Exit(codeRunFailed)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "fluidsim",
		Short:        "smoothed particle hydrodynamics in a box",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(log.DebugLevel)
				logger.SetReportTimestamp(true)
			}
			viz.SetTheme(theme)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&dataDir, "data-dir", config.DefaultDataDir, "run storage directory")
	flags.StringVar(&configFile, "config", "", "config file path (yaml)")
	flags.StringVar(&preset, "preset", "", "use preset configuration")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.StringVar(&theme, "theme", "ocean", "console theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	root.AddCommand(
		newRunCmd(),
		newResumeCmd(),
		newInspectCmd(),
		newGenCmd(),
		newListCmd(),
		newPlotCmd(),
		newExportCmd(),
		newDeleteCmd(),
		newPresetsCmd(),
		newMetricsCmd(),
		newBenchCmd(),
		newAnalyzeCmd(),
		newSweepCmd(),
		newBatchCmd(),
		newMonteCarloCmd(),
	)
	return root
}

// resolveConfig layers the preset, then the config file, then explicitly
// set flags over the defaults.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if flags.Changed("checkpoint") {
		cfg.Checkpoint = checkpointPath
	}
	if flags.Changed("rebucket") {
		cfg.Engine.Rebucket = rebucket
	}
	if flags.Changed("self-interaction") {
		cfg.Engine.SelfInteraction = selfInteraction
	}
	if flags.Changed("validate") {
		cfg.Engine.ValidateState = validate
	}
	return cfg, nil
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				e := config.GetPreset(name).Engine
				fmt.Printf("  %-10s rebucket=%t self_interaction=%t validate_state=%t\n",
					name, e.Rebucket, e.SelfInteraction, e.ValidateState)
			}
			return nil
		},
	}
}

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "list per-step diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults := map[string]bool{}
			for _, name := range experiment.DefaultMetrics {
				defaults[name] = true
			}
			for _, name := range experiment.NewRegistry().ListMetrics() {
				mark := ""
				if defaults[name] {
					mark = " (default)"
				}
				fmt.Printf("  %s%s\n", name, mark)
			}
			return nil
		},
	}
}
