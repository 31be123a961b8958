package main

import (
	"fmt"
	"os"

	"github.com/akmonengine/quill/config"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	verbose    bool
	configFile string
	duration   float64
	dt         float64
	substeps   int
	workers    int
	noPlot     bool
	outFile    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "quill",
		Short:        "rigid body collision and constraint simulator",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run a preset scene, or the scene of a config file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScene,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "simulated duration in seconds")
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	runCmd.Flags().IntVar(&substeps, "substeps", config.DefaultSubsteps, "substeps per step")
	runCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "worker goroutines")
	runCmd.Flags().BoolVar(&noPlot, "no-plot", false, "skip the height plot")

	scenesCmd := &cobra.Command{
		Use:   "scenes",
		Short: "list the preset scenes",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Printf("%s %s\n", labelStyle.Render(name), subtleStyle.Render(config.Presets[name].Description))
			}
		},
	}

	configCmd := &cobra.Command{
		Use:   "config [scene]",
		Short: "print the default config, with a preset scene if given",
		Args:  cobra.MaximumNArgs(1),
		RunE:  printConfig,
	}
	configCmd.Flags().StringVarP(&outFile, "out", "o", "", "write to a file instead of stdout")

	rootCmd.AddCommand(runCmd, scenesCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "quill"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// loadConfig picks the config file first, then the named preset. Flags set
// on the command line override both.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	switch {
	case configFile != "":
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	case len(args) == 1:
		cfg, err = config.GetPreset(args[0])
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("a scene name or --config is required (scenes: %v)", config.ListPresets())
	}

	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("substeps") {
		cfg.Substeps = substeps
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}

	return cfg, cfg.Validate()
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	logger := newLogger()
	logger.Debug("running scene", "scene", cfg.Scene.Name, "steps", cfg.Steps(), "dt", cfg.Dt)

	r, err := simulate(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Println(r.summary())
	if !noPlot && len(r.Heights) > 1 {
		fmt.Println()
		fmt.Println(r.plot())
	}
	return nil
}

func printConfig(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if len(args) == 1 {
		var err error
		if cfg, err = config.GetPreset(args[0]); err != nil {
			return err
		}
	}

	if outFile != "" {
		if err := config.Save(outFile, cfg); err != nil {
			return err
		}
		fmt.Printf("config saved to %s\n", outFile)
		return nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
