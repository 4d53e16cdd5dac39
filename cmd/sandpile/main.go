package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/san-kum/sandpile/internal/config"
)

var (
	configFile  string
	preset      string
	dataDir     string
	logLevel    string
	logFile     string
	size        int
	order       string
	seed        int64
	paletteName string
	period      time.Duration
	runTime     time.Duration
	// abelian check
	grains int
	// terminal viewer
	pick      bool
	themeName string
	// export and stored snapshots
	format  string
	output  string
	canvasW int
	canvasH int
)

// main registers commands and flags and runs the terminal viewer when no
// subcommand is given. It exits with status 1 if the command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:          "sandpile",
		Short:        "abelian sandpile simulation lab",
		RunE:         runView,
		SilenceUsage: true,
	}

	registerConfigFlags(rootCmd.PersistentFlags())

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "watch the sandpile grow in the terminal",
		RunE:  runView,
	}
	for _, c := range []*cobra.Command{rootCmd, viewCmd} {
		c.Flags().BoolVar(&pick, "pick", false, "choose preset and palette from a menu first")
		c.Flags().StringVar(&themeName, "theme", "cyberpunk", "viewer theme")
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run headless and save the result",
		Args:  cobra.NoArgs,
		RunE:  runHeadless,
	}
	runCmd.Flags().DurationVar(&runTime, "time", 0, "how long to run (default from config)")

	scenarioCmd := &cobra.Command{
		Use:   "scenario <file.yaml>",
		Short: "run a batch of headless runs described in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	for _, c := range []*cobra.Command{runCmd, scenarioCmd} {
		c.Flags().IntVar(&canvasW, "width", 512, "stored snapshot width in pixels")
		c.Flags().IntVar(&canvasH, "height", 512, "stored snapshot height in pixels")
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot grains and avalanche sizes of a run (default latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "fit the avalanche size power law of a run (default latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  analyzeRun,
	}

	abelianCmd := &cobra.Command{
		Use:   "abelian",
		Short: "check that every topple order reaches the same grid",
		Args:  cobra.NoArgs,
		RunE:  checkAbelian,
	}
	abelianCmd.Flags().IntVar(&grains, "grains", 10000, "grains to inject")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export the stored snapshot or grain curve of a run (default latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&format, "format", "png", "png, svg or grains-svg")
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <run_id>.<ext>)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	palettesCmd := &cobra.Command{
		Use:   "palettes",
		Short: "list available palettes",
		Args:  cobra.NoArgs,
		RunE:  listPalettes,
	}

	rootCmd.AddCommand(viewCmd, runCmd, scenarioCmd, listCmd, plotCmd, analyzeCmd, abelianCmd, exportCmd, presetsCmd, palettesCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerConfigFlags declares the flags that override config values.
func registerConfigFlags(fs *pflag.FlagSet) {
	fs.StringVar(&configFile, "config", "", "config file path (yaml)")
	fs.StringVar(&preset, "preset", "", "use preset configuration")
	fs.StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	fs.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&logFile, "log-file", "", "append logs to this file")
	fs.IntVar(&size, "size", 0, "board edge in cells (odd)")
	fs.StringVar(&order, "order", "", "topple order (fifo, lifo, random)")
	fs.Int64Var(&seed, "seed", 0, "random topple order seed")
	fs.StringVar(&paletteName, "palette", "", "color palette")
	fs.DurationVar(&period, "period", 0, "injection budget per frame")
}
