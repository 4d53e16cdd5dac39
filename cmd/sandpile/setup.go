package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/src-d/go-billy.v4/osfs"

	"github.com/san-kum/sandpile/internal/config"
	"github.com/san-kum/sandpile/internal/metrics"
	"github.com/san-kum/sandpile/internal/sim"
	"github.com/san-kum/sandpile/internal/storage"
)

// loadConfig builds the effective config: defaults or a preset, then the
// config file, then any flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("size") {
		cfg.Board.Size = size
	}
	if flags.Changed("order") {
		cfg.Board.Order = order
	}
	if flags.Changed("seed") {
		cfg.Board.Seed = seed
	}
	if flags.Changed("palette") {
		cfg.Palette = paletteName
	}
	if flags.Changed("period") {
		cfg.Engine.Period = period
	}
	if flags.Changed("data") || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = logFile
	}
	if f := flags.Lookup("time"); f != nil && f.Changed {
		cfg.Engine.RunTime = runTime
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes to the configured log file, or to fallback when none is
// set. The returned closer releases the file.
func newLogger(cfg *config.Config, fallback io.Writer) (*log.Logger, io.Closer, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = fallback
	var closer io.Closer = nopCloser{}
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, err
		}
		w, closer = f, f
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "sandpile",
	})
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newEngine wires the default metrics and any extra observers into an
// engine built from cfg.
func newEngine(cfg *config.Config, logger *log.Logger, observers ...sim.Observer) (*sim.Engine, error) {
	scfg, err := cfg.Sim()
	if err != nil {
		return nil, err
	}
	opts := []sim.Option{sim.WithLogger(logger)}
	for _, m := range metrics.Defaults() {
		opts = append(opts, sim.WithMetric(m))
	}
	for _, o := range observers {
		opts = append(opts, sim.WithObserver(o))
	}
	return sim.New(scfg, opts...)
}

func openStore(cfg *config.Config) *storage.Store {
	return storage.New(osfs.New(cfg.DataDir))
}

// resolveRun picks the run named in args or the latest one.
func resolveRun(st *storage.Store, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return st.Latest()
}
