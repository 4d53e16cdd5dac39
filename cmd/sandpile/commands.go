package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/san-kum/sandpile/internal/analysis"
	"github.com/san-kum/sandpile/internal/automation"
	"github.com/san-kum/sandpile/internal/camera"
	"github.com/san-kum/sandpile/internal/config"
	"github.com/san-kum/sandpile/internal/export"
	"github.com/san-kum/sandpile/internal/metrics"
	"github.com/san-kum/sandpile/internal/palette"
	"github.com/san-kum/sandpile/internal/sandpile"
	"github.com/san-kum/sandpile/internal/sim"
	"github.com/san-kum/sandpile/internal/viz"
)

const (
	// terminalMinBlockPx is one half-block pixel.
	terminalMinBlockPx = 1
	viewerHistoryRows  = 600
	runHistoryRows     = 1 << 16
	abelianSize        = 101
)

func runView(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	theme := viz.GetTheme(themeName)

	if pick {
		picker := viz.NewPicker(config.ListPresets(), palette.Names(), presetInfo(), theme)
		final, err := tea.NewProgram(picker).Run()
		if err != nil {
			return err
		}
		choice := final.(viz.Picker)
		if !choice.Chosen {
			return nil
		}
		picked := config.GetPreset(choice.Preset)
		picked.Palette = choice.Palette
		picked.DataDir, picked.Log = cfg.DataDir, cfg.Log
		cfg = picked
	}

	// the viewer owns the terminal, so logs only go to a file
	logger, closer, err := newLogger(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closer.Close()

	history := metrics.NewHistory(viewerHistoryRows)
	engine, err := newEngine(cfg, logger, history)
	if err != nil {
		return err
	}

	center := float64(cfg.Board.Size) / 2
	opts := append(cfg.CameraOptions(),
		camera.WithCenter(center, center),
		camera.WithMinBlockPx(terminalMinBlockPx))
	cam := camera.New(engine, opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	engine.Start(ctx)
	defer engine.Stop()

	model := viz.NewModel(ctx, engine, cam, history, theme)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	logger.Info("viewer closed", "grains", engine.TotalGrains())
	return err
}

func presetInfo() map[string]string {
	info := make(map[string]string, len(config.Presets))
	for name, p := range config.Presets {
		info[name] = fmt.Sprintf("%d x %d, %s", p.Board.Size, p.Board.Size, p.Board.Order)
	}
	return info
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closer, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fmt.Printf("running %d x %d sandpile for %s...\n", cfg.Board.Size, cfg.Board.Size, cfg.Engine.RunTime)
	res, err := headless(ctx, cfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", res.Elapsed.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", res.ID)
	fmt.Printf("iterations: %d\n", res.Iterations)
	fmt.Printf("grains: %d\n", res.TotalGrains)
	if res.FitErr == nil {
		fmt.Printf("tau: %.3f (r2 %.3f)\n", res.Fit.Tau, res.Fit.R2)
	}
	fmt.Println("\nmetrics:")
	return printMetrics(os.Stdout, res.Metrics)
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closer, err := newLogger(base, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	name := sc.Name
	if name == "" {
		name = args[0]
	}
	fmt.Printf("scenario %s: %d runs\n", name, len(sc.Steps))

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tRUN\tSIZE\tORDER\tGRAINS\tTAU")
	step := 0
	results, err := automation.RunScenario(ctx, sc, base, func(ctx context.Context, cfg *config.Config) (string, error) {
		step++
		logger.Info("scenario step", "step", step, "size", cfg.Board.Size, "order", cfg.Board.Order)
		res, err := headless(ctx, cfg, logger)
		if err != nil {
			return "", err
		}
		tau := "-"
		if res.FitErr == nil {
			tau = fmt.Sprintf("%.3f", res.Fit.Tau)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%s\n", step, res.ID, cfg.Board.Size, cfg.Board.Order, res.TotalGrains, tau)
		return res.ID, nil
	})
	if ferr := tw.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		return err
	}
	fmt.Printf("\n%d runs saved to %s\n", len(results), base.DataDir)
	return nil
}

func printMetrics(w io.Writer, values map[string]float64) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%.6g\n", name, values[name])
	}
	return tw.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	runs, err := openStore(cfg).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSIZE\tORDER\tDURATION\tGRAINS\tTAU")

	for _, run := range runs {
		tau := "-"
		if run.Tau != 0 {
			tau = fmt.Sprintf("%.3f", run.Tau)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Size,
			run.Order,
			run.Duration.Round(time.Millisecond),
			run.TotalGrains,
			tau,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := openStore(cfg)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	stats, err := st.LoadStats(runID)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("board: %d x %d\n", meta.Size, meta.Size)
	fmt.Printf("iterations: %d\n\n", len(stats))

	series := []struct {
		caption string
		value   func(s sim.Stats) float64
	}{
		{"total grains", func(s sim.Stats) float64 { return float64(s.TotalGrains) }},
		{"grains per second", func(s sim.Stats) float64 {
			if s.Elapsed <= 0 {
				return 0
			}
			return float64(s.Injected) / s.Elapsed.Seconds()
		}},
		{"largest avalanche per iteration", func(s sim.Stats) float64 { return float64(s.MaxAvalanche) }},
	}

	for _, sr := range series {
		data := make([]float64, len(stats))
		for i, s := range stats {
			data[i] = sr.value(s)
		}
		if len(data) < 2 {
			data = append(data, data[0])
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(sr.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	bins, err := st.LoadHistogram(runID)
	if err != nil || len(bins) < 2 {
		return nil
	}
	logCounts := make([]float64, len(bins))
	for i, b := range bins {
		logCounts[i] = math.Log10(float64(b.Count) + 1)
	}
	fmt.Println(asciigraph.Plot(logCounts,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("log10 avalanches per log2 size bin"),
	))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := openStore(cfg)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	bins, err := st.LoadHistogram(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("board: %d x %d, %s order\n", meta.Size, meta.Size, meta.Order)
	fmt.Printf("grains: %d\n\n", meta.TotalGrains)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "SIZE\tCOUNT\tDENSITY\t")
	for _, b := range bins {
		fmt.Fprintf(w, "%d-%d\t%d\t%.4g\t\n", b.Lo, b.Hi-1, b.Count, float64(b.Count)/float64(b.Hi-b.Lo))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fit, err := analysis.PowerLaw(bins)
	if errors.Is(err, analysis.ErrTooFewPoints) {
		fmt.Println("\nnot enough avalanches for a power-law fit; run longer")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("\npower law P(s) ~ s^-tau\n")
	fmt.Printf("  tau:    %.4f\n", fit.Tau)
	fmt.Printf("  r2:     %.4f\n", fit.R2)
	fmt.Printf("  points: %d\n", fit.Points)
	if len(meta.Metrics) > 0 {
		fmt.Println("\nmetrics:")
		return printMetrics(os.Stdout, meta.Metrics)
	}
	return nil
}

func checkAbelian(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("size") && preset == "" && configFile == "" {
		cfg.Board.Size = abelianSize
	}
	logger, closer, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	ens := sim.Ensemble{
		Size:   cfg.Board.Size,
		Grains: grains,
		Orders: sandpile.OrderNames(),
		Seed:   cfg.Board.Seed,
	}
	logger.Debug("ensemble", "size", ens.Size, "grains", ens.Grains, "orders", ens.Orders)

	fmt.Printf("injecting %d grains into %d x %d boards with %d topple orders...\n\n",
		ens.Grains, ens.Size, ens.Size, len(ens.Orders))
	members, err := ens.Run(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tTOPPLES\tON BOARD\tTIME")
	for _, m := range members {
		fmt.Fprintf(w, "%s\t%d\t%d\t%v\n", m.Order, m.Topples, m.Board.Sum(), m.Elapsed.Round(time.Microsecond))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !sim.Agree(members) {
		return errors.New("topple orders disagree: final grids differ")
	}
	fmt.Println("\nall topple orders reached the same grid")
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := openStore(cfg)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}

	var write func(w io.Writer) error
	ext := format
	switch format {
	case "png", "svg":
		snap, err := st.LoadSnapshot(runID)
		if err != nil {
			return err
		}
		write = func(w io.Writer) error { return export.SnapshotPNG(w, *snap) }
		if format == "svg" {
			write = func(w io.Writer) error { return export.SnapshotSVG(w, *snap) }
		}
	case "grains-svg":
		stats, err := st.LoadStats(runID)
		if err != nil {
			return err
		}
		values := make([]float64, len(stats))
		for i, s := range stats {
			values[i] = float64(s.TotalGrains)
		}
		svg := export.SeriesSVG(values, 800, 300, "#00ff88")
		if svg == "" {
			return fmt.Errorf("run %s: not enough iterations for a curve", runID)
		}
		write = func(w io.Writer) error {
			_, err := io.WriteString(w, svg)
			return err
		}
		ext = "svg"
	default:
		return fmt.Errorf("unknown format: %s (available: png, svg, grains-svg)", format)
	}

	out := output
	if out == "" {
		out = runID + "." + ext
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := multierr.Append(write(f), f.Close()); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", runID, out)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tORDER\tPERIOD\tRUN TIME\tPX/CELL")
	for _, name := range config.ListPresets() {
		p := config.Presets[name]
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%g\n",
			name, p.Board.Size, p.Board.Order, p.Engine.Period, p.Engine.RunTime, p.View.PxPerCell)
	}
	return w.Flush()
}

func listPalettes(cmd *cobra.Command, args []string) error {
	for _, name := range palette.Names() {
		p, err := palette.ByName(name)
		if err != nil {
			return err
		}
		var swatch, codes strings.Builder
		for _, c := range p.Colors {
			swatch.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render("██"))
			codes.WriteString(" " + c.Hex())
		}
		marker := " "
		if name == palette.Default.Name {
			marker = "*"
		}
		fmt.Printf("%s %-8s %s %s\n", marker, name, swatch.String(), codes.String())
	}
	return nil
}
