package main

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/san-kum/sandpile/internal/analysis"
	"github.com/san-kum/sandpile/internal/camera"
	"github.com/san-kum/sandpile/internal/config"
	"github.com/san-kum/sandpile/internal/metrics"
	"github.com/san-kum/sandpile/internal/render"
	"github.com/san-kum/sandpile/internal/sandpile"
	"github.com/san-kum/sandpile/internal/storage"
	"github.com/san-kum/sandpile/internal/view"
)

type headlessResult struct {
	ID          string
	Elapsed     time.Duration
	Iterations  int64
	TotalGrains int64
	Metrics     map[string]float64
	Fit         analysis.Fit
	FitErr      error
}

// headless runs the engine for cfg.Engine.RunTime or until ctx is done,
// then stores the run with a fitted snapshot of the whole board.
func headless(ctx context.Context, cfg *config.Config, logger *log.Logger) (headlessResult, error) {
	history := metrics.NewHistory(runHistoryRows)
	hist := analysis.NewHistogram()
	engine, err := newEngine(cfg, logger, history, hist)
	if err != nil {
		return headlessResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Engine.RunTime)
	defer cancel()

	start := time.Now()
	engine.Start(ctx)
	<-ctx.Done()
	engine.Stop()
	elapsed := time.Since(start)

	cam := camera.New(nil, camera.WithMinBlockPx(cfg.View.MinBlockPx))
	cam.Resize(canvasW, canvasH)
	cam.Fit(cfg.Board.Size)
	var snap view.Snapshot
	if err := engine.Inspect(func(b *sandpile.Board) {
		snap = render.Render(cam.Spec(), b, engine.Palette())
	}); err != nil {
		return headlessResult{}, err
	}

	bins := hist.Bins()
	fit, fitErr := analysis.PowerLaw(bins)
	if fitErr != nil {
		logger.Warn("no power-law fit", "err", fitErr)
	}

	res := headlessResult{
		Elapsed:     elapsed,
		Iterations:  history.Total(),
		TotalGrains: engine.TotalGrains(),
		Metrics:     engine.Metrics(),
		Fit:         fit,
		FitErr:      fitErr,
	}
	res.ID, err = openStore(cfg).Save(storage.Run{
		Meta: storage.RunMetadata{
			Size:        cfg.Board.Size,
			Order:       cfg.Board.Order,
			Seed:        cfg.Board.Seed,
			Palette:     cfg.Palette,
			Period:      cfg.Engine.Period,
			Duration:    elapsed,
			Iterations:  res.Iterations,
			TotalGrains: res.TotalGrains,
			Metrics:     res.Metrics,
			Tau:         fit.Tau,
			TauR2:       fit.R2,
		},
		Stats:     history.Rows(),
		Histogram: bins,
		Snapshot:  &snap,
	})
	if err != nil {
		return headlessResult{}, err
	}
	logger.Info("run saved", "id", res.ID, "dir", cfg.DataDir)
	return res, nil
}
