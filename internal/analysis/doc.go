// Package analysis provides statistics for sandpile avalanches.
//
// A sandpile driven slowly at one point organizes itself into a critical
// state where avalanche sizes follow a power law P(s) ~ s^-tau. The package
// collects sizes and estimates tau:
//
//   - [Histogram]: log2-binned avalanche sizes, usable as an engine observer
//   - [PowerLaw]: least-squares fit of tau on the log-log binned density
//
// # Example
//
//	hist := analysis.NewHistogram()
//	engine, _ := sim.New(cfg, sim.WithObserver(hist))
//	// ... run, then stop the engine
//	fit, err := analysis.PowerLaw(hist.Bins())
//
// # Thread Safety
//
// A Histogram is written by the engine goroutine. Read it only after the
// engine has stopped.
package analysis
