// Package viz is the terminal viewer for a running sandpile engine.
//
// The viewer is a Bubble Tea program:
//
//   - [Model]: half-block canvas fed by engine snapshots, plus a sidebar
//     with grain count, throughput graph and avalanche metrics
//   - [Picker]: preset and palette menu shown before the viewer starts
//   - [HalfBlock]: draws a snapshot with one character per two pixels
//
// Each character cell shows two canvas pixels stacked vertically, so a
// terminal of C columns by R rows is a canvas of C by 2R pixels.
//
// # Key Bindings
//
//	Arrows/hjkl - Pan
//	+/-         - Zoom at canvas center
//	Wheel       - Zoom at pointer
//	Drag        - Pan with the left button
//	F           - Fit the whole board
//	Space       - Pause/Resume the engine
//	T           - Cycle color themes
//	?           - Show help overlay
//	Q           - Quit
package viz
