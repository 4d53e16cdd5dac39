// Package view holds the values exchanged between the camera, the renderer
// and the engine.
//
// A [Spec] is what the camera asks for: a canvas in pixels, a center in cell
// space and a zoom. A [Snapshot] is what the renderer produced for it: a grid
// of averaged block colors aligned to whole cells.
//
// Both are immutable once published. Writers replace them, never edit them.
package view

import (
	"math"

	"github.com/san-kum/sandpile/internal/palette"
)

// Zoom limits in pixels per cell.
const (
	MinPxPerCell = 0.01
	MaxPxPerCell = 200.0
)

func ClampPxPerCell(v float64) float64 {
	if math.IsNaN(v) || v < MinPxPerCell {
		return MinPxPerCell
	}
	if v > MaxPxPerCell {
		return MaxPxPerCell
	}
	return v
}

// Spec describes one camera state.
type Spec struct {
	CanvasW, CanvasH         int
	CenterCellX, CenterCellY float64
	PxPerCell                float64
	MinBlockPx               float64
}

// Snapshot is one rendered viewport. Blocks is indexed bx*BlocksY + by.
type Snapshot struct {
	CanvasW, CanvasH         int
	PxPerCell                float64
	BlockCells               int
	OriginCellX, OriginCellY int
	BlocksX, BlocksY         int
	BlockPx                  float64
	WorldLeft, WorldTop      float64
	Blocks                   []palette.ARGB
	TotalGrains              int64
}

// Placeholder is the snapshot consumers see before the first render.
func Placeholder() Snapshot {
	return Snapshot{
		CanvasW:    1,
		CanvasH:    1,
		PxPerCell:  1,
		BlockCells: 1,
		BlocksX:    1,
		BlocksY:    1,
		BlockPx:    1,
		Blocks:     []palette.ARGB{palette.Black},
	}
}

func (s Snapshot) Block(bx, by int) palette.ARGB {
	return s.Blocks[bx*s.BlocksY+by]
}

// BlockOrigin returns the canvas pixel of the top-left corner of block (bx, by).
func (s Snapshot) BlockOrigin(bx, by int) (float64, float64) {
	x := (float64(s.OriginCellX+bx*s.BlockCells) - s.WorldLeft) * s.PxPerCell
	y := (float64(s.OriginCellY+by*s.BlockCells) - s.WorldTop) * s.PxPerCell
	return x, y
}

// At returns the color of the block covering the center of canvas pixel
// (px, py). Pixels outside the block grid read as opaque black.
func (s Snapshot) At(px, py int) palette.ARGB {
	if s.PxPerCell <= 0 || s.BlockCells <= 0 {
		return palette.Black
	}
	cellX := s.WorldLeft + (float64(px)+0.5)/s.PxPerCell
	cellY := s.WorldTop + (float64(py)+0.5)/s.PxPerCell
	bx := int(math.Floor((cellX - float64(s.OriginCellX)) / float64(s.BlockCells)))
	by := int(math.Floor((cellY - float64(s.OriginCellY)) / float64(s.BlockCells)))
	if bx < 0 || by < 0 || bx >= s.BlocksX || by >= s.BlocksY {
		return palette.Black
	}
	return s.Block(bx, by)
}
