package view

import (
	"math"
	"testing"

	"github.com/san-kum/sandpile/internal/palette"
)

func TestClampPxPerCell(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1, 1},
		{0, MinPxPerCell},
		{-5, MinPxPerCell},
		{0.001, MinPxPerCell},
		{500, MaxPxPerCell},
		{math.NaN(), MinPxPerCell},
	}
	for _, tt := range tests {
		if got := ClampPxPerCell(tt.in); got != tt.want {
			t.Errorf("ClampPxPerCell(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPlaceholder(t *testing.T) {
	p := Placeholder()
	if p.BlocksX != 1 || p.BlocksY != 1 || len(p.Blocks) != 1 {
		t.Fatalf("placeholder is not 1x1: %+v", p)
	}
	if p.Blocks[0] != palette.Black {
		t.Errorf("placeholder color = %08x", p.Blocks[0])
	}
	if p.TotalGrains != 0 {
		t.Errorf("placeholder grains = %d", p.TotalGrains)
	}
}

func TestSnapshotAt(t *testing.T) {
	s := Snapshot{
		CanvasW: 4, CanvasH: 4,
		PxPerCell:   1,
		BlockCells:  2,
		OriginCellX: 0, OriginCellY: 0,
		BlocksX: 3, BlocksY: 3,
		BlockPx:   2,
		WorldLeft: 1, WorldTop: 0,
		Blocks: make([]palette.ARGB, 9),
	}
	for i := range s.Blocks {
		s.Blocks[i] = palette.ARGB(0xFF000000 | uint32(i+1))
	}

	// pixel 0 covers cell 1.5 -> block 0; pixel 1 covers cell 2.5 -> block 1
	if got := s.At(0, 0); got != s.Block(0, 0) {
		t.Errorf("At(0,0) = %08x", got)
	}
	if got := s.At(1, 0); got != s.Block(1, 0) {
		t.Errorf("At(1,0) = %08x", got)
	}
	if got := s.At(0, 3); got != s.Block(0, 1) {
		t.Errorf("At(0,3) = %08x", got)
	}
	if got := s.At(100, 0); got != palette.Black {
		t.Errorf("At outside grid = %08x", got)
	}

	x, y := s.BlockOrigin(1, 1)
	if x != 1 || y != 2 {
		t.Errorf("BlockOrigin(1,1) = (%v,%v), want (1,2)", x, y)
	}
}
