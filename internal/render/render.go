package render

import (
	"image"
	"image/color"
	"math"

	"github.com/san-kum/sandpile/internal/palette"
	"github.com/san-kum/sandpile/internal/sandpile"
	"github.com/san-kum/sandpile/internal/view"
)

// Render downsamples the board into blocks of whole cells for spec. Each
// block is the mean palette color of its in-bounds cells; blocks entirely
// off the board are opaque black.
func Render(spec view.Spec, b *sandpile.Board, p palette.Palette) view.Snapshot {
	pxPerCell := view.ClampPxPerCell(spec.PxPerCell)
	blockCells := max(1, int(math.Ceil(spec.MinBlockPx/pxPerCell)))
	blockPx := float64(blockCells) * pxPerCell

	// one block of overscan so partial edge blocks are never missing
	blocksX := max(1, int(math.Ceil(float64(spec.CanvasW)/blockPx))+1)
	blocksY := max(1, int(math.Ceil(float64(spec.CanvasH)/blockPx))+1)

	worldLeft := spec.CenterCellX - (float64(spec.CanvasW)/2)/pxPerCell
	worldTop := spec.CenterCellY - (float64(spec.CanvasH)/2)/pxPerCell
	originX := int(math.Floor(worldLeft/float64(blockCells))) * blockCells
	originY := int(math.Floor(worldTop/float64(blockCells))) * blockCells

	out := make([]palette.ARGB, blocksX*blocksY)
	chunk := blocksX
	if blocksX*blocksY*blockCells*blockCells >= parallelCells {
		chunk = 4
	}
	parallelFor(blocksX, chunk, func(start, end int) {
		for bx := start; bx < end; bx++ {
			x0 := originX + bx*blockCells
			for by := 0; by < blocksY; by++ {
				y0 := originY + by*blockCells
				out[bx*blocksY+by] = averageBlock(b, x0, y0, blockCells, p)
			}
		}
	})

	return view.Snapshot{
		CanvasW:     spec.CanvasW,
		CanvasH:     spec.CanvasH,
		PxPerCell:   pxPerCell,
		BlockCells:  blockCells,
		OriginCellX: originX,
		OriginCellY: originY,
		BlocksX:     blocksX,
		BlocksY:     blocksY,
		BlockPx:     blockPx,
		WorldLeft:   worldLeft,
		WorldTop:    worldTop,
		Blocks:      out,
		TotalGrains: b.TotalGrains(),
	}
}

func averageBlock(b *sandpile.Board, x0, y0, n int, p palette.Palette) palette.ARGB {
	size := b.Size()
	xs, xe := max(x0, 0), min(x0+n, size)
	ys, ye := max(y0, 0), min(y0+n, size)
	if xs >= xe || ys >= ye {
		return palette.Black
	}

	var sr, sg, sb, count int64
	for x := xs; x < xe; x++ {
		for y := ys; y < ye; y++ {
			c := p.Color(b.Height(x, y))
			sr += int64(c.R())
			sg += int64(c.G())
			sb += int64(c.B())
			count++
		}
	}
	return palette.Opaque(channel(sr/count), channel(sg/count), channel(sb/count))
}

func channel(v int64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Image rasterizes a snapshot at canvas resolution. Pixels not covered by a
// block stay opaque black.
func Image(s view.Snapshot) *image.RGBA {
	w, h := max(s.CanvasW, 1), max(s.CanvasH, 1)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	black := palette.Black.RGBA()
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = black.R
		img.Pix[i+1] = black.G
		img.Pix[i+2] = black.B
		img.Pix[i+3] = black.A
	}

	for bx := 0; bx < s.BlocksX; bx++ {
		for by := 0; by < s.BlocksY; by++ {
			x, y := s.BlockOrigin(bx, by)
			fillRect(img, x, y, s.BlockPx, s.Block(bx, by).RGBA())
		}
	}
	return img
}

// fillRect paints every pixel whose center lies inside the block.
func fillRect(img *image.RGBA, x, y, size float64, c color.RGBA) {
	r := img.Bounds()
	x0 := max(int(math.Ceil(x-0.5)), r.Min.X)
	y0 := max(int(math.Ceil(y-0.5)), r.Min.Y)
	x1 := min(int(math.Ceil(x+size-0.5)), r.Max.X)
	y1 := min(int(math.Ceil(y+size-0.5)), r.Max.Y)
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			img.SetRGBA(px, py, c)
		}
	}
}
