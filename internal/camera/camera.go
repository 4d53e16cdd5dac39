package camera

import (
	"math"

	"github.com/san-kum/sandpile/internal/view"
)

const (
	DefaultPxPerCell  = 0.25
	DefaultMinBlockPx = 4.0
	// DefaultWheelK maps one unit of wheel delta to exp(-k) zoom.
	DefaultWheelK = 0.001
	ZoomStep      = 1.2
)

// Sink receives every spec the camera emits. The engine implements it.
type Sink interface {
	UpdateViewport(spec view.Spec)
}

type SinkFunc func(spec view.Spec)

func (f SinkFunc) UpdateViewport(spec view.Spec) { f(spec) }

// Camera turns pixel gestures into cell-space viewport specs. It keeps no
// locks; callers drive it from one goroutine (the UI loop).
type Camera struct {
	CenterCellX, CenterCellY float64
	PxPerCell                float64
	CanvasW, CanvasH         int
	MinBlockPx               float64

	wheelK float64
	sink   Sink
}

type Option func(*Camera)

func WithCenter(x, y float64) Option {
	return func(c *Camera) { c.CenterCellX, c.CenterCellY = x, y }
}

func WithPxPerCell(px float64) Option {
	return func(c *Camera) { c.PxPerCell = view.ClampPxPerCell(px) }
}

func WithMinBlockPx(px float64) Option {
	return func(c *Camera) {
		if px > 0 {
			c.MinBlockPx = px
		}
	}
}

func WithWheelK(k float64) Option {
	return func(c *Camera) {
		if k > 0 {
			c.wheelK = k
		}
	}
}

func New(sink Sink, opts ...Option) *Camera {
	c := &Camera{
		PxPerCell:  DefaultPxPerCell,
		CanvasW:    1,
		CanvasH:    1,
		MinBlockPx: DefaultMinBlockPx,
		wheelK:     DefaultWheelK,
		sink:       sink,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Camera) Spec() view.Spec {
	return view.Spec{
		CanvasW:     c.CanvasW,
		CanvasH:     c.CanvasH,
		CenterCellX: c.CenterCellX,
		CenterCellY: c.CenterCellY,
		PxPerCell:   c.PxPerCell,
		MinBlockPx:  c.MinBlockPx,
	}
}

// Push emits the current spec without changing anything.
func (c *Camera) Push() {
	if c.sink != nil {
		c.sink.UpdateViewport(c.Spec())
	}
}

// CellAt maps a canvas pixel to cell space.
func (c *Camera) CellAt(px, py float64) (float64, float64) {
	x := c.CenterCellX + (px-float64(c.CanvasW)/2)/c.PxPerCell
	y := c.CenterCellY + (py-float64(c.CanvasH)/2)/c.PxPerCell
	return x, y
}

func (c *Camera) Resize(w, h int) {
	c.CanvasW = max(w, 1)
	c.CanvasH = max(h, 1)
	c.Push()
}

// PanByPixels moves the content by (dx, dy) pixels; the center moves the
// opposite way.
func (c *Camera) PanByPixels(dx, dy float64) {
	c.CenterCellX -= dx / c.PxPerCell
	c.CenterCellY -= dy / c.PxPerCell
	c.Push()
}

// ZoomAtAnchor multiplies the zoom by factor while keeping the cell under
// pixel (ax, ay) fixed on screen.
func (c *Camera) ZoomAtAnchor(ax, ay, factor float64) {
	beforeX, beforeY := c.CellAt(ax, ay)
	c.PxPerCell = view.ClampPxPerCell(c.PxPerCell * factor)
	afterX, afterY := c.CellAt(ax, ay)
	c.CenterCellX += beforeX - afterX
	c.CenterCellY += beforeY - afterY
	c.Push()
}

// ZoomWheel zooms exponentially in the wheel delta; positive deltas zoom out.
func (c *Camera) ZoomWheel(ax, ay, wheelDelta float64) {
	c.ZoomAtAnchor(ax, ay, math.Exp(-wheelDelta*c.wheelK))
}

func (c *Camera) ZoomIn() {
	c.ZoomAtAnchor(float64(c.CanvasW)/2, float64(c.CanvasH)/2, ZoomStep)
}

func (c *Camera) ZoomOut() {
	c.ZoomAtAnchor(float64(c.CanvasW)/2, float64(c.CanvasH)/2, 1/ZoomStep)
}

// Fit centers a size x size board and picks the zoom that shows all of it.
func (c *Camera) Fit(size int) {
	if size < 1 {
		size = 1
	}
	c.CenterCellX = float64(size) / 2
	c.CenterCellY = float64(size) / 2
	c.PxPerCell = view.ClampPxPerCell(float64(min(c.CanvasW, c.CanvasH)) / float64(size))
	c.Push()
}
