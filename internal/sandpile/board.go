package sandpile

import (
	"errors"
	"fmt"

	"github.com/san-kum/sandpile/internal/palette"
)

// Threshold is the height at which a cell topples.
const Threshold = 4

var ErrInvalidSize = errors.New("sandpile: board size must be a positive odd number")

// Avalanche describes the cascade caused by one injected grain.
type Avalanche struct {
	Topples int
	Lost    int64
}

// Cell is a readout of one board position.
type Cell struct {
	Height  int32
	R, G, B uint8
}

// Board is a square sandpile with open (dissipative) boundaries. Heights are
// stored by column: index = x*size + y.
type Board struct {
	size        int
	heights     []int32
	totalGrains int64
	order       Order
}

type Option func(*Board)

// WithOrder sets the queue discipline used during stabilization.
func WithOrder(o Order) Option {
	return func(b *Board) {
		if o != nil {
			b.order = o
		}
	}
}

func NewBoard(size int, opts ...Option) (*Board, error) {
	if size < 1 || size%2 == 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidSize, size)
	}
	b := &Board{
		size:    size,
		heights: make([]int32, size*size),
		order:   NewFIFO(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Board) Size() int { return b.size }

func (b *Board) TotalGrains() int64 { return b.totalGrains }

func (b *Board) index(x, y int) int {
	if x < 0 || x >= b.size || y < 0 || y >= b.size {
		panic(fmt.Sprintf("sandpile: cell (%d,%d) outside %dx%d board", x, y, b.size, b.size))
	}
	return x*b.size + y
}

func (b *Board) Height(x, y int) int32 {
	return b.heights[b.index(x, y)]
}

func (b *Board) Color(x, y int, p palette.Palette) palette.ARGB {
	return p.Color(b.Height(x, y))
}

func (b *Board) Cell(x, y int, p palette.Palette) Cell {
	h := b.Height(x, y)
	c := p.Color(h)
	return Cell{Height: h, R: c.R(), G: c.G(), B: c.B()}
}

// InjectAndStabilize drops one grain on the center cell and topples until
// every cell is below Threshold.
func (b *Board) InjectAndStabilize() Avalanche {
	c := b.size / 2
	i := b.index(c, c)
	b.heights[i]++
	b.totalGrains++
	return b.stabilize(i)
}

func (b *Board) stabilize(start int) Avalanche {
	var av Avalanche
	size := b.size
	q := b.order
	q.Reset()
	q.Push(start)

	for q.Len() > 0 {
		i := q.Pop()
		h := b.heights[i]
		if h < Threshold {
			continue
		}

		t := h / Threshold
		b.heights[i] = h - Threshold*t
		av.Topples++

		x, y := i/size, i%size
		if x > 0 {
			b.heights[i-size] += t
			q.Push(i - size)
		} else {
			av.Lost += int64(t)
		}
		if x+1 < size {
			b.heights[i+size] += t
			q.Push(i + size)
		} else {
			av.Lost += int64(t)
		}
		if y > 0 {
			b.heights[i-1] += t
			q.Push(i - 1)
		} else {
			av.Lost += int64(t)
		}
		if y+1 < size {
			b.heights[i+1] += t
			q.Push(i + 1)
		} else {
			av.Lost += int64(t)
		}
	}
	return av
}

// Sum returns the grains currently resident on the board.
func (b *Board) Sum() int64 {
	var s int64
	for _, h := range b.heights {
		s += int64(h)
	}
	return s
}

// Heights returns a copy of the height grid in board index order.
func (b *Board) Heights() []int32 {
	out := make([]int32, len(b.heights))
	copy(out, b.heights)
	return out
}

func (b *Board) Equal(other *Board) bool {
	if b.size != other.size || b.totalGrains != other.totalGrains {
		return false
	}
	for i, h := range b.heights {
		if other.heights[i] != h {
			return false
		}
	}
	return true
}
