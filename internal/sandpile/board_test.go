package sandpile

import (
	"errors"
	"fmt"
	"testing"

	"github.com/san-kum/sandpile/internal/palette"
)

func mustBoard(t *testing.T, size int, opts ...Option) *Board {
	t.Helper()
	b, err := NewBoard(size, opts...)
	if err != nil {
		t.Fatalf("NewBoard(%d): %v", size, err)
	}
	return b
}

func assertStable(t *testing.T, b *Board) {
	t.Helper()
	for x := 0; x < b.Size(); x++ {
		for y := 0; y < b.Size(); y++ {
			if h := b.Height(x, y); h < 0 || h > 3 {
				t.Fatalf("cell (%d,%d) height %d outside [0,3]", x, y, h)
			}
		}
	}
}

func TestNewBoardInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1, 2, 400} {
		_, err := NewBoard(size)
		if !errors.Is(err, ErrInvalidSize) {
			t.Errorf("size %d: expected ErrInvalidSize, got %v", size, err)
		}
	}
}

func TestFourGrainsToppleCenterOnce(t *testing.T) {
	b := mustBoard(t, 9)

	for i := 0; i < 3; i++ {
		av := b.InjectAndStabilize()
		if av.Topples != 0 {
			t.Fatalf("injection %d toppled %d times", i+1, av.Topples)
		}
	}
	if b.Height(4, 4) != 3 {
		t.Fatalf("center height before 4th grain = %d", b.Height(4, 4))
	}

	av := b.InjectAndStabilize()
	if av.Topples != 1 {
		t.Errorf("expected exactly one topple, got %d", av.Topples)
	}
	if b.Height(4, 4) != 0 {
		t.Errorf("center height = %d, want 0", b.Height(4, 4))
	}
	for _, n := range [][2]int{{3, 4}, {5, 4}, {4, 3}, {4, 5}} {
		if h := b.Height(n[0], n[1]); h != 1 {
			t.Errorf("neighbor %v height = %d, want 1", n, h)
		}
	}
	if b.TotalGrains() != 4 {
		t.Errorf("TotalGrains = %d, want 4", b.TotalGrains())
	}
	if b.Sum() != 4 {
		t.Errorf("Sum = %d, want 4", b.Sum())
	}
}

func TestGrainConservationAwayFromBoundary(t *testing.T) {
	b := mustBoard(t, 101)
	var lost int64
	for i := 0; i < 500; i++ {
		lost += b.InjectAndStabilize().Lost
	}
	if lost != 0 {
		t.Fatalf("grains reached the boundary: lost %d", lost)
	}
	if b.Sum() != b.TotalGrains() {
		t.Errorf("Sum %d != TotalGrains %d", b.Sum(), b.TotalGrains())
	}
}

func TestStableAfterEveryInjection(t *testing.T) {
	b := mustBoard(t, 15)
	for i := 0; i < 300; i++ {
		b.InjectAndStabilize()
		assertStable(t, b)
	}
}

func TestBoundaryDissipation(t *testing.T) {
	b := mustBoard(t, 5)
	var lost int64
	for i := 0; i < 200; i++ {
		lost += b.InjectAndStabilize().Lost
	}
	if b.Sum() >= b.TotalGrains() {
		t.Errorf("expected dissipation: Sum %d, TotalGrains %d", b.Sum(), b.TotalGrains())
	}
	if b.Sum()+lost != b.TotalGrains() {
		t.Errorf("Sum %d + lost %d != TotalGrains %d", b.Sum(), lost, b.TotalGrains())
	}
	assertStable(t, b)
}

func TestAbelianAcrossOrders(t *testing.T) {
	const size, grains = 31, 2000

	reference := mustBoard(t, size)
	for i := 0; i < grains; i++ {
		reference.InjectAndStabilize()
	}

	orders := map[string]Order{
		"lifo": NewLIFO(),
	}
	for _, seed := range []int64{1, 7, 42, 1234} {
		orders[fmt.Sprintf("random-%d", seed)] = NewRandom(seed)
	}

	for name, o := range orders {
		t.Run(name, func(t *testing.T) {
			b := mustBoard(t, size, WithOrder(o))
			for i := 0; i < grains; i++ {
				b.InjectAndStabilize()
			}
			if !b.Equal(reference) {
				t.Errorf("final grid differs from FIFO reference")
			}
		})
	}
}

func TestColorFollowsHeight(t *testing.T) {
	b := mustBoard(t, 9)
	for i := 0; i < 7; i++ {
		b.InjectAndStabilize()
	}
	for x := 0; x < 9; x++ {
		for y := 0; y < 9; y++ {
			want := palette.Warm.Colors[b.Height(x, y)&3]
			if got := b.Color(x, y, palette.Warm); got != want {
				t.Errorf("Color(%d,%d) = %08x, want %08x", x, y, got, want)
			}
		}
	}

	cell := b.Cell(4, 4, palette.User)
	c := palette.User.Color(cell.Height)
	if cell.R != c.R() || cell.G != c.G() || cell.B != c.B() {
		t.Errorf("Cell = %+v, color %08x", cell, c)
	}
}

func TestOutOfRangePanics(t *testing.T) {
	b := mustBoard(t, 5)
	for _, xy := range [][2]int{{-1, 0}, {0, -1}, {5, 0}, {0, 5}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Height(%d,%d) did not panic", xy[0], xy[1])
				}
			}()
			b.Height(xy[0], xy[1])
		}()
	}
}

func TestHeightsIsCopy(t *testing.T) {
	b := mustBoard(t, 3)
	b.InjectAndStabilize()
	h := b.Heights()
	h[4] = 99
	if b.Height(1, 1) != 1 {
		t.Error("Heights exposed internal storage")
	}
}

func TestOrderByName(t *testing.T) {
	for _, name := range OrderNames() {
		if _, err := OrderByName(name, 1); err != nil {
			t.Errorf("OrderByName(%q): %v", name, err)
		}
	}
	if _, err := OrderByName("spiral", 1); !errors.Is(err, ErrUnknownOrder) {
		t.Errorf("expected ErrUnknownOrder, got %v", err)
	}
}

func TestFIFOCompaction(t *testing.T) {
	q := NewFIFO()
	for i := 0; i < 5000; i++ {
		q.Push(i)
	}
	for i := 0; i < 4000; i++ {
		if got := q.Pop(); got != i {
			t.Fatalf("Pop() = %d, want %d", got, i)
		}
	}
	q.Push(5000)
	for i := 4000; i <= 5000; i++ {
		if got := q.Pop(); got != i {
			t.Fatalf("Pop() = %d, want %d", got, i)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d", q.Len())
	}
}
