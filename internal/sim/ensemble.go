package sim

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/sandpile/internal/sandpile"
)

// Ensemble grows one board per topple order from the same injections. All
// members must end identical; a mismatch means the toppling is broken.
type Ensemble struct {
	Size   int
	Grains int
	Orders []string
	Seed   int64
}

type Member struct {
	Order   string
	Board   *sandpile.Board
	Topples int64
	Elapsed time.Duration
}

func (e Ensemble) Run(ctx context.Context) ([]Member, error) {
	boards := make([]*sandpile.Board, len(e.Orders))
	for i, name := range e.Orders {
		order, err := sandpile.OrderByName(name, e.Seed+int64(i))
		if err != nil {
			return nil, err
		}
		if boards[i], err = sandpile.NewBoard(e.Size, sandpile.WithOrder(order)); err != nil {
			return nil, err
		}
	}

	members := make([]Member, len(e.Orders))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, board := range boards {
		i, board := i, board
		g.Go(func() error {
			start := time.Now()
			var topples int64
			for n := 0; n < e.Grains; n++ {
				if n%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				topples += int64(board.InjectAndStabilize().Topples)
			}
			members[i] = Member{Order: e.Orders[i], Board: board, Topples: topples, Elapsed: time.Since(start)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return members, nil
}

// Agree reports whether every member reached the same grid.
func Agree(members []Member) bool {
	for i := 1; i < len(members); i++ {
		if !members[i].Board.Equal(members[0].Board) {
			return false
		}
	}
	return true
}
