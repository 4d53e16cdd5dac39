package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/sandpile/internal/sandpile"
)

func TestEnsembleOrdersAgree(t *testing.T) {
	e := Ensemble{
		Size:   41,
		Grains: 3000,
		Orders: []string{"fifo", "lifo", "random", "random"},
		Seed:   7,
	}

	members, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(members) != 4 {
		t.Fatalf("expected 4 members, got %d", len(members))
	}
	for _, m := range members {
		if m.Board.TotalGrains() != 3000 {
			t.Errorf("%s: TotalGrains = %d", m.Order, m.Board.TotalGrains())
		}
	}
	if !Agree(members) {
		t.Error("topple orders disagree")
	}
}

func TestEnsembleRejectsUnknownOrder(t *testing.T) {
	e := Ensemble{Size: 5, Grains: 1, Orders: []string{"fifo", "zigzag"}}
	if _, err := e.Run(context.Background()); !errors.Is(err, sandpile.ErrUnknownOrder) {
		t.Errorf("expected ErrUnknownOrder, got %v", err)
	}
}

func TestEnsembleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := Ensemble{Size: 11, Grains: 10, Orders: []string{"fifo"}}
	if _, err := e.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Size%2 == 0 || cfg.Size < 1000 {
		t.Errorf("default size %d should be odd and in the thousands", cfg.Size)
	}
	if cfg.Period != DefaultPeriod {
		t.Errorf("default period = %s", cfg.Period)
	}
}
