package sim

import (
	"errors"
	"time"

	"github.com/san-kum/sandpile/internal/palette"
	"github.com/san-kum/sandpile/internal/sandpile"
)

const (
	DefaultSize   = 3967
	DefaultPeriod = 25 * time.Millisecond
)

var (
	// ErrRunning is returned by operations that need the loop stopped.
	ErrRunning = errors.New("sim: engine is running")
)

type Config struct {
	Size    int
	Period  time.Duration
	Palette palette.Palette
	Order   string
	Seed    int64
}

func DefaultConfig() Config {
	return Config{
		Size:    DefaultSize,
		Period:  DefaultPeriod,
		Palette: palette.Default,
		Order:   "fifo",
	}
}

// Stats summarizes one loop iteration: one time budget of injections and at
// most one render.
type Stats struct {
	Iteration    int64
	Injected     int
	Topples      int
	MaxAvalanche int
	Lost         int64
	TotalGrains  int64
	Rendered     bool
	Elapsed      time.Duration
}

// Observer is called from the engine goroutine after every iteration.
type Observer interface {
	OnIteration(s Stats)
}

type ObserverFunc func(s Stats)

func (f ObserverFunc) OnIteration(s Stats) { f(s) }

// AvalancheObserver is called from the engine goroutine after every grain.
type AvalancheObserver interface {
	OnAvalanche(a sandpile.Avalanche)
}

// Metric is an Observer that reduces the run to a single named value.
type Metric interface {
	Observer
	Name() string
	Value() float64
	Reset()
}
