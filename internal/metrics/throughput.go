package metrics

import (
	"sync"
	"time"

	"github.com/san-kum/sandpile/internal/sim"
)

// Throughput reports grains injected per second over the last few
// iterations.
type Throughput struct {
	mu      sync.Mutex
	window  int
	grains  []int
	elapsed []time.Duration
	next    int
	filled  int
}

func NewThroughput(window int) *Throughput {
	if window <= 0 {
		window = 40
	}
	return &Throughput{
		window:  window,
		grains:  make([]int, window),
		elapsed: make([]time.Duration, window),
	}
}

func (t *Throughput) Name() string { return "grains_per_sec" }

func (t *Throughput) OnIteration(s sim.Stats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.grains[t.next] = s.Injected
	t.elapsed[t.next] = s.Elapsed
	t.next = (t.next + 1) % t.window
	if t.filled < t.window {
		t.filled++
	}
}

func (t *Throughput) Value() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var grains int
	var elapsed time.Duration
	for i := 0; i < t.filled; i++ {
		grains += t.grains[i]
		elapsed += t.elapsed[i]
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(grains) / elapsed.Seconds()
}

func (t *Throughput) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next, t.filled = 0, 0
}
