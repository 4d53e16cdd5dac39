package metrics

import (
	"sync"

	"github.com/san-kum/sandpile/internal/sim"
)

// MeanAvalanche is the average number of topples per injected grain.
type MeanAvalanche struct {
	mu       sync.Mutex
	topples  int64
	injected int64
}

func NewMeanAvalanche() *MeanAvalanche { return &MeanAvalanche{} }

func (m *MeanAvalanche) Name() string { return "mean_avalanche" }

func (m *MeanAvalanche) OnIteration(s sim.Stats) {
	m.mu.Lock()
	m.topples += int64(s.Topples)
	m.injected += int64(s.Injected)
	m.mu.Unlock()
}

func (m *MeanAvalanche) Value() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.injected == 0 {
		return 0
	}
	return float64(m.topples) / float64(m.injected)
}

func (m *MeanAvalanche) Reset() {
	m.mu.Lock()
	m.topples, m.injected = 0, 0
	m.mu.Unlock()
}

// MaxAvalanche is the largest single avalanche seen.
type MaxAvalanche struct {
	mu  sync.Mutex
	max int
}

func NewMaxAvalanche() *MaxAvalanche { return &MaxAvalanche{} }

func (m *MaxAvalanche) Name() string { return "max_avalanche" }

func (m *MaxAvalanche) OnIteration(s sim.Stats) {
	m.mu.Lock()
	m.max = max(m.max, s.MaxAvalanche)
	m.mu.Unlock()
}

func (m *MaxAvalanche) Value() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.max)
}

func (m *MaxAvalanche) Reset() {
	m.mu.Lock()
	m.max = 0
	m.mu.Unlock()
}

// Dissipation is the fraction of injected grains lost over the boundary.
// It stays at zero until the pile reaches the edge.
type Dissipation struct {
	mu       sync.Mutex
	lost     int64
	injected int64
}

func NewDissipation() *Dissipation { return &Dissipation{} }

func (d *Dissipation) Name() string { return "dissipation" }

func (d *Dissipation) OnIteration(s sim.Stats) {
	d.mu.Lock()
	d.lost += s.Lost
	d.injected += int64(s.Injected)
	d.mu.Unlock()
}

func (d *Dissipation) Value() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.injected == 0 {
		return 0
	}
	return float64(d.lost) / float64(d.injected)
}

func (d *Dissipation) Reset() {
	d.mu.Lock()
	d.lost, d.injected = 0, 0
	d.mu.Unlock()
}

// Defaults returns the metrics every run records.
func Defaults() []sim.Metric {
	return []sim.Metric{
		NewThroughput(0),
		NewMeanAvalanche(),
		NewMaxAvalanche(),
		NewDissipation(),
	}
}
