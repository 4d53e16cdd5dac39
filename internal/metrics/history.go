package metrics

import (
	"sync"

	"github.com/san-kum/sandpile/internal/sim"
)

// History keeps the most recent iteration stats in a ring buffer.
type History struct {
	mu    sync.Mutex
	rows  []sim.Stats
	next  int
	total int64
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{rows: make([]sim.Stats, 0, capacity)}
}

func (h *History) OnIteration(s sim.Stats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.total++
	if len(h.rows) < cap(h.rows) {
		h.rows = append(h.rows, s)
		return
	}
	h.rows[h.next] = s
	h.next = (h.next + 1) % len(h.rows)
}

// Rows returns the retained stats, oldest first.
func (h *History) Rows() []sim.Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]sim.Stats, 0, len(h.rows))
	out = append(out, h.rows[h.next:]...)
	out = append(out, h.rows[:h.next]...)
	return out
}

// Total counts every iteration observed, including evicted ones.
func (h *History) Total() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

// Series extracts one float column from the retained rows.
func (h *History) Series(f func(sim.Stats) float64) []float64 {
	rows := h.Rows()
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = f(r)
	}
	return out
}
