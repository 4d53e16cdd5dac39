package sandpile

import (
	"errors"
	"fmt"
	"math/rand"
)

var ErrUnknownOrder = errors.New("sandpile: unknown topple order")

// Order is the work queue used while stabilizing. Any order reaches the same
// stable grid; they differ only in the path taken.
type Order interface {
	Push(i int)
	Pop() int
	Len() int
	Reset()
}

// FIFO processes cells in the order they became suspect.
type FIFO struct {
	items []int
	head  int
}

func NewFIFO() *FIFO { return &FIFO{} }

func (q *FIFO) Push(i int) { q.items = append(q.items, i) }

func (q *FIFO) Pop() int {
	i := q.items[q.head]
	q.head++
	// reclaim the consumed prefix once it dominates the buffer
	if q.head > 1024 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		q.items = q.items[:n]
		q.head = 0
	}
	return i
}

func (q *FIFO) Len() int { return len(q.items) - q.head }

func (q *FIFO) Reset() {
	q.items = q.items[:0]
	q.head = 0
}

// LIFO processes the most recently pushed cell first.
type LIFO struct {
	items []int
}

func NewLIFO() *LIFO { return &LIFO{} }

func (s *LIFO) Push(i int) { s.items = append(s.items, i) }

func (s *LIFO) Pop() int {
	n := len(s.items) - 1
	i := s.items[n]
	s.items = s.items[:n]
	return i
}

func (s *LIFO) Len() int { return len(s.items) }

func (s *LIFO) Reset() { s.items = s.items[:0] }

// Random pops a uniformly chosen pending cell.
type Random struct {
	items []int
	rng   *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Push(i int) { r.items = append(r.items, i) }

func (r *Random) Pop() int {
	n := len(r.items) - 1
	k := r.rng.Intn(n + 1)
	i := r.items[k]
	r.items[k] = r.items[n]
	r.items = r.items[:n]
	return i
}

func (r *Random) Len() int { return len(r.items) }

func (r *Random) Reset() { r.items = r.items[:0] }

var orders = map[string]func(seed int64) Order{
	"fifo":   func(int64) Order { return NewFIFO() },
	"lifo":   func(int64) Order { return NewLIFO() },
	"random": func(seed int64) Order { return NewRandom(seed) },
}

// OrderNames lists the names accepted by OrderByName.
func OrderNames() []string {
	return []string{"fifo", "lifo", "random"}
}

func OrderByName(name string, seed int64) (Order, error) {
	fn, ok := orders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOrder, name)
	}
	return fn(seed), nil
}
