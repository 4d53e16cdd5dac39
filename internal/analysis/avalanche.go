package analysis

import (
	"errors"
	"math"
	"math/bits"

	"github.com/san-kum/sandpile/internal/sandpile"
	"github.com/san-kum/sandpile/internal/sim"
)

// ErrTooFewPoints is returned when fewer than three bins are populated.
var ErrTooFewPoints = errors.New("analysis: not enough populated bins for a fit")

// Bin counts avalanches whose topple count lies in [Lo, Hi).
type Bin struct {
	Lo, Hi int64
	Count  int64
}

// Histogram bins avalanche sizes by powers of two. Grains that cause no
// topple at all are counted in Quiet.
type Histogram struct {
	Quiet  int64
	counts [64]int64
}

func NewHistogram() *Histogram { return &Histogram{} }

func (h *Histogram) OnIteration(sim.Stats) {}

func (h *Histogram) OnAvalanche(a sandpile.Avalanche) {
	h.Add(int64(a.Topples))
}

func (h *Histogram) Add(size int64) {
	if size <= 0 {
		h.Quiet++
		return
	}
	h.counts[bits.Len64(uint64(size))-1]++
}

// Total counts every avalanche added, quiet ones included.
func (h *Histogram) Total() int64 {
	n := h.Quiet
	for _, c := range h.counts {
		n += c
	}
	return n
}

// Bins returns the bins up to the largest populated one.
func (h *Histogram) Bins() []Bin {
	last := -1
	for k, c := range h.counts {
		if c > 0 {
			last = k
		}
	}
	bins := make([]Bin, 0, last+1)
	for k := 0; k <= last; k++ {
		bins = append(bins, Bin{Lo: 1 << k, Hi: 1 << (k + 1), Count: h.counts[k]})
	}
	return bins
}

type Fit struct {
	Tau    float64
	R2     float64
	Points int
}

// PowerLaw fits log(density) = a - tau*log(size) over the populated bins,
// where density is the bin count divided by the bin width and size is the
// geometric center of the bin.
func PowerLaw(bins []Bin) (Fit, error) {
	xs := make([]float64, 0, len(bins))
	ys := make([]float64, 0, len(bins))
	for _, b := range bins {
		if b.Count <= 0 || b.Hi <= b.Lo {
			continue
		}
		center := math.Sqrt(float64(b.Lo) * float64(b.Hi-1))
		if center <= 0 {
			center = float64(b.Lo)
		}
		density := float64(b.Count) / float64(b.Hi-b.Lo)
		xs = append(xs, math.Log(center))
		ys = append(ys, math.Log(density))
	}
	if len(xs) < 3 {
		return Fit{Points: len(xs)}, ErrTooFewPoints
	}

	slope, intercept := leastSquares(xs, ys)

	var ssRes, ssTot, mean float64
	for _, y := range ys {
		mean += y
	}
	mean /= float64(len(ys))
	for i, x := range xs {
		pred := intercept + slope*x
		ssRes += (ys[i] - pred) * (ys[i] - pred)
		ssTot += (ys[i] - mean) * (ys[i] - mean)
	}
	r2 := 1.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}

	return Fit{Tau: -slope, R2: r2, Points: len(xs)}, nil
}

func leastSquares(xs, ys []float64) (slope, intercept float64) {
	n := float64(len(xs))
	var sx, sy, sxx, sxy float64
	for i, x := range xs {
		sx += x
		sy += ys[i]
		sxx += x * x
		sxy += x * ys[i]
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0, sy / n
	}
	slope = (n*sxy - sx*sy) / den
	intercept = (sy - slope*sx) / n
	return slope, intercept
}
