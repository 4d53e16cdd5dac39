package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/sandpile/internal/sandpile"
)

func TestHistogramBins(t *testing.T) {
	h := NewHistogram()
	for _, s := range []int64{0, 0, 1, 2, 3, 4, 7, 8, 100} {
		h.Add(s)
	}

	if h.Quiet != 2 {
		t.Errorf("Quiet = %d, want 2", h.Quiet)
	}
	if h.Total() != 9 {
		t.Errorf("Total = %d, want 9", h.Total())
	}

	bins := h.Bins()
	want := []Bin{
		{1, 2, 1},
		{2, 4, 2},
		{4, 8, 2},
		{8, 16, 1},
		{16, 32, 0},
		{32, 64, 0},
		{64, 128, 1},
	}
	if len(bins) != len(want) {
		t.Fatalf("got %d bins, want %d: %v", len(bins), len(want), bins)
	}
	for i := range want {
		if bins[i] != want[i] {
			t.Errorf("bin %d = %+v, want %+v", i, bins[i], want[i])
		}
	}
}

func TestHistogramObservesAvalanches(t *testing.T) {
	h := NewHistogram()
	h.OnAvalanche(sandpile.Avalanche{Topples: 0})
	h.OnAvalanche(sandpile.Avalanche{Topples: 5, Lost: 1})
	if h.Quiet != 1 || h.Total() != 2 {
		t.Errorf("Quiet=%d Total=%d", h.Quiet, h.Total())
	}
}

func TestPowerLawRecoversExponent(t *testing.T) {
	const tau = 1.5
	bins := make([]Bin, 0, 12)
	for k := 0; k < 12; k++ {
		lo, hi := int64(1)<<k, int64(1)<<(k+1)
		center := math.Sqrt(float64(lo) * float64(hi-1))
		count := 1e9 * math.Pow(center, -tau) * float64(hi-lo)
		bins = append(bins, Bin{Lo: lo, Hi: hi, Count: int64(count)})
	}

	fit, err := PowerLaw(bins)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if math.Abs(fit.Tau-tau) > 0.01 {
		t.Errorf("tau = %f, want %f", fit.Tau, tau)
	}
	if fit.R2 < 0.999 {
		t.Errorf("R2 = %f", fit.R2)
	}
	if fit.Points != 12 {
		t.Errorf("Points = %d", fit.Points)
	}
}

func TestPowerLawTooFewPoints(t *testing.T) {
	_, err := PowerLaw([]Bin{{1, 2, 10}, {2, 4, 0}, {4, 8, 3}})
	if !errors.Is(err, ErrTooFewPoints) {
		t.Errorf("expected ErrTooFewPoints, got %v", err)
	}
}

func TestSandpileAvalanchesAreHeavyTailed(t *testing.T) {
	b, err := sandpile.NewBoard(61)
	if err != nil {
		t.Fatal(err)
	}
	h := NewHistogram()
	for i := 0; i < 20000; i++ {
		h.OnAvalanche(b.InjectAndStabilize())
	}

	fit, err := PowerLaw(h.Bins())
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if fit.Tau <= 0 {
		t.Errorf("expected decaying size distribution, tau = %f", fit.Tau)
	}
}
