package sim_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/sandpile/internal/palette"
	"github.com/san-kum/sandpile/internal/sandpile"
	"github.com/san-kum/sandpile/internal/sim"
	"github.com/san-kum/sandpile/internal/view"
)

func smallConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Size = 101
	cfg.Period = 2 * time.Millisecond
	return cfg
}

var testSpec = view.Spec{
	CanvasW: 80, CanvasH: 60,
	CenterCellX: 50, CenterCellY: 50,
	PxPerCell:  1,
	MinBlockPx: 4,
}

type countingObserver struct {
	iterations atomic.Int64
	injected   atomic.Int64
	grains     atomic.Int64
	avalanches atomic.Int64
}

func (o *countingObserver) OnIteration(s sim.Stats) {
	o.iterations.Add(1)
	o.injected.Add(int64(s.Injected))
	o.grains.Store(s.TotalGrains)
}

func (o *countingObserver) OnAvalanche(sandpile.Avalanche) { o.avalanches.Add(1) }

var _ = Describe("Engine", func() {
	var (
		engine *sim.Engine
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		var err error
		engine, err = sim.New(smallConfig())
		Expect(err).NotTo(HaveOccurred())
		ctx, cancel = context.WithCancel(context.Background())
	})

	AfterEach(func() {
		engine.Stop()
		cancel()
	})

	Describe("construction", func() {
		It("rejects even board sizes", func() {
			cfg := smallConfig()
			cfg.Size = 100
			_, err := sim.New(cfg)
			Expect(err).To(MatchError(sandpile.ErrInvalidSize))
		})

		It("rejects unknown topple orders", func() {
			cfg := smallConfig()
			cfg.Order = "spiral"
			_, err := sim.New(cfg)
			Expect(err).To(MatchError(sandpile.ErrUnknownOrder))
		})

		It("rejects a non-positive period", func() {
			cfg := smallConfig()
			cfg.Period = 0
			_, err := sim.New(cfg)
			Expect(err).To(HaveOccurred())
		})

		It("publishes a 1x1 placeholder before any render", func() {
			snap := engine.Snapshot()
			Expect(snap.BlocksX).To(Equal(1))
			Expect(snap.BlocksY).To(Equal(1))
			Expect(snap.Blocks).To(Equal([]palette.ARGB{palette.Black}))
			Expect(engine.Running()).To(BeFalse())
		})
	})

	Describe("lifecycle", func() {
		It("injects grains while running", func() {
			engine.Start(ctx)
			Expect(engine.Running()).To(BeTrue())
			Eventually(engine.TotalGrains).Should(BeNumerically(">", 0))
		})

		It("does not render without a viewport", func() {
			engine.Start(ctx)
			Eventually(engine.TotalGrains).Should(BeNumerically(">", 0))
			Consistently(func() int64 { return engine.Snapshot().TotalGrains }, 50*time.Millisecond).Should(BeZero())
		})

		It("does not render an empty canvas", func() {
			spec := testSpec
			spec.CanvasW = 0
			engine.UpdateViewport(spec)
			engine.Start(ctx)
			Eventually(engine.TotalGrains).Should(BeNumerically(">", 0))
			Consistently(func() int { return engine.Snapshot().BlocksX }, 50*time.Millisecond).Should(Equal(1))
		})

		It("ignores a second Start", func() {
			engine.Start(ctx)
			engine.Start(ctx)
			Eventually(engine.TotalGrains).Should(BeNumerically(">", 0))

			engine.Stop()
			Expect(engine.Running()).To(BeFalse())
			stopped := engine.TotalGrains()
			Consistently(engine.TotalGrains, 50*time.Millisecond).Should(Equal(stopped))
		})

		It("treats Stop on a stopped engine as a no-op", func() {
			engine.Stop()
			engine.Stop()
			Expect(engine.Running()).To(BeFalse())
		})

		It("resumes the same board after a restart", func() {
			engine.Start(ctx)
			Eventually(engine.TotalGrains).Should(BeNumerically(">", 100))
			engine.Stop()
			before := engine.TotalGrains()

			engine.Start(ctx)
			Eventually(engine.TotalGrains).Should(BeNumerically(">", before))
		})

		It("can start again after the parent context ends", func() {
			parent, stop := context.WithCancel(ctx)
			engine.Start(parent)
			Eventually(engine.TotalGrains).Should(BeNumerically(">", 0))
			stop()
			Eventually(engine.Running).Should(BeFalse())

			engine.Start(ctx)
			Expect(engine.Running()).To(BeTrue())
		})

		It("only lets Inspect see a stopped board", func() {
			engine.Start(ctx)
			Expect(engine.Inspect(func(*sandpile.Board) {})).To(MatchError(sim.ErrRunning))

			Eventually(engine.TotalGrains).Should(BeNumerically(">", 0))
			engine.Stop()

			var resident, injected int64
			Expect(engine.Inspect(func(b *sandpile.Board) {
				resident = b.Sum()
				injected = b.TotalGrains()
				for x := 0; x < b.Size(); x++ {
					for y := 0; y < b.Size(); y++ {
						Expect(b.Height(x, y)).To(BeNumerically("<=", 3))
					}
				}
			})).To(Succeed())
			Expect(injected).To(Equal(engine.TotalGrains()))
			Expect(resident).To(BeNumerically("<=", injected))
		})
	})

	Describe("rendering", func() {
		It("renders the latest viewport", func() {
			engine.UpdateViewport(testSpec)
			engine.Start(ctx)

			Eventually(func() int { return engine.Snapshot().CanvasW }).Should(Equal(80))
			snap := engine.Snapshot()
			Expect(snap.BlockCells).To(Equal(4))
			Expect(snap.Blocks).To(HaveLen(snap.BlocksX * snap.BlocksY))
			Expect(snap.TotalGrains).To(BeNumerically(">", 0))
		})

		It("keeps only the last of concurrent viewport writes", func() {
			engine.Start(ctx)

			var wg sync.WaitGroup
			for i := 1; i <= 8; i++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					spec := testSpec
					spec.CanvasW = w * 10
					engine.UpdateViewport(spec)
				}(i)
			}
			wg.Wait()

			final := testSpec
			final.CanvasW = 333
			engine.UpdateViewport(final)
			Eventually(func() int { return engine.Snapshot().CanvasW }).Should(Equal(333))
		})

		It("never shows a torn spec", func() {
			engine.Start(ctx)
			stopWriters := make(chan struct{})
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; ; i++ {
					select {
					case <-stopWriters:
						return
					default:
					}
					w := 20 + i%50
					engine.UpdateViewport(view.Spec{CanvasW: w, CanvasH: w, CenterCellX: 50, CenterCellY: 50, PxPerCell: 1, MinBlockPx: 4})
				}
			}()

			Consistently(func() bool {
				s := engine.Snapshot()
				return s.CanvasW == s.CanvasH
			}, 100*time.Millisecond, time.Millisecond).Should(BeTrue())
			close(stopWriters)
			wg.Wait()
		})
	})

	Describe("subscriptions", func() {
		It("delivers the current snapshot first", func() {
			ch := engine.Subscribe(ctx)
			var first view.Snapshot
			Eventually(ch).Should(Receive(&first))
			Expect(first.BlocksX).To(Equal(1))
		})

		It("keeps only the newest snapshot for a slow reader", func() {
			ch := engine.Subscribe(ctx)
			engine.UpdateViewport(testSpec)
			engine.Start(ctx)

			Eventually(func() int64 { return engine.Snapshot().TotalGrains }).Should(BeNumerically(">", 500))
			engine.Stop()

			var got view.Snapshot
			Expect(ch).To(Receive(&got))
			Expect(got.TotalGrains).To(Equal(engine.Snapshot().TotalGrains))
			Expect(ch).NotTo(Receive())
		})

		It("closes the channel when the subscriber's context ends", func() {
			subCtx, unsubscribe := context.WithCancel(ctx)
			ch := engine.Subscribe(subCtx)
			unsubscribe()

			Eventually(func() bool {
				for {
					select {
					case _, ok := <-ch:
						if !ok {
							return true
						}
					default:
						return false
					}
				}
			}).Should(BeTrue())
		})
	})

	Describe("observers", func() {
		It("reports iteration stats and avalanches", func() {
			obs := &countingObserver{}
			e, err := sim.New(smallConfig(), sim.WithObserver(obs))
			Expect(err).NotTo(HaveOccurred())

			e.Start(ctx)
			Eventually(obs.iterations.Load).Should(BeNumerically(">", 3))
			e.Stop()

			Expect(obs.injected.Load()).To(Equal(e.TotalGrains()))
			Expect(obs.avalanches.Load()).To(Equal(e.TotalGrains()))
			Expect(obs.grains.Load()).To(Equal(e.TotalGrains()))
		})

		It("exposes registered metrics by name", func() {
			e, err := sim.New(smallConfig(), sim.WithMetric(&grainMetric{}))
			Expect(err).NotTo(HaveOccurred())

			e.Start(ctx)
			Eventually(func() float64 { return e.Metrics()["grains"] }).Should(BeNumerically(">", 0))
		})
	})
})

type grainMetric struct {
	v atomic.Int64
}

func (m *grainMetric) OnIteration(s sim.Stats) { m.v.Store(s.TotalGrains) }
func (m *grainMetric) Name() string            { return "grains" }
func (m *grainMetric) Value() float64          { return float64(m.v.Load()) }
func (m *grainMetric) Reset()                  { m.v.Store(0) }
