package sim

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/san-kum/sandpile/internal/palette"
	"github.com/san-kum/sandpile/internal/render"
	"github.com/san-kum/sandpile/internal/sandpile"
	"github.com/san-kum/sandpile/internal/view"
)

// Engine owns a board and runs the simulate-then-render loop on a background
// goroutine. The board is only touched by that goroutine; the camera talks to
// the engine through UpdateViewport and readers use Snapshot or Subscribe.
type Engine struct {
	cfg    Config
	board  *sandpile.Board
	logger *log.Logger

	observers  []Observer
	avalanches []AvalancheObserver
	metrics    []Metric

	vpMu     sync.Mutex
	viewport *view.Spec

	snapshot atomic.Pointer[view.Snapshot]
	grains   atomic.Int64

	subMu sync.Mutex
	subs  map[chan view.Snapshot]struct{}

	runMu     sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	iteration int64
}

type Option func(*Engine)

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver registers o for iteration stats. If o also implements
// AvalancheObserver it receives every avalanche as well.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
		if ao, ok := o.(AvalancheObserver); ok {
			e.avalanches = append(e.avalanches, ao)
		}
	}
}

func WithMetric(m Metric) Option {
	return func(e *Engine) {
		e.metrics = append(e.metrics, m)
		WithObserver(m)(e)
	}
}

func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %s", cfg.Period)
	}
	if cfg.Order == "" {
		cfg.Order = "fifo"
	}
	order, err := sandpile.OrderByName(cfg.Order, cfg.Seed)
	if err != nil {
		return nil, err
	}
	board, err := sandpile.NewBoard(cfg.Size, sandpile.WithOrder(order))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		board:  board,
		logger: log.New(io.Discard),
		subs:   make(map[chan view.Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithPrefix("engine")

	placeholder := view.Placeholder()
	e.snapshot.Store(&placeholder)
	return e, nil
}

func (e *Engine) Size() int                { return e.cfg.Size }
func (e *Engine) Palette() palette.Palette { return e.cfg.Palette }
func (e *Engine) TotalGrains() int64       { return e.grains.Load() }

func (e *Engine) Snapshot() view.Snapshot { return *e.snapshot.Load() }

// UpdateViewport replaces the spec used by the next render. Intermediate
// specs written between two renders are never drawn.
func (e *Engine) UpdateViewport(spec view.Spec) {
	e.vpMu.Lock()
	e.viewport = &spec
	e.vpMu.Unlock()
}

func (e *Engine) latestViewport() *view.Spec {
	e.vpMu.Lock()
	defer e.vpMu.Unlock()
	return e.viewport
}

// Subscribe returns a channel that always holds the newest snapshot: an
// unread snapshot is replaced rather than queued behind. The channel starts
// with the current snapshot and is closed when ctx is done.
func (e *Engine) Subscribe(ctx context.Context) <-chan view.Snapshot {
	ch := make(chan view.Snapshot, 1)
	ch <- e.Snapshot()

	e.subMu.Lock()
	e.subs[ch] = struct{}{}
	e.subMu.Unlock()

	go func() {
		<-ctx.Done()
		e.subMu.Lock()
		delete(e.subs, ch)
		close(ch)
		e.subMu.Unlock()
	}()
	return ch
}

func (e *Engine) publish(s view.Snapshot) {
	e.snapshot.Store(&s)

	e.subMu.Lock()
	defer e.subMu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		// drop the stale one; publish holds subMu so nobody refills it
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

func (e *Engine) Running() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.runningLocked()
}

func (e *Engine) runningLocked() bool {
	if e.done == nil {
		return false
	}
	select {
	case <-e.done:
		// the parent context ended the loop; forget the stale handle
		e.cancel()
		e.cancel, e.done = nil, nil
		return false
	default:
		return true
	}
}

// Start launches the loop. Starting a running engine is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	e.logger.Debug("start")
	if e.runningLocked() {
		e.logger.Warn("already running, start ignored")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel, e.done = cancel, done
	go e.loop(ctx, done)
}

// Stop cancels the loop and waits for it to exit. Safe to call when stopped.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
	e.cancel, e.done = nil, nil
	e.logger.Debug("stopped", "grains", e.grains.Load())
}

// Inspect runs fn against the board. The loop must be stopped.
func (e *Engine) Inspect(fn func(b *sandpile.Board)) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.runningLocked() {
		return ErrRunning
	}
	fn(e.board)
	return nil
}

// Metrics collects the current value of every registered metric.
func (e *Engine) Metrics() map[string]float64 {
	out := make(map[string]float64, len(e.metrics))
	for _, m := range e.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for ctx.Err() == nil {
		s := e.step(ctx)
		for _, o := range e.observers {
			o.OnIteration(s)
		}
		runtime.Gosched()
	}
}

func (e *Engine) step(ctx context.Context) Stats {
	start := time.Now()
	e.iteration++
	s := Stats{Iteration: e.iteration}

	for time.Since(start) < e.cfg.Period && ctx.Err() == nil {
		av := e.board.InjectAndStabilize()
		s.Injected++
		s.Topples += av.Topples
		s.Lost += av.Lost
		s.MaxAvalanche = max(s.MaxAvalanche, av.Topples)
		for _, o := range e.avalanches {
			o.OnAvalanche(av)
		}
	}
	s.TotalGrains = e.board.TotalGrains()
	e.grains.Store(s.TotalGrains)

	if spec := e.latestViewport(); spec != nil && spec.CanvasW > 0 && spec.CanvasH > 0 {
		e.publish(render.Render(*spec, e.board, e.cfg.Palette))
		s.Rendered = true
	}

	s.Elapsed = time.Since(start)
	return s
}
