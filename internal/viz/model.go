package viz

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/sandpile/internal/camera"
	"github.com/san-kum/sandpile/internal/metrics"
	"github.com/san-kum/sandpile/internal/sim"
	"github.com/san-kum/sandpile/internal/view"
)

const (
	// wheelNotch is the wheel delta of one scroll step.
	wheelNotch    = 120.0
	statsInterval = 250 * time.Millisecond
	graphPoints   = 60
)

type snapshotMsg struct{ snap view.Snapshot }

type closedMsg struct{}

type tickMsg time.Time

// Model shows the newest engine snapshot and turns keys and mouse gestures
// into camera moves. The engine renders; the model only draws.
type Model struct {
	ctx     context.Context
	engine  *sim.Engine
	camera  *camera.Camera
	history *metrics.History
	snaps   <-chan view.Snapshot
	snap    view.Snapshot

	theme  Theme
	styles styles

	width, height int
	cols, rows    int
	sidebar       bool

	rates      []float64
	avalanches []float64

	dragging     bool
	dragX, dragY int
	showHelp     bool
}

// NewModel subscribes to engine snapshots for the lifetime of ctx. The
// camera must push its specs to the same engine.
func NewModel(ctx context.Context, engine *sim.Engine, cam *camera.Camera, history *metrics.History, theme Theme) Model {
	return Model{
		ctx:     ctx,
		engine:  engine,
		camera:  cam,
		history: history,
		snaps:   engine.Subscribe(ctx),
		snap:    view.Placeholder(),
		theme:   theme,
		styles:  newStyles(theme),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitSnapshot(m.snaps), tick())
}

func waitSnapshot(ch <-chan view.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg{s}
	}
}

func tick() tea.Cmd {
	return tea.Tick(statsInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles input events and incoming snapshots.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		m.handleMouse(msg)
	case snapshotMsg:
		m.snap = msg.snap
		return m, waitSnapshot(m.snaps)
	case closedMsg:
		return m, tea.Quit
	case tickMsg:
		m.sample()
		return m, tick()
	}
	return m, nil
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	m.sidebar = w >= 2*sidebarWidth
	m.cols = w
	if m.sidebar {
		m.cols = w - sidebarWidth
	}
	m.cols, m.rows = max(m.cols, 1), max(h, 1)
	m.camera.Resize(m.cols, m.rows*2)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	step := float64(max(m.cols/8, 1))
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.showHelp = false
	case "?":
		m.showHelp = !m.showHelp
	case "left", "h":
		m.camera.PanByPixels(step, 0)
	case "right", "l":
		m.camera.PanByPixels(-step, 0)
	case "up", "k":
		m.camera.PanByPixels(0, step)
	case "down", "j":
		m.camera.PanByPixels(0, -step)
	case "+", "=":
		m.camera.ZoomIn()
	case "-", "_":
		m.camera.ZoomOut()
	case "f":
		m.camera.Fit(m.engine.Size())
	case " ":
		m.togglePause()
	case "t":
		m.theme = NextTheme(m.theme)
		m.styles = newStyles(m.theme)
	}
	return m, nil
}

// pixel returns the canvas pixel at the center of character cell (x, y).
func pixel(x, y int) (float64, float64) {
	return float64(x) + 0.5, float64(y)*2 + 1
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if m.dragging {
		switch msg.Action {
		case tea.MouseActionMotion:
			m.camera.PanByPixels(float64(msg.X-m.dragX), float64(msg.Y-m.dragY)*2)
			m.dragX, m.dragY = msg.X, msg.Y
		case tea.MouseActionRelease:
			m.dragging = false
		}
		return
	}
	if msg.X >= m.cols || msg.Y >= m.rows {
		return
	}

	ax, ay := pixel(msg.X, msg.Y)
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.camera.ZoomWheel(ax, ay, -wheelNotch)
	case msg.Button == tea.MouseButtonWheelDown:
		m.camera.ZoomWheel(ax, ay, wheelNotch)
	case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		m.dragging = true
		m.dragX, m.dragY = msg.X, msg.Y
	}
}

func (m *Model) togglePause() {
	if m.engine.Running() {
		m.engine.Stop()
		return
	}
	m.engine.Start(m.ctx)
}

func (m *Model) sample() {
	if m.history == nil {
		return
	}
	m.rates = tail(m.history.Series(func(s sim.Stats) float64 {
		if s.Elapsed <= 0 {
			return 0
		}
		return float64(s.Injected) / s.Elapsed.Seconds()
	}), graphPoints)
	m.avalanches = tail(m.history.Series(func(s sim.Stats) float64 {
		return float64(s.MaxAvalanche)
	}), graphPoints)
}

func tail(v []float64, n int) []float64 {
	if len(v) > n {
		return v[len(v)-n:]
	}
	return v
}

// View renders the canvas and, when the terminal is wide enough, the sidebar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "starting..."
	}
	canvas := HalfBlock(m.snap, m.cols, m.rows)
	if !m.sidebar {
		return canvas
	}
	panel := m.stats()
	if m.showHelp {
		panel = m.help()
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, canvas, m.styles.sidebar.Height(m.rows).Render(panel))
}

func (m Model) stats() string {
	st := m.styles
	var s strings.Builder

	s.WriteString(st.title.Render("SANDPILE") + "\n")
	if m.engine.Running() {
		s.WriteString(st.running.Render("RUNNING") + "\n\n")
	} else {
		s.WriteString(st.paused.Render("PAUSED") + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	size := m.engine.Size()
	row("Grains", fmt.Sprintf("%d", m.engine.TotalGrains()))
	row("Board", fmt.Sprintf("%d x %d", size, size))
	row("Palette", m.engine.Palette().Name)
	row("Zoom", fmt.Sprintf("%.3f px/cell", m.camera.PxPerCell))
	row("Block", fmt.Sprintf("%d cells", m.snap.BlockCells))
	row("Center", fmt.Sprintf("%.0f, %.0f", m.camera.CenterCellX, m.camera.CenterCellY))

	graphWidth := sidebarWidth - 12
	if len(m.rates) > 1 {
		chart := asciigraph.Plot(m.rates,
			asciigraph.Height(5),
			asciigraph.Width(graphWidth),
			asciigraph.Caption("grains/s"))
		s.WriteString("\n" + st.graph.Render(chart) + "\n")
	}
	if len(m.avalanches) > 0 {
		s.WriteString("\n" + st.label.Render("Avalanche") + "\n")
		s.WriteString(st.sparkline(m.avalanches, graphWidth) + "\n")
	}

	values := m.engine.Metrics()
	if len(values) > 0 {
		s.WriteString("\n" + st.separator(sidebarWidth-4) + "\n")
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s.WriteString(st.label.Render(name) + "\n")
			s.WriteString("  " + st.value.Render(fmt.Sprintf("%.4g", values[name])) + "\n")
		}
	}

	s.WriteString("\n" + st.hint.Render("?:Help  Space:Pause  Q:Quit"))
	return s.String()
}

func (m Model) help() string {
	return m.styles.help.Render(`KEYBOARD & MOUSE

Arrows/hjkl  Pan
+ / -        Zoom at center
Wheel        Zoom at pointer
Drag         Pan
F            Fit board
Space        Pause/Resume
T            Cycle theme (` + m.theme.Name + `)
?            Toggle help
Q            Quit`)
}
