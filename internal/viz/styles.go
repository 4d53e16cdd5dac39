package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const sidebarWidth = 34

type styles struct {
	sidebar lipgloss.Style
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	running lipgloss.Style
	paused  lipgloss.Style
	graph   lipgloss.Style
	hint    lipgloss.Style
	help    lipgloss.Style
	subtle  lipgloss.Style
	spark   [3]lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		sidebar: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(0, 1).
			Width(sidebarWidth - 1),
		title:   lipgloss.NewStyle().Foreground(t.Secondary).Bold(true),
		label:   lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:   lipgloss.NewStyle().Foreground(t.Text),
		running: lipgloss.NewStyle().Foreground(t.Success).Bold(true),
		paused:  lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		graph:   lipgloss.NewStyle().Foreground(t.Primary),
		hint:    lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		help: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Accent).
			Foreground(t.Text).
			Padding(0, 1),
		subtle: lipgloss.NewStyle().Foreground(t.Muted),
		spark: [3]lipgloss.Style{
			lipgloss.NewStyle().Foreground(t.Success),
			lipgloss.NewStyle().Foreground(t.Warning),
			lipgloss.NewStyle().Foreground(t.Error),
		},
	}
}

// sparkline renders the last width values as bar glyphs. Low values use
// the first spark style and high values the last.
func (s styles) sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	var result strings.Builder
	for _, v := range values {
		norm := (v - lo) / rng
		idx := min(max(int(norm*float64(len(chars)-1)), 0), len(chars)-1)
		c := string(chars[idx])
		switch {
		case norm > 0.7:
			result.WriteString(s.spark[2].Render(c))
		case norm > 0.3:
			result.WriteString(s.spark[1].Render(c))
		default:
			result.WriteString(s.spark[0].Render(c))
		}
	}
	return result.String()
}

func (s styles) separator(width int) string {
	mid := width / 2
	left := strings.Repeat("─", max(mid-3, 0))
	right := strings.Repeat("─", max(width-mid-3, 0))
	return s.subtle.Render(left + " ◆ " + right)
}
