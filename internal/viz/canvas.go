package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/sandpile/internal/palette"
	"github.com/san-kum/sandpile/internal/view"
)

const upperHalf = "▀"

// HalfBlock draws the snapshot into cols x rows character cells. The upper
// pixel of each cell is the foreground of "▀" and the lower pixel its
// background. Horizontal runs of identical cells share one styled span.
func HalfBlock(s view.Snapshot, cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}

	type pair struct{ top, bottom palette.ARGB }
	styles := make(map[pair]lipgloss.Style)
	line := make([]pair, cols)

	var sb strings.Builder
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for c := range line {
			line[c] = pair{s.At(c, 2*r), s.At(c, 2*r+1)}
		}
		for c := 0; c < cols; {
			p := line[c]
			n := 1
			for c+n < cols && line[c+n] == p {
				n++
			}
			st, ok := styles[p]
			if !ok {
				st = lipgloss.NewStyle().
					Foreground(lipgloss.Color(p.top.Hex())).
					Background(lipgloss.Color(p.bottom.Hex()))
				styles[p] = st
			}
			sb.WriteString(st.Render(strings.Repeat(upperHalf, n)))
			c += n
		}
	}
	return sb.String()
}
