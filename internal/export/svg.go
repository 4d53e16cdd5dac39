package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/sandpile/internal/palette"
	"github.com/san-kum/sandpile/internal/view"
)

// SnapshotSVG writes one rect per block, clipped to the canvas. Runs of
// equal color along a column are merged into a single rect.
func SnapshotSVG(w io.Writer, s view.Snapshot) error {
	bw := bufio.NewWriter(w)
	width, height := max(s.CanvasW, 1), max(s.CanvasH, 1)

	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, palette.Black.Hex())

	for bx := 0; bx < s.BlocksX; bx++ {
		for by := 0; by < s.BlocksY; {
			c := s.Block(bx, by)
			run := 1
			for by+run < s.BlocksY && s.Block(bx, by+run) == c {
				run++
			}
			if c != palette.Black {
				x, y := s.BlockOrigin(bx, by)
				fmt.Fprintf(bw, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s"/>
`, num(x), num(y), num(s.BlockPx), num(s.BlockPx*float64(run)), c.Hex())
			}
			by += run
		}
	}

	bw.WriteString("</svg>\n")
	return bw.Flush()
}

// SeriesSVG draws values as a polyline over the iteration index.
func SeriesSVG(values []float64, width, height int, strokeColor string) string {
	if len(values) < 2 {
		return ""
	}

	minY, maxY := values[0], values[0]
	for _, v := range values {
		minY = math.Min(minY, v)
		maxY = math.Max(maxY, v)
	}

	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY
	stepX := float64(width) / float64(len(values)-1)

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, v := range values {
		x := float64(i) * stepX
		y := float64(height) - (v-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
