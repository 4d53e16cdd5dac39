package export

import (
	"image/png"
	"io"

	"github.com/san-kum/sandpile/internal/render"
	"github.com/san-kum/sandpile/internal/view"
)

func SnapshotPNG(w io.Writer, s view.Snapshot) error {
	return png.Encode(w, render.Image(s))
}
