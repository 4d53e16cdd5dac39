package palette

import (
	"errors"
	"fmt"
	"image/color"
	"sort"

	"github.com/hsluv/hsluv-go"
)

var ErrUnknownPalette = errors.New("palette: unknown palette")

// ARGB is a packed 0xAARRGGBB color.
type ARGB uint32

// Black is the opaque black renderers use for off-board blocks.
const Black ARGB = 0xFF000000

func Opaque(r, g, b uint8) ARGB {
	return 0xFF<<24 | ARGB(r)<<16 | ARGB(g)<<8 | ARGB(b)
}

func (c ARGB) A() uint8 { return uint8(c >> 24) }
func (c ARGB) R() uint8 { return uint8(c >> 16) }
func (c ARGB) G() uint8 { return uint8(c >> 8) }
func (c ARGB) B() uint8 { return uint8(c) }

func (c ARGB) RGBA() color.RGBA {
	return color.RGBA{R: c.R(), G: c.G(), B: c.B(), A: c.A()}
}

// Hex formats the color as #rrggbb, dropping alpha.
func (c ARGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R(), c.G(), c.B())
}

// Palette maps a cell height to a color through height & 3.
type Palette struct {
	Name   string
	Colors [4]ARGB
}

func (p Palette) Color(height int32) ARGB {
	return p.Colors[height&3]
}

var (
	User = Palette{
		Name:   "user",
		Colors: [4]ARGB{0xFFFFFFFF, 0xFF00FF00, 0xFF800080, 0xFFFFD700},
	}

	SciFi = Palette{
		Name:   "scifi",
		Colors: [4]ARGB{0xFF05060A, 0xFF00E5FF, 0xFFFF00FF, 0xFFB6FF00},
	}

	Warm = Palette{
		Name:   "warm",
		Colors: [4]ARGB{0xFFFFFFFF, 0xFFFFE066, 0xFFFF9F1C, 0xFFD62828},
	}

	Deep = Palette{
		Name:   "deep",
		Colors: [4]ARGB{0xFF081A33, 0xFF00B8D9, 0xFF7C4DFF, 0xFFFFAB00},
	}

	// Hsluv spaces four hues evenly around the HSLuv wheel so each height
	// class reads with the same perceived lightness.
	Hsluv = hsluvPalette("hsluv", 20, 90, 60)

	Default = User

	builtin = map[string]Palette{}
)

func init() {
	for _, p := range []Palette{User, SciFi, Warm, Deep, Hsluv} {
		builtin[p.Name] = p
	}
}

func hsluvPalette(name string, hue0, saturation, lightness float64) Palette {
	p := Palette{Name: name}
	for i := range p.Colors {
		r, g, b := hsluv.HsluvToRGB(hue0+90*float64(i), saturation, lightness)
		p.Colors[i] = Opaque(unit(r), unit(g), unit(b))
	}
	return p
}

func unit(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

func ByName(name string) (Palette, error) {
	p, ok := builtin[name]
	if !ok {
		return Palette{}, fmt.Errorf("%w: %q (available: %v)", ErrUnknownPalette, name, Names())
	}
	return p, nil
}

func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
