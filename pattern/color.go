package pattern

import (
	"fmt"
	"image/color"
	"math"
)

// RGB is an opaque 8-bit color. It is used for pixels, cluster samples and
// palette entries alike.
type RGB struct {
	R, G, B uint8
}

// RGBA implements color.Color. Alpha is always fully opaque.
func (c RGB) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	return r, g, b, 0xffff
}

// Hex returns the color like "#1a2b3c".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// NRGBA returns the color as an opaque color.NRGBA.
func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{c.R, c.G, c.B, 255}
}

// FromColor converts any color.Color to RGB. Alpha is dropped without
// un-premultiplying, so only opaque colors convert losslessly.
func FromColor(c color.Color) RGB {
	if rgb, ok := c.(RGB); ok {
		return rgb
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{n.R, n.G, n.B}
}

// sqDist is the squared Euclidean distance between two colors. The square
// root is never needed since only comparisons are made.
func sqDist(a, b RGB) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}

// Palette is an ordered set of colors. The index of an entry identifies it;
// two entries may hold the same color.
type Palette []RGB

// PaletteFromColors converts a color.Color slice into a Palette.
func PaletteFromColors(colors []color.Color) Palette {
	p := make(Palette, len(colors))
	for i, c := range colors {
		p[i] = FromColor(c)
	}
	return p
}

// Colors returns the palette as a color.Color slice, for use with the
// image and dither packages.
func (p Palette) Colors() []color.Color {
	colors := make([]color.Color, len(p))
	for i, c := range p {
		colors[i] = c.NRGBA()
	}
	return colors
}

// Nearest returns the index of the entry with the smallest squared distance
// to c. On ties the lowest index wins. It returns -1 for an empty palette.
func (p Palette) Nearest(c RGB) int {
	best := -1
	bestDist := math.MaxInt
	for i, pc := range p {
		if d := sqDist(c, pc); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// Index returns the lowest index whose color is exactly c.
func (p Palette) Index(c RGB) (int, bool) {
	for i, pc := range p {
		if pc == c {
			return i, true
		}
	}
	return -1, false
}

// Hex returns the hex codes of all entries, in order.
func (p Palette) Hex() []string {
	hex := make([]string, len(p))
	for i, c := range p {
		hex[i] = c.Hex()
	}
	return hex
}
