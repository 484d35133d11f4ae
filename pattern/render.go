package pattern

import (
	"image"
	"image/color"
	"image/draw"
)

// Render paints every cell of g with its palette color. The result covers
// the cropped area only.
func Render(g *Grid, palette Palette) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.Width(), g.Height()))
	for _, c := range g.Cells {
		fill := image.NewUniform(palette[c.Index].NRGBA())
		draw.Draw(img, image.Rect(c.X, c.Y, c.X+g.Size, c.Y+g.Size), fill, image.Point{}, draw.Src)
	}
	return img
}

// Classify returns the lowest palette index whose color equals c exactly.
// There is no tolerance: it is meant for images produced by Render, where
// every pixel already is a palette color.
func Classify(c color.Color, palette Palette) (int, bool) {
	return palette.Index(FromColor(c))
}

// Highlight returns a copy of rendered where pixels equal to palette[i]
// keep their color and every other pixel is replaced by overlay.
//
// rendered must come from Render with the same palette. Grid lines should
// be drawn afterwards, since their pixels would otherwise be matched like
// any other.
func Highlight(rendered *image.NRGBA, palette Palette, i int, overlay color.Color) *image.NRGBA {
	target := palette[i]
	o := color.NRGBAModel.Convert(overlay).(color.NRGBA)

	b := rendered.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			src := rendered.PixOffset(x, y)
			dst := out.PixOffset(x, y)
			px := RGB{rendered.Pix[src], rendered.Pix[src+1], rendered.Pix[src+2]}
			if px == target {
				out.Pix[dst] = px.R
				out.Pix[dst+1] = px.G
				out.Pix[dst+2] = px.B
				out.Pix[dst+3] = 255
			} else {
				out.Pix[dst] = o.R
				out.Pix[dst+1] = o.G
				out.Pix[dst+2] = o.B
				out.Pix[dst+3] = o.A
			}
		}
	}
	return out
}

// DrawGrid draws 1px lines of color c along every cell boundary of img,
// including the outer right and bottom edges.
func DrawGrid(img draw.Image, size int, c color.Color) {
	b := img.Bounds()
	if size <= 0 {
		return
	}
	for x := b.Min.X; x <= b.Max.X; x += size {
		// The closing line sits on the last pixel column
		lx := min(x, b.Max.X-1)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			img.Set(lx, y, c)
		}
	}
	for y := b.Min.Y; y <= b.Max.Y; y += size {
		ly := min(y, b.Max.Y-1)
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, ly, c)
		}
	}
}
