package pattern

import (
	"image"
	"image/color"
	"math/rand"
	"testing"
)

func renderedFixture(t *testing.T) (*Grid, Palette, *image.NRGBA) {
	t.Helper()
	rng := rand.New(rand.NewSource(4))
	// Noisy colors close to the palette, so near-boundary pixels exist
	palette := Palette{{20, 20, 20}, {120, 130, 140}, {121, 130, 140}, {250, 10, 10}}
	buf := newBuffer(37, 26, func(x, y int) RGB {
		base := palette[(x/5+y/5)%len(palette)]
		return RGB{base.R + uint8(rng.Intn(3)), base.G, base.B}
	})

	g, err := BuildGrid(buf, 5, palette, SampleCorner)
	if err != nil {
		t.Fatalf("BuildGrid() error = %v", err)
	}
	return g, palette, Render(g, palette)
}

func TestRenderFillsCells(t *testing.T) {
	g, palette, img := renderedFixture(t)

	if b := img.Bounds(); b.Dx() != 35 || b.Dy() != 25 {
		t.Fatalf("rendered size = %dx%d, want 35x25", b.Dx(), b.Dy())
	}

	for _, c := range g.Cells {
		want := palette[c.Index]
		for y := c.Y; y < c.Y+g.Size; y++ {
			for x := c.X; x < c.X+g.Size; x++ {
				i, ok := Classify(img.At(x, y), palette)
				if !ok {
					t.Fatalf("pixel (%d, %d) = %v is not a palette color", x, y, img.At(x, y))
				}
				if palette[i] != want {
					t.Fatalf("pixel (%d, %d) classified as %v, want %v", x, y, palette[i], want)
				}
			}
		}
	}
}

func TestClassifyIsExact(t *testing.T) {
	palette := Palette{{10, 10, 10}, {200, 200, 200}, {10, 10, 10}}

	tests := []struct {
		name   string
		c      color.Color
		want   int
		wantOK bool
	}{
		{"exact first", color.NRGBA{10, 10, 10, 255}, 0, true},
		{"exact second", RGB{200, 200, 200}, 1, true},
		{"off by one", color.NRGBA{11, 10, 10, 255}, -1, false},
		{"not in palette", color.White, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.c, palette)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Classify(%v) = %d, %v; want %d, %v", tt.c, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestHighlight(t *testing.T) {
	g, palette, img := renderedFixture(t)
	overlay := color.NRGBA{179, 179, 179, 255}

	for i := range palette {
		h := Highlight(img, palette, i, overlay)
		if !h.Bounds().Eq(img.Bounds()) {
			t.Fatalf("highlight bounds %v, want %v", h.Bounds(), img.Bounds())
		}
		for _, c := range g.Cells {
			got := h.NRGBAAt(c.X+1, c.Y+1)
			if palette[c.Index] == palette[i] {
				if got != palette[i].NRGBA() {
					t.Errorf("page %d: cell (%d, %d) = %v, want highlighted %v", i, c.X, c.Y, got, palette[i])
				}
			} else if got != overlay {
				t.Errorf("page %d: cell (%d, %d) = %v, want overlay", i, c.X, c.Y, got)
			}
		}
	}
}

func TestDrawGrid(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 6))
	line := color.NRGBA{255, 255, 255, 255}
	DrawGrid(img, 5, line)

	tests := []struct {
		x, y int
		want bool
	}{
		{0, 3, true},  // left edge
		{5, 3, true},  // inner vertical
		{9, 3, true},  // right edge
		{3, 0, true},  // top edge
		{3, 5, true},  // inner horizontal, also bottom edge
		{3, 3, false}, // inside a cell
		{7, 2, false},
	}
	for _, tt := range tests {
		got := img.NRGBAAt(tt.x, tt.y) == line
		if got != tt.want {
			t.Errorf("pixel (%d, %d) on line = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestBufferFromImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(3, 4, 6, 6))
	src.Set(3, 4, color.RGBA{10, 20, 30, 255})
	src.Set(5, 5, color.RGBA{40, 50, 60, 255})

	buf := FromImage(src)
	if buf.Width != 3 || buf.Height != 2 {
		t.Fatalf("buffer size = %dx%d, want 3x2", buf.Width, buf.Height)
	}
	if got := buf.At(0, 0); got != (RGB{10, 20, 30}) {
		t.Errorf("At(0, 0) = %v", got)
	}
	if got := buf.At(2, 1); got != (RGB{40, 50, 60}) {
		t.Errorf("At(2, 1) = %v", got)
	}

	sub := buf.SubBuffer(2, 1)
	if sub.Width != 2 || sub.Height != 1 || len(sub.Pix) != 8 {
		t.Errorf("SubBuffer(2, 1) = %dx%d with %d bytes", sub.Width, sub.Height, len(sub.Pix))
	}
	if got := sub.At(0, 0); got != (RGB{10, 20, 30}) {
		t.Errorf("SubBuffer At(0, 0) = %v", got)
	}
}
