package pattern

import (
	"errors"
	"testing"
)

// newBuffer returns a width×height buffer colored by f.
func newBuffer(width, height int, f func(x, y int) RGB) Buffer {
	pix := make([]uint8, 0, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := f(x, y)
			pix = append(pix, c.R, c.G, c.B, 255)
		}
	}
	return Buffer{Pix: pix, Width: width, Height: height}
}

func solid(c RGB) func(x, y int) RGB {
	return func(int, int) RGB { return c }
}

func TestBuildGridDimensions(t *testing.T) {
	palette := Palette{{0, 0, 0}, {255, 255, 255}}
	tests := []struct {
		name          string
		width, height int
		size          int
		cols, rows    int
	}{
		{"cropped remainder", 23, 17, 10, 2, 1},
		{"exact fit", 30, 20, 10, 3, 2},
		{"one cell", 10, 10, 10, 1, 1},
		{"unit cells", 4, 3, 1, 4, 3},
		{"tall", 7, 40, 7, 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := newBuffer(tt.width, tt.height, func(x, y int) RGB {
				return RGB{uint8(x * 9), uint8(y * 5), 0}
			})
			g, err := BuildGrid(buf, tt.size, palette, SampleCorner)
			if err != nil {
				t.Fatalf("BuildGrid() error = %v", err)
			}
			if g.Cols != tt.cols || g.Rows != tt.rows {
				t.Errorf("grid is %dx%d, want %dx%d", g.Cols, g.Rows, tt.cols, tt.rows)
			}
			if len(g.Cells) != tt.cols*tt.rows {
				t.Errorf("len(Cells) = %d, want %d", len(g.Cells), tt.cols*tt.rows)
			}
			if g.Width()%tt.size != 0 || g.Height()%tt.size != 0 {
				t.Errorf("cropped size %dx%d is not a multiple of %d", g.Width(), g.Height(), tt.size)
			}
			for _, c := range g.Cells {
				if c.Index < 0 || c.Index >= len(palette) {
					t.Errorf("cell at (%d, %d) has index %d outside the palette", c.X, c.Y, c.Index)
				}
			}
		})
	}
}

func TestBuildGridInvalid(t *testing.T) {
	buf := newBuffer(23, 17, solid(RGB{1, 2, 3}))
	palette := Palette{{1, 2, 3}}

	tests := []struct {
		name    string
		buf     Buffer
		size    int
		palette Palette
		want    error
	}{
		{"zero size", buf, 0, palette, ErrInvalidParameter},
		{"negative size", buf, -4, palette, ErrInvalidParameter},
		{"narrower than a cell", buf, 20, palette, ErrInvalidParameter},
		{"larger than image", buf, 24, palette, ErrInvalidParameter},
		{"empty palette", buf, 5, nil, ErrInvalidParameter},
		{"empty buffer", Buffer{}, 5, palette, ErrEmptyInput},
		{"short buffer", Buffer{Pix: buf.Pix[:40], Width: 23, Height: 17}, 5, palette, ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := BuildGrid(tt.buf, tt.size, tt.palette, SampleCorner)
			if !errors.Is(err, tt.want) {
				t.Fatalf("BuildGrid() error = %v, want %v", err, tt.want)
			}
			if g != nil {
				t.Errorf("expected no grid, got %dx%d", g.Cols, g.Rows)
			}
		})
	}
}

func TestBuildGridSampling(t *testing.T) {
	// Each 4x4 cell has a black top-left pixel and is white elsewhere
	buf := newBuffer(8, 4, func(x, y int) RGB {
		if x%4 == 0 && y%4 == 0 {
			return RGB{0, 0, 0}
		}
		return RGB{255, 255, 255}
	})
	palette := Palette{{0, 0, 0}, {255, 255, 255}}

	corner, err := BuildGrid(buf, 4, palette, SampleCorner)
	if err != nil {
		t.Fatalf("BuildGrid() error = %v", err)
	}
	for _, c := range corner.Cells {
		if c.Index != 0 {
			t.Errorf("corner sampling: cell (%d, %d) = %d, want 0", c.X, c.Y, c.Index)
		}
	}

	avg, err := BuildGrid(buf, 4, palette, SampleAverage)
	if err != nil {
		t.Fatalf("BuildGrid() error = %v", err)
	}
	for _, c := range avg.Cells {
		if c.Index != 1 {
			t.Errorf("average sampling: cell (%d, %d) = %d, want 1", c.X, c.Y, c.Index)
		}
	}
}

func TestBuildGridCellOrder(t *testing.T) {
	buf := newBuffer(6, 4, func(x, y int) RGB {
		return RGB{uint8(x / 2 * 100), uint8(y / 2 * 100), 0}
	})
	palette := Palette{{0, 0, 0}, {100, 0, 0}, {200, 0, 0}, {0, 100, 0}, {100, 100, 0}, {200, 100, 0}}

	g, err := BuildGrid(buf, 2, palette, SampleCorner)
	if err != nil {
		t.Fatalf("BuildGrid() error = %v", err)
	}
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			c := g.At(col, row)
			if c.X != col*2 || c.Y != row*2 {
				t.Errorf("At(%d, %d) origin = (%d, %d)", col, row, c.X, c.Y)
			}
			if want := row*3 + col; c.Index != want {
				t.Errorf("At(%d, %d).Index = %d, want %d", col, row, c.Index, want)
			}
		}
	}

	counts := g.Counts(len(palette))
	for i, n := range counts {
		if n != 1 {
			t.Errorf("Counts()[%d] = %d, want 1", i, n)
		}
	}
}

func TestNearestTieBreak(t *testing.T) {
	tests := []struct {
		name    string
		palette Palette
		c       RGB
		want    int
	}{
		{"equidistant picks first", Palette{{0, 0, 0}, {2, 2, 2}}, RGB{1, 1, 1}, 0},
		{"equidistant reversed", Palette{{2, 2, 2}, {0, 0, 0}}, RGB{1, 1, 1}, 0},
		{"duplicate entries", Palette{{9, 9, 9}, {5, 5, 5}, {5, 5, 5}}, RGB{5, 5, 5}, 1},
		{"closest wins", Palette{{0, 0, 0}, {200, 10, 10}, {255, 0, 0}}, RGB{250, 0, 0}, 2},
		{"single entry", Palette{{40, 40, 40}}, RGB{255, 0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.palette.Nearest(tt.c); got != tt.want {
				t.Errorf("Nearest(%v) = %d, want %d", tt.c, got, tt.want)
			}
		})
	}

	if got := Palette(nil).Nearest(RGB{}); got != -1 {
		t.Errorf("empty palette Nearest() = %d, want -1", got)
	}
}

func TestParseSampling(t *testing.T) {
	for in, want := range map[string]Sampling{"": SampleCorner, "corner": SampleCorner, "average": SampleAverage} {
		got, err := ParseSampling(in)
		if err != nil || got != want {
			t.Errorf("ParseSampling(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseSampling("median"); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("ParseSampling(median) error = %v, want ErrInvalidParameter", err)
	}
}
