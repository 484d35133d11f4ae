package pattern

import "fmt"

// Sampling selects which color represents a cell.
type Sampling string

const (
	// SampleCorner uses the cell's top-left pixel.
	SampleCorner Sampling = "corner"

	// SampleAverage uses the rounded mean of every pixel in the cell.
	SampleAverage Sampling = "average"
)

// ParseSampling converts a flag value into a Sampling.
func ParseSampling(s string) (Sampling, error) {
	switch Sampling(s) {
	case SampleCorner, "":
		return SampleCorner, nil
	case SampleAverage:
		return SampleAverage, nil
	}
	return "", fmt.Errorf("%w: unknown sampling '%s'", ErrInvalidParameter, s)
}

// Cell is one square of the grid. X and Y are the pixel coordinates of its
// top-left corner, Index is its palette entry.
type Cell struct {
	X, Y  int
	Index int
}

// Grid is an image divided into Cols×Rows square cells of Size pixels.
type Grid struct {
	Size int
	Cols int
	Rows int

	// Cells are in row-major order.
	Cells []Cell
}

// Width is the cropped pixel width covered by the grid.
func (g *Grid) Width() int { return g.Cols * g.Size }

// Height is the cropped pixel height covered by the grid.
func (g *Grid) Height() int { return g.Rows * g.Size }

// At returns the cell in column col and row row.
func (g *Grid) At(col, row int) Cell {
	return g.Cells[row*g.Cols+col]
}

// Counts returns how many cells use each of the k palette entries.
func (g *Grid) Counts(k int) []int {
	counts := make([]int, k)
	for _, c := range g.Cells {
		if c.Index >= 0 && c.Index < k {
			counts[c.Index]++
		}
	}
	return counts
}

// BuildGrid divides buf into cells of size×size pixels and assigns each
// cell the palette entry nearest to its sample color. Pixels to the right
// of the last full column and below the last full row are ignored.
func BuildGrid(buf Buffer, size int, palette Palette, sample Sampling) (*Grid, error) {
	if err := buf.validate(); err != nil {
		return nil, err
	}
	if len(palette) == 0 {
		return nil, fmt.Errorf("%w: palette is empty", ErrInvalidParameter)
	}
	width, height, err := buf.Crop(size)
	if err != nil {
		return nil, err
	}

	g := &Grid{
		Size:  size,
		Cols:  width / size,
		Rows:  height / size,
		Cells: make([]Cell, 0, (width/size)*(height/size)),
	}
	for y := 0; y < height; y += size {
		for x := 0; x < width; x += size {
			var c RGB
			if sample == SampleAverage {
				c = buf.cellMean(x, y, size)
			} else {
				c = buf.At(x, y)
			}
			g.Cells = append(g.Cells, Cell{X: x, Y: y, Index: palette.Nearest(c)})
		}
	}
	return g, nil
}

func (b Buffer) cellMean(x0, y0, size int) RGB {
	var sum [3]int64
	for y := y0; y < y0+size; y++ {
		for x := x0; x < x0+size; x++ {
			c := b.At(x, y)
			sum[0] += int64(c.R)
			sum[1] += int64(c.G)
			sum[2] += int64(c.B)
		}
	}
	n := size * size
	return RGB{roundDiv(sum[0], n), roundDiv(sum[1], n), roundDiv(sum[2], n)}
}
