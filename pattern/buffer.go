package pattern

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Buffer is a decoded image as a flat, row-major RGBA byte slice with
// 4 bytes per pixel and no padding between rows.
type Buffer struct {
	Pix    []uint8
	Width  int
	Height int
}

// FromImage copies any image into a Buffer. The bounds are shifted so the
// buffer always starts at (0, 0).
func FromImage(img image.Image) Buffer {
	n := imaging.Clone(img)
	b := n.Bounds()
	return Buffer{
		Pix:    n.Pix,
		Width:  b.Dx(),
		Height: b.Dy(),
	}
}

// validate checks that the buffer is non-empty and agrees with its
// dimensions.
func (b Buffer) validate() error {
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrInvalidParameter, b.Width, b.Height)
	}
	if len(b.Pix) == 0 || b.Width == 0 || b.Height == 0 {
		return ErrEmptyInput
	}
	if len(b.Pix) != b.Width*b.Height*4 {
		return fmt.Errorf("%w: buffer holds %d bytes, %dx%d needs %d",
			ErrInvalidParameter, len(b.Pix), b.Width, b.Height, b.Width*b.Height*4)
	}
	return nil
}

// At returns the pixel at (x, y), ignoring alpha.
func (b Buffer) At(x, y int) RGB {
	i := (y*b.Width + x) * 4
	return RGB{b.Pix[i], b.Pix[i+1], b.Pix[i+2]}
}

// Crop returns the largest width and height that are exact multiples of
// size and fit inside the buffer. The remainder strips on the right and
// bottom are dropped.
func (b Buffer) Crop(size int) (width, height int, err error) {
	if size <= 0 {
		return 0, 0, fmt.Errorf("%w: cell size must be positive, got %d", ErrInvalidParameter, size)
	}
	if b.Width < size || b.Height < size {
		return 0, 0, fmt.Errorf("%w: image %dx%d is smaller than one %dpx cell",
			ErrInvalidParameter, b.Width, b.Height, size)
	}
	return (b.Width / size) * size, (b.Height / size) * size, nil
}

// SubBuffer returns a copy of the top-left width×height region.
func (b Buffer) SubBuffer(width, height int) Buffer {
	if width == b.Width && height == b.Height {
		return b
	}
	pix := make([]uint8, width*height*4)
	for y := 0; y < height; y++ {
		copy(pix[y*width*4:(y+1)*width*4], b.Pix[y*b.Width*4:y*b.Width*4+width*4])
	}
	return Buffer{Pix: pix, Width: width, Height: height}
}

// Image wraps the buffer as an *image.NRGBA without copying.
func (b Buffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}
