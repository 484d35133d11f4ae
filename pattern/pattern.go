// Package pattern turns pixel buffers into cross-stitch patterns.
//
// A Quantizer clusters the colors of a buffer into a small Palette using
// k-means in RGB space. BuildGrid then divides the buffer into square cells
// and assigns each cell the palette entry nearest to its sample pixel.
// Render, Highlight and DrawGrid turn a Grid into images, one overview and
// one highlight per palette entry.
//
// Nothing in this package keeps state between calls, and nothing here reads
// or writes files.
package pattern

import "errors"

var (
	// ErrInvalidParameter is returned for non-positive palette or cell
	// sizes, and for images smaller than a single cell.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrEmptyInput is returned when the pixel buffer holds no pixels.
	ErrEmptyInput = errors.New("empty input")
)
