package main

import (
	"image"
	"image/color"
)

// fakeQuantizer implements draw.Quantizer. It ignores the provided image
// and just returns the provided palette each time. GIF frames of one
// pattern must all share the thread palette, whatever colors a single
// highlight page happens to use.
type fakeQuantizer struct {
	p []color.Color
}

func (fq *fakeQuantizer) Quantize(p color.Palette, m image.Image) color.Palette {
	return append(p, fq.p...)
}
