package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cenkalti/dominantcolor"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/makeworld-the-better-one/stitchy/pattern"
	"github.com/mccutchen/palettor"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// thumbnailSize bounds the images handed to the third-party clusterers,
// which are much slower than pattern.Quantizer on full-size input.
const thumbnailSize = 200

// extractPalettor extracts a palette using palettor, heaviest colors first.
func extractPalettor(buf pattern.Buffer, k, maxIterations int) (pattern.Palette, error) {
	// Resize: keep palettor.Extract fast. See the palettor CLI source:
	// https://github.com/mccutchen/palettor/blob/3eaed180/cmd/palettor/palettor.go#L57
	thumbnail := imaging.Resize(buf.Image(), thumbnailSize, thumbnailSize, imaging.NearestNeighbor)

	p, err := palettor.Extract(k, maxIterations, thumbnail)
	if err != nil {
		return nil, fmt.Errorf("palettor: %w", err)
	}

	colors := p.Colors()
	sort.SliceStable(colors, func(i, j int) bool {
		return p.Weight(colors[i]) > p.Weight(colors[j])
	})
	logger.Debug("palettor palette", "colors", len(colors))
	return pattern.PaletteFromColors(colors), nil
}

// extractDominant picks the k most dominant colors. It may return fewer
// than k colors for images with little variety.
func extractDominant(buf pattern.Buffer, k int) (pattern.Palette, error) {
	found := dominantcolor.FindWeight(buf.Image(), k)
	if len(found) == 0 {
		return nil, errors.New("dominantcolor: no colors found")
	}

	palette := make(pattern.Palette, 0, len(found))
	for _, c := range found {
		palette = append(palette, pattern.FromColor(c.RGBA))
	}
	if len(palette) < k {
		logger.Warn("dominantcolor found fewer colors than requested", "found", len(palette), "requested", k)
	}
	return palette, nil
}

// extractClusters partitions normalized RGB coordinates with muesli/kmeans
// and returns the cluster centers, most populated first.
func extractClusters(buf pattern.Buffer, k int) (pattern.Palette, error) {
	thumbnail := imaging.Fit(buf.Image(), thumbnailSize, thumbnailSize, imaging.Box)
	b := thumbnail.Bounds()

	dataset := make(clusters.Observations, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := thumbnail.NRGBAAt(x, y)
			dataset = append(dataset, clusters.Coordinates{
				float64(c.R) / 255.0,
				float64(c.G) / 255.0,
				float64(c.B) / 255.0,
			})
		}
	}
	if len(dataset) < k {
		return nil, fmt.Errorf("clusters: %d pixels can't form %d clusters", len(dataset), k)
	}

	km := kmeans.New()
	cc, err := km.Partition(dataset, k)
	if err != nil {
		return nil, fmt.Errorf("clusters: %w", err)
	}

	// Sort by cluster population so dominant colors come first.
	sort.SliceStable(cc, func(i, j int) bool {
		return len(cc[i].Observations) > len(cc[j].Observations)
	})

	palette := make(pattern.Palette, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 {
			continue
		}
		col := colorful.Color{R: c.Center[0], G: c.Center[1], B: c.Center[2]}.Clamped()
		r, g, b := col.RGB255()
		palette = append(palette, pattern.RGB{R: r, G: g, B: b})
	}
	return palette, nil
}
