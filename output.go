package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	"github.com/makeworld-the-better-one/stitchy/pattern"
)

// page is one image of the output document.
type page struct {
	name  string // file name stem for PNG directories
	title string
	img   *image.NRGBA
}

// document is the rendered pattern: an overview followed by one highlight
// page per palette entry, in palette order.
type document struct {
	grid    *pattern.Grid
	palette pattern.Palette
	counts  []int
	pages   []page
}

// newDocument renders every page of the pattern. Highlights are computed
// from the plain render before any grid lines are drawn, so line pixels
// never get classified.
func newDocument(grid *pattern.Grid, palette pattern.Palette) *document {
	doc := &document{
		grid:    grid,
		palette: palette,
		counts:  grid.Counts(len(palette)),
		pages:   make([]page, 0, len(palette)+1),
	}

	rendered := pattern.Render(grid, palette)

	highlights := make([]page, len(palette))
	for i, c := range palette {
		highlights[i] = page{
			name: fmt.Sprintf("color_%02d", i+1),
			title: fmt.Sprintf("Color %d of %d - %s - %d cells",
				i+1, len(palette), c.Hex(), doc.counts[i]),
			img: finishPage(pattern.Highlight(rendered, palette, i, overlayColor), grid.Size),
		}
	}

	doc.pages = append(doc.pages, page{
		name:  "overview",
		title: fmt.Sprintf("Overview - %dx%d cells - %d colors", grid.Cols, grid.Rows, len(palette)),
		img:   finishPage(rendered, grid.Size),
	})
	doc.pages = append(doc.pages, highlights...)
	return doc
}

// finishPage upscales a page and draws the grid lines on top.
func finishPage(img *image.NRGBA, size int) *image.NRGBA {
	if upscale > 1 {
		img = imaging.Resize(img, img.Bounds().Dx()*upscale, 0, imaging.NearestNeighbor)
	}
	if drawGrid {
		pattern.DrawGrid(img, size*upscale, gridColor)
	}
	return img
}

// openOutput opens path for writing, or returns stdout for "-".
func openOutput(path string) (io.WriteCloser, string, error) {
	if path == "-" {
		return os.Stdout, "stdout", nil
	}
	file, err := os.OpenFile(path, outFileFlags, 0644)
	if err != nil {
		return nil, path, fmt.Errorf("'%s': %w", path, err)
	}
	return file, path, nil
}

// writeDocument writes doc to outPath in the configured format.
func writeDocument(outPath string, doc *document) error {
	if outFormat == "png" && outIsDir {
		for _, p := range doc.pages {
			if err := writeFile(filepath.Join(outPath, p.name+".png"), p, writePNG); err != nil {
				return err
			}
		}
		return nil
	}

	if outIsDir {
		// PDF and GIF hold every page in one file
		outPath = filepath.Join(outPath, "pattern."+outFormat)
	}

	switch outFormat {
	case "pdf":
		return writeFile(outPath, doc, writePDF)
	case "gif":
		return writeFile(outPath, doc, writeGIF)
	case "png":
		// Without a directory there is only room for the overview
		return writeFile(outPath, doc.pages[0], writePNG)
	}
	return fmt.Errorf(unsupportedFormat, outFormat)
}

func writeFile[T any](path string, v T, write func(io.Writer, T) error) error {
	file, path, err := openOutput(path)
	if err != nil {
		return err
	}
	if err := write(file, v); err != nil {
		defer file.Close() // Keep (possibly stdout) open to write error messages then close
		return fmt.Errorf("error writing '%s': %w", path, err)
	}
	logger.Debug("wrote output", "path", path)
	return file.Close()
}

func writePNG(w io.Writer, p page) error {
	return (&png.Encoder{CompressionLevel: compLevel}).Encode(w, p.img)
}

// pxToMM converts a pixel length to millimeters at the configured DPI.
func pxToMM(px int) float64 {
	return float64(px) * 25.4 / dpi
}

// writePDF writes one PDF page per document page. Every page is sized to
// its image plus the border on each side, with the title in the top border.
func writePDF(w io.Writer, doc *document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("stitchy "+version, false)

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	for i, p := range doc.pages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, p.img); err != nil {
			return err
		}

		wMM := pxToMM(p.img.Bounds().Dx())
		hMM := pxToMM(p.img.Bounds().Dy())
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: wMM + 2*borderMM, Ht: hMM + 2*borderMM})

		name := fmt.Sprintf("page%d", i)
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		pdf.ImageOptions(name, borderMM, borderMM, wMM, hMM, false, opts, 0, "")

		if borderMM >= 4 {
			pdf.SetFont("Helvetica", "", 8)
			pdf.SetTextColor(0, 0, 0)
			pdf.Text(borderMM, borderMM*0.6, p.title)
		}
	}
	return pdf.Output(w)
}

// writeGIF writes every page as a frame of one GIF. The GIF palette is the
// pattern palette plus the overlay and grid colors.
func writeGIF(w io.Writer, doc *document) error {
	pal := append(doc.palette.Colors(), overlayColor, gridColor)
	if len(pal) > 256 {
		return errors.New("the GIF format only supports 254 colors or less in the palette")
	}
	q := &fakeQuantizer{pal}

	anim := gif.GIF{
		Image: make([]*image.Paletted, len(doc.pages)),
		Delay: make([]int, len(doc.pages)),
	}
	for i, p := range doc.pages {
		anim.Image[i] = palettedPage(p.img, q)
		anim.Delay[i] = frameDelay
	}
	return gif.EncodeAll(w, &anim)
}

// palettedPage converts a page using the palette chosen by q. Page pixels
// are all palette, overlay or grid colors, so the conversion is exact.
func palettedPage(img image.Image, q draw.Quantizer) *image.Paletted {
	pal := q.Quantize(make(color.Palette, 0, 256), img)
	frame := image.NewPaletted(img.Bounds(), pal)
	draw.Draw(frame, frame.Bounds(), img, img.Bounds().Min, draw.Src)
	return frame
}

type legendColor struct {
	Index int      `json:"index"`
	Hex   string   `json:"hex"`
	RGB   [3]uint8 `json:"rgb"`
	Cells int      `json:"cells"`
}

type legend struct {
	Size   int           `json:"size"`
	Cols   int           `json:"cols"`
	Rows   int           `json:"rows"`
	Colors []legendColor `json:"colors"`
}

func newLegend(doc *document) legend {
	l := legend{
		Size:   doc.grid.Size,
		Cols:   doc.grid.Cols,
		Rows:   doc.grid.Rows,
		Colors: make([]legendColor, len(doc.palette)),
	}
	for i, c := range doc.palette {
		l.Colors[i] = legendColor{
			Index: i + 1,
			Hex:   c.Hex(),
			RGB:   [3]uint8{c.R, c.G, c.B},
			Cells: doc.counts[i],
		}
	}
	return l
}

func writeLegend(w io.Writer, doc *document) error {
	data, err := json.MarshalIndent(newLegend(doc), "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func writeLegendFile(path string, doc *document) error {
	return writeFile(path, doc, writeLegend)
}
