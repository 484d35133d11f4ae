package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/makeworld-the-better-one/dither/v2"
	"github.com/makeworld-the-better-one/stitchy/pattern"
	"github.com/urfave/cli/v2"
	"golang.org/x/image/colornames"
)

// paletteSource builds the thread palette for an already cropped image.
type paletteSource func(ctx context.Context, buf pattern.Buffer) (pattern.Palette, error)

// parsePercentArg takes a string like "0.5" or "50%" and will return a float
// like 50 or 0.5, depending on the second argument. An empty string returns 0.
//
// If `maxOne` is true, then "50%" will return 0.5. Otherwise it will return 50.
func parsePercentArg(arg string, maxOne bool) (float64, error) {
	if arg == "" {
		return 0, nil
	}
	if strings.HasSuffix(arg, "%") {
		arg = arg[:len(arg)-1]
		f64, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return 0, err
		}
		if maxOne {
			f64 /= 100.0
		}
		return f64, nil
	}
	f64, err := strconv.ParseFloat(arg, 64)
	if !maxOne {
		f64 *= 100.0
	}
	return f64, err
}

// globalFlag returns the value of flag at the top level of the command.
// For example, with the command:
//
//	stitchy --out pattern.pdf kmeans --seed 1
//
// "out" is a global flag, and "seed" is a flag local to the kmeans subcommand.
func globalFlag(flag string, c *cli.Context) interface{} {
	ancestor := c.Lineage()[len(c.Lineage())-1]
	if len(ancestor.Args().Slice()) == 0 {
		// When the global context calls this func, the last in the lineage
		// has no args for some reason. So return the second-last instead.
		return c.Lineage()[len(c.Lineage())-2].Value(flag)
	}
	return ancestor.Value(flag)
}

// parseArgs takes arguments and splits them using the provided split characters.
func parseArgs(args []string, splitRunes string) []string {
	finalArgs := make([]string, 0)
	for _, arg := range args {
		finalArgs = append(finalArgs, strings.FieldsFunc(arg, func(c rune) bool {
			for _, c2 := range splitRunes {
				if c == c2 {
					return true
				}
			}
			return false
		})...)
	}
	return finalArgs
}

// hexToColor parses "#rrggbb", "rrggbb" or "#rgb". The short form needs the
// hash so it isn't mistaken for a gray level like "128".
func hexToColor(hex string) (color.NRGBA, error) {
	if !strings.HasPrefix(hex, "#") {
		if len(hex) != 6 {
			return color.NRGBA{}, fmt.Errorf("%s is not a hex color", hex)
		}
		hex = "#" + hex
	}
	c, err := colorful.Hex(strings.ToLower(hex))
	if err != nil {
		return color.NRGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.NRGBA{r, g, b, 255}, nil
}

func rgbToColor(s string) (color.NRGBA, error) {
	format := "%d,%d,%d"
	var r, g, b uint8
	n, err := fmt.Sscanf(s, format, &r, &g, &b)
	if err != nil {
		return color.NRGBA{}, err
	}
	if n != 3 {
		return color.NRGBA{}, fmt.Errorf("%s is not an RGB tuple", s)
	}
	return color.NRGBA{r, g, b, 255}, nil
}

func rgbaToColor(s string) (color.NRGBA, error) {
	format := "%d,%d,%d,%d"
	var r, g, b, a uint8
	n, err := fmt.Sscanf(s, format, &r, &g, &b, &a)
	if err != nil {
		return color.NRGBA{}, err
	}
	if n != 4 {
		return color.NRGBA{}, fmt.Errorf("%s is not an RGBA tuple", s)
	}
	// Parse as non-premult, as that's more user-friendly
	return color.NRGBA{r, g, b, a}, nil
}

// parseColor turns one argument into a color. Only the overlay may be
// translucent, thread colors and grid lines are always opaque.
func parseColor(name, arg string) (color.NRGBA, error) {
	// Try to parse as RGB numbers, then hex, then grayscale, then SVG colors, then fail

	if strings.Count(arg, ",") == 2 {
		rgbColor, err := rgbToColor(arg)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("%s: %s is not a valid RGB tuple. Example: 25,200,150", name, arg)
		}
		return rgbColor, nil
	}

	if name == "overlay" && strings.Count(arg, ",") == 3 {
		rgbaColor, err := rgbaToColor(arg)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("%s: %s is not a valid RGBA tuple. Example: 25,200,150,100", name, arg)
		}
		return rgbaColor, nil
	}

	hexColor, err := hexToColor(arg)
	if err == nil {
		return hexColor, nil
	}

	n, err := strconv.Atoi(arg)
	if err == nil {
		if n > 255 || n < 0 {
			return color.NRGBA{}, fmt.Errorf("%s: single numbers like %d must be in the range 0-255", name, n)
		}
		return color.NRGBA{uint8(n), uint8(n), uint8(n), 255}, nil
	}

	htmlColor, ok := colornames.Map[strings.ToLower(arg)]
	if ok {
		return color.NRGBAModel.Convert(htmlColor).(color.NRGBA), nil
	}

	return color.NRGBA{}, fmt.Errorf("%s: %s not recognized as an RGB tuple, hex code, number 0-255, or SVG color name", name, arg)
}

// parseColors turns args into a color slice. All returned colors are
// guaranteed to only be color.NRGBA.
func parseColors(name string, args []string) ([]color.Color, error) {
	colors := make([]color.Color, len(args))
	for i, arg := range args {
		c, err := parseColor(name, arg)
		if err != nil {
			return nil, err
		}
		colors[i] = c
	}
	return colors, nil
}

// getInputImage loads the input image and applies the preprocessing flags.
func getInputImage(arg string) (image.Image, error) {
	var img image.Image
	var err error

	if arg == "-" {
		img, err = imaging.Decode(os.Stdin, autoOrientation)
	} else {
		img, err = imaging.Open(arg, autoOrientation)
	}
	if err != nil {
		return nil, err
	}

	if width != 0 || height != 0 {
		// Box sampling is quick and fast, and better then others at downscaling
		// https://pkg.go.dev/github.com/disintegration/imaging#ResampleFilter
		img = imaging.Resize(img, width, height, imaging.Box)
	}

	if grayscale {
		img = imaging.Grayscale(img)
	}
	if saturation != 0 {
		img = imaging.AdjustSaturation(img, saturation)
	}
	if contrast != 0 {
		img = imaging.AdjustContrast(img, contrast)
	}
	if brightness != 0 {
		img = imaging.AdjustBrightness(img, brightness)
	}

	return img, nil
}

// sortByLuminance orders the palette from darkest to lightest, by CIE L*.
func sortByLuminance(p pattern.Palette) {
	l := make(map[pattern.RGB]float64, len(p))
	for _, c := range p {
		col, _ := colorful.MakeColor(c)
		l[c], _, _ = col.Lab()
	}
	sort.SliceStable(p, func(i, j int) bool {
		return l[p[i]] < l[p[j]]
	})
}

// ditherBuffer diffuses the error of snapping every pixel to the palette,
// so cells pick up neighboring shades instead of hard bands.
func ditherBuffer(buf pattern.Buffer, palette pattern.Palette, matrix dither.ErrorDiffusionMatrix) pattern.Buffer {
	d := dither.NewDitherer(palette.Colors())
	if d == nil {
		// Fewer than two colors, nothing to diffuse between
		return buf
	}
	d.Matrix = matrix

	src := buf.Image()
	out := d.Dither(src)
	if out == nil {
		// Dithered in place
		out = src
	}
	return pattern.FromImage(out)
}

// processImage loads, crops and quantizes the input image, then writes
// every page of the pattern.
func processImage(c *cli.Context, source paletteSource) error {
	img, err := getInputImage(inputPath)
	if err != nil {
		return fmt.Errorf("error loading '%s': %w", inputPath, err)
	}

	buf := pattern.FromImage(img)
	w, h, err := buf.Crop(cellSize)
	if err != nil {
		return fmt.Errorf("'%s': %w", inputPath, err)
	}
	if w != buf.Width || h != buf.Height {
		logger.Debug("cropped image", "from", fmt.Sprintf("%dx%d", buf.Width, buf.Height), "to", fmt.Sprintf("%dx%d", w, h))
	}
	buf = buf.SubBuffer(w, h)

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	palette, err := source(ctx, buf)
	if err != nil {
		return fmt.Errorf("error building palette: %w", err)
	}
	if len(palette) == 0 {
		return errors.New("the palette source returned no colors")
	}
	if sortOrder == "luminance" {
		sortByLuminance(palette)
	}
	logger.Info("palette", "colors", palette.Hex())

	if ditherMatrix != nil {
		buf = ditherBuffer(buf, palette, ditherMatrix)
	}

	grid, err := pattern.BuildGrid(buf, cellSize, palette, sampling)
	if err != nil {
		return err
	}
	logger.Info("grid", "cols", grid.Cols, "rows", grid.Rows, "cell", grid.Size)

	doc := newDocument(grid, palette)

	if legendPath != "" {
		if err := writeLegendFile(legendPath, doc); err != nil {
			return err
		}
	}

	return writeDocument(globalFlag("out", c).(string), doc)
}
