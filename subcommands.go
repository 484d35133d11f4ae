package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/hashicorp/go-hclog"
	"github.com/makeworld-the-better-one/dither/v2"
	"github.com/makeworld-the-better-one/stitchy/pattern"
	"github.com/urfave/cli/v2"
)

const (
	unsupportedFormat string = "'%s' is an unsupported format, only 'pdf', 'png' or 'gif' are accepted"
)

var (
	logger hclog.Logger = hclog.NewNullLogger()

	inputPath string
	outFormat string // "pdf", "png" or "gif"
	outIsDir  bool

	// cellSize and numColors will always be 1 or above
	cellSize  int
	numColors int

	sampling  pattern.Sampling
	sortOrder string // "none" or "luminance"

	// ditherMatrix is nil unless --dither was given
	ditherMatrix dither.ErrorDiffusionMatrix

	gridColor    color.NRGBA
	overlayColor color.NRGBA
	drawGrid     bool

	// PDF page layout
	borderMM float64
	dpi      float64

	grayscale bool

	// Range -100,100

	saturation float64
	brightness float64
	contrast   float64

	autoOrientation imaging.DecodeOption

	compLevel png.CompressionLevel

	outFileFlags int // For os.OpenFile

	width  int
	height int
	// upscale will always be 1 or above
	upscale int

	// GIF frame delay, in 100ths of a second
	frameDelay int

	legendPath string

	threads int
)

// preProcess is automatically called by the app before anything else.
// It's run in the global context.
func preProcess(c *cli.Context) error {
	level := hclog.Warn
	if c.Bool("verbose") {
		level = hclog.Debug
	}
	logger = hclog.New(&hclog.LoggerOptions{
		Name:   "stitchy",
		Output: os.Stderr,
		Level:  level,
	})

	threads = int(c.Uint("threads"))
	if threads > 0 {
		runtime.GOMAXPROCS(threads)
	}

	var err error

	saturation, err = parsePercentArg(c.String("saturation"), false)
	if err != nil {
		return fmt.Errorf("saturation: %w", err)
	}
	if saturation <= -100 {
		grayscale = true
		saturation = 0
	}
	brightness, err = parsePercentArg(c.String("brightness"), false)
	if err != nil {
		return fmt.Errorf("brightness: %w", err)
	}
	contrast, err = parsePercentArg(c.String("contrast"), false)
	if err != nil {
		return fmt.Errorf("contrast: %w", err)
	}
	if c.Bool("grayscale") {
		grayscale = true
	}

	autoOrientation = imaging.AutoOrientation(!c.Bool("no-exif-rotation"))

	inputPath = c.String("in")

	cellSize = int(c.Uint("size"))
	if cellSize == 0 {
		return errors.New("size: cells must be at least 1 pixel wide")
	}
	numColors = int(c.Uint("colors"))
	if numColors == 0 {
		return errors.New("colors: the palette needs at least one color")
	}

	sampling, err = pattern.ParseSampling(c.String("sample"))
	if err != nil {
		return fmt.Errorf("sample: %w", err)
	}

	sortOrder = c.String("sort")
	if sortOrder != "none" && sortOrder != "luminance" {
		return fmt.Errorf("sort: invalid order '%s', expected 'none' or 'luminance'", sortOrder)
	}

	ditherMatrix = nil
	if name := c.String("dither"); name != "" {
		matrix, ok := edmName[strings.ReplaceAll(strings.ToLower(name), "-", "_")]
		if !ok {
			return fmt.Errorf("dither: unknown error diffusion matrix '%s'", name)
		}
		ditherMatrix = matrix
	}

	gridColor, err = parseColor("grid-color", c.String("grid-color"))
	if err != nil {
		return err
	}
	overlayColor, err = parseColor("overlay", c.String("overlay"))
	if err != nil {
		return err
	}
	drawGrid = !c.Bool("no-grid")

	borderMM = c.Float64("border")
	if borderMM < 0 {
		return errors.New("border can't be negative")
	}
	dpi = c.Float64("dpi")
	if dpi <= 0 {
		return errors.New("dpi must be positive")
	}

	formatVal := c.String("format")
	if !validFormat(formatVal) {
		return fmt.Errorf(unsupportedFormat, formatVal)
	}

	// Figure out output format

	outVal := c.String("out")
	outIsDir = false

	if outVal == "-" {
		// Outputting to stdout, so just use whatever the flag is
		outFormat = formatVal
	} else {
		// Outputting to dir or file

		outFI, err := os.Stat(outVal)

		if err == nil && outFI.IsDir() {
			// Exists and is a directory
			// Just use what the flag is
			outFormat = formatVal
			outIsDir = true

		} else if !c.IsSet("format") {
			// Format wasn't set, so ignore the default value
			// and try to figure out format from output filename
			outFormat, err = formatFromPath(outVal)
			if err != nil {
				return err
			}
		} else {
			// Format flag was set, so ignore what the file looks like
			outFormat = formatVal
		}
	}

	// Set PNG compression type

	switch c.String("compression") {
	case "default":
		compLevel = png.DefaultCompression
	case "no":
		compLevel = png.NoCompression
	case "speed":
		compLevel = png.BestSpeed
	case "size":
		compLevel = png.BestCompression
	default:
		return fmt.Errorf("invalid compression type '%s'", c.String("compression"))
	}

	if c.Bool("no-overwrite") {
		outFileFlags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	} else {
		outFileFlags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	// Set here for convenience
	width = int(c.Uint("width"))
	height = int(c.Uint("height"))
	upscale = int(c.Uint("upscale"))
	if upscale == 0 {
		// Invalid
		upscale = 1
	}

	fps := c.Float64("fps")
	if fps <= 0 {
		return errors.New("fps must be positive")
	}
	// Round to the nearest possible frame rate supported by the GIF format
	// Lowest allowed delay is 1, or 100 FPS.
	frameDelay = int(math.Max(math.Round(100.0/fps), 1))

	legendPath = c.String("legend")

	logger.Debug("configured",
		"in", inputPath, "out", outVal, "format", outFormat,
		"size", cellSize, "colors", numColors, "sample", sampling)

	return nil
}

func kmeansPalette(c *cli.Context) error {
	initMethod, err := pattern.ParseInit(c.String("init"))
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	seed := time.Now().UnixNano()
	if c.IsSet("seed") {
		seed = c.Int64("seed")
	}
	logger.Debug("kmeans seed", "seed", seed)

	q := &pattern.Quantizer{
		Rand:          rand.New(rand.NewSource(seed)),
		Init:          initMethod,
		MaxIterations: int(c.Uint("max-iter")),
		Workers:       threads,
		Logger:        logger.Named("kmeans"),
	}

	return processImage(c, func(ctx context.Context, buf pattern.Buffer) (pattern.Palette, error) {
		res, err := q.Quantize(ctx, buf.Pix, numColors)
		if err != nil {
			return nil, err
		}
		logger.Info("quantized", "iterations", res.Iterations, "converged", res.Converged, "counts", res.Counts)
		return res.Palette, nil
	})
}

func palettorPalette(c *cli.Context) error {
	maxIter := int(c.Uint("max-iter"))
	return processImage(c, func(_ context.Context, buf pattern.Buffer) (pattern.Palette, error) {
		return extractPalettor(buf, numColors, maxIter)
	})
}

func dominantPalette(c *cli.Context) error {
	return processImage(c, func(_ context.Context, buf pattern.Buffer) (pattern.Palette, error) {
		return extractDominant(buf, numColors)
	})
}

func clustersPalette(c *cli.Context) error {
	return processImage(c, func(_ context.Context, buf pattern.Buffer) (pattern.Palette, error) {
		return extractClusters(buf, numColors)
	})
}

func fixedPalette(c *cli.Context) error {
	args := parseArgs(c.Args().Slice(), " ")
	if len(args) == 0 {
		return errors.New("fixed needs at least one color. Example: fixed black red 25,200,150 '#ffffff'")
	}

	colors, err := parseColors("fixed", args)
	if err != nil {
		return err
	}
	palette := pattern.PaletteFromColors(colors)

	return processImage(c, func(context.Context, pattern.Buffer) (pattern.Palette, error) {
		return palette, nil
	})
}

var edmName = map[string]dither.ErrorDiffusionMatrix{
	"simple2d":            dither.Simple2D,
	"floydsteinberg":      dither.FloydSteinberg,
	"falsefloydsteinberg": dither.FalseFloydSteinberg,
	"jarvisjudiceninke":   dither.JarvisJudiceNinke,
	"atkinson":            dither.Atkinson,
	"stucki":              dither.Stucki,
	"burkes":              dither.Burkes,
	"sierra":              dither.Sierra,
	"sierra3":             dither.Sierra3,
	"tworowsierra":        dither.TwoRowSierra,
	"sierralite":          dither.SierraLite,
	"sierra2_4a":          dither.Sierra2_4A,
	"stevenpigeon":        dither.StevenPigeon,
}

func validFormat(f string) bool {
	return f == "pdf" || f == "png" || f == "gif"
}

// formatFromPath guesses the output format from a file extension.
// No extension means PDF.
func formatFromPath(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return "pdf", nil
	}
	if !validFormat(ext) {
		// Unsupported extension and no format flag override
		return "", fmt.Errorf(unsupportedFormat, ext)
	}
	return ext, nil
}
