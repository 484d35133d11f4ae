package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Set by compiler, see Makefile
var (
	version = "v0.3.0"
	commit  = "unknown"
	builtBy = "unknown"
)

func main() {

	app := &cli.App{
		Name:                   "stitchy",
		Usage:                  "turn images into cross-stitch patterns with one page per thread color.",
		Description:            "stitchy reduces an image to a few colors, snaps it to a grid of stitches,\nand writes an overview page plus one highlight page per color.",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "in",
				Aliases:  []string{"i"},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "pdf",
			},
			&cli.UintFlag{
				Name:    "size",
				Aliases: []string{"s"},
				Value:   10,
				Usage:   "side of one grid cell, in pixels",
			},
			&cli.UintFlag{
				Name:    "colors",
				Aliases: []string{"k"},
				Value:   8,
				Usage:   "number of palette colors",
			},
			&cli.StringFlag{
				Name:  "sample",
				Value: "corner",
				Usage: "cell color source: corner or average",
			},
			&cli.StringFlag{
				Name:  "sort",
				Value: "none",
				Usage: "palette order: none or luminance",
			},
			&cli.StringFlag{
				Name:  "dither",
				Usage: "error diffusion matrix applied before sampling cells",
			},
			&cli.StringFlag{
				Name:  "grid-color",
				Value: "white",
			},
			&cli.StringFlag{
				Name:  "overlay",
				Value: "179,179,179",
				Usage: "color of pixels that don't belong to the highlighted color",
			},
			&cli.BoolFlag{
				Name: "no-grid",
			},
			&cli.Float64Flag{
				Name:  "border",
				Value: 10,
				Usage: "PDF page border, in mm",
			},
			&cli.Float64Flag{
				Name:  "dpi",
				Value: 96,
			},
			&cli.UintFlag{
				Name:    "width",
				Aliases: []string{"x"},
			},
			&cli.UintFlag{
				Name:    "height",
				Aliases: []string{"y"},
			},
			&cli.BoolFlag{
				Name:    "grayscale",
				Aliases: []string{"g"},
			},
			&cli.StringFlag{
				Name: "saturation",
			},
			&cli.StringFlag{
				Name: "brightness",
			},
			&cli.StringFlag{
				Name: "contrast",
			},
			&cli.BoolFlag{
				Name: "no-exif-rotation",
			},
			&cli.UintFlag{
				Name:    "upscale",
				Aliases: []string{"u"},
				Value:   1,
			},
			&cli.StringFlag{
				Name:    "compression",
				Aliases: []string{"c"},
				Value:   "default",
			},
			&cli.Float64Flag{
				Name:  "fps",
				Value: 0.5,
			},
			&cli.BoolFlag{
				Name: "no-overwrite",
			},
			&cli.StringFlag{
				Name:  "legend",
				Usage: "write a JSON legend of the palette to this path",
			},
			&cli.UintFlag{
				Name:    "threads",
				Aliases: []string{"j"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
			},
			&cli.BoolFlag{
				Name:    "version",
				Aliases: []string{"v"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "kmeans",
				Usage: "k-means clustering of every pixel (default)",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:    "seed",
						Aliases: []string{"s"},
					},
					&cli.UintFlag{
						Name:    "max-iter",
						Aliases: []string{"m"},
						Value:   100,
					},
					&cli.StringFlag{
						Name:  "init",
						Value: "random",
						Usage: "centroid seeding: random or plusplus",
					},
				},
				UseShortOptionHandling: true,
				Action:                 kmeansPalette,
			},
			{
				Name:  "palettor",
				Usage: "k-means over a 200x200 thumbnail, using palettor",
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:    "max-iter",
						Aliases: []string{"m"},
						Value:   500,
					},
				},
				UseShortOptionHandling: true,
				Action:                 palettorPalette,
			},
			{
				Name:                   "dominant",
				Usage:                  "most dominant colors, using dominantcolor",
				UseShortOptionHandling: true,
				Action:                 dominantPalette,
			},
			{
				Name:                   "clusters",
				Usage:                  "k-means over normalized RGB coordinates, using muesli/kmeans",
				UseShortOptionHandling: true,
				Action:                 clustersPalette,
			},
			{
				Name:                   "fixed",
				Usage:                  "use the given thread colors instead of extracting them",
				ArgsUsage:              "COLOR...",
				UseShortOptionHandling: true,
				Action:                 fixedPalette,
			},
		},
		Before: preProcess,
		Action: func(c *cli.Context) error {
			return errors.New("no command specified")
		},
	}

	// Handle version flag
	if len(os.Args) == 2 && (os.Args[1] == "-v" || os.Args[1] == "--version") {
		fmt.Println("stitchy", version)
		fmt.Println("Commit:", commit)
		fmt.Println("Built by:", builtBy)
		return
	}

	// Hack around issue where required flags are still required even for help
	// https://github.com/urfave/cli/issues/1247
	if len(os.Args) == 3 {
		if os.Args[1] == "h" || os.Args[1] == "help" {
			// Like: stitchy help kmeans
			for _, c := range app.Commands {
				if c.Name == os.Args[2] {
					cli.HelpPrinter(os.Stdout, cli.CommandHelpTemplate, c)
					return
				}
			}
			fmt.Println("no command with that name")
			os.Exit(1)
		} else if os.Args[len(os.Args)-1] == "-h" || os.Args[len(os.Args)-1] == "--help" {
			// Like: stitchy kmeans --help
			for _, c := range app.Commands {
				if c.Name == os.Args[1] {
					cli.HelpPrinter(os.Stdout, cli.CommandHelpTemplate, c)
					return
				}
			}
			fmt.Println("no command with that name")
			os.Exit(1)
		}
	}

	err := app.Run(os.Args)
	if err != nil {
		if len(os.Args) == 1 {
			// Just ran the command with no flags
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
