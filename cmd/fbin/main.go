package main

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/bodgit/fbin"
	"github.com/bodgit/fbin/dither"
	"github.com/bodgit/fbin/format"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func openCache(c *cli.Context) (*fbin.Cache, error) {
	if c.String("cache") == "" {
		return nil, nil
	}
	return fbin.NewCache(c.String("cache"))
}

var sizeFlag = &cli.StringFlag{
	Name:    "size",
	Aliases: []string{"s"},
	Value:   "1",
	Usage:   "unit size, 1 (320x240), 2 (160x96) or WIDTHxHEIGHT",
}

var ditherFlag = &cli.StringFlag{
	Name:    "dither",
	Aliases: []string{"d"},
	Value:   "1",
	Usage:   "dither mode, 0 (none), 1 (floyd-steinberg) or 2 (sierra-lite)",
}

// parseOptions builds and validates the options shared by every command
// that converts.
func parseOptions(c *cli.Context) (fbin.Options, error) {
	o := fbin.DefaultOptions()

	var err error
	if o.Width, o.Height, err = fbin.ParseSize(c.String("size")); err != nil {
		return o, err
	}
	if o.Dither, err = dither.ParseMode(c.String("dither")); err != nil {
		return o, err
	}
	o.Resize = c.Bool("resize")
	o.Natural = c.Bool("natural")

	if c.IsSet("scale") {
		f, err := fbin.ParseScale(c.String("scale"))
		if err != nil {
			return o, err
		}
		if err := o.Scale(f); err != nil {
			return o, err
		}
	}
	if c.IsSet("start") {
		if o.Start, err = fbin.ParseTimestamp(c.String("start")); err != nil {
			return o, err
		}
	}
	if c.IsSet("end") {
		if o.End, err = fbin.ParseTimestamp(c.String("end")); err != nil {
			return o, err
		}
	}
	if c.IsSet("quality") {
		if o.QualityMin, o.QualityMax, err = fbin.ParseQuality(c.String("quality")); err != nil {
			return o, err
		}
	}
	if c.IsSet("engine") {
		o.Engine = fbin.Engine(c.String("engine"))
	}
	if c.IsSet("colors") {
		o.MaxColors = c.Int("colors")
	}
	if c.IsSet("dither-level") {
		o.DitherLevel = float32(c.Float64("dither-level"))
	}
	if c.IsSet("fps") {
		o.FPS = c.Float64("fps")
	}
	if c.IsSet("ffmpeg") {
		o.FFmpeg = c.String("ffmpeg")
	}
	if c.IsSet("memory-fraction") {
		o.MemoryFraction = c.Float64("memory-fraction")
	}
	if c.IsSet("workers") {
		o.Workers = c.Int("workers")
	}

	return o, o.Validate()
}

func report(summary fbin.Summary) {
	for _, err := range summary.Failures {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	fmt.Fprintf(os.Stderr, "Processed %d units, %d errors\n", summary.Processed, summary.Errors)
}

// convert runs fn against a newly created output file, removing the file
// again if nothing could be written to it.
func convert(c *cli.Context, opts fbin.Options, label, output string, fn func(context.Context, *fbin.Converter, io.Writer) (fbin.Summary, error)) error {
	logger := newLogger(c)

	cache, err := openCache(c)
	if err != nil {
		return cli.Exit(errors.Wrap(err, "unable to open cache"), 1)
	}
	if cache != nil {
		defer cache.Close()
	}

	conv, err := fbin.New(opts, cache, logger)
	if err != nil {
		return cli.Exit(err, 1)
	}
	conv.Progress = newProgressBar(os.Stderr, label).update

	f, err := os.Create(output)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	summary, err := fn(ctx, conv, f)
	report(summary)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if err := f.Close(); err != nil {
		return cli.Exit(err, 1)
	}
	if summary.Processed == 0 {
		os.Remove(output)
		return cli.Exit("no units were written", 1)
	}

	return nil
}

func main() {
	app := cli.NewApp()

	app.Name = "fbin"
	app.Usage = "Convert images and video to fbin palette streams"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "cache",
			EnvVars: []string{"FBIN_CACHE"},
			Usage:   "path to conversion cache database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "images",
			Usage:       "Convert a directory of images",
			Description: "Every image in DIRECTORY is converted in filename order and written to OUTPUT.",
			ArgsUsage:   "DIRECTORY OUTPUT",
			Flags: []cli.Flag{
				sizeFlag,
				ditherFlag,
				&cli.BoolFlag{
					Name:  "resize",
					Usage: "resize images of the wrong size rather than skipping them",
				},
				&cli.BoolFlag{
					Name:  "natural",
					Usage: "sort filenames in natural order",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				opts, err := parseOptions(c)
				if err != nil {
					return cli.Exit(err, 1)
				}

				files, err := fbin.FindImages(c.Args().Get(0), opts.Natural)
				if err != nil {
					return cli.Exit(err, 1)
				}
				if len(files) == 0 {
					return cli.Exit(fmt.Sprintf("no images found in %s", c.Args().Get(0)), 1)
				}

				return convert(c, opts, "Images", c.Args().Get(1), func(ctx context.Context, conv *fbin.Converter, w io.Writer) (fbin.Summary, error) {
					return conv.ConvertImages(ctx, files, w)
				})
			},
		},
		{
			Name:        "video",
			Usage:       "Convert a video",
			Description: "Frames are extracted from INPUT with ffmpeg, quantized in parallel and written to OUTPUT in order.",
			ArgsUsage:   "INPUT OUTPUT",
			Flags: []cli.Flag{
				sizeFlag,
				ditherFlag,
				&cli.StringFlag{
					Name:  "scale",
					Usage: "scale the unit size, such as 0.5 or 50%",
				},
				&cli.StringFlag{
					Name:  "start",
					Usage: "start position as [[HH:]MM:]SS",
				},
				&cli.StringFlag{
					Name:  "end",
					Usage: "end position as [[HH:]MM:]SS",
				},
				&cli.Float64Flag{
					Name:  "fps",
					Value: 30,
					Usage: "frames extracted per second",
				},
				&cli.StringFlag{
					Name:  "quality",
					Usage: "palette quality as MAX or MIN-MAX, from 0 to 100",
				},
				&cli.IntFlag{
					Name:  "colors",
					Value: 256,
					Usage: "maximum number of palette colors",
				},
				&cli.Float64Flag{
					Name:  "dither-level",
					Value: 1,
					Usage: "dither strength from 0 to 1",
				},
				&cli.StringFlag{
					Name:  "engine",
					Value: string(fbin.EngineMedianCut),
					Usage: "quantizer, median-cut or custom",
				},
				&cli.StringFlag{
					Name:    "ffmpeg",
					EnvVars: []string{"FFMPEG"},
					Value:   "ffmpeg",
					Usage:   "path to ffmpeg",
				},
				&cli.Float64Flag{
					Name:  "memory-fraction",
					Value: 0.25,
					Usage: "fraction of system memory a batch of frames may use",
				},
				&cli.IntFlag{
					Name:  "workers",
					Usage: "frames quantized in parallel, 0 for one per CPU",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				opts, err := parseOptions(c)
				if err != nil {
					return cli.Exit(err, 1)
				}

				if _, err := os.Stat(c.Args().Get(0)); err != nil {
					return cli.Exit(err, 1)
				}

				return convert(c, opts, "Frames", c.Args().Get(1), func(ctx context.Context, conv *fbin.Converter, w io.Writer) (fbin.Summary, error) {
					return conv.ConvertVideo(ctx, c.Args().Get(0), w)
				})
			},
		},
		{
			Name:      "info",
			Usage:     "Count the units in a stream",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				sizeFlag,
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				w, h, err := fbin.ParseSize(c.String("size"))
				if err != nil {
					return cli.Exit(err, 1)
				}

				fi, err := os.Stat(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}

				n, err := format.Count(fi.Size(), w, h)
				if err != nil {
					return cli.Exit(err, 1)
				}

				fmt.Printf("%s: %d units of %dx%d, %d bytes each\n", c.Args().First(), n, w, h, format.UnitSize(w, h))

				cache, err := openCache(c)
				if err != nil {
					return cli.Exit(errors.Wrap(err, "unable to open cache"), 1)
				}
				if cache != nil {
					defer cache.Close()

					entries, err := cache.Len()
					if err != nil {
						return cli.Exit(err, 1)
					}
					fmt.Printf("%s: %d cached units\n", c.String("cache"), entries)
				}

				return nil
			},
		},
		{
			Name:      "preview",
			Usage:     "Render a unit of a stream as a PNG",
			ArgsUsage: "FILE OUTPUT",
			Flags: []cli.Flag{
				sizeFlag,
				&cli.IntFlag{
					Name:    "unit",
					Aliases: []string{"n"},
					Value:   1,
					Usage:   "unit to render, counting from 1",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				w, h, err := fbin.ParseSize(c.String("size"))
				if err != nil {
					return cli.Exit(err, 1)
				}
				if c.Int("unit") < 1 {
					return cli.Exit("unit must be at least 1", 1)
				}

				in, err := os.Open(c.Args().Get(0))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer in.Close()

				d := format.NewDecoder(in, w, h)
				var u *format.Unit
				for i := 0; i < c.Int("unit"); i++ {
					if u, err = d.Decode(); err != nil {
						if err == io.EOF {
							return cli.Exit(fmt.Sprintf("stream has only %d units", i), 1)
						}
						return cli.Exit(err, 1)
					}
				}

				out, err := os.Create(c.Args().Get(1))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer out.Close()

				if err := png.Encode(out, u.Image()); err != nil {
					return cli.Exit(err, 1)
				}

				return out.Close()
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
