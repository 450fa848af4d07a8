package main

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bodgit/vid"
	"github.com/bodgit/vid/container"
	vidimage "github.com/bodgit/vid/image"
	"github.com/bodgit/vid/rle"
	"github.com/bodgit/vid/source"
	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v2"
)

const (
	defaultDB  = "vidconv.db"
	defaultFPS = 24
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(ioutil.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

var imageExtensions = map[string]struct{}{
	".png":  {},
	".gif":  {},
	".jpg":  {},
	".jpeg": {},
}

func isImages(paths []string) bool {
	for _, p := range paths {
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(p))]; !ok {
			return false
		}
	}
	return true
}

type frameSource interface {
	vid.FrameSource
	Metadata() vid.Metadata
	Close() error
}

func openSource(inputs []string, fps float64, opts source.Options) (frameSource, error) {
	if isImages(inputs) {
		return source.OpenImages(inputs, fps, opts)
	}
	if len(inputs) > 1 {
		return nil, fmt.Errorf("expected a single video or a list of images, got %d files", len(inputs))
	}
	return source.OpenVideo(inputs[0], opts)
}

func convert(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	logger := newLogger(c)

	args := c.Args().Slice()
	inputs, output := args[:len(args)-1], args[len(args)-1]

	output, err := filepath.Abs(output)
	if err != nil {
		return err
	}

	db, err := vid.NewCatalogDB(c.String("db"))
	if err != nil {
		return err
	}
	defer db.Close()

	sum, err := vid.Checksum(inputs...)
	if err != nil {
		return err
	}

	opts := source.Options{
		Width:  c.Int("width"),
		Colors: c.Int("colors"),
	}

	src, err := openSource(inputs, c.Float64("fps"), opts)
	if err != nil {
		return err
	}
	defer src.Close()

	meta := src.Metadata()

	if !c.Bool("force") {
		previous, err := db.Find(sum, opts.Width, opts.Colors, int(meta.Rate()))
		if err != nil {
			return err
		}
		if previous != nil && previous.Output == output {
			if _, err := os.Stat(output); err == nil {
				logger.Println("Output is up to date, skipping")
				return nil
			}
		}
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := vid.New(logger).Convert(ctx, src, meta, f, vid.Options{
		Workers: c.Int("workers"),
		Strict:  c.Bool("strict"),
	})
	if err != nil {
		// The container is incomplete
		f.Close()
		os.Remove(output)
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%s: %d frames, %dx%d, %d bytes (%.1f%% reduction)\n", filepath.Base(output), result.Frames, meta.Width, meta.Height, result.Size, result.Reduction())

	return db.Record(vid.Conversion{
		SHA1:            sum,
		Width:           opts.Width,
		Colors:          opts.Colors,
		Output:          output,
		Frames:          result.Frames,
		Height:          meta.Height,
		FPS:             int(result.Header.FPS),
		RawBytes:        result.RawBytes,
		CompressedBytes: result.CompressedBytes,
	})
}

func openContainer(file string) (*container.Reader, io.Closer, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	cr, err := container.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	return cr, f, nil
}

type frameRow struct {
	Frame    int    `csv:"frame"`
	Offset   uint32 `csv:"offset"`
	Size     uint32 `csv:"size"`
	Runs     int    `csv:"runs"`
	Literals int    `csv:"literals"`
	Pixels   int    `csv:"pixels"`
}

func frameRows(cr *container.Reader) ([]*frameRow, error) {
	rows := make([]*frameRow, 0, cr.Len())
	for i := 0; i < cr.Len(); i++ {
		e, err := cr.Entry(i)
		if err != nil {
			return nil, err
		}

		data, err := cr.FrameData(i)
		if err != nil {
			return nil, err
		}

		stats, err := rle.Analyze(data)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}

		rows = append(rows, &frameRow{
			Frame:    i,
			Offset:   e.Offset,
			Size:     e.Size,
			Runs:     stats.Runs,
			Literals: stats.Literals,
			Pixels:   stats.Pixels(),
		})
	}
	return rows, nil
}

func inspect(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	cr, closer, err := openContainer(c.Args().First())
	if err != nil {
		return err
	}
	defer closer.Close()

	if c.Bool("verify") {
		if err := cr.Verify(); err != nil {
			return err
		}
	}

	rows, err := frameRows(cr)
	if err != nil {
		return err
	}

	if c.Bool("csv") {
		return gocsv.Marshal(rows, c.App.Writer)
	}

	h := cr.Header()
	fmt.Fprintf(c.App.Writer, "%d frames, %dx%d, %d fps\n", h.FrameCount, h.Width, h.Height, h.FPS)
	for _, r := range rows {
		fmt.Fprintf(c.App.Writer, "%6d  offset %-10d size %-8d runs %-6d literals %d\n", r.Frame, r.Offset, r.Size, r.Runs, r.Literals)
	}

	return nil
}

func extract(c *cli.Context) error {
	if c.NArg() < 3 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	frame, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return err
	}

	cr, closer, err := openContainer(c.Args().First())
	if err != nil {
		return err
	}
	defer closer.Close()

	m, err := vidimage.Frame(cr, frame)
	if err != nil {
		return err
	}

	f, err := os.Create(c.Args().Get(2))
	if err != nil {
		return err
	}
	defer f.Close()

	if err := png.Encode(f, m); err != nil {
		return err
	}

	return f.Close()
}

func history(c *cli.Context) error {
	db, err := vid.NewCatalogDB(c.String("db"))
	if err != nil {
		return err
	}
	defer db.Close()

	conversions, err := db.List()
	if err != nil {
		return err
	}

	if c.Bool("csv") {
		return gocsv.Marshal(conversions, c.App.Writer)
	}

	for _, cv := range conversions {
		fmt.Fprintf(c.App.Writer, "%s  %s  %dx%d  %d frames  %d bytes\n", cv.Created.Format("2006-01-02 15:04:05"), cv.Output, cv.Width, cv.Height, cv.Frames, cv.CompressedBytes)
	}

	return nil
}

func newApp(cwd string) *cli.App {
	app := cli.NewApp()

	app.Name = "vidconv"
	app.Usage = "VID0 video conversion utility"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"VIDCONV_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to conversion database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "convert",
			Usage:       "Convert a video or a sequence of images",
			Description: "",
			ArgsUsage:   "INPUT... OUTPUT",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "width",
					Value: source.DefaultWidth,
					Usage: "scale frames to this width, 0 keeps the source width",
				},
				&cli.IntFlag{
					Name:  "colors",
					Usage: "reduce each frame to this many colors",
				},
				&cli.Float64Flag{
					Name:  "fps",
					Value: defaultFPS,
					Usage: "frame rate when converting images",
				},
				&cli.IntFlag{
					Name:  "workers",
					Usage: "number of frames to encode concurrently",
				},
				&cli.BoolFlag{
					Name:  "strict",
					Usage: "fail if the source has fewer frames than declared",
				},
				&cli.BoolFlag{
					Name:  "force",
					Usage: "convert even if the output is up to date",
				},
			},
			Action: func(c *cli.Context) error {
				if err := convert(c); err != nil {
					return cli.Exit(err, 1)
				}
				return nil
			},
		},
		{
			Name:        "inspect",
			Usage:       "Show the header and frame index of a container",
			Description: "",
			ArgsUsage:   "FILE",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "csv",
					Usage: "print the frame index as CSV",
				},
				&cli.BoolFlag{
					Name:  "verify",
					Usage: "decode every frame",
				},
			},
			Action: func(c *cli.Context) error {
				if err := inspect(c); err != nil {
					return cli.Exit(err, 1)
				}
				return nil
			},
		},
		{
			Name:        "extract",
			Usage:       "Extract a single frame as a PNG image",
			Description: "",
			ArgsUsage:   "FILE FRAME OUTPUT",
			Action: func(c *cli.Context) error {
				if err := extract(c); err != nil {
					return cli.Exit(err, 1)
				}
				return nil
			},
		},
		{
			Name:        "history",
			Usage:       "List previous conversions",
			Description: "",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "csv",
					Usage: "print as CSV",
				},
			},
			Action: func(c *cli.Context) error {
				if err := history(c); err != nil {
					return cli.Exit(err, 1)
				}
				return nil
			},
		},
	}

	return app
}

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	if err := newApp(cwd).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
