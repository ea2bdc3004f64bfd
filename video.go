package fbin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bodgit/fbin/format"
	pkgerrors "github.com/pkg/errors"
)

const (
	framePrefix = "frame"
	frameExt    = ".png"
)

var (
	framePattern = regexp.MustCompile(`^` + framePrefix + `_([0-9]+)\` + frameExt + `$`)

	errNoFrames = errors.New("no frames extracted")
)

// FrameName returns the path of frame n in dir.
func FrameName(dir string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d%s", framePrefix, n, frameExt))
}

// CountFrames returns the number of frames in dir, checking that they are
// numbered from 1 with no gaps.
func CountFrames(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	var numbers []int
	for _, entry := range entries {
		m := framePattern.FindStringSubmatch(entry.Name())
		if m == nil || entry.IsDir() {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, err
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	for i, n := range numbers {
		if n != i+1 {
			return 0, fmt.Errorf("frame sequence in %s is not contiguous at frame %d", dir, i+1)
		}
	}

	return len(numbers), nil
}

// ExtractOptions controls which frames are extracted and at what size.
type ExtractOptions struct {
	Start, End    time.Duration
	Width, Height int
	FPS           float64
}

// Extractor runs ffmpeg to explode a video into numbered frames.
type Extractor struct {
	Command string
	Logger  *log.Logger
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func (e *Extractor) args(input, dir string, opts ExtractOptions) []string {
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "error"}
	if opts.Start > 0 {
		args = append(args, "-ss", seconds(opts.Start))
	}
	args = append(args, "-i", input)
	if opts.End > opts.Start {
		args = append(args, "-t", seconds(opts.End-opts.Start))
	}
	args = append(args,
		"-vf", fmt.Sprintf("fps=%s,scale=%d:%d:flags=lanczos", strconv.FormatFloat(opts.FPS, 'f', -1, 64), opts.Width, opts.Height),
		"-start_number", "1",
		filepath.Join(dir, framePrefix+"_%d"+frameExt),
	)
	return args
}

// Extract writes the frames of input to dir as frame_1.png, frame_2.png and
// so on.
func (e *Extractor) Extract(ctx context.Context, input, dir string, opts ExtractOptions) error {
	args := e.args(input, dir, opts)
	if e.Logger != nil {
		e.Logger.Printf("Running %s %s\n", e.Command, strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, e.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return pkgerrors.Wrapf(err, "%s failed: %s", filepath.Base(e.Command), msg)
		}
		return pkgerrors.Wrapf(err, "%s failed", filepath.Base(e.Command))
	}
	return nil
}

// ConvertFrames quantizes the frames already extracted to dir and writes them
// to w in frame order.
func (c *Converter) ConvertFrames(ctx context.Context, dir string, w io.Writer) (Summary, error) {
	n, err := CountFrames(dir)
	if err != nil {
		return Summary{}, err
	}
	if n == 0 {
		return Summary{}, errNoFrames
	}

	perFrame := format.UnitSize(c.opts.Width, c.opts.Height)
	p := &Pipeline{
		Workers:   c.opts.workers(),
		BatchSize: BatchSize(n, perFrame, MemoryBudget(c.opts.MemoryFraction)),
		Logger:    c.logger,
		Progress:  c.Progress,
	}
	c.logger.Printf("Converting %d frames in batches of %d using %d workers\n", n, p.BatchSize, p.Workers)

	q := c.quantizer()
	return p.Run(ctx, n, func(i int) (*format.Unit, error) {
		return c.loadUnit(FrameName(dir, i), q)
	}, w)
}

// ConvertVideo extracts the frames of input with ffmpeg into a temporary
// directory and converts them. A failure of ffmpeg is fatal.
func (c *Converter) ConvertVideo(ctx context.Context, input string, w io.Writer) (Summary, error) {
	dir, err := os.MkdirTemp("", "fbin")
	if err != nil {
		return Summary{}, err
	}
	defer os.RemoveAll(dir)

	if err := c.extractor.Extract(ctx, input, dir, ExtractOptions{
		Start:  c.opts.Start,
		End:    c.opts.End,
		Width:  c.opts.Width,
		Height: c.opts.Height,
		FPS:    c.opts.FPS,
	}); err != nil {
		return Summary{}, err
	}

	return c.ConvertFrames(ctx, dir, w)
}
