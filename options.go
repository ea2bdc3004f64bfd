package fbin

import (
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/bodgit/fbin/dither"
	"github.com/bodgit/fbin/palette"
	"github.com/pkg/errors"
)

// Engine selects the quantizer used for video frames.
type Engine string

const (
	// EngineMedianCut uses quant.MedianCut
	EngineMedianCut Engine = "median-cut"
	// EngineCustom uses quant.Engine with the configured dither mode
	EngineCustom Engine = "custom"
)

// Sizes supported by the original display targets, selectable by number.
var presets = map[string][2]int{
	"1": {320, 240},
	"2": {160, 96},
}

// Options controls a conversion.
type Options struct {
	// Width and Height every unit must have
	Width, Height int
	// Dither is the mode used by the custom engine
	Dither dither.Mode
	// Resize scales still images that are the wrong size instead of
	// skipping them
	Resize bool
	// Natural sorts filenames so that "img2" comes before "img10"
	Natural bool

	// Engine, MaxColors, QualityMin, QualityMax and DitherLevel configure
	// the video path
	Engine                 Engine
	MaxColors              int
	QualityMin, QualityMax int
	DitherLevel            float32

	// Start and End limit the range of video converted, zero End means
	// until the end
	Start, End time.Duration
	// FPS is the frame rate frames are extracted at
	FPS float64
	// FFmpeg is the ffmpeg executable
	FFmpeg string

	// MemoryFraction of total system memory that a batch of frames may use
	MemoryFraction float64
	// Workers is the number of frames quantized in parallel, zero means
	// one per CPU
	Workers int
}

// DefaultOptions returns the options used when nothing is overridden.
func DefaultOptions() Options {
	return Options{
		Width:          320,
		Height:         240,
		Dither:         dither.FloydSteinberg,
		Engine:         EngineMedianCut,
		MaxColors:      palette.Size,
		QualityMax:     100,
		DitherLevel:    1,
		FPS:            30,
		FFmpeg:         "ffmpeg",
		MemoryFraction: 0.25,
	}
}

var (
	errBadSize    = errors.New("size must be 1, 2 or WIDTHxHEIGHT")
	errBadQuality = errors.New("quality must be MAX or MIN-MAX between 0 and 100")
)

// ParseSize parses either a preset number or WIDTHxHEIGHT.
func ParseSize(s string) (int, int, error) {
	s = strings.TrimSpace(s)
	if p, ok := presets[s]; ok {
		return p[0], p[1], nil
	}

	parts := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == 'x' || r == '×'
	})
	if len(parts) != 2 {
		return 0, 0, errors.Wrapf(errBadSize, "invalid size %q", s)
	}

	w, err := strconv.Atoi(parts[0])
	if err != nil || w <= 0 {
		return 0, 0, errors.Wrapf(errBadSize, "invalid width %q", parts[0])
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil || h <= 0 {
		return 0, 0, errors.Wrapf(errBadSize, "invalid height %q", parts[1])
	}

	return w, h, nil
}

// ParseScale parses a positive scale factor, either as a decimal or as a
// percentage such as "50%".
func ParseScale(s string) (float64, error) {
	s = strings.TrimSpace(s)
	div := 1.0
	if strings.HasSuffix(s, "%") {
		s, div = strings.TrimSuffix(s, "%"), 100
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("invalid scale %q", s)
	}

	return f / div, nil
}

// Scale multiplies the target size by f, rounding to the nearest pixel.
func (o *Options) Scale(f float64) error {
	w, h := int(math.Round(float64(o.Width)*f)), int(math.Round(float64(o.Height)*f))
	if w <= 0 || h <= 0 {
		return fmt.Errorf("scale %g reduces %dx%d to nothing", f, o.Width, o.Height)
	}
	o.Width, o.Height = w, h
	return nil
}

// ParseQuality parses "MAX" or "MIN-MAX".
func ParseQuality(s string) (int, int, error) {
	s = strings.TrimSpace(s)

	lo, hi := "0", s
	if i := strings.IndexByte(s, '-'); i >= 0 {
		lo, hi = s[:i], s[i+1:]
	}

	min, err := strconv.Atoi(lo)
	if err != nil {
		return 0, 0, errors.Wrapf(errBadQuality, "invalid quality %q", s)
	}
	max, err := strconv.Atoi(hi)
	if err != nil {
		return 0, 0, errors.Wrapf(errBadQuality, "invalid quality %q", s)
	}
	if min < 0 || max > 100 || min > max {
		return 0, 0, errors.Wrapf(errBadQuality, "quality %d-%d out of range", min, max)
	}

	return min, max, nil
}

// ParseTimestamp parses a position in a video as [[HH:]MM:]SS[.fff].
func ParseTimestamp(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	var seconds float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 || (i < len(parts)-1 && v != math.Trunc(v)) {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		seconds = seconds*60 + v
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

// Validate checks the options are usable before any work starts.
func (o *Options) Validate() error {
	switch {
	case o.Width <= 0 || o.Height <= 0:
		return fmt.Errorf("invalid size %dx%d", o.Width, o.Height)
	case o.Dither < dither.None || o.Dither > dither.SierraLite:
		return fmt.Errorf("invalid dither mode %d", int(o.Dither))
	case o.Engine != EngineMedianCut && o.Engine != EngineCustom:
		return fmt.Errorf("invalid engine %q", o.Engine)
	case o.MaxColors < 2 || o.MaxColors > palette.Size:
		return fmt.Errorf("max colors must be between 2 and %d", palette.Size)
	case o.QualityMin < 0 || o.QualityMax > 100 || o.QualityMin > o.QualityMax:
		return errors.Wrapf(errBadQuality, "quality %d-%d out of range", o.QualityMin, o.QualityMax)
	case o.DitherLevel < 0 || o.DitherLevel > 1 || math.IsNaN(float64(o.DitherLevel)):
		return fmt.Errorf("dither level %g must be between 0 and 1", o.DitherLevel)
	case o.Start < 0 || o.End < 0 || (o.End > 0 && o.End <= o.Start):
		return fmt.Errorf("invalid time range %v-%v", o.Start, o.End)
	case o.FPS <= 0 || math.IsInf(o.FPS, 0) || math.IsNaN(o.FPS):
		return fmt.Errorf("invalid frame rate %g", o.FPS)
	case o.MemoryFraction <= 0 || o.MemoryFraction > 1 || math.IsNaN(o.MemoryFraction):
		return fmt.Errorf("memory fraction %g must be between 0 and 1", o.MemoryFraction)
	case o.Workers < 0:
		return fmt.Errorf("invalid number of workers %d", o.Workers)
	}
	return nil
}

func (o *Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}
