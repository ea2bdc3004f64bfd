/*
Package fbin is a library for converting still images and video into the fbin
stream used by calculator-class color displays.

Each image or video frame becomes one unit made of a 256 color 15-bit palette
followed by an 8-bit index plane, see the format package for the layout. Still
images are converted one at a time in filename order. Video is first exploded
into numbered frames by ffmpeg and the frames are then quantized in parallel,
in batches sized to fit in memory, and written back in frame order.
*/
package fbin

import (
	"fmt"
	"io"
	"log"

	"github.com/bodgit/fbin/quant"
)

// Summary counts the units written and the units skipped because of an
// error.
type Summary struct {
	Processed int
	Errors    int
	// Failures holds the error of every skipped unit, in order
	Failures []error
}

func (s *Summary) fail(err error) {
	s.Errors++
	s.Failures = append(s.Failures, err)
}

// InputError is a failure affecting a single image or frame. The unit is
// skipped and the conversion carries on.
type InputError struct {
	Name string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *InputError) Unwrap() error {
	return e.Err
}

// ProgressFunc is called with the number of units finished so far.
type ProgressFunc func(done, total int)

// Converter converts images and video to fbin streams.
type Converter struct {
	opts      Options
	cache     *Cache
	logger    *log.Logger
	extractor *Extractor

	// Progress, if set, is called periodically from the goroutine running
	// the conversion.
	Progress ProgressFunc
}

// New returns a Converter after validating opts. cache and logger may be nil.
func New(opts Options, cache *Cache, logger *log.Logger) (*Converter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Converter{
		opts:   opts,
		cache:  cache,
		logger: logger,
		extractor: &Extractor{
			Command: opts.FFmpeg,
			Logger:  logger,
		},
	}, nil
}

func (c *Converter) progress(done, total int) {
	if c.Progress != nil {
		c.Progress(done, total)
	}
}

// quantizer returns the quantizer used for video frames.
func (c *Converter) quantizer() quant.Quantizer {
	if c.opts.Engine == EngineCustom {
		return quant.Engine{Mode: c.opts.Dither}
	}
	q := quant.NewMedianCut(c.opts.DitherLevel)
	q.MaxColors = c.opts.MaxColors
	q.QualityMin, q.QualityMax = c.opts.QualityMin, c.opts.QualityMax
	return q
}
