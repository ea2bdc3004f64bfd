package fbin

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/bodgit/fbin/format"
	"github.com/pbnjay/memory"
	pkgerrors "github.com/pkg/errors"
)

const (
	minBatchSize     = 10
	progressInterval = 25
)

// MemoryBudget returns the given fraction of total system memory, or zero
// if it cannot be determined.
func MemoryBudget(fraction float64) uint64 {
	return uint64(float64(memory.TotalMemory()) * fraction)
}

// BatchSize returns how many frames of perFrame bytes fit in budget, no
// fewer than ten and no more than total.
func BatchSize(total, perFrame int, budget uint64) int {
	n := total
	if perFrame > 0 {
		if fit := budget / uint64(perFrame); fit < uint64(total) {
			n = int(fit)
		}
	}
	if n < minBatchSize {
		n = minBatchSize
	}
	if n > total {
		n = total
	}
	return n
}

// FrameFunc produces the unit for frame n, numbered from 1. Returning an
// *InputError skips the frame, any other error stops the pipeline.
type FrameFunc func(n int) (*format.Unit, error)

// Pipeline processes a numbered sequence of frames in parallel, batch by
// batch, writing the results in frame order.
type Pipeline struct {
	Workers   int
	BatchSize int
	Logger    *log.Logger
	Progress  ProgressFunc
}

type slot struct {
	unit *format.Unit
	err  error
}

func (p *Pipeline) progress(done, total int) {
	if p.Progress != nil {
		p.Progress(done, total)
	}
}

func (p *Pipeline) logf(msg string, v ...interface{}) {
	if p.Logger != nil {
		p.Logger.Printf(msg, v...)
	}
}

func (p *Pipeline) findFrames(ctx context.Context, count int) (<-chan int, <-chan error) {
	out := make(chan int)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for i := 0; i < count; i++ {
			select {
			case out <- i:
			case <-ctx.Done():
				errc <- errors.New("batch cancelled")
				return
			}
		}
	}()
	return out, errc
}

// frameWorker fills the slot of each batch position it receives. Each slot is
// only ever written by the worker that received its position.
func (p *Pipeline) frameWorker(in <-chan int, first int, slots []slot, events chan<- struct{}, process FrameFunc) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for i := range in {
			u, err := process(first + i)
			slots[i] = slot{u, err}
			events <- struct{}{}
		}
	}()
	return errc
}

type slotError struct {
	index int
	err   error
}

// fatal returns the first slot that failed with anything other than an
// *InputError, or nil.
func fatal(slots []slot) *slotError {
	for i, s := range slots {
		var ie *InputError
		if s.err != nil && !errors.As(s.err, &ie) {
			return &slotError{i, s.err}
		}
	}
	return nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	var first error
	for err := range errc {
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Run processes frames 1 to total and writes each unit to w. A batch is
// fully processed before any of it is written, and the next batch only
// starts once the current one has been written.
func (p *Pipeline) Run(ctx context.Context, total int, process FrameFunc, w io.Writer) (Summary, error) {
	var summary Summary

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	size := p.BatchSize
	if size < 1 {
		size = total
	}

	done := 0
	p.progress(done, total)

	for first := 0; first < total; first += size {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		count := size
		if first+count > total {
			count = total - first
		}

		slots := make([]slot, count)
		events := make(chan struct{}, count)

		frames, errc := p.findFrames(ctx, count)
		errcList := []<-chan error{errc}

		n := workers
		if n > count {
			n = count
		}
		for i := 0; i < n; i++ {
			errcList = append(errcList, p.frameWorker(frames, first+1, slots, events, process))
		}

		barrier := make(chan error, 1)
		go func() {
			barrier <- waitForPipeline(errcList...)
		}()

		var err error
		completed := 0
	wait:
		for {
			select {
			case <-events:
				completed++
				if completed%progressInterval == 0 {
					p.progress(done+completed, total)
				}
			case err = <-barrier:
				break wait
			}
		}
		if err != nil {
			// Nothing from an unfinished batch is written
			if cerr := ctx.Err(); cerr != nil {
				return summary, cerr
			}
			return summary, err
		}

		// A fatal frame fails the whole batch before any of it is written
		if f := fatal(slots); f != nil {
			return summary, pkgerrors.Wrapf(f.err, "frame %d", first+1+f.index)
		}

		for i, s := range slots {
			if s.err != nil {
				p.logf("Error processing frame %d: %v\n", first+1+i, s.err)
				summary.fail(s.err)
				continue
			}
			if err := format.Encode(w, s.unit); err != nil {
				return summary, pkgerrors.Wrapf(err, "unable to write frame %d", first+1+i)
			}
			summary.Processed++
		}

		done += count
		p.progress(done, total)
	}

	return summary, nil
}
