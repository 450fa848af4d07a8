package vid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bodgit/vid/container"
	"github.com/bodgit/vid/rgb565"
	"github.com/bodgit/vid/rle"
	"github.com/hashicorp/go-multierror"
)

type rawFrame struct {
	index int
	pix   []byte
}

type encodedFrame struct {
	index int
	data  []byte
}

func (c *Converter) readFrames(ctx context.Context, cancel context.CancelFunc, src FrameSource, n int) (<-chan rawFrame, <-chan error) {
	out := make(chan rawFrame)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for i := 0; i < n; i++ {
			pix, err := src.NextFrame()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					errc <- fmt.Errorf("reading frame %d: %w", i, err)
					cancel()
				}
				return
			}

			select {
			case out <- rawFrame{i, pix}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errc
}

func (c *Converter) encodeWorker(ctx context.Context, cancel context.CancelFunc, in <-chan rawFrame, out chan<- encodedFrame, size int, wg *sync.WaitGroup) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		defer wg.Done()

		// Reused between frames, only the compressed bytes leave the worker
		var frame []uint16

		for f := range in {
			if len(f.pix) != size {
				errc <- fmt.Errorf("%w: frame %d is %d bytes, expected %d", ErrFrameSize, f.index, len(f.pix), size)
				cancel()
				return
			}

			frame = rgb565.QuantizeFrame(frame[:0], f.pix)

			select {
			case out <- encodedFrame{f.index, rle.Encode(frame)}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return errc
}

// encodeFrames runs the pipeline. Frames are read in order, encoded by
// several workers and then reordered so they are written to cw strictly in
// sequence by the calling goroutine.
func (c *Converter) encodeFrames(parent context.Context, src FrameSource, meta Metadata, cw *container.Writer, workers int, result *Result) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var errcList []<-chan error

	frames, errc := c.readFrames(ctx, cancel, src, meta.Frames)
	errcList = append(errcList, errc)

	var wg sync.WaitGroup
	encoded := make(chan encodedFrame, workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		errc := c.encodeWorker(ctx, cancel, frames, encoded, meta.frameBytes(), &wg)
		errcList = append(errcList, errc)
	}
	go func() {
		wg.Wait()
		close(encoded)
	}()

	raw := int64(meta.Width * meta.Height * 2)
	pending := make(map[int][]byte)

	var writeErr error
	for f := range encoded {
		if writeErr != nil {
			continue
		}
		pending[f.index] = f.data

		for {
			data, ok := pending[result.Frames]
			if !ok {
				break
			}
			delete(pending, result.Frames)

			if err := cw.WriteFrame(data); err != nil {
				writeErr = fmt.Errorf("writing frame %d: %w", result.Frames, err)
				cancel()
				break
			}

			result.Frames++
			result.RawBytes += raw
			result.CompressedBytes += int64(len(data))

			c.logger.Printf("Frame %d/%d: %d -> %d bytes (%.1f%% reduction)\n", result.Frames, meta.Frames, raw, len(data), reduction(raw, int64(len(data))))
		}
	}

	var errs *multierror.Error
	if writeErr != nil {
		errs = multierror.Append(errs, writeErr)
	}
	if err := waitForPipeline(errcList...); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return err
	}

	// Cancelled from outside, frames will be missing
	return parent.Err()
}

func waitForPipeline(errs ...<-chan error) error {
	var result *multierror.Error
	for err := range mergeErrors(errs...) {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
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
