package vid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"

	"github.com/bodgit/vid/container"
)

var (
	// ErrShortSource is returned in strict mode when the source runs out
	// of frames before the declared frame count is reached
	ErrShortSource = errors.New("vid: source has fewer frames than declared")

	// ErrFrameSize is returned when a frame buffer is not width × height
	// RGB triples
	ErrFrameSize = errors.New("vid: frame buffer is the wrong size")

	errBadMetadata = errors.New("vid: invalid metadata")
)

// FrameSource supplies frames in order. NextFrame returns the next frame as
// width × height RGB triples in row-major order, or io.EOF once there are no
// more frames. The source must not modify a buffer once it has been
// returned.
type FrameSource interface {
	NextFrame() ([]byte, error)
}

// Metadata describes the frames supplied by a FrameSource.
type Metadata struct {
	Frames int
	Width  int
	Height int
	FPS    float64
}

func (m Metadata) header() (container.Header, error) {
	switch {
	case m.Frames < 0 || int64(m.Frames) > math.MaxUint32:
		return container.Header{}, fmt.Errorf("%w: frame count %d", errBadMetadata, m.Frames)
	case m.Width < 1 || m.Width > math.MaxUint16 || m.Height < 1 || m.Height > math.MaxUint16:
		return container.Header{}, fmt.Errorf("%w: dimensions %dx%d", errBadMetadata, m.Width, m.Height)
	case m.FPS < 0 || math.IsNaN(m.FPS):
		return container.Header{}, fmt.Errorf("%w: frame rate %v", errBadMetadata, m.FPS)
	}

	return container.Header{
		FrameCount:  uint32(m.Frames),
		Width:       uint16(m.Width),
		Height:      uint16(m.Height),
		FPS:         m.Rate(),
		Compression: container.CompressionRLE,
	}, nil
}

// Rate returns the frame rate as stored in the container header.
func (m Metadata) Rate() uint8 {
	// Truncated rather than rounded, anything faster is clamped
	if m.FPS >= math.MaxUint8 {
		return math.MaxUint8
	}
	if m.FPS < 0 || math.IsNaN(m.FPS) {
		return 0
	}
	return uint8(m.FPS)
}

func (m Metadata) frameBytes() int {
	return m.Width * m.Height * 3
}

// Options control a conversion.
type Options struct {
	// Workers is the number of frames encoded concurrently, defaults to
	// the number of CPUs
	Workers int

	// Strict fails the conversion if the source has fewer frames than
	// declared instead of truncating the container
	Strict bool
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// Result summarises a finished conversion.
type Result struct {
	Declared        int
	Frames          int
	RawBytes        int64
	CompressedBytes int64
	Size            int64
	Entries         []container.IndexEntry

	// Header is the header as finally written
	Header container.Header
}

// Reduction returns the percentage saved compared to uncompressed RGB565.
func (r *Result) Reduction() float64 {
	return reduction(r.RawBytes, r.CompressedBytes)
}

func reduction(raw, compressed int64) float64 {
	if raw == 0 {
		return 0
	}
	return (1 - float64(compressed)/float64(raw)) * 100
}

// Convert reads meta.Frames frames from src and writes them as a container
// to w starting at its current position. Nothing is retried; if an error is
// returned the container is incomplete and should be discarded.
//
// If src runs out early the container is finalized with the frames written
// so far and the header frame count is corrected to match, unless
// opts.Strict is set in which case ErrShortSource is returned.
func (c *Converter) Convert(ctx context.Context, src FrameSource, meta Metadata, w io.WriteSeeker, opts Options) (*Result, error) {
	h, err := meta.header()
	if err != nil {
		return nil, err
	}

	cw, err := container.NewWriter(w, h)
	if err != nil {
		return nil, err
	}

	c.logger.Printf("Converting %d frames at %dx%d, %d fps\n", meta.Frames, meta.Width, meta.Height, h.FPS)

	result := &Result{
		Declared: meta.Frames,
	}

	if err := c.encodeFrames(ctx, src, meta, cw, opts.workers(), result); err != nil {
		return nil, err
	}

	if result.Frames < result.Declared {
		if opts.Strict {
			return nil, fmt.Errorf("%w: got %d of %d", ErrShortSource, result.Frames, result.Declared)
		}
		c.logger.Printf("Source ended after %d of %d frames, truncating\n", result.Frames, result.Declared)
	}

	if err := cw.Close(); err != nil {
		return nil, err
	}

	result.Size = cw.Size()
	result.Entries = cw.Entries()
	result.Header = cw.Header()

	c.logger.Printf("Converted %d frames, %d bytes (%.1f%% reduction)\n", result.Frames, result.Size, result.Reduction())

	return result, nil
}
