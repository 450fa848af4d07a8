/*
Package container implements the VID0 video container.

The file starts with a 20 byte header:

	0x00  magic             "VID0"
	0x04  frame count       uint32
	0x08  width             uint16
	0x0a  height            uint16
	0x0c  frames per second uint8
	0x0d  compression type  uint8, 1 = RLE
	0x0e  reserved          2 bytes, zero
	0x10  index offset      uint32

The header is followed by the frame index, one 8 byte entry per frame holding
the absolute offset and size of the compressed frame, and then the compressed
frames themselves back to back in frame order. All values are little-endian.

Sizes are unknown until each frame has been compressed so the header and the
index are written with placeholders first and patched once every frame has
been written, which requires the output to be seekable.
*/
package container

import (
	"errors"
	"fmt"
	"io"
)

const (
	// Magic identifies the format and version
	Magic = "VID0"

	// CompressionRLE is the only defined compression type
	CompressionRLE = 1

	// HeaderSize is the size in bytes of the fixed header
	HeaderSize = 20

	// IndexEntrySize is the size in bytes of each frame index entry
	IndexEntrySize = 8

	offsetFrameCount  = 0x04
	offsetIndexOffset = 0x10
)

var (
	// ErrNotSeekable is returned when the output cannot report or change
	// its position
	ErrNotSeekable = errors.New("container: output is not seekable")

	// ErrTooManyFrames is returned when writing more frames than the header
	// declared
	ErrTooManyFrames = errors.New("container: more frames than declared")

	// ErrClosed is returned when writing to a finalized container
	ErrClosed = errors.New("container: writer is closed")

	errBadMagic       = errors.New("container: invalid magic")
	errBadCompression = errors.New("container: unsupported compression type")
	errBadDimensions  = errors.New("container: invalid frame dimensions")
	errBadIndex       = errors.New("container: invalid frame index")
	errNotEnough      = fmt.Errorf("container: not enough data: %w", io.ErrUnexpectedEOF)
)

// IndexEntry locates one compressed frame within the container.
type IndexEntry struct {
	Offset uint32
	Size   uint32
}
