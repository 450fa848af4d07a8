/*
Package rle implements the run-length encoding used for frames in a VID0
container.

A frame is a sequence of RGB565 values which is compressed to a sequence of
segments. Each segment starts with a header byte; if bit 7 is set the segment
is a run and bits 6-0 hold the repeat count minus one, followed by a single
16-bit color. If bit 7 is clear the segment is a literal and bits 6-0 hold the
number of colors minus one, followed by that many 16-bit colors. All colors
are stored little-endian so a segment always represents between 1 and 128
pixels.

The encoder is greedy: three or more identical colors at the current position
are always written as a run, anything shorter is folded into a literal.
*/
package rle

import (
	"errors"
	"fmt"
	"io"
)

const (
	// MaxSegment is the maximum number of pixels a single segment can hold
	MaxSegment = 128

	runFlag   = 0x80
	countMask = 0x7f

	// A run costs three bytes so anything shorter is cheaper as a literal
	runThreshold = 3

	colorBytes = 2
)

var (
	// ErrTruncated is returned when a segment needs more bytes than remain
	ErrTruncated = fmt.Errorf("rle: truncated segment: %w", io.ErrUnexpectedEOF)

	// ErrOutOfRange is returned when a requested pixel range extends past
	// the end of the frame
	ErrOutOfRange = errors.New("rle: pixel range out of bounds")
)

// runLength counts the consecutive values equal to frame[i], including
// itself, stopping at limit.
func runLength(frame []uint16, i, limit int) int {
	n := 1
	for i+n < len(frame) && n < limit && frame[i+n] == frame[i] {
		n++
	}
	return n
}

func header(run bool, count int) byte {
	b := byte(count-1) & countMask
	if run {
		b |= runFlag
	}
	return b
}

func parseHeader(b byte) (bool, int) {
	return b&runFlag != 0, int(b&countMask) + 1
}
