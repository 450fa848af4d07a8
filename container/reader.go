package container

import (
	"errors"
	"fmt"
	"io"

	"github.com/bodgit/vid/rle"
	"github.com/hashicorp/go-multierror"
)

var (
	errUnfinished = errors.New("container: index offset not set, container was not finalized")
	errFrameSize  = errors.New("container: frame has wrong number of pixels")
	errNoFrame    = errors.New("container: frame out of range")
)

func readFull(r io.ReaderAt, b []byte, off int64) error {
	n, err := r.ReadAt(b, off)
	if n == len(b) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = errNotEnough
	}
	return err
}

// Reader provides random access to the frames of a container.
type Reader struct {
	r       io.ReaderAt
	size    int64
	header  Header
	entries []IndexEntry
}

// NewReader reads and validates the header and frame index of the size
// byte container held in r.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	b := make([]byte, HeaderSize)
	if err := readFull(r, b, 0); err != nil {
		return nil, err
	}

	cr := &Reader{r: r, size: size}
	if err := cr.header.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	if err := cr.header.validate(); err != nil {
		return nil, err
	}

	if cr.header.IndexOffset == 0 {
		return nil, errUnfinished
	}

	start := int64(cr.header.IndexOffset)
	end := start + int64(cr.header.FrameCount)*IndexEntrySize
	if start < HeaderSize || end > size {
		return nil, fmt.Errorf("%w: table at %d-%d in %d bytes", errBadIndex, start, end, size)
	}

	b = make([]byte, end-start)
	if err := readFull(r, b, start); err != nil {
		return nil, err
	}
	cr.entries = unmarshalIndex(b)

	for i, e := range cr.entries {
		if int64(e.Offset) < end || int64(e.Offset)+int64(e.Size) > size {
			return nil, fmt.Errorf("%w: frame %d at %d+%d", errBadIndex, i, e.Offset, e.Size)
		}
	}

	return cr, nil
}

// Header returns the container header.
func (cr *Reader) Header() Header {
	return cr.header
}

// Len returns the number of frames.
func (cr *Reader) Len() int {
	return len(cr.entries)
}

// Entry returns the index entry of frame i.
func (cr *Reader) Entry(i int) (IndexEntry, error) {
	if i < 0 || i >= len(cr.entries) {
		return IndexEntry{}, fmt.Errorf("%w: %d", errNoFrame, i)
	}
	return cr.entries[i], nil
}

// FrameData returns the compressed bytes of frame i.
func (cr *Reader) FrameData(i int) ([]byte, error) {
	e, err := cr.Entry(i)
	if err != nil {
		return nil, err
	}
	b := make([]byte, e.Size)
	if err := readFull(cr.r, b, int64(e.Offset)); err != nil {
		return nil, err
	}
	return b, nil
}

// Frame returns the decompressed pixels of frame i.
func (cr *Reader) Frame(i int) ([]uint16, error) {
	b, err := cr.FrameData(i)
	if err != nil {
		return nil, err
	}
	frame, err := rle.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", i, err)
	}
	if len(frame) != cr.header.Pixels() {
		return nil, fmt.Errorf("%w: frame %d has %d, expected %d", errFrameSize, i, len(frame), cr.header.Pixels())
	}
	return frame, nil
}

// Verify decodes every frame and returns all of the failures.
func (cr *Reader) Verify() error {
	var result *multierror.Error
	for i := range cr.entries {
		if _, err := cr.Frame(i); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
