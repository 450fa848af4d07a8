package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var errTooLarge = errors.New("container: exceeds 4 GiB")

// Writer writes a container to an io.WriteSeeker. Frames are appended with
// WriteFrame and Close patches the header and frame index with their final
// values. A container that has not been closed is not valid.
type Writer struct {
	w       io.WriteSeeker
	header  Header
	base    int64
	pos     int64
	entries []IndexEntry
	closed  bool
	err     error
}

// NewWriter writes the header and a zero-filled frame index with room for
// h.FrameCount entries to w, starting at its current position. Offsets in
// the index are relative to that position. h.IndexOffset is ignored.
func NewWriter(w io.WriteSeeker, h Header) (*Writer, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}

	base, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotSeekable, err)
	}

	indexSize := int64(h.FrameCount) * IndexEntrySize
	if HeaderSize+indexSize > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d frames", errTooLarge, h.FrameCount)
	}

	// Patched in Close
	h.IndexOffset = 0

	b, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if _, err := w.Write(make([]byte, indexSize)); err != nil {
		return nil, err
	}

	return &Writer{
		w:       w,
		header:  h,
		base:    base,
		pos:     HeaderSize + indexSize,
		entries: make([]IndexEntry, 0, h.FrameCount),
	}, nil
}

// WriteFrame appends one compressed frame and records its placement.
func (cw *Writer) WriteFrame(b []byte) error {
	switch {
	case cw.err != nil:
		return cw.err
	case cw.closed:
		return ErrClosed
	case len(cw.entries) >= int(cw.header.FrameCount):
		return fmt.Errorf("%w: %d", ErrTooManyFrames, cw.header.FrameCount)
	case cw.pos+int64(len(b)) > math.MaxUint32:
		return errTooLarge
	}

	n, err := cw.w.Write(b)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	if err != nil {
		cw.err = err
		return err
	}

	cw.entries = append(cw.entries, IndexEntry{
		Offset: uint32(cw.pos),
		Size:   uint32(len(b)),
	})
	cw.pos += int64(n)

	return nil
}

func (cw *Writer) writeAt(offset int64, b []byte) error {
	if _, err := cw.w.Seek(cw.base+offset, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %w", ErrNotSeekable, err)
	}
	_, err := cw.w.Write(b)
	return err
}

func (cw *Writer) writeUint32At(offset int64, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return cw.writeAt(offset, b[:])
}

// Close patches the index offset and every index entry written so far. If
// fewer frames were written than declared the frame count in the header is
// rewritten to match, the unused index entries are left zeroed. The
// position of the underlying writer is left at the end of the data. Close
// does not close the underlying writer.
func (cw *Writer) Close() error {
	if cw.err != nil {
		return cw.err
	}
	if cw.closed {
		return nil
	}

	if err := cw.patch(); err != nil {
		cw.err = err
		return err
	}

	cw.closed = true

	return nil
}

func (cw *Writer) patch() error {
	cw.header.IndexOffset = HeaderSize
	if err := cw.writeUint32At(offsetIndexOffset, cw.header.IndexOffset); err != nil {
		return err
	}

	if n := uint32(len(cw.entries)); n != cw.header.FrameCount {
		cw.header.FrameCount = n
		if err := cw.writeUint32At(offsetFrameCount, n); err != nil {
			return err
		}
	}

	if err := cw.writeAt(HeaderSize, marshalIndex(cw.entries)); err != nil {
		return err
	}

	if _, err := cw.w.Seek(cw.base+cw.pos, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %w", ErrNotSeekable, err)
	}

	return nil
}

// Header returns the header as it currently stands; the index offset and
// frame count are only final after Close.
func (cw *Writer) Header() Header {
	return cw.header
}

// Entries returns a copy of the index entries recorded so far.
func (cw *Writer) Entries() []IndexEntry {
	return append([]IndexEntry(nil), cw.entries...)
}

// Written returns the number of frames written.
func (cw *Writer) Written() int {
	return len(cw.entries)
}

// Size returns the number of bytes in the container so far.
func (cw *Writer) Size() int64 {
	return cw.pos
}
