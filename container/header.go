package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Header is the fixed record at the start of every container. It implements
// the encoding.BinaryMarshaler and encoding.BinaryUnmarshaler interfaces.
type Header struct {
	FrameCount  uint32
	Width       uint16
	Height      uint16
	FPS         uint8
	Compression uint8
	IndexOffset uint32
}

// Same field order and sizes as the on-disk layout
type rawHeader struct {
	Magic       [4]byte
	FrameCount  uint32
	Width       uint16
	Height      uint16
	FPS         uint8
	Compression uint8
	Reserved    [2]byte
	IndexOffset uint32
}

// Pixels returns the number of pixels in each frame.
func (h Header) Pixels() int {
	return int(h.Width) * int(h.Height)
}

func (h Header) validate() error {
	if h.Width == 0 || h.Height == 0 {
		return fmt.Errorf("%w: %dx%d", errBadDimensions, h.Width, h.Height)
	}
	if h.Compression != CompressionRLE {
		return fmt.Errorf("%w: %d", errBadCompression, h.Compression)
	}
	return nil
}

// MarshalBinary encodes the header into binary form and returns the result.
func (h Header) MarshalBinary() ([]byte, error) {
	raw := rawHeader{
		FrameCount:  h.FrameCount,
		Width:       h.Width,
		Height:      h.Height,
		FPS:         h.FPS,
		Compression: h.Compression,
		IndexOffset: h.IndexOffset,
	}
	copy(raw.Magic[:], Magic)

	b := new(bytes.Buffer)
	if err := binary.Write(b, binary.LittleEndian, &raw); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// UnmarshalBinary decodes the header from binary form.
func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize {
		return errNotEnough
	}

	var raw rawHeader
	if err := binary.Read(bytes.NewReader(b[:HeaderSize]), binary.LittleEndian, &raw); err != nil {
		return err
	}

	if string(raw.Magic[:]) != Magic {
		return fmt.Errorf("%w: %q", errBadMagic, raw.Magic[:])
	}

	*h = Header{
		FrameCount:  raw.FrameCount,
		Width:       raw.Width,
		Height:      raw.Height,
		FPS:         raw.FPS,
		Compression: raw.Compression,
		IndexOffset: raw.IndexOffset,
	}
	return nil
}

func marshalIndex(entries []IndexEntry) []byte {
	b := make([]byte, len(entries)*IndexEntrySize)
	for i, e := range entries {
		binary.LittleEndian.PutUint32(b[i*IndexEntrySize:], e.Offset)
		binary.LittleEndian.PutUint32(b[i*IndexEntrySize+4:], e.Size)
	}
	return b
}

func unmarshalIndex(b []byte) []IndexEntry {
	entries := make([]IndexEntry, len(b)/IndexEntrySize)
	for i := range entries {
		entries[i] = IndexEntry{
			Offset: binary.LittleEndian.Uint32(b[i*IndexEntrySize:]),
			Size:   binary.LittleEndian.Uint32(b[i*IndexEntrySize+4:]),
		}
	}
	return entries
}
