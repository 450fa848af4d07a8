package image

import (
	"errors"
	"image"
	"image/draw"
	"io"
	"math"

	"github.com/bodgit/vid/container"
	"github.com/bodgit/vid/rle"
	"github.com/xaionaro-go/bytesextra"
)

// A single frame has no meaningful rate
const stillFPS = 1

// Encode writes the Image m to w as a single frame VID0 container.
func Encode(w io.Writer, m image.Image) error {
	b := m.Bounds()
	if b.Empty() || b.Dx() > math.MaxUint16 || b.Dy() > math.MaxUint16 {
		return errors.New("image: image is wrong size")
	}

	pm, _ := m.(*Image)
	if pm == nil {
		pm = NewImage(b)
		draw.Draw(pm, b, m, b.Min, draw.Src)
	}

	data := rle.Encode(pm.frame())

	// The size is known up front so the container can be built in memory
	// and w needn't be seekable
	buf := make([]byte, container.HeaderSize+container.IndexEntrySize+len(data))

	cw, err := container.NewWriter(bytesextra.NewReadWriteSeeker(buf), container.Header{
		FrameCount:  1,
		Width:       uint16(b.Dx()),
		Height:      uint16(b.Dy()),
		FPS:         stillFPS,
		Compression: container.CompressionRLE,
	})
	if err != nil {
		return err
	}

	if err := cw.WriteFrame(data); err != nil {
		return err
	}

	if err := cw.Close(); err != nil {
		return err
	}

	_, err = w.Write(buf)
	return err
}
