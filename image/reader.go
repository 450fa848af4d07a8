package image

import (
	"bytes"
	"image"
	"io"
	"io/ioutil"

	"github.com/bodgit/vid/container"
	"github.com/bodgit/vid/rgb565"
)

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// Frame decodes frame i of the container read by cr.
func Frame(cr *container.Reader, i int) (*Image, error) {
	pix, err := cr.Frame(i)
	if err != nil {
		return nil, err
	}

	h := cr.Header()
	return &Image{
		Pix:    pix,
		Stride: int(h.Width),
		Rect:   image.Rect(0, 0, int(h.Width), int(h.Height)),
	}, nil
}

// Decode reads a VID0 container from r and returns the first frame as an
// image.Image.
func Decode(r io.Reader) (image.Image, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cr, err := container.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, err
	}

	return Frame(cr, 0)
}

// DecodeConfig returns the color model and dimensions of a VID0 container
// without decoding any frames.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var b [container.HeaderSize]byte
	if err := readFull(r, b[:]); err != nil {
		return image.Config{}, err
	}

	var h container.Header
	if err := h.UnmarshalBinary(b[:]); err != nil {
		return image.Config{}, err
	}

	return image.Config{
		ColorModel: rgb565.Model,
		Width:      int(h.Width),
		Height:     int(h.Height),
	}, nil
}

func init() {
	image.RegisterFormat("vid0", container.Magic, Decode, DecodeConfig)
}
