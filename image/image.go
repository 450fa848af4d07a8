/*
Package image implements a VID0 frame decoder and encoder.

Decoding a container returns its first frame, which makes a VID0 file usable
anywhere an image is expected, for example as a preview. Any other frame can
be extracted with Frame. Encoding writes a container holding exactly one
frame.

Importing this package registers the "vid0" format with the standard image
package.
*/
package image

import (
	"image"
	"image/color"

	"github.com/bodgit/vid/rgb565"
)

// Image is an in-memory image whose At method returns rgb565.Color values.
type Image struct {
	// Pix holds the packed colors in row-major order
	Pix []uint16

	// Stride is the Pix stride between vertically adjacent pixels
	Stride int

	Rect image.Rectangle
}

// NewImage returns a new Image with the given bounds.
func NewImage(r image.Rectangle) *Image {
	return &Image{
		Pix:    make([]uint16, r.Dx()*r.Dy()),
		Stride: r.Dx(),
		Rect:   r,
	}
}

func (p *Image) ColorModel() color.Model {
	return rgb565.Model
}

func (p *Image) Bounds() image.Rectangle {
	return p.Rect
}

func (p *Image) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return rgb565.Color(0)
	}
	return rgb565.Color(p.Pix[p.PixOffset(x, y)])
}

// PixOffset returns the index of the element of Pix that corresponds to the
// pixel at (x, y).
func (p *Image) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x - p.Rect.Min.X)
}

func (p *Image) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	p.Pix[p.PixOffset(x, y)] = uint16(rgb565.Model.Convert(c).(rgb565.Color))
}

// frame returns the pixels as a contiguous frame.
func (p *Image) frame() []uint16 {
	w, h := p.Rect.Dx(), p.Rect.Dy()
	if p.Stride == w {
		return p.Pix[:w*h]
	}
	f := make([]uint16, 0, w*h)
	for y := 0; y < h; y++ {
		f = append(f, p.Pix[y*p.Stride:y*p.Stride+w]...)
	}
	return f
}
