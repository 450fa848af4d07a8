/*
Package source implements frame sources for the vid converter.

Frames can come from a video file decoded by ffmpeg or from a sequence of
still images. Either way each frame is scaled to the requested width, keeping
the aspect ratio, and optionally reduced to a small number of colors, which
gives the run-length encoder longer runs to work with.
*/
package source

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/nfnt/resize"
)

// DefaultWidth suits the 240 pixel wide displays the format is played back
// on.
const DefaultWidth = 240

// Options control how source frames are prepared.
type Options struct {
	// Width is the target frame width, zero keeps the source width
	Width int

	// Colors limits each frame to that many colors, zero disables it
	Colors int
}

func scaledHeight(width, srcWidth, srcHeight int) int {
	h := width * srcHeight / srcWidth
	if h < 1 {
		return 1
	}
	return h
}

func (o Options) size(srcWidth, srcHeight int) (int, int) {
	if o.Width <= 0 || o.Width == srcWidth {
		return srcWidth, srcHeight
	}
	return o.Width, scaledHeight(o.Width, srcWidth, srcHeight)
}

// prepare scales m to width × height and returns it as RGB triples in
// row-major order. The returned buffer is always newly allocated.
func (o Options) prepare(m image.Image, width, height int) []byte {
	b := m.Bounds()
	if b.Dx() != width || b.Dy() != height {
		m = resize.Resize(uint(width), uint(height), m, resize.Bilinear)
		b = m.Bounds()
	}

	if o.Colors > 0 {
		q := quantize.MedianCutQuantizer{}
		pm := image.NewPaletted(b, q.Quantize(make(color.Palette, 0, o.Colors), m))
		draw.Draw(pm, b, m, b.Min, draw.Src)
		m = pm
	}

	return rgb(m)
}

func rgb(m image.Image) []byte {
	b := m.Bounds()
	pix := make([]byte, 0, b.Dx()*b.Dy()*3)

	if rgba, ok := m.(*image.RGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := rgba.Pix[rgba.PixOffset(b.Min.X, y):rgba.PixOffset(b.Max.X, y)]
			for i := 0; i < len(row); i += 4 {
				pix = append(pix, row[i], row[i+1], row[i+2])
			}
		}
		return pix
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cr, cg, cb, _ := m.At(x, y).RGBA()
			pix = append(pix, byte(cr>>8), byte(cg>>8), byte(cb>>8))
		}
	}
	return pix
}
