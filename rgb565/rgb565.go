/*
Package rgb565 implements the 16-bit color format used by the VID0 container.

Each color is packed as RRRRRGGGGGGBBBBB with red in the most significant
bits. Conversion from 8 bits per channel discards the low-order bits of each
channel, there is no rounding, so the mapping is lossy and one-directional.
*/
package rgb565

import "image/color"

const (
	maskRed   = 0xf8
	maskGreen = 0xfc
)

// Pack converts an 8-bit RGB triple to a packed RGB565 value.
func Pack(r, g, b uint8) uint16 {
	return uint16(r&maskRed)<<8 | uint16(g&maskGreen)<<3 | uint16(b>>3)
}

// Unpack returns the 8-bit channel values retained by a packed color. The
// discarded low-order bits are returned as zero.
func Unpack(c uint16) (r, g, b uint8) {
	return uint8(c>>8) & maskRed, uint8(c>>3) & maskGreen, uint8(c << 3)
}

// Color is a packed RGB565 value. It implements the color.Color interface.
type Color uint16

// RGBA implements color.Color. Each channel is widened by replicating its
// high bits into the low bits so that full intensity maps to 0xffff.
func (c Color) RGBA() (r, g, b, a uint32) {
	r5 := uint32(c>>11) & 0x1f
	g6 := uint32(c>>5) & 0x3f
	b5 := uint32(c) & 0x1f

	r = r5<<3 | r5>>2
	g = g6<<2 | g6>>4
	b = b5<<3 | b5>>2

	return r | r<<8, g | g<<8, b | b<<8, 0xffff
}

// Model converts any color to a Color by truncation.
var Model = color.ModelFunc(func(c color.Color) color.Color {
	if _, ok := c.(Color); ok {
		return c
	}
	r, g, b, _ := c.RGBA()
	return Color(Pack(uint8(r>>8), uint8(g>>8), uint8(b>>8)))
})

// QuantizeFrame packs every RGB triple in pix, appending the results to dst
// which is returned. The length of pix must be a multiple of three.
func QuantizeFrame(dst []uint16, pix []byte) []uint16 {
	if len(pix)%3 != 0 {
		panic("rgb565: pixel buffer is not a multiple of 3 bytes")
	}
	if cap(dst)-len(dst) < len(pix)/3 {
		grown := make([]uint16, len(dst), len(dst)+len(pix)/3)
		copy(grown, dst)
		dst = grown
	}
	for i := 0; i < len(pix); i += 3 {
		dst = append(dst, Pack(pix[i], pix[i+1], pix[i+2]))
	}
	return dst
}
