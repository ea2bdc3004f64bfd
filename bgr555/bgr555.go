/*
Package bgr555 implements the packed 15-bit color used by the fbin format.

Each color is stored as a 16-bit value with the top bit unused, followed by
three 5-bit fields. The target display names the fields blue, green and red
from the most significant end, however the field in bits 14-10 carries the red
intensity of the source and the field in bits 4-0 carries the blue intensity.
This swap is part of the format and must be preserved bit for bit.
*/
package bgr555

import "image/color"

const (
	mask5  = 0x1f
	unused = 0x8000
)

// Color is a packed 15-bit color. Bit 15 is always zero.
type Color uint16

// Pack truncates each 8-bit component to its top 5 bits and packs them.
func Pack(r, g, b uint8) Color {
	return Color(uint16(r>>3)<<10 | uint16(g>>3)<<5 | uint16(b>>3))
}

func replicate(field uint16) uint8 {
	// Copy the top 3 bits into the bottom 3 to use the full 0-255 range
	v := uint8(field << 3)
	return v | v>>5
}

// Expand reconstructs the 8-bit components of c.
func (c Color) Expand() RGB {
	return RGB{
		R: replicate(uint16(c) >> 10 & mask5),
		G: replicate(uint16(c) >> 5 & mask5),
		B: replicate(uint16(c) & mask5),
	}
}

// Valid reports whether the unused bit is clear.
func (c Color) Valid() bool {
	return c&unused == 0
}

// RGBA implements the color.Color interface.
func (c Color) RGBA() (r, g, b, a uint32) {
	return c.Expand().RGBA()
}

// RGB is an expanded color with 8 bits per component.
type RGB struct {
	R, G, B uint8
}

// Pack converts the expanded color back to its packed form.
func (c RGB) Pack() Color {
	return Pack(c.R, c.G, c.B)
}

// RGBA implements the color.Color interface. RGB is always opaque.
func (c RGB) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	return r, g, b, 0xffff
}

// FromColor drops the alpha channel of c, without premultiplying, and
// returns the remaining 8-bit components.
func FromColor(c color.Color) RGB {
	switch v := c.(type) {
	case RGB:
		return v
	case Color:
		return v.Expand()
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{n.R, n.G, n.B}
}

// Model converts any color to a packed Color.
var Model = color.ModelFunc(func(c color.Color) color.Color {
	if v, ok := c.(Color); ok {
		return v
	}
	return FromColor(c).Pack()
})
