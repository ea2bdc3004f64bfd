package dither

import (
	"image"

	"github.com/bodgit/fbin/bgr555"
)

// Image is a width by height grid of expanded colors, row-major with the
// origin at the top-left corner. Accessors ignore coordinates outside of the
// grid.
type Image struct {
	Width, Height int
	Pix           []bgr555.RGB
}

// NewImage returns a black image of the given size.
func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]bgr555.RGB, width*height),
	}
}

// FromPacked expands a row-major slice of packed colors.
func FromPacked(width, height int, pixels []bgr555.Color) *Image {
	m := NewImage(width, height)
	for i := range m.Pix {
		m.Pix[i] = pixels[i].Expand()
	}
	return m
}

// Pack converts any image into a row-major slice of packed colors along with
// its dimensions. Alpha is discarded.
func Pack(m image.Image) ([]bgr555.Color, int, int) {
	b := m.Bounds()
	pixels := make([]bgr555.Color, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			pixels = append(pixels, bgr555.FromColor(m.At(x, y)).Pack())
		}
	}
	return pixels, b.Dx(), b.Dy()
}

func (m *Image) in(x, y int) bool {
	return x >= 0 && x < m.Width && y >= 0 && y < m.Height
}

// At returns the color at (x, y), or black if it is outside the image.
func (m *Image) At(x, y int) bgr555.RGB {
	if !m.in(x, y) {
		return bgr555.RGB{}
	}
	return m.Pix[y*m.Width+x]
}

// Set replaces the color at (x, y).
func (m *Image) Set(x, y int, c bgr555.RGB) {
	if !m.in(x, y) {
		return
	}
	m.Pix[y*m.Width+x] = c
}

// Clone returns a copy of m that can be modified independently.
func (m *Image) Clone() *Image {
	dup := *m
	dup.Pix = append(m.Pix[:0:0], m.Pix...)
	return &dup
}

// quantError is the per-channel difference between a color and its
// replacement.
type quantError [3]int

func difference(a, b bgr555.RGB) quantError {
	return quantError{
		int(a.R) - int(b.R),
		int(a.G) - int(b.G),
		int(a.B) - int(b.B),
	}
}

func clamp(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

// diffuse adds num/den of e to the color at (x, y), truncating toward zero
// and clamping each component.
func (m *Image) diffuse(x, y int, e quantError, num, den int) {
	c := m.At(x, y)
	m.Set(x, y, bgr555.RGB{
		R: clamp(int(c.R) + e[0]*num/den),
		G: clamp(int(c.G) + e[1]*num/den),
		B: clamp(int(c.B) + e[2]*num/den),
	})
}
