/*
Package quant reduces an image to a 256 color fbin unit.

Two quantizers are provided. Engine builds the palette from the most frequent
15-bit colors in the image and maps pixels with one of the dither modes. MedianCut
builds the palette with a median cut and remaps the image with adjustable
error diffusion, failing if the result does not reach a minimum quality.
*/
package quant

import (
	"image"

	"github.com/bodgit/fbin/dither"
	"github.com/bodgit/fbin/format"
	"github.com/bodgit/fbin/palette"
	"golang.org/x/image/draw"
)

// Quantizer converts an image into a palette and index plane.
type Quantizer interface {
	Quantize(m image.Image) (*format.Unit, error)
}

// Engine is the frequency based quantizer.
type Engine struct {
	Mode dither.Mode
}

// Quantize implements the Quantizer interface.
func (e Engine) Quantize(m image.Image) (*format.Unit, error) {
	pixels, w, h := dither.Pack(m)
	p := palette.Generate(pixels)

	return &format.Unit{
		Width:   w,
		Height:  h,
		Palette: p,
		Pix:     dither.Apply(e.Mode, dither.FromPacked(w, h, pixels), p.Expand()),
	}, nil
}

// ToRGBA returns m as an RGBA image with its top-left corner at (0, 0).
func ToRGBA(m image.Image) *image.RGBA {
	b := m.Bounds()
	if rgba, ok := m.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), m, b.Min, draw.Src)
	return dst
}
