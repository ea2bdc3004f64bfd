/*
Package format implements the fbin stream encoder and decoder.

A stream is a concatenation of units with no header, separator or count. Each
unit is written as 256 little-endian 16-bit packed colors, 512 bytes in total,
followed by one palette index byte per pixel in row-major order. The width and
height are not stored so a reader must know them in advance to find where one
unit ends and the next begins.
*/
package format

import (
	"image"

	"github.com/bodgit/fbin/palette"
)

const (
	colorBytes   = 2
	paletteBytes = palette.Size * colorBytes
)

// Unit is a palette and the index plane that refers to it.
type Unit struct {
	Width, Height int
	Palette       palette.Palette
	Pix           []byte
}

// NewUnit returns a unit with an all-zero index plane.
func NewUnit(width, height int) *Unit {
	return &Unit{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height),
	}
}

// UnitSize returns the number of bytes taken by a unit of the given size.
func UnitSize(width, height int) int {
	return paletteBytes + width*height
}

// Size returns the number of bytes taken by u when encoded.
func (u *Unit) Size() int {
	return UnitSize(u.Width, u.Height)
}

// Image returns u as a paletted image with the palette entries expanded.
func (u *Unit) Image() *image.Paletted {
	return &image.Paletted{
		Pix:     u.Pix,
		Stride:  u.Width,
		Rect:    image.Rect(0, 0, u.Width, u.Height),
		Palette: u.Palette.Color(),
	}
}
