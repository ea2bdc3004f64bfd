/*
Package palette builds the 256 color palette stored with each fbin unit and
finds the closest palette entry for a given color.

A palette is generated from the color histogram of a single image; the most
frequently used colors are kept in decreasing order of frequency and any
unused entries are left as black.
*/
package palette

import (
	"image/color"
	"sort"

	"github.com/bodgit/fbin/bgr555"
)

// Size is the number of entries in every palette.
const Size = 256

// Palette is an ordered set of packed colors.
type Palette [Size]bgr555.Color

// Expanded holds the 8-bit components of each palette entry.
type Expanded [Size]bgr555.RGB

// Expand returns the expanded form of every entry in p.
func (p *Palette) Expand() *Expanded {
	e := new(Expanded)
	for i, c := range p {
		e[i] = c.Expand()
	}
	return e
}

// Color returns p as a color.Palette.
func (p *Palette) Color() color.Palette {
	cp := make(color.Palette, Size)
	for i, c := range p {
		cp[i] = c
	}
	return cp
}

type entry struct {
	color bgr555.Color
	count int
}

type byCount []entry

func (e byCount) Len() int {
	return len(e)
}

func (e byCount) Swap(i, j int) {
	e[i], e[j] = e[j], e[i]
}

func (e byCount) Less(i, j int) bool {
	return e[i].count > e[j].count
}

// Histogram counts occurrences of each packed color, remembering the order
// in which colors were first seen.
type Histogram struct {
	index   map[bgr555.Color]int
	entries []entry
}

// NewHistogram returns an empty histogram.
func NewHistogram() *Histogram {
	return &Histogram{
		index: make(map[bgr555.Color]int),
	}
}

// Add counts one occurrence of c.
func (h *Histogram) Add(c bgr555.Color) {
	if i, ok := h.index[c]; ok {
		h.entries[i].count++
		return
	}
	h.index[c] = len(h.entries)
	h.entries = append(h.entries, entry{c, 1})
}

// Sorted returns the distinct colors by decreasing count. Colors with the
// same count keep the order in which they were first added.
func (h *Histogram) Sorted() []bgr555.Color {
	dup := append(h.entries[:0:0], h.entries...)
	sort.Stable(byCount(dup))

	colors := make([]bgr555.Color, len(dup))
	for i, e := range dup {
		colors[i] = e.color
	}
	return colors
}

// Generate returns a palette made of the most frequent colors in pixels.
func Generate(pixels []bgr555.Color) Palette {
	h := NewHistogram()
	for _, c := range pixels {
		h.Add(c)
	}

	var p Palette
	copy(p[:], h.Sorted())
	return p
}
