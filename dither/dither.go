/*
Package dither maps every pixel of an image to an entry in a 256 color palette,
optionally diffusing the quantization error onto neighboring pixels.

Three modes are supported:

	None            nearest color only
	FloydSteinberg  raster order, 7/16 3/16 5/16 1/16
	SierraLite      serpentine order, 2/4 1/4 1/4, perceptually weighted

Every mode is deterministic; the same image and palette always produce the
same index plane.
*/
package dither

import (
	"fmt"
	"strings"

	"github.com/bodgit/fbin/palette"
)

// Mode selects the dithering strategy.
type Mode int

const (
	// None picks the nearest color for each pixel independently.
	None Mode = iota
	// FloydSteinberg diffuses error in raster order.
	FloydSteinberg
	// SierraLite diffuses error with serpentine scanning and a weighted
	// color distance.
	SierraLite
)

var modeNames = map[string]Mode{
	"0":               None,
	"none":            None,
	"1":               FloydSteinberg,
	"standard":        FloydSteinberg,
	"floyd-steinberg": FloydSteinberg,
	"2":               SierraLite,
	"enhanced":        SierraLite,
	"sierra-lite":     SierraLite,
}

// ParseMode returns the mode matching s, either by number or by name.
func ParseMode(s string) (Mode, error) {
	if m, ok := modeNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return None, fmt.Errorf("dither: invalid mode %q", s)
}

func (m Mode) String() string {
	switch m {
	case None:
		return "none"
	case FloydSteinberg:
		return "floyd-steinberg"
	case SierraLite:
		return "sierra-lite"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

type weight struct {
	dx, dy, num int
}

// A kernel describes where error goes relative to the current pixel when
// scanning left to right. Serpentine kernels mirror dx on odd rows.
type kernel struct {
	den        int
	weights    []weight
	metric     palette.Metric
	serpentine bool
}

var kernels = map[Mode]kernel{
	FloydSteinberg: {
		den: 16,
		weights: []weight{
			{1, 0, 7},
			{-1, 1, 3},
			{0, 1, 5},
			{1, 1, 1},
		},
		metric: palette.Euclidean,
	},
	SierraLite: {
		den: 4,
		weights: []weight{
			{1, 0, 2},
			{-1, 1, 1},
			{0, 1, 1},
		},
		metric:     palette.Weighted,
		serpentine: true,
	},
}

// Apply returns the index plane for src using the given mode. src is not
// modified.
func Apply(mode Mode, src *Image, p *palette.Expanded) []byte {
	k, ok := kernels[mode]
	if !ok {
		return nearest(src, p)
	}
	return k.diffuse(src, p)
}

func nearest(src *Image, p *palette.Expanded) []byte {
	pix := make([]byte, len(src.Pix))
	for i, c := range src.Pix {
		j, _ := p.Nearest(c, palette.Euclidean)
		pix[i] = byte(j)
	}
	return pix
}

func (k kernel) diffuse(src *Image, p *palette.Expanded) []byte {
	m := src.Clone()
	pix := make([]byte, len(m.Pix))

	for y := 0; y < m.Height; y++ {
		reverse := k.serpentine && y&1 == 1
		for i := 0; i < m.Width; i++ {
			x, dir := i, 1
			if reverse {
				x, dir = m.Width-1-i, -1
			}

			old := m.At(x, y)
			j, _ := p.Nearest(old, k.metric)
			pix[y*m.Width+x] = byte(j)

			e := difference(old, p[j])
			for _, w := range k.weights {
				m.diffuse(x+w.dx*dir, y+w.dy, e, w.num, k.den)
			}
		}
	}

	return pix
}
