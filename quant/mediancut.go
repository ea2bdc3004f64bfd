package quant

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/bodgit/fbin/bgr555"
	"github.com/bodgit/fbin/format"
	"github.com/bodgit/fbin/palette"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/makeworld-the-better-one/dither/v2"
	"golang.org/x/image/draw"
)

// ErrQualityTooLow is returned when the best palette found is below the
// minimum quality.
var ErrQualityTooLow = errors.New("quant: quality too low")

const minColors = 16

// MedianCut quantizes with a median cut palette.
type MedianCut struct {
	// MaxColors caps the palette size, up to 256
	MaxColors int
	// QualityMin and QualityMax are on a scale of 0 to 100. Smaller
	// palettes are tried first and the first one reaching QualityMax is
	// kept.
	QualityMin, QualityMax int
	// Dither sets the strength of the error diffusion from 0 to 1
	Dither float32
}

// NewMedianCut returns a quantizer using every color with no minimum quality.
func NewMedianCut(strength float32) *MedianCut {
	return &MedianCut{
		MaxColors:  palette.Size,
		QualityMax: 100,
		Dither:     strength,
	}
}

// Quantize implements the Quantizer interface.
func (q *MedianCut) Quantize(m image.Image) (*format.Unit, error) {
	src := ToRGBA(m)

	max := q.MaxColors
	if max <= 0 || max > palette.Size {
		max = palette.Size
	}

	n := minColors
	if n > max {
		n = max
	}

	var best *image.Paletted
	bestQuality := -1
	for {
		pm := q.remap(src, n)
		if quality := Quality(src, pm); quality > bestQuality {
			best, bestQuality = pm, quality
		}
		if bestQuality >= q.QualityMax || n == max {
			break
		}
		if n *= 2; n > max {
			n = max
		}
	}

	if bestQuality < q.QualityMin {
		return nil, fmt.Errorf("%w: %d < %d", ErrQualityTooLow, bestQuality, q.QualityMin)
	}

	u := format.NewUnit(best.Rect.Dx(), best.Rect.Dy())
	copy(u.Pix, best.Pix)
	for i, c := range best.Palette {
		if i == palette.Size {
			break
		}
		u.Palette[i] = bgr555.Model.Convert(c).(bgr555.Color)
	}

	return u, nil
}

func (q *MedianCut) remap(src *image.RGBA, n int) *image.Paletted {
	b := src.Bounds()

	mq := quantize.MedianCutQuantizer{}
	p := mq.Quantize(make(color.Palette, 0, n), src)
	if len(p) == 0 {
		p = append(p, color.RGBA{0, 0, 0, 0xff})
	}

	if q.Dither > 0 {
		d := dither.NewDitherer(p)
		d.Matrix = dither.ErrorDiffusionStrength(dither.FloydSteinberg, q.Dither)
		if pm := d.DitherPaletted(src); pm != nil {
			return pm
		}
	}

	pm := image.NewPaletted(b, p)
	draw.Draw(pm, b, src, b.Min, draw.Src)
	return pm
}

func qualityToMSE(quality int) float64 {
	switch {
	case quality <= 0:
		return math.MaxFloat64
	case quality >= 100:
		return 0
	}
	q := float64(quality)
	fudge := math.Max(0, 0.016/(0.001+q)-0.001)
	return fudge + 2.5/math.Pow(210+q, 1.2)*(100.1-q)/100
}

func mseToQuality(mse float64) int {
	for i := 100; i > 0; i-- {
		if mse <= qualityToMSE(i)+0.000001 {
			return i
		}
	}
	return 0
}

// Quality rates how closely pm reproduces src from 0 to 100, where 100 is an
// exact match.
func Quality(src image.Image, pm *image.Paletted) int {
	b := src.Bounds()
	if b.Empty() {
		return 100
	}

	var sum float64
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			s := bgr555.FromColor(src.At(b.Min.X+x, b.Min.Y+y))
			d := bgr555.FromColor(pm.Palette[pm.ColorIndexAt(pm.Rect.Min.X+x, pm.Rect.Min.Y+y)])
			for _, v := range [3]float64{
				float64(int(s.R)-int(d.R)) / 255,
				float64(int(s.G)-int(d.G)) / 255,
				float64(int(s.B)-int(d.B)) / 255,
			} {
				sum += v * v
			}
		}
	}

	return mseToQuality(sum / float64(3*b.Dx()*b.Dy()))
}
