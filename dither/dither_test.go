package dither

import (
	"math/rand"
	"testing"

	"github.com/bodgit/fbin/bgr555"
	"github.com/bodgit/fbin/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modes = []Mode{None, FloydSteinberg, SierraLite}

func gray(v uint8) bgr555.RGB {
	return bgr555.RGB{R: v, G: v, B: v}
}

func uniform(w, h int, c bgr555.RGB) *Image {
	m := NewImage(w, h)
	for i := range m.Pix {
		m.Pix[i] = c
	}
	return m
}

func blackAndWhite() *palette.Expanded {
	var p palette.Palette
	p[1] = bgr555.Pack(255, 255, 255)
	return p.Expand()
}

func randomImage(r *rand.Rand, w, h int) *Image {
	m := NewImage(w, h)
	for i := range m.Pix {
		m.Pix[i] = bgr555.Color(r.Intn(0x8000)).Expand()
	}
	return m
}

func TestParseMode(t *testing.T) {
	tables := []struct {
		s    string
		mode Mode
	}{
		{"0", None},
		{"none", None},
		{"1", FloydSteinberg},
		{"Standard", FloydSteinberg},
		{"floyd-steinberg", FloydSteinberg},
		{"2", SierraLite},
		{" enhanced ", SierraLite},
		{"sierra-lite", SierraLite},
	}

	for _, table := range tables {
		m, err := ParseMode(table.s)
		require.NoError(t, err)
		assert.Equal(t, table.mode, m)
	}

	for _, s := range []string{"", "3", "ordered", "-1"} {
		_, err := ParseMode(s)
		assert.Error(t, err, s)
	}
}

func TestEndToEnd(t *testing.T) {
	pixels := []bgr555.Color{
		bgr555.Pack(255, 0, 0),
		bgr555.Pack(255, 0, 0),
		bgr555.Pack(0, 255, 0),
		bgr555.Pack(0, 0, 255),
	}
	p := palette.Generate(pixels)
	pix := Apply(None, FromPacked(2, 2, pixels), p.Expand())

	assert.Equal(t, []byte{0, 0, 1, 2}, pix)
}

func TestNoneIsNearest(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	m := randomImage(r, 17, 9)

	pixels := make([]bgr555.Color, 300)
	for i := range pixels {
		pixels[i] = bgr555.Color(r.Intn(0x8000))
	}
	p := palette.Generate(pixels)
	e := p.Expand()

	pix := Apply(None, m, e)
	for i, c := range m.Pix {
		got := int(pix[i])
		d := palette.Euclidean.Distance(c, e[got])
		for j := range e {
			dj := palette.Euclidean.Distance(c, e[j])
			require.False(t, dj < d, "pixel %d: index %d is closer than %d", i, j, got)
			if dj == d {
				require.LessOrEqual(t, got, j, "pixel %d: tie not resolved to lowest index", i)
				break
			}
		}
	}
}

func TestFloydSteinberg(t *testing.T) {
	m := uniform(2, 1, gray(100))
	e := blackAndWhite()

	assert.Equal(t, []byte{0, 0}, Apply(None, m, e))
	// 100 + 100*7/16 = 143 rounds up to white
	assert.Equal(t, []byte{0, 1}, Apply(FloydSteinberg, m, e))
}

func TestFloydSteinbergNeighbors(t *testing.T) {
	var e palette.Expanded
	for i, v := range []uint8{0, 85, 170, 255} {
		e[i] = gray(v)
	}

	m := NewImage(4, 3)
	for i, v := range []uint8{
		19, 34, 73, 112,
		203, 210, 230, 119,
		86, 1, 51, 3,
	} {
		m.Pix[i] = gray(v)
	}

	// Swapping any two weights, dropping any one of them or letting error
	// wrap onto the next row all change this result
	assert.Equal(t, []byte{
		0, 0, 1, 1,
		3, 2, 3, 2,
		1, 0, 1, 0,
	}, Apply(FloydSteinberg, m, &e))
}

func TestSierraLiteSerpentine(t *testing.T) {
	m := uniform(2, 2, gray(100))
	e := blackAndWhite()

	// The second row is scanned right to left so the error from (1,1)
	// pushes (0,1) over to white
	assert.Equal(t, []byte{0, 1, 1, 0}, Apply(SierraLite, m, e))

	k := kernels[SierraLite]
	k.serpentine = false
	assert.Equal(t, []byte{0, 1, 0, 0}, k.diffuse(m, e))
}

func TestApplyDoesNotModifySource(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	m := randomImage(r, 8, 8)
	dup := m.Clone()

	for _, mode := range modes {
		Apply(mode, m, blackAndWhite())
		assert.Equal(t, dup, m, mode.String())
	}
}

func TestDeterminism(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	m := randomImage(r, 31, 23)

	pixels := make([]bgr555.Color, len(m.Pix))
	for i, c := range m.Pix {
		pixels[i] = c.Pack()
	}
	p := palette.Generate(pixels)
	e := p.Expand()

	for _, mode := range modes {
		first := Apply(mode, m, e)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, Apply(mode, m, e), mode.String())
		}
		assert.Len(t, first, 31*23)
	}
}

func TestKernelWeights(t *testing.T) {
	for mode, k := range kernels {
		sum := 0
		for _, w := range k.weights {
			sum += w.num
			// Error only ever flows ahead or below
			assert.True(t, w.dy > 0 || (w.dy == 0 && w.dx > 0), mode.String())
		}
		assert.Equal(t, k.den, sum, mode.String())
	}
}

func TestDiffuseClamps(t *testing.T) {
	m := uniform(2, 2, gray(10))

	m.diffuse(0, 0, quantError{-300, 300, 0}, 1, 1)
	assert.Equal(t, bgr555.RGB{R: 0, G: 255, B: 10}, m.At(0, 0))

	// Outside of the image is ignored
	m.diffuse(2, 0, quantError{50, 50, 50}, 1, 1)
	m.diffuse(-1, 1, quantError{50, 50, 50}, 1, 1)
	assert.Equal(t, gray(10), m.At(1, 0))
	assert.Equal(t, gray(10), m.At(0, 1))
	assert.Equal(t, bgr555.RGB{}, m.At(5, 5))
}

func TestDiffuseTruncates(t *testing.T) {
	m := uniform(1, 1, gray(100))

	// -7*3/16 truncates toward zero to -1, not -2
	m.diffuse(0, 0, quantError{-7, -7, -7}, 3, 16)
	assert.Equal(t, gray(99), m.At(0, 0))
}
