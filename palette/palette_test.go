package palette

import (
	"math/rand"
	"testing"

	"github.com/bodgit/fbin/bgr555"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = bgr555.Pack(255, 0, 0)
	green = bgr555.Pack(0, 255, 0)
	blue  = bgr555.Pack(0, 0, 255)
	white = bgr555.Pack(255, 255, 255)
)

func TestGenerate(t *testing.T) {
	p := Generate([]bgr555.Color{red, red, green, blue})

	assert.Equal(t, red, p[0])
	assert.Equal(t, green, p[1])
	assert.Equal(t, blue, p[2])
	for i := 3; i < Size; i++ {
		assert.Equal(t, bgr555.Color(0), p[i])
	}
}

func TestGenerateEmpty(t *testing.T) {
	assert.Equal(t, Palette{}, Generate(nil))
}

func TestGenerateFrequencyOrder(t *testing.T) {
	pixels := []bgr555.Color{blue, white, green, white, green, white, red}

	p := Generate(pixels)

	// white x3, green x2, then blue and red tie at one in first-seen order
	assert.Equal(t, []bgr555.Color{white, green, blue, red}, p[:4])
}

func TestGenerateCompleteness(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	distinct := make([]bgr555.Color, 200)
	for i := range distinct {
		distinct[i] = bgr555.Color(i*97 + 1)
	}

	var pixels []bgr555.Color
	for i := 0; i < 5000; i++ {
		pixels = append(pixels, distinct[r.Intn(len(distinct))])
	}

	counts := make(map[bgr555.Color]int)
	for _, c := range pixels {
		counts[c]++
	}

	p := Generate(pixels)

	seen := make(map[bgr555.Color]int)
	for i := 0; i < len(counts); i++ {
		seen[p[i]]++
	}
	for _, c := range distinct {
		if counts[c] > 0 {
			assert.Equal(t, 1, seen[c], "color %#04x", c)
		}
	}
	for i := len(counts); i < Size; i++ {
		assert.Equal(t, bgr555.Color(0), p[i])
	}

	for i := 1; i < len(counts); i++ {
		assert.GreaterOrEqual(t, counts[p[i-1]], counts[p[i]])
	}
}

func TestGenerateTruncates(t *testing.T) {
	var pixels []bgr555.Color
	for i := 0; i < 1000; i++ {
		// Colors with a lower value occur more often
		for j := 0; j < 1000-i; j++ {
			pixels = append(pixels, bgr555.Color(i))
		}
	}

	p := Generate(pixels)
	for i := range p {
		require.Equal(t, bgr555.Color(i), p[i])
	}
}

func TestNearest(t *testing.T) {
	p := Generate([]bgr555.Color{red, red, green, blue})
	e := p.Expand()

	tables := []struct {
		c      bgr555.RGB
		metric Metric
		index  int
	}{
		{bgr555.RGB{R: 250, G: 10, B: 10}, Euclidean, 0},
		{bgr555.RGB{R: 10, G: 200, B: 10}, Euclidean, 1},
		{bgr555.RGB{R: 10, G: 10, B: 200}, Weighted, 2},
		// Black is repeated from index 3 onwards, the first one wins
		{bgr555.RGB{R: 0, G: 0, B: 0}, Euclidean, 3},
		{bgr555.RGB{R: 0, G: 0, B: 0}, Weighted, 3},
	}

	for _, table := range tables {
		i, _ := e.Nearest(table.c, table.metric)
		assert.Equal(t, table.index, i, "%v %v", table.c, table.metric)
	}
}

func TestNearestTieBreak(t *testing.T) {
	var p Palette
	p[0] = bgr555.Pack(0, 0, 0)
	p[1] = bgr555.Pack(16, 16, 16)
	p[2] = bgr555.Pack(16, 16, 16)

	// Equidistant between index 0 and index 1/2
	i, d := p.Expand().Nearest(bgr555.RGB{R: 8, G: 8, B: 8}, Euclidean)
	assert.Equal(t, 0, i)
	assert.Equal(t, 3*8*8, d)

	i, _ = p.Expand().Nearest(bgr555.RGB{R: 16, G: 16, B: 16}, Euclidean)
	assert.Equal(t, 1, i)
}

func TestMetricDistance(t *testing.T) {
	a, b := bgr555.RGB{R: 10, G: 20, B: 30}, bgr555.RGB{R: 11, G: 22, B: 33}
	assert.Equal(t, 1+4+9, Euclidean.Distance(a, b))
	assert.Equal(t, 3*1+6*4+9, Weighted.Distance(a, b))
}
