package format

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/bodgit/fbin/bgr555"
	"github.com/bodgit/fbin/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomUnit(r *rand.Rand, w, h int) *Unit {
	u := NewUnit(w, h)
	for i := range u.Palette {
		u.Palette[i] = bgr555.Color(r.Intn(0x8000))
	}
	r.Read(u.Pix)
	return u
}

func TestEncodeLayout(t *testing.T) {
	pixels := []bgr555.Color{
		bgr555.Pack(255, 0, 0),
		bgr555.Pack(255, 0, 0),
		bgr555.Pack(0, 255, 0),
		bgr555.Pack(0, 0, 255),
	}

	u := NewUnit(2, 2)
	u.Palette = palette.Generate(pixels)
	copy(u.Pix, []byte{0, 0, 1, 2})

	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, u))

	out := b.Bytes()
	require.Len(t, out, 512+4)
	assert.Equal(t, []byte{0x00, 0x7c, 0xe0, 0x03, 0x1f, 0x00}, out[:6])
	assert.Equal(t, make([]byte, 506), out[6:512])
	assert.Equal(t, []byte{0, 0, 1, 2}, out[512:])
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	tables := []struct {
		w, h int
	}{
		{320, 240},
		{160, 96},
		{1, 1},
		{0, 0},
	}

	for _, table := range tables {
		units := []*Unit{
			randomUnit(r, table.w, table.h),
			randomUnit(r, table.w, table.h),
			randomUnit(r, table.w, table.h),
		}

		b := new(bytes.Buffer)
		for _, u := range units {
			require.NoError(t, Encode(b, u))
		}

		n, err := Count(int64(b.Len()), table.w, table.h)
		require.NoError(t, err)
		assert.Equal(t, len(units), n)

		d := NewDecoder(b, table.w, table.h)
		for _, want := range units {
			got, err := d.Decode()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}

		_, err = d.Decode()
		assert.Equal(t, io.EOF, err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	u := randomUnit(rand.New(rand.NewSource(2)), 4, 4)
	b, err := u.MarshalBinary()
	require.NoError(t, err)

	for _, n := range []int{1, 511, 512, len(b) - 1} {
		d := NewDecoder(bytes.NewReader(b[:n]), 4, 4)
		_, err := d.Decode()
		assert.Equal(t, ErrNotEnough, err, n)
	}

	_, err = Count(int64(len(b)+1), 4, 4)
	assert.Equal(t, ErrNotEnough, err)
}

func TestDecodeIgnoresUnusedBit(t *testing.T) {
	b := make([]byte, UnitSize(1, 1))
	b[0], b[1] = 0xff, 0xff

	u := &Unit{Width: 1, Height: 1}
	require.NoError(t, u.UnmarshalBinary(b))
	assert.Equal(t, bgr555.Color(0x7fff), u.Palette[0])
}

func TestEncodeInvalid(t *testing.T) {
	u := NewUnit(2, 2)
	u.Pix = u.Pix[:3]
	assert.Equal(t, errBadSize, Encode(io.Discard, u))

	u = NewUnit(2, 2)
	u.Palette[7] = 0x8000
	assert.Equal(t, errBadColor, Encode(io.Discard, u))

	u = &Unit{Width: 2, Height: 2}
	assert.Error(t, u.UnmarshalBinary(make([]byte, 10)))
}

func TestImage(t *testing.T) {
	u := NewUnit(2, 1)
	u.Palette[1] = bgr555.Pack(255, 255, 255)
	u.Pix[1] = 1

	m := u.Image()
	assert.Equal(t, 2, m.Bounds().Dx())
	assert.Equal(t, uint8(1), m.ColorIndexAt(1, 0))

	r, g, b, _ := m.At(1, 0).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff}, []uint32{r, g, b})
}
