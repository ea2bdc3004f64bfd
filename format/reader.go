package format

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bodgit/fbin/bgr555"
)

// ErrNotEnough is returned when a stream ends part way through a unit.
var ErrNotEnough = errors.New("format: not enough unit data")

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// UnmarshalBinary decodes a unit from binary form. The dimensions of u must
// already be set.
func (u *Unit) UnmarshalBinary(b []byte) error {
	if u.Width < 0 || u.Height < 0 {
		return errBadSize
	}
	if len(b) != u.Size() {
		return fmt.Errorf("format: expected %d bytes, got %d", u.Size(), len(b))
	}

	for i := range u.Palette {
		// Bit 15 has no meaning so it is not trusted
		u.Palette[i] = bgr555.Color(binary.LittleEndian.Uint16(b[i*colorBytes:]) & 0x7fff)
	}
	u.Pix = make([]byte, len(b)-paletteBytes)
	copy(u.Pix, b[paletteBytes:])

	return nil
}

// Decoder reads consecutive units of a fixed size from a stream.
type Decoder struct {
	r             io.Reader
	width, height int
	tmp           []byte
}

// NewDecoder returns a decoder reading units of width by height pixels.
func NewDecoder(r io.Reader, width, height int) *Decoder {
	return &Decoder{
		r:      r,
		width:  width,
		height: height,
		tmp:    make([]byte, UnitSize(width, height)),
	}
}

// Decode reads the next unit. It returns io.EOF if the stream ends cleanly
// on a unit boundary.
func (d *Decoder) Decode() (*Unit, error) {
	if n, err := io.ReadFull(d.r, d.tmp[:1]); n == 0 {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, err
	}

	if err := readFull(d.r, d.tmp[1:]); err != nil {
		if err != io.ErrUnexpectedEOF {
			return nil, err
		}
		return nil, ErrNotEnough
	}

	u := &Unit{Width: d.width, Height: d.height}
	if err := u.UnmarshalBinary(d.tmp); err != nil {
		return nil, err
	}
	return u, nil
}

// Count returns how many units of width by height pixels fit exactly in a
// stream of size bytes.
func Count(size int64, width, height int) (int, error) {
	n := int64(UnitSize(width, height))
	if size%n != 0 {
		return 0, ErrNotEnough
	}
	return int(size / n), nil
}
