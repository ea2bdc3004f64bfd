package format

import (
	"encoding/binary"
	"errors"
	"io"
)

var (
	errBadSize  = errors.New("format: index plane does not match dimensions")
	errBadColor = errors.New("format: palette color uses bit 15")
)

func (u *Unit) validate() error {
	if u.Width < 0 || u.Height < 0 || len(u.Pix) != u.Width*u.Height {
		return errBadSize
	}
	for _, c := range u.Palette {
		if !c.Valid() {
			return errBadColor
		}
	}
	return nil
}

// MarshalBinary encodes u into binary form and returns the result.
func (u *Unit) MarshalBinary() ([]byte, error) {
	if err := u.validate(); err != nil {
		return nil, err
	}

	b := make([]byte, u.Size())
	for i, c := range u.Palette {
		binary.LittleEndian.PutUint16(b[i*colorBytes:], uint16(c))
	}
	copy(b[paletteBytes:], u.Pix)

	return b, nil
}

// Encode writes u to w. The unit is written with a single call so a failed
// write never leaves the first half of a unit behind a well-formed one.
func Encode(w io.Writer, u *Unit) error {
	b, err := u.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
