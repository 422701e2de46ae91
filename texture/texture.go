/*
Package texture implements the packed texture format used by the face
resource archive.

Each texture item is an 8 byte header holding the width, height, a constant
tag byte, the pixel format and the two wrap modes, followed by the pixel
data. The pixel data covers the dimensions rounded up to the next power of
two, with a minimum of 8, and is stored as 8 by 8 tiles. Within a tile the
texels are swizzled by interleaving the low three bits of x and y, and rows
are stored bottom to top.

Twelve pixel formats are supported, from 4-bit intensity up to 32-bit RGBA.
Decoding expands every channel to 8 bits by bit replication and produces a
flat, row-major, top to bottom RGBA8 buffer.
*/
package texture

import (
	"encoding/binary"
	"fmt"

	"github.com/bodgit/citrii/bytestruct"
	"github.com/pkg/errors"
)

const (
	tileWidth  = 8
	tileHeight = tileWidth
	tilePixels = tileWidth * tileHeight
	headerSize = 8
	tag        = 0x01
)

var (
	// ErrNotEnough is returned when the item is shorter than its header
	// claims.
	ErrNotEnough = errors.New("texture: not enough pixel data")
	// ErrBadTag is returned when the constant header tag is wrong.
	ErrBadTag = errors.New("texture: invalid header tag")
	// ErrUnknownFormat is returned for a format code outside 0-11.
	ErrUnknownFormat = errors.New("texture: unknown format")
	// ErrUnknownWrapMode is returned for a wrap mode code outside 0-2.
	ErrUnknownWrapMode = errors.New("texture: unknown wrap mode")
)

// Format is a packed pixel format.
type Format uint8

// Pixel formats, in the order of their on-disk codes.
const (
	I4 Format = iota
	I8
	A4
	A8
	IA4
	IA8
	RG8
	RGB565
	RGB8
	RGB5A1
	RGBA4
	RGBA8
)

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return int(f) < len(formats)
}

// BitsPerPixel returns the storage size of one texel in bits.
func (f Format) BitsPerPixel() int {
	return formats[f].bpp
}

func (f Format) pairSize() int {
	return formats[f].bpp * 2 / 8
}

func (f Format) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
	return formats[f].name
}

// WrapMode is how texture coordinates outside 0-1 are resolved.
type WrapMode uint8

// Wrap modes, in the order of their on-disk codes.
const (
	Edge WrapMode = iota
	Repeat
	Mirror
)

// Valid reports whether w is a known wrap mode.
func (w WrapMode) Valid() bool {
	return w <= Mirror
}

func (w WrapMode) String() string {
	switch w {
	case Edge:
		return "edge"
	case Repeat:
		return "repeat"
	case Mirror:
		return "mirror"
	}
	return fmt.Sprintf("WrapMode(%d)", uint8(w))
}

// PaddedSize returns s rounded up to a power of two, minimum 8.
func PaddedSize(s uint16) int {
	n := tileWidth
	for n < int(s) {
		n <<= 1
	}
	return n
}

// Raw is an undecoded texture.
type Raw struct {
	Width  uint16
	Height uint16
	Format Format
	WrapU  WrapMode
	WrapV  WrapMode
	Pixels []byte
}

// PixelBytes returns the length of the swizzled pixel data for the
// texture's dimensions and format.
func (r *Raw) PixelBytes() int {
	return PaddedSize(r.Width) * PaddedSize(r.Height) * r.Format.BitsPerPixel() / 8
}

type header struct {
	Width  uint16
	Height uint16
	Tag    uint8
	Format uint8
	WrapU  uint8
	WrapV  uint8
}

var headerLayout = bytestruct.NewRecord(binary.LittleEndian,
	bytestruct.Member("width", bytestruct.Uint16, func(h *header) *uint16 { return &h.Width }),
	bytestruct.Member("height", bytestruct.Uint16, func(h *header) *uint16 { return &h.Height }),
	bytestruct.Member("tag", bytestruct.Uint8, func(h *header) *uint8 { return &h.Tag }),
	bytestruct.Member("format", bytestruct.Uint8, func(h *header) *uint8 { return &h.Format }),
	bytestruct.Member("wrap_u", bytestruct.Uint8, func(h *header) *uint8 { return &h.WrapU }),
	bytestruct.Member("wrap_v", bytestruct.Uint8, func(h *header) *uint8 { return &h.WrapV }),
)

// Parse reads a texture item from the start of b and returns it along with
// any bytes following the pixel data. The pixel data is copied.
func Parse(b []byte) (*Raw, []byte, error) {
	if len(b) < headerSize {
		return nil, nil, ErrNotEnough
	}
	h := headerLayout.Unmarshal(b[:headerSize])
	if h.Tag != tag {
		return nil, nil, errors.Wrapf(ErrBadTag, "got %#02x", h.Tag)
	}

	r := &Raw{
		Width:  h.Width,
		Height: h.Height,
		Format: Format(h.Format),
		WrapU:  WrapMode(h.WrapU),
		WrapV:  WrapMode(h.WrapV),
	}
	if !r.Format.Valid() {
		return nil, nil, errors.Wrapf(ErrUnknownFormat, "code %d", h.Format)
	}
	if !r.WrapU.Valid() || !r.WrapV.Valid() {
		return nil, nil, errors.Wrapf(ErrUnknownWrapMode, "codes %d, %d", h.WrapU, h.WrapV)
	}

	n := r.PixelBytes()
	b = b[headerSize:]
	if len(b) < n {
		return nil, nil, errors.Wrapf(ErrNotEnough, "%s %dx%d needs %d bytes, have %d", r.Format, r.Width, r.Height, n, len(b))
	}
	r.Pixels = append([]byte(nil), b[:n]...)

	return r, b[n:], nil
}

// MarshalBinary encodes the texture item, header and pixels.
func (r *Raw) MarshalBinary() ([]byte, error) {
	if !r.Format.Valid() {
		return nil, ErrUnknownFormat
	}
	if !r.WrapU.Valid() || !r.WrapV.Valid() {
		return nil, ErrUnknownWrapMode
	}
	if len(r.Pixels) != r.PixelBytes() {
		return nil, ErrNotEnough
	}

	h := header{
		Width:  r.Width,
		Height: r.Height,
		Tag:    tag,
		Format: uint8(r.Format),
		WrapU:  uint8(r.WrapU),
		WrapV:  uint8(r.WrapV),
	}
	b := make([]byte, headerSize+len(r.Pixels))
	headerLayout.Encode(b[:headerSize], &h)
	copy(b[headerSize:], r.Pixels)

	return b, nil
}
