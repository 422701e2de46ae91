package texture

import (
	"image"

	"github.com/pkg/errors"
)

// Offsets of each x and y within a tile, interleaved as y2x2y1x1y0x0.
var (
	xlut = [tileWidth]int{0x00, 0x01, 0x04, 0x05, 0x10, 0x11, 0x14, 0x15}
	ylut = [tileHeight]int{0x00, 0x02, 0x08, 0x0a, 0x20, 0x22, 0x28, 0x2a}
)

func expand1(v byte) byte { return v * 255 }

func expand4(v byte) byte { return v<<4 | v }

func expand5(v byte) byte { return v<<3 | v>>2 }

func expand6(v byte) byte { return v<<2 | v>>4 }

type format struct {
	name   string
	bpp    int
	decode func(dst, src []byte)
	encode func(dst, src []byte)
}

// Each decode function turns one pixel pair of src into two RGBA8 texels
// in dst; each encode function is its inverse.
var formats = [...]format{
	I4:     {"I4", 4, decodeI4, encodeI4},
	I8:     {"I8", 8, decodeI8, encodeI8},
	A4:     {"A4", 4, decodeA4, encodeA4},
	A8:     {"A8", 8, decodeA8, encodeA8},
	IA4:    {"IA4", 8, decodeIA4, encodeIA4},
	IA8:    {"IA8", 16, decodeIA8, encodeIA8},
	RG8:    {"RG8", 16, decodeRG8, encodeRG8},
	RGB565: {"RGB565", 16, decodeRGB565, encodeRGB565},
	RGB8:   {"RGB8", 24, decodeRGB8, encodeRGB8},
	RGB5A1: {"RGB5A1", 16, decodeRGB5A1, encodeRGB5A1},
	RGBA4:  {"RGBA4", 16, decodeRGBA4, encodeRGBA4},
	RGBA8:  {"RGBA8", 32, decodeRGBA8, encodeRGBA8},
}

func decodeI4(dst, src []byte) {
	x := expand4(src[0] & 0x0f)
	y := expand4(src[0] >> 4)
	copy(dst, []byte{x, x, x, 0xff, y, y, y, 0xff})
}

func decodeI8(dst, src []byte) {
	x, y := src[0], src[1]
	copy(dst, []byte{x, x, x, 0xff, y, y, y, 0xff})
}

func decodeA4(dst, src []byte) {
	x := expand4(src[0] & 0x0f)
	y := expand4(src[0] >> 4)
	copy(dst, []byte{0, 0, 0, x, 0, 0, 0, y})
}

func decodeA8(dst, src []byte) {
	copy(dst, []byte{0, 0, 0, src[0], 0, 0, 0, src[1]})
}

func decodeIA4(dst, src []byte) {
	xa, xi := expand4(src[0]&0x0f), expand4(src[0]>>4)
	ya, yi := expand4(src[1]&0x0f), expand4(src[1]>>4)
	copy(dst, []byte{xi, xi, xi, xa, yi, yi, yi, ya})
}

func decodeIA8(dst, src []byte) {
	xa, xi, ya, yi := src[0], src[1], src[2], src[3]
	copy(dst, []byte{xi, xi, xi, xa, yi, yi, yi, ya})
}

func decodeRG8(dst, src []byte) {
	xg, xr, yg, yr := src[0], src[1], src[2], src[3]
	copy(dst, []byte{xr, xg, 0, 0xff, yr, yg, 0, 0xff})
}

func decodeRGB565(dst, src []byte) {
	for i := 0; i < 2; i++ {
		s, d := src[i*2:i*2+2], dst[i*4:i*4+4]
		d[0] = expand5(s[1] >> 3)
		d[1] = expand6(s[1]&0x07<<3 | s[0]>>5)
		d[2] = expand5(s[0] & 0x1f)
		d[3] = 0xff
	}
}

func decodeRGB8(dst, src []byte) {
	copy(dst, []byte{src[2], src[1], src[0], 0xff, src[5], src[4], src[3], 0xff})
}

func decodeRGB5A1(dst, src []byte) {
	for i := 0; i < 2; i++ {
		s, d := src[i*2:i*2+2], dst[i*4:i*4+4]
		d[0] = expand5(s[1] >> 3)
		d[1] = expand5(s[1]&0x07<<2 | s[0]>>6)
		d[2] = expand5(s[0] & 0x3e >> 1)
		d[3] = expand1(s[0] & 0x01)
	}
}

func decodeRGBA4(dst, src []byte) {
	for i := 0; i < 2; i++ {
		s, d := src[i*2:i*2+2], dst[i*4:i*4+4]
		d[0] = expand4(s[1] >> 4)
		d[1] = expand4(s[1] & 0x0f)
		d[2] = expand4(s[0] >> 4)
		d[3] = expand4(s[0] & 0x0f)
	}
}

func decodeRGBA8(dst, src []byte) {
	copy(dst, []byte{src[3], src[2], src[1], src[0], src[7], src[6], src[5], src[4]})
}

// pairOffset returns the byte offset of the pixel pair holding the texel
// at x, y in source (bottom to top) coordinates. x must be even.
func pairOffset(x, y, paddedWidth, pairSize int) int {
	tile := x/tileWidth + y/tileHeight*paddedWidth/tileWidth
	return (tile*tilePixels + xlut[x%tileWidth] + ylut[y%tileHeight]) / 2 * pairSize
}

func (r *Raw) check() error {
	if !r.Format.Valid() {
		return ErrUnknownFormat
	}
	if n := r.PixelBytes(); len(r.Pixels) < n {
		return errors.Wrapf(ErrNotEnough, "need %d bytes, have %d", n, len(r.Pixels))
	}
	return nil
}

// Decode returns the texture as RGBA8, Width*Height*4 bytes, rows top to
// bottom. For an odd width the second texel of the last pair in each row
// is dropped.
func (r *Raw) Decode() ([]byte, error) {
	if err := r.check(); err != nil {
		return nil, err
	}

	width, height := int(r.Width), int(r.Height)
	paddedWidth := PaddedSize(r.Width)
	pairSize := r.Format.pairSize()
	decode := formats[r.Format].decode

	out := make([]byte, width*height*4)
	var pair [8]byte
	i := 0
	for y := 0; y < height; y++ {
		sy := height - y - 1
		for x := 0; x < width; x += 2 {
			o := pairOffset(x, sy, paddedWidth, pairSize)
			decode(pair[:], r.Pixels[o:o+pairSize])
			n := len(pair)
			if x+1 == width {
				n = 4
			}
			i += copy(out[i:i+n], pair[:n])
		}
	}

	return out, nil
}

// Image decodes the texture into a non-premultiplied RGBA image.
func (r *Raw) Image() (*image.NRGBA, error) {
	pix, err := r.Decode()
	if err != nil {
		return nil, err
	}
	return &image.NRGBA{
		Pix:    pix,
		Stride: int(r.Width) * 4,
		Rect:   image.Rect(0, 0, int(r.Width), int(r.Height)),
	}, nil
}
