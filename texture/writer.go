package texture

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// Encoding keeps the top bits of each channel. Intensity is the mean of
// the three color channels.

func intensity(p []byte) byte {
	return byte((int(p[0]) + int(p[1]) + int(p[2])) / 3)
}

func encodeI4(dst, src []byte) {
	dst[0] = intensity(src[0:4])>>4 | intensity(src[4:8])&0xf0
}

func encodeI8(dst, src []byte) {
	dst[0], dst[1] = intensity(src[0:4]), intensity(src[4:8])
}

func encodeA4(dst, src []byte) {
	dst[0] = src[3]>>4 | src[7]&0xf0
}

func encodeA8(dst, src []byte) {
	dst[0], dst[1] = src[3], src[7]
}

func encodeIA4(dst, src []byte) {
	dst[0] = intensity(src[0:4])&0xf0 | src[3]>>4
	dst[1] = intensity(src[4:8])&0xf0 | src[7]>>4
}

func encodeIA8(dst, src []byte) {
	dst[0], dst[1] = src[3], intensity(src[0:4])
	dst[2], dst[3] = src[7], intensity(src[4:8])
}

func encodeRG8(dst, src []byte) {
	dst[0], dst[1] = src[1], src[0]
	dst[2], dst[3] = src[5], src[4]
}

func encodeRGB565(dst, src []byte) {
	for i := 0; i < 2; i++ {
		s, d := src[i*4:i*4+4], dst[i*2:i*2+2]
		v := uint16(s[0]>>3)<<11 | uint16(s[1]>>2)<<5 | uint16(s[2]>>3)
		d[0], d[1] = byte(v), byte(v>>8)
	}
}

func encodeRGB8(dst, src []byte) {
	copy(dst, []byte{src[2], src[1], src[0], src[6], src[5], src[4]})
}

func encodeRGB5A1(dst, src []byte) {
	for i := 0; i < 2; i++ {
		s, d := src[i*4:i*4+4], dst[i*2:i*2+2]
		v := uint16(s[0]>>3)<<11 | uint16(s[1]>>3)<<6 | uint16(s[2]>>3)<<1 | uint16(s[3]>>7)
		d[0], d[1] = byte(v), byte(v>>8)
	}
}

func encodeRGBA4(dst, src []byte) {
	for i := 0; i < 2; i++ {
		s, d := src[i*4:i*4+4], dst[i*2:i*2+2]
		d[0] = s[2]&0xf0 | s[3]>>4
		d[1] = s[0]&0xf0 | s[1]>>4
	}
}

func encodeRGBA8(dst, src []byte) {
	copy(dst, []byte{src[3], src[2], src[1], src[0], src[7], src[6], src[5], src[4]})
}

// Encode converts m into a texture of the given format. Texels outside the
// image but within the padded tile area are zero.
func Encode(m image.Image, f Format, wrapU, wrapV WrapMode) (*Raw, error) {
	if !f.Valid() {
		return nil, ErrUnknownFormat
	}
	if !wrapU.Valid() || !wrapV.Valid() {
		return nil, ErrUnknownWrapMode
	}

	b := m.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 || b.Dx() > 0xffff || b.Dy() > 0xffff {
		return nil, errors.Errorf("texture: cannot encode %dx%d image", b.Dx(), b.Dy())
	}

	r := &Raw{
		Width:  uint16(b.Dx()),
		Height: uint16(b.Dy()),
		Format: f,
		WrapU:  wrapU,
		WrapV:  wrapV,
	}
	r.Pixels = make([]byte, r.PixelBytes())

	width, height := int(r.Width), int(r.Height)
	paddedWidth := PaddedSize(r.Width)
	pairSize := f.pairSize()
	encode := formats[f].encode

	var pair [8]byte
	for y := 0; y < height; y++ {
		sy := height - y - 1
		for x := 0; x < width; x += 2 {
			for i := 0; i < 2; i++ {
				c := color.NRGBA{}
				if x+i < width {
					c = color.NRGBAModel.Convert(m.At(b.Min.X+x+i, b.Min.Y+y)).(color.NRGBA)
				}
				pair[i*4+0], pair[i*4+1], pair[i*4+2], pair[i*4+3] = c.R, c.G, c.B, c.A
			}
			o := pairOffset(x, sy, paddedWidth, pairSize)
			encode(r.Pixels[o:o+pairSize], pair[:])
		}
	}

	return r, nil
}
