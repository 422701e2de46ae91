package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allFormats = []Format{I4, I8, A4, A8, IA4, IA8, RG8, RGB565, RGB8, RGB5A1, RGBA4, RGBA8}

func randomRaw(r *rand.Rand, f Format, width, height uint16) *Raw {
	raw := &Raw{Width: width, Height: height, Format: f}
	raw.Pixels = make([]byte, raw.PixelBytes())
	r.Read(raw.Pixels)
	return raw
}

func TestPaddedSize(t *testing.T) {
	tables := map[uint16]int{
		0:   8,
		1:   8,
		7:   8,
		8:   8,
		9:   16,
		16:  16,
		17:  32,
		100: 128,
		128: 128,
	}
	for in, out := range tables {
		assert.Equal(t, out, PaddedSize(in), in)
	}
}

func TestBitsPerPixel(t *testing.T) {
	bpp := []int{4, 8, 4, 8, 8, 16, 16, 16, 24, 16, 16, 32}
	for i, f := range allFormats {
		assert.Equal(t, bpp[i], f.BitsPerPixel(), f.String())
	}
	assert.False(t, Format(12).Valid())
	assert.Equal(t, "Format(12)", Format(12).String())
}

func TestExpand(t *testing.T) {
	assert.Equal(t, byte(0xff), expand1(1))
	assert.Equal(t, byte(0x00), expand1(0))
	assert.Equal(t, byte(0xaa), expand4(0xa))
	assert.Equal(t, byte(0x08), expand5(0x01))
	assert.Equal(t, byte(0x84), expand5(0x10))
	assert.Equal(t, byte(0xff), expand5(0x1f))
	assert.Equal(t, byte(0x04), expand6(0x01))
	assert.Equal(t, byte(0x82), expand6(0x20))
	assert.Equal(t, byte(0xff), expand6(0x3f))
}

func TestDecodePair(t *testing.T) {
	tables := []struct {
		format Format
		in     []byte
		out    []byte
	}{
		{I4, []byte{0x3c}, []byte{0xcc, 0xcc, 0xcc, 0xff, 0x33, 0x33, 0x33, 0xff}},
		{A8, []byte{0x12, 0x34}, []byte{0, 0, 0, 0x12, 0, 0, 0, 0x34}},
		{IA4, []byte{0x3c, 0xf0}, []byte{0x33, 0x33, 0x33, 0xcc, 0xff, 0xff, 0xff, 0x00}},
		{RG8, []byte{0x01, 0x02, 0x03, 0x04}, []byte{0x02, 0x01, 0x00, 0xff, 0x04, 0x03, 0x00, 0xff}},
		{RGB565, []byte{0x1f, 0xf8, 0xe0, 0x07}, []byte{0xff, 0x00, 0xff, 0xff, 0x00, 0xff, 0x00, 0xff}},
		{RGB8, []byte{1, 2, 3, 4, 5, 6}, []byte{3, 2, 1, 0xff, 6, 5, 4, 0xff}},
		{RGB5A1, []byte{0x01, 0xf8, 0x3e, 0x00}, []byte{0xff, 0x00, 0x00, 0xff, 0x00, 0x00, 0xff, 0x00}},
		{RGBA4, []byte{0x34, 0x12, 0x00, 0xf0}, []byte{0x11, 0x22, 0x33, 0x44, 0xff, 0x00, 0x00, 0x00}},
		{RGBA8, []byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte{4, 3, 2, 1, 8, 7, 6, 5}},
	}
	for _, table := range tables {
		out := make([]byte, 8)
		formats[table.format].decode(out, table.in)
		assert.Equal(t, table.out, out, table.format.String())
	}
}

func TestDecodeSwizzle(t *testing.T) {
	raw := &Raw{Width: 8, Height: 8, Format: I8, Pixels: make([]byte, 64)}
	for i := range raw.Pixels {
		raw.Pixels[i] = byte(i)
	}

	out, err := raw.Decode()
	require.NoError(t, err)
	require.Len(t, out, 8*8*4)

	at := func(x, y int) byte { return out[(y*8+x)*4] }

	// Bottom row of the image is the first row of the tile
	assert.Equal(t, byte(0), at(0, 7))
	assert.Equal(t, byte(1), at(1, 7))
	assert.Equal(t, byte(4), at(2, 7))
	assert.Equal(t, byte(5), at(3, 7))
	assert.Equal(t, byte(16), at(4, 7))
	assert.Equal(t, byte(21), at(7, 7))
	assert.Equal(t, byte(2), at(0, 6))
	assert.Equal(t, byte(42), at(0, 0))
	assert.Equal(t, byte(63), at(7, 0))

	// Every source byte is used exactly once
	seen := make(map[byte]bool)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			seen[at(x, y)] = true
		}
	}
	assert.Len(t, seen, 64)
}

func TestDecodeTiles(t *testing.T) {
	// 16x8, the second tile holds the right half of the image
	raw := &Raw{Width: 16, Height: 8, Format: A8, Pixels: make([]byte, 128)}
	for i := range raw.Pixels {
		raw.Pixels[i] = byte(i)
	}
	out, err := raw.Decode()
	require.NoError(t, err)
	assert.Equal(t, byte(64), out[(7*16+8)*4+3])
	assert.Equal(t, byte(0), out[(7*16+0)*4+3])
}

func TestDecodeLength(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	sizes := [][2]uint16{{1, 1}, {3, 5}, {8, 8}, {9, 3}, {13, 17}, {32, 16}, {64, 64}}
	for _, f := range allFormats {
		for _, size := range sizes {
			raw := randomRaw(r, f, size[0], size[1])
			out, err := raw.Decode()
			require.NoError(t, err)
			assert.Len(t, out, int(size[0])*int(size[1])*4, "%s %dx%d", f, size[0], size[1])

			again, err := raw.Decode()
			require.NoError(t, err)
			assert.Equal(t, out, again)
		}
	}
}

func TestDecodeInvalid(t *testing.T) {
	raw := &Raw{Width: 8, Height: 8, Format: RGBA8, Pixels: make([]byte, 255)}
	_, err := raw.Decode()
	assert.True(t, errors.Is(err, ErrNotEnough))

	raw = &Raw{Width: 8, Height: 8, Format: Format(12)}
	_, err = raw.Decode()
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestEncodeRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for _, f := range allFormats {
		for _, size := range [][2]uint16{{8, 8}, {16, 32}, {64, 8}} {
			raw := randomRaw(r, f, size[0], size[1])
			raw.WrapU, raw.WrapV = Repeat, Mirror

			m, err := raw.Image()
			require.NoError(t, err)

			enc, err := Encode(m, f, Repeat, Mirror)
			require.NoError(t, err)
			assert.Equal(t, raw, enc, f.String())
		}
	}
}

func TestEncodeImage(t *testing.T) {
	m := image.NewNRGBA(image.Rect(0, 0, 5, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			m.SetNRGBA(x, y, color.NRGBA{uint8(x * 50), uint8(y * 100), 0x80, 0xff})
		}
	}
	raw, err := Encode(m, RGBA8, Edge, Edge)
	require.NoError(t, err)
	assert.Len(t, raw.Pixels, 8*8*4)

	out, err := raw.Image()
	require.NoError(t, err)
	assert.Equal(t, m.Pix, out.Pix)

	_, err = Encode(m, Format(20), Edge, Edge)
	assert.Equal(t, ErrUnknownFormat, err)
	_, err = Encode(m, RGBA8, WrapMode(3), Edge)
	assert.Equal(t, ErrUnknownWrapMode, err)
}

func TestParse(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	raw := randomRaw(r, RGB565, 12, 8)
	raw.WrapU = Mirror

	b, err := raw.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{12, 0, 8, 0, 0x01, 7, 2, 0}, b[:8])
	assert.Len(t, b, 8+16*8*2)

	out, rest, err := Parse(append(b, 0xaa, 0xbb))
	require.NoError(t, err)
	assert.Equal(t, raw, out)
	assert.Equal(t, []byte{0xaa, 0xbb}, rest)
}

func TestParseInvalid(t *testing.T) {
	valid := []byte{8, 0, 8, 0, 0x01, 1, 0, 0}
	valid = append(valid, make([]byte, 64)...)

	tables := []struct {
		name string
		edit func([]byte) []byte
		err  error
	}{
		{"short header", func(b []byte) []byte { return b[:7] }, ErrNotEnough},
		{"short pixels", func(b []byte) []byte { return b[:len(b)-1] }, ErrNotEnough},
		{"bad tag", func(b []byte) []byte { b[4] = 0x02; return b }, ErrBadTag},
		{"bad format", func(b []byte) []byte { b[5] = 12; return b }, ErrUnknownFormat},
		{"bad wrap u", func(b []byte) []byte { b[6] = 3; return b }, ErrUnknownWrapMode},
		{"bad wrap v", func(b []byte) []byte { b[7] = 0xff; return b }, ErrUnknownWrapMode},
	}
	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			b := table.edit(append([]byte(nil), valid...))
			_, _, err := Parse(b)
			assert.True(t, errors.Is(err, table.err), err)
		})
	}
}

func TestWriteGIF(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	raw := randomRaw(r, RGBA4, 16, 16)
	m, err := raw.Image()
	require.NoError(t, err)

	b := new(bytes.Buffer)
	require.NoError(t, WriteGIF(b, m))

	cfg, err := gif.DecodeConfig(b)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Width)
	assert.Equal(t, 16, cfg.Height)
}
