package crc16

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func bitwise(data []byte) uint16 {
	crc := uint32(0)
	for _, b := range data {
		crc ^= uint32(b) << 8
		for i := 0; i < 8; i++ {
			crc <<= 1
			if crc&0x10000 != 0 {
				crc = (crc ^ polynomial) & 0xffff
			}
		}
	}
	return uint16(crc)
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, uint16(0x0000), Checksum(nil))
	assert.Equal(t, uint16(0x0000), Checksum([]byte{}))
	assert.Equal(t, uint16(0x31c3), Checksum([]byte("123456789")))
}

func TestChecksumMatchesBitwise(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for n := 0; n < 64; n++ {
		b := make([]byte, n*7)
		r.Read(b)
		assert.Equal(t, bitwise(b), Checksum(b))
	}
}

func TestDigest(t *testing.T) {
	h := New()
	assert.Equal(t, Size, h.Size())
	assert.Equal(t, 1, h.BlockSize())

	_, _ = h.Write([]byte("1234"))
	_, _ = h.Write([]byte("56789"))
	assert.Equal(t, uint16(0x31c3), h.Sum16())
	assert.Equal(t, []byte{0xff, 0x31, 0xc3}, h.Sum([]byte{0xff}))

	h.Reset()
	assert.Equal(t, uint16(0), h.Sum16())
}

func TestUpdate(t *testing.T) {
	crc := Update(0, []byte("1234"))
	assert.Equal(t, Checksum([]byte("123456789")), Update(crc, []byte("56789")))
}
