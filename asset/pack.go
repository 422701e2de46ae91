package asset

import (
	"bytes"
	"encoding/binary"

	"github.com/bodgit/citrii/bytestruct"
	"github.com/pkg/errors"
)

// Pack builds an archive from the raw bytes of every item in every
// section, the inverse of the offset handling in Parse. An item that is
// byte for byte identical to an earlier non-empty item of the same section
// is stored as a redirect to it. A nil or empty item is stored as empty.
func Pack(version uint16, sections [][][]byte) ([]byte, error) {
	if len(sections) > 0xffff {
		return nil, errors.Errorf("asset: %d sections do not fit the header", len(sections))
	}

	h := header{SectionCount: uint16(len(sections)), Version: version}
	buf := bytes.NewBuffer(headerLayout.Marshal(&h))

	sectionOffsets := make([]uint32, len(sections))
	buf.Write(make([]byte, len(sections)*4))

	for i, items := range sections {
		if len(items) > 0xffff {
			return nil, errors.Errorf("asset: section %d has %d items", i, len(items))
		}
		sectionOffsets[i] = uint32(buf.Len())

		offsets := make([]uint32, len(items)+1)
		chunk := new(bytes.Buffer)
		for k, b := range items {
			if chunk.Len() > offsetMask {
				return nil, errors.Wrapf(ErrMalformedOffset, "section %d item %d at %#x", i, k, chunk.Len())
			}
			offsets[k] = uint32(chunk.Len())

			if j := previous(items[:k], b); j >= 0 && j < maxRedirect {
				offsets[k] |= uint32(j+1) << offsetBits
				continue
			}
			chunk.Write(b)
		}
		if chunk.Len() > offsetMask {
			return nil, errors.Wrapf(ErrMalformedOffset, "section %d is %#x bytes", i, chunk.Len())
		}
		offsets[len(items)] = uint32(chunk.Len())

		sh := sectionHeader{ItemCount: uint16(len(items))}
		buf.Write(sectionHeaderLayout.Marshal(&sh))

		c := bytestruct.ArrayOf(len(offsets), bytestruct.Uint32)
		tmp := make([]byte, c.Len())
		c.Write(tmp, &offsets, binary.LittleEndian)
		buf.Write(tmp)
		buf.Write(chunk.Bytes())
	}

	b := buf.Bytes()
	c := bytestruct.ArrayOf(len(sectionOffsets), bytestruct.Uint32)
	c.Write(b[headerLayout.Len():headerLayout.Len()+c.Len()], &sectionOffsets, binary.LittleEndian)

	return b, nil
}

func previous(items [][]byte, b []byte) int {
	if len(b) == 0 {
		return -1
	}
	for j, p := range items {
		if bytes.Equal(p, b) {
			return j
		}
	}
	return -1
}
