/*
Package model implements the packed mesh format used by the face resource
archive.

A model item is an 8 byte header of four little-endian counts followed by
the interleaved vertex data, an optional shared normal, an optional shared
texture coordinate and an optional list of byte sized triangle indices.
Normals and texture coordinates are either absent, one value shared by
every vertex, or stored per vertex after the position. Bake turns the
item into an attribute layout ready to hand to a renderer, leaving the
vertex and index bytes untouched.
*/
package model

import (
	"encoding/binary"
	"fmt"

	"github.com/bodgit/citrii/bytestruct"
	"github.com/pkg/errors"
)

const (
	headerSize   = 8
	positionSize = 3 * 2
	normalSize   = 3 * 2
	texcoordSize = 2 * 2
)

var indexTag = [2]byte{0x04, 0x00}

var (
	// ErrNotEnough is returned when the item ends before the data its
	// header describes.
	ErrNotEnough = errors.New("model: not enough data")
	// ErrBadIndexTag is returned when the index list does not start with
	// the expected tag.
	ErrBadIndexTag = errors.New("model: invalid index list tag")
)

// AttributeMode is how a vertex attribute is stored.
type AttributeMode int

// Attribute modes.
const (
	None AttributeMode = iota
	Common
	Individual
)

// ModeFromCount maps an attribute count from the item header to its mode.
func ModeFromCount(n uint16) AttributeMode {
	switch n {
	case 0:
		return None
	case 1:
		return Common
	}
	return Individual
}

func (m AttributeMode) String() string {
	switch m {
	case None:
		return "none"
	case Common:
		return "common"
	case Individual:
		return "individual"
	}
	return fmt.Sprintf("AttributeMode(%d)", int(m))
}

// Raw is an undecoded model item.
type Raw struct {
	VertexCount    uint16
	NormalCount    uint16
	TexcoordCount  uint16
	IndexListCount uint16

	Vertices        []byte
	DefaultNormal   [3]int16
	DefaultTexcoord [2]int16
	Indices         []byte
}

// NormalMode returns how normals are stored.
func (r *Raw) NormalMode() AttributeMode { return ModeFromCount(r.NormalCount) }

// TexcoordMode returns how texture coordinates are stored.
func (r *Raw) TexcoordMode() AttributeMode { return ModeFromCount(r.TexcoordCount) }

// VertexSize returns the size of one interleaved vertex in bytes.
func (r *Raw) VertexSize() int {
	n := positionSize
	if r.NormalMode() == Individual {
		n += normalSize
	}
	if r.TexcoordMode() == Individual {
		n += texcoordSize
	}
	return n
}

func (r *Raw) hasIndices() bool { return r.IndexListCount == 1 }

type header struct {
	VertexCount    uint16
	NormalCount    uint16
	TexcoordCount  uint16
	IndexListCount uint16
}

var headerLayout = bytestruct.NewRecord(binary.LittleEndian,
	bytestruct.Member("vertex_count", bytestruct.Uint16, func(h *header) *uint16 { return &h.VertexCount }),
	bytestruct.Member("normal_count", bytestruct.Uint16, func(h *header) *uint16 { return &h.NormalCount }),
	bytestruct.Member("texcoord_count", bytestruct.Uint16, func(h *header) *uint16 { return &h.TexcoordCount }),
	bytestruct.Member("index_list_count", bytestruct.Uint16, func(h *header) *uint16 { return &h.IndexListCount }),
)

var (
	normalCodec   = bytestruct.Fixed(bytestruct.ArrayOf(3, bytestruct.Int16), binary.LittleEndian)
	texcoordCodec = bytestruct.Fixed(bytestruct.ArrayOf(2, bytestruct.Int16), binary.LittleEndian)
)

type reader struct {
	b []byte
}

func (r *reader) take(n int, what string) ([]byte, error) {
	if n > len(r.b) {
		return nil, errors.Wrapf(ErrNotEnough, "%s needs %d bytes, have %d", what, n, len(r.b))
	}
	b := r.b[:n]
	r.b = r.b[n:]
	return b, nil
}

// Parse reads a model item from the start of b and returns it along with
// any bytes following it. Vertex and index data are copied.
func Parse(b []byte) (*Raw, []byte, error) {
	rd := &reader{b}

	hb, err := rd.take(headerSize, "header")
	if err != nil {
		return nil, nil, err
	}
	h := headerLayout.Unmarshal(hb)

	m := &Raw{
		VertexCount:    h.VertexCount,
		NormalCount:    h.NormalCount,
		TexcoordCount:  h.TexcoordCount,
		IndexListCount: h.IndexListCount,
	}

	vb, err := rd.take(int(m.VertexCount)*m.VertexSize(), "vertex list")
	if err != nil {
		return nil, nil, err
	}
	m.Vertices = append([]byte(nil), vb...)

	if m.NormalMode() == Common {
		nb, err := rd.take(normalCodec.Len(), "default normal")
		if err != nil {
			return nil, nil, err
		}
		v := m.DefaultNormal[:]
		normalCodec.Read(nb, &v, binary.LittleEndian)
	}

	if m.TexcoordMode() == Common {
		tb, err := rd.take(texcoordCodec.Len(), "default texcoord")
		if err != nil {
			return nil, nil, err
		}
		v := m.DefaultTexcoord[:]
		texcoordCodec.Read(tb, &v, binary.LittleEndian)
	}

	if m.hasIndices() {
		ib, err := rd.take(4, "index list header")
		if err != nil {
			return nil, nil, err
		}
		if ib[0] != indexTag[0] || ib[1] != indexTag[1] {
			return nil, nil, errors.Wrapf(ErrBadIndexTag, "got %#02x %#02x", ib[0], ib[1])
		}
		n := int(binary.LittleEndian.Uint16(ib[2:]))
		if ib, err = rd.take(n, "index list"); err != nil {
			return nil, nil, err
		}
		m.Indices = append([]byte(nil), ib...)
	}

	return m, rd.b, nil
}

// MarshalBinary encodes the model item.
func (r *Raw) MarshalBinary() ([]byte, error) {
	if n := int(r.VertexCount) * r.VertexSize(); len(r.Vertices) != n {
		return nil, errors.Wrapf(ErrNotEnough, "vertex list is %d bytes, want %d", len(r.Vertices), n)
	}
	if r.hasIndices() && len(r.Indices) > 0xffff {
		return nil, errors.Errorf("model: %d indices do not fit the index list", len(r.Indices))
	}

	h := header{r.VertexCount, r.NormalCount, r.TexcoordCount, r.IndexListCount}
	b := headerLayout.Marshal(&h)
	b = append(b, r.Vertices...)

	if r.NormalMode() == Common {
		tmp := make([]byte, normalCodec.Len())
		v := r.DefaultNormal[:]
		normalCodec.Write(tmp, &v, binary.LittleEndian)
		b = append(b, tmp...)
	}
	if r.TexcoordMode() == Common {
		tmp := make([]byte, texcoordCodec.Len())
		v := r.DefaultTexcoord[:]
		texcoordCodec.Write(tmp, &v, binary.LittleEndian)
		b = append(b, tmp...)
	}
	if r.hasIndices() {
		b = append(b, indexTag[:]...)
		b = binary.LittleEndian.AppendUint16(b, uint16(len(r.Indices)))
		b = append(b, r.Indices...)
	}

	return b, nil
}
