package bytestruct

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSub struct {
	B uint16
	C uint16
}

type testStruct struct {
	A uint8
	S testSub
	D [3]uint16
	E uint32
}

var testSubLayout = NewRecord(binary.BigEndian,
	Member("b", Uint16, func(s *testSub) *uint16 { return &s.B }),
	Member("c", Uint16, func(s *testSub) *uint16 { return &s.C }),
)

var testLayout = NewRecord(binary.LittleEndian,
	Member("a", Uint8, func(s *testStruct) *uint8 { return &s.A }),
	Member[testStruct, testSub]("s", testSubLayout, func(s *testStruct) *testSub { return &s.S }),
	Array("d", 3, Uint16, func(s *testStruct) []uint16 { return s.D[:] }),
	Member("e", Uint32, func(s *testStruct) *uint32 { return &s.E }),
)

func TestRecordLen(t *testing.T) {
	assert.Equal(t, 4, testSubLayout.Len())
	assert.Equal(t, 15, testLayout.Len())

	offsets := []int{0, 1, 5, 11}
	for i, f := range testLayout.Fields() {
		assert.Equal(t, offsets[i], f.Offset, f.Name)
	}

	offset, ok := testLayout.Offset("e")
	assert.True(t, ok)
	assert.Equal(t, 11, offset)

	_, ok = testLayout.Offset("missing")
	assert.False(t, ok)
}

func TestRecordEncode(t *testing.T) {
	s := testStruct{
		A: 0x12,
		S: testSub{B: 0x3456, C: 0x78ff},
		D: [3]uint16{0x1020, 0x3040, 0x5060},
		E: 0x9abcdef0,
	}
	assert.Equal(t, []byte{0x12, 0x34, 0x56, 0x78, 0xff, 0x20, 0x10, 0x40, 0x30, 0x60, 0x50, 0xf0, 0xde, 0xbc, 0x9a}, testLayout.Marshal(&s))
}

func TestRecordDecode(t *testing.T) {
	b := []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd}
	assert.Equal(t, testStruct{
		A: 0x00,
		S: testSub{B: 0x1122, C: 0x3344},
		D: [3]uint16{0x5544, 0x7766, 0x9988},
		E: 0xddccbbaa,
	}, testLayout.Unmarshal(b))
}

func TestRecordRoundTrip(t *testing.T) {
	tables := []testStruct{
		{},
		{A: 0xff, S: testSub{B: 0xffff, C: 0x0001}, D: [3]uint16{1, 2, 3}, E: 0xffffffff},
		{A: 0x80, S: testSub{B: 0x8000, C: 0x7fff}, D: [3]uint16{0xfffe, 0, 0x00ff}, E: 0x80000001},
	}
	for _, table := range tables {
		b := testLayout.Marshal(&table)
		assert.Equal(t, table, testLayout.Unmarshal(b))
		assert.Equal(t, b, testLayout.Marshal(&table))
	}
}

func TestRecordWrongLength(t *testing.T) {
	var s testStruct
	assert.Panics(t, func() { testLayout.Decode(make([]byte, 14), &s) })
	assert.Panics(t, func() { testLayout.Encode(make([]byte, 16), &s) })
}

func TestFixed(t *testing.T) {
	type pair struct {
		LE uint16
		BE uint16
	}
	layout := NewRecord(binary.LittleEndian,
		Member("le", Uint16, func(p *pair) *uint16 { return &p.LE }),
		Member("be", Fixed(Uint16, binary.BigEndian), func(p *pair) *uint16 { return &p.BE }),
	)
	p := pair{LE: 0x1234, BE: 0x1234}
	assert.Equal(t, []byte{0x34, 0x12, 0x12, 0x34}, layout.Marshal(&p))
}

func TestSigned(t *testing.T) {
	type values struct {
		A int8
		B int16
		C int32
		D int64
		F float32
	}
	layout := NewRecord(binary.LittleEndian,
		Member("a", Int8, func(v *values) *int8 { return &v.A }),
		Member("b", Int16, func(v *values) *int16 { return &v.B }),
		Member("c", Int32, func(v *values) *int32 { return &v.C }),
		Member("d", Int64, func(v *values) *int64 { return &v.D }),
		Member("f", Float32, func(v *values) *float32 { return &v.F }),
	)
	assert.Equal(t, 19, layout.Len())

	v := values{A: -1, B: -2, C: -3, D: -4, F: 1.5}
	b := layout.Marshal(&v)
	assert.Equal(t, []byte{0xff, 0xfe, 0xff}, b[:3])
	assert.Equal(t, []byte{0x00, 0x00, 0xc0, 0x3f}, b[15:])
	assert.Equal(t, v, layout.Unmarshal(b))
}

func TestArrayOf(t *testing.T) {
	c := ArrayOf(3, testSubLayout)
	assert.Equal(t, 12, c.Len())

	in := []testSub{{1, 2}, {3, 4}, {5, 6}}
	b := make([]byte, c.Len())
	c.Write(b, &in, binary.LittleEndian)
	assert.Equal(t, []byte{0, 1, 0, 2, 0, 3, 0, 4, 0, 5, 0, 6}, b)

	var out []testSub
	c.Read(b, &out, binary.LittleEndian)
	assert.Equal(t, in, out)

	short := []testSub{{1, 2}}
	assert.Panics(t, func() { c.Write(b, &short, binary.LittleEndian) })
}

type testBits struct {
	Low  uint16
	Mid  uint16
	High uint16
}

func TestBitfield(t *testing.T) {
	f, err := NewBitfield(Uint16,
		Bit("low", 4, func(v *testBits) *uint16 { return &v.Low }),
		Bit("mid", 5, func(v *testBits) *uint16 { return &v.Mid }),
		Bit("high", 7, func(v *testBits) *uint16 { return &v.High }),
	)
	require.NoError(t, err)

	v := testBits{Low: 0xa, Mid: 0x15, High: 0x5b}
	raw := f.Pack(&v)
	assert.Equal(t, uint16(0xa|0x15<<4|0x5b<<9), raw)

	var out testBits
	f.Unpack(raw, &out)
	assert.Equal(t, v, out)

	for _, raw := range []uint16{0, 1, 0x8000, 0xffff, 0x1234, 0xabcd} {
		var v testBits
		f.Unpack(raw, &v)
		assert.Equal(t, raw, f.Pack(&v))
	}
}

func TestBitfieldTruncates(t *testing.T) {
	f := MustBitfield(Uint16,
		Bit("low", 4, func(v *testBits) *uint16 { return &v.Low }),
		Bit("mid", 4, func(v *testBits) *uint16 { return &v.Mid }),
	)
	v := testBits{Low: 0x1f, Mid: 0x2}
	assert.Equal(t, uint16(0x2f), f.Pack(&v))
}

func TestBitfieldInvalid(t *testing.T) {
	_, err := NewBitfield(Uint8,
		Bit("a", 0, func(v *testBits) *uint8 { return nil }),
	)
	assert.True(t, errors.Is(err, ErrZeroWidth))

	_, err = NewBitfield(Uint8,
		Bit("a", 5, func(v *testBits) *uint8 { return nil }),
		Bit("b", 4, func(v *testBits) *uint8 { return nil }),
	)
	assert.True(t, errors.Is(err, ErrOverflow))

	assert.Panics(t, func() {
		MustBitfield(Uint8, Bit("a", 9, func(v *testBits) *uint8 { return nil }))
	})
}

func TestBitfieldInRecord(t *testing.T) {
	type outer struct {
		Bits testBits
		Tail uint8
	}
	bits := MustBitfield(Uint16,
		Bit("low", 8, func(v *testBits) *uint16 { return &v.Low }),
		Bit("mid", 8, func(v *testBits) *uint16 { return &v.Mid }),
	)
	le := NewRecord(binary.LittleEndian,
		Member[outer, testBits]("bits", bits, func(o *outer) *testBits { return &o.Bits }),
		Member("tail", Uint8, func(o *outer) *uint8 { return &o.Tail }),
	)
	be := NewRecord(binary.BigEndian, le.Fields()...)

	o := outer{Bits: testBits{Low: 0x12, Mid: 0x34}, Tail: 0x56}
	assert.Equal(t, []byte{0x12, 0x34, 0x56}, le.Marshal(&o))
	assert.Equal(t, []byte{0x34, 0x12, 0x56}, be.Marshal(&o))
	assert.Equal(t, o, be.Unmarshal(be.Marshal(&o)))
}
