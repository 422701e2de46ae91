/*
Package bytestruct implements fixed-size binary record layouts.

A layout is described once as a table of fields, each with a fixed byte
length and a codec, and is then used to read and write values of the
described Go type to and from byte slices of exactly that length. There is
no implicit padding; the length of a record is the sum of the lengths of
its fields.

Primitive codecs take their byte order from the enclosing record, while a
nested record always uses its own declared byte order, so a big-endian
record can be embedded within a little-endian one. Packed sub-integer bit
fields are described with a Bitfield which encodes through its base
integer codec.

Every Read and Write requires the byte slice to be exactly Len bytes long;
anything else is a programming error and panics.
*/
package bytestruct

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Codec reads and writes a value of type T using exactly Len bytes. The
// byte order is supplied by the enclosing record and may be ignored by
// codecs that carry their own.
type Codec[T any] interface {
	Len() int
	Write(b []byte, v *T, order binary.ByteOrder)
	Read(b []byte, v *T, order binary.ByteOrder)
}

func mustLen(b []byte, n int) {
	if len(b) != n {
		panic(fmt.Sprintf("bytestruct: slice is %d bytes, layout is %d bytes", len(b), n))
	}
}

type primitive[T any] struct {
	size int
	put  func(binary.ByteOrder, []byte, T)
	get  func(binary.ByteOrder, []byte) T
}

func (p primitive[T]) Len() int { return p.size }

func (p primitive[T]) Write(b []byte, v *T, order binary.ByteOrder) {
	mustLen(b, p.size)
	p.put(order, b, *v)
}

func (p primitive[T]) Read(b []byte, v *T, order binary.ByteOrder) {
	mustLen(b, p.size)
	*v = p.get(order, b)
}

// Primitive codecs.
var (
	Uint8 Codec[uint8] = primitive[uint8]{
		1,
		func(_ binary.ByteOrder, b []byte, v uint8) { b[0] = v },
		func(_ binary.ByteOrder, b []byte) uint8 { return b[0] },
	}
	Int8 Codec[int8] = primitive[int8]{
		1,
		func(_ binary.ByteOrder, b []byte, v int8) { b[0] = uint8(v) },
		func(_ binary.ByteOrder, b []byte) int8 { return int8(b[0]) },
	}
	Uint16 Codec[uint16] = primitive[uint16]{
		2,
		func(o binary.ByteOrder, b []byte, v uint16) { o.PutUint16(b, v) },
		func(o binary.ByteOrder, b []byte) uint16 { return o.Uint16(b) },
	}
	Int16 Codec[int16] = primitive[int16]{
		2,
		func(o binary.ByteOrder, b []byte, v int16) { o.PutUint16(b, uint16(v)) },
		func(o binary.ByteOrder, b []byte) int16 { return int16(o.Uint16(b)) },
	}
	Uint32 Codec[uint32] = primitive[uint32]{
		4,
		func(o binary.ByteOrder, b []byte, v uint32) { o.PutUint32(b, v) },
		func(o binary.ByteOrder, b []byte) uint32 { return o.Uint32(b) },
	}
	Int32 Codec[int32] = primitive[int32]{
		4,
		func(o binary.ByteOrder, b []byte, v int32) { o.PutUint32(b, uint32(v)) },
		func(o binary.ByteOrder, b []byte) int32 { return int32(o.Uint32(b)) },
	}
	Uint64 Codec[uint64] = primitive[uint64]{
		8,
		func(o binary.ByteOrder, b []byte, v uint64) { o.PutUint64(b, v) },
		func(o binary.ByteOrder, b []byte) uint64 { return o.Uint64(b) },
	}
	Int64 Codec[int64] = primitive[int64]{
		8,
		func(o binary.ByteOrder, b []byte, v int64) { o.PutUint64(b, uint64(v)) },
		func(o binary.ByteOrder, b []byte) int64 { return int64(o.Uint64(b)) },
	}
	Float32 Codec[float32] = primitive[float32]{
		4,
		func(o binary.ByteOrder, b []byte, v float32) { o.PutUint32(b, math.Float32bits(v)) },
		func(o binary.ByteOrder, b []byte) float32 { return math.Float32frombits(o.Uint32(b)) },
	}
)

type fixed[T any] struct {
	c     Codec[T]
	order binary.ByteOrder
}

// Fixed returns a codec that always uses order, whatever the enclosing
// record declares.
func Fixed[T any](c Codec[T], order binary.ByteOrder) Codec[T] {
	return fixed[T]{c, order}
}

func (f fixed[T]) Len() int { return f.c.Len() }

func (f fixed[T]) Write(b []byte, v *T, _ binary.ByteOrder) { f.c.Write(b, v, f.order) }

func (f fixed[T]) Read(b []byte, v *T, _ binary.ByteOrder) { f.c.Read(b, v, f.order) }

type array[T any] struct {
	n    int
	elem Codec[T]
}

// ArrayOf returns a codec for exactly n consecutive elements. Reading into
// a slice of length n fills it in place, otherwise a new slice is
// allocated.
func ArrayOf[T any](n int, elem Codec[T]) Codec[[]T] {
	return array[T]{n, elem}
}

func (a array[T]) Len() int { return a.n * a.elem.Len() }

func (a array[T]) Write(b []byte, v *[]T, order binary.ByteOrder) {
	mustLen(b, a.Len())
	if len(*v) != a.n {
		panic(fmt.Sprintf("bytestruct: array has %d elements, layout has %d", len(*v), a.n))
	}
	size := a.elem.Len()
	for i := range *v {
		a.elem.Write(b[i*size:(i+1)*size], &(*v)[i], order)
	}
}

func (a array[T]) Read(b []byte, v *[]T, order binary.ByteOrder) {
	mustLen(b, a.Len())
	if len(*v) != a.n {
		*v = make([]T, a.n)
	}
	size := a.elem.Len()
	for i := range *v {
		a.elem.Read(b[i*size:(i+1)*size], &(*v)[i], order)
	}
}
