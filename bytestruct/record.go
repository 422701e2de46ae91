package bytestruct

import (
	"encoding/binary"
)

// Field describes one member of a record layout. Fields are created with
// Member or Array and placed by NewRecord.
type Field[S any] struct {
	Name   string
	Offset int
	Len    int

	write func([]byte, *S, binary.ByteOrder)
	read  func([]byte, *S, binary.ByteOrder)
}

// Member describes a field of S encoded by c. ref returns a pointer to
// the field within the value being encoded or decoded.
func Member[S, T any](name string, c Codec[T], ref func(*S) *T) Field[S] {
	return Field[S]{
		Name: name,
		Len:  c.Len(),
		write: func(b []byte, s *S, order binary.ByteOrder) {
			c.Write(b, ref(s), order)
		},
		read: func(b []byte, s *S, order binary.ByteOrder) {
			c.Read(b, ref(s), order)
		},
	}
}

// Array describes a fixed-length array field of S. ref should return a
// slice over the array itself, e.g. s.Name[:], so that decoding fills the
// array in place.
func Array[S, T any](name string, n int, c Codec[T], ref func(*S) []T) Field[S] {
	a := ArrayOf(n, c)
	return Field[S]{
		Name: name,
		Len:  a.Len(),
		write: func(b []byte, s *S, order binary.ByteOrder) {
			v := ref(s)
			a.Write(b, &v, order)
		},
		read: func(b []byte, s *S, order binary.ByteOrder) {
			v := ref(s)
			a.Read(b, &v, order)
		},
	}
}

// Record is a compiled record layout for values of type S. It implements
// Codec[S]; when nested in another record it keeps its own byte order.
type Record[S any] struct {
	order  binary.ByteOrder
	fields []Field[S]
	size   int
}

// NewRecord lays out fields contiguously in declaration order.
func NewRecord[S any](order binary.ByteOrder, fields ...Field[S]) *Record[S] {
	r := &Record[S]{
		order:  order,
		fields: make([]Field[S], 0, len(fields)),
	}
	for _, f := range fields {
		f.Offset = r.size
		r.fields = append(r.fields, f)
		r.size += f.Len
	}
	return r
}

// Len returns the encoded length of S in bytes.
func (r *Record[S]) Len() int { return r.size }

// Order returns the byte order used for the record's own primitive fields.
func (r *Record[S]) Order() binary.ByteOrder { return r.order }

// Fields returns a copy of the field table.
func (r *Record[S]) Fields() []Field[S] {
	return append([]Field[S](nil), r.fields...)
}

// Offset returns the byte offset of the named field.
func (r *Record[S]) Offset(name string) (int, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Offset, true
		}
	}
	return 0, false
}

// Encode writes v into b, which must be exactly Len bytes.
func (r *Record[S]) Encode(b []byte, v *S) {
	mustLen(b, r.size)
	for _, f := range r.fields {
		f.write(b[f.Offset:f.Offset+f.Len], v, r.order)
	}
}

// Decode reads v from b, which must be exactly Len bytes.
func (r *Record[S]) Decode(b []byte, v *S) {
	mustLen(b, r.size)
	for _, f := range r.fields {
		f.read(b[f.Offset:f.Offset+f.Len], v, r.order)
	}
}

// Marshal returns a newly allocated encoding of v.
func (r *Record[S]) Marshal(v *S) []byte {
	b := make([]byte, r.size)
	r.Encode(b, v)
	return b
}

// Unmarshal decodes b into a new value.
func (r *Record[S]) Unmarshal(b []byte) S {
	var v S
	r.Decode(b, &v)
	return v
}

func (r *Record[S]) Write(b []byte, v *S, _ binary.ByteOrder) { r.Encode(b, v) }

func (r *Record[S]) Read(b []byte, v *S, _ binary.ByteOrder) { r.Decode(b, v) }
