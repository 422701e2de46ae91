package bytestruct

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var (
	// ErrZeroWidth is returned for a bit field declared with no bits.
	ErrZeroWidth = errors.New("bytestruct: zero width bit field")
	// ErrOverflow is returned when the bit fields do not fit in the base
	// integer.
	ErrOverflow = errors.New("bytestruct: bit fields overflow base integer")
)

// Unsigned is the set of base integer types a Bitfield can pack into.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// BitSpec is one named run of bits within a Bitfield.
type BitSpec[S any, U Unsigned] struct {
	Name  string
	Width uint
	ref   func(*S) *U
}

// Bit describes a field of S occupying width bits.
func Bit[S any, U Unsigned](name string, width uint, ref func(*S) *U) BitSpec[S, U] {
	return BitSpec[S, U]{Name: name, Width: width, ref: ref}
}

// Bitfield packs the fields of S into a single unsigned integer. The first
// field occupies the least significant bits. If the widths sum to less
// than the base width, the remaining high bits are written as zero.
type Bitfield[S any, U Unsigned] struct {
	base Codec[U]
	bits []BitSpec[S, U]
}

// NewBitfield validates bits against the width of base.
func NewBitfield[S any, U Unsigned](base Codec[U], bits ...BitSpec[S, U]) (*Bitfield[S, U], error) {
	for _, b := range bits {
		if b.Width == 0 {
			return nil, errors.Wrapf(ErrZeroWidth, "field %q", b.Name)
		}
	}
	total := lo.SumBy(bits, func(b BitSpec[S, U]) uint { return b.Width })
	if width := uint(base.Len() * 8); total > width {
		return nil, errors.Wrapf(ErrOverflow, "%d bits declared, %d available", total, width)
	}
	return &Bitfield[S, U]{
		base: base,
		bits: append([]BitSpec[S, U](nil), bits...),
	}, nil
}

// MustBitfield is like NewBitfield but panics if the layout is invalid. It
// is intended for package-level layout tables.
func MustBitfield[S any, U Unsigned](base Codec[U], bits ...BitSpec[S, U]) *Bitfield[S, U] {
	f, err := NewBitfield(base, bits...)
	if err != nil {
		panic(err)
	}
	return f
}

func mask[U Unsigned](width uint) U {
	return U(1)<<width - 1
}

// Pack returns the raw integer for v. Field values wider than their
// declared width are truncated.
func (f *Bitfield[S, U]) Pack(v *S) U {
	var raw U
	var offset uint
	for _, b := range f.bits {
		raw |= (*b.ref(v) & mask[U](b.Width)) << offset
		offset += b.Width
	}
	return raw
}

// Unpack sets the fields of v from raw.
func (f *Bitfield[S, U]) Unpack(raw U, v *S) {
	for _, b := range f.bits {
		*b.ref(v) = raw & mask[U](b.Width)
		raw >>= b.Width
	}
}

// Len returns the length of the base integer.
func (f *Bitfield[S, U]) Len() int { return f.base.Len() }

func (f *Bitfield[S, U]) Write(b []byte, v *S, order binary.ByteOrder) {
	raw := f.Pack(v)
	f.base.Write(b, &raw, order)
}

func (f *Bitfield[S, U]) Read(b []byte, v *S, order binary.ByteOrder) {
	var raw U
	f.base.Read(b, &raw, order)
	f.Unpack(raw, v)
}
