package model

import "fmt"

// Vertex attribute slots.
const (
	PositionSlot = iota
	NormalSlot
	TexcoordSlot
)

// DataType is the component type of a varying attribute.
type DataType int

// Component types.
const (
	Short DataType = iota
	Float
)

// Kind says whether an attribute is streamed per vertex or is a constant.
type Kind int

// Attribute kinds.
const (
	Varying Kind = iota
	Short2
	Short3
)

func (k Kind) String() string {
	switch k {
	case Varying:
		return "varying"
	case Short2:
		return "short2"
	case Short3:
		return "short3"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Attribute is one entry in a layout's slot map. For Varying attributes
// Dimension, Type and Offset describe the stream within each vertex;
// otherwise Value holds the constant, of which the first two or three
// components are used.
type Attribute struct {
	Slot      int
	Kind      Kind
	Dimension int
	Type      DataType
	Offset    int
	Value     [3]int16
}

// Layout is a model ready for upload.
type Layout struct {
	Attributes []Attribute
	Stride     int
	Vertices   []byte
	Indices    []byte
}

// Attribute returns the attribute bound to slot.
func (l *Layout) Attribute(slot int) (Attribute, bool) {
	for _, a := range l.Attributes {
		if a.Slot == slot {
			return a, true
		}
	}
	return Attribute{}, false
}

// Bake builds the attribute layout of the model. The position is always
// present at offset 0; normals and then texture coordinates follow in
// that order when they are stored per vertex.
func (r *Raw) Bake() *Layout {
	l := &Layout{
		Attributes: []Attribute{
			{Slot: PositionSlot, Kind: Varying, Dimension: 3, Type: Short},
		},
		Stride:   positionSize,
		Vertices: r.Vertices,
		Indices:  r.Indices,
	}

	switch r.NormalMode() {
	case Common:
		l.Attributes = append(l.Attributes, Attribute{Slot: NormalSlot, Kind: Short3, Value: r.DefaultNormal})
	case Individual:
		l.Attributes = append(l.Attributes, Attribute{Slot: NormalSlot, Kind: Varying, Dimension: 3, Type: Short, Offset: l.Stride})
		l.Stride += normalSize
	}

	switch r.TexcoordMode() {
	case Common:
		a := Attribute{Slot: TexcoordSlot, Kind: Short2}
		copy(a.Value[:], r.DefaultTexcoord[:])
		l.Attributes = append(l.Attributes, a)
	case Individual:
		l.Attributes = append(l.Attributes, Attribute{Slot: TexcoordSlot, Kind: Varying, Dimension: 2, Type: Short, Offset: l.Stride})
		l.Stride += texcoordSize
	}

	return l
}
