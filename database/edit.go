package database

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Page is a page of the face editor. Each page exposes some of the
// properties of one part of the face.
type Page int

// Editor pages, in the order they are cycled through.
const (
	FacePage Page = iota
	MakeupPage
	WrinklePage
	HairPage
	EyebrowPage
	EyePage
	NosePage
	LipPage
	GlassPage
	MustachePage
	MolePage
	BeardPage

	NumPages
)

var pageNames = [NumPages]string{
	"face", "makeup", "wrinkle", "hair", "eyebrow", "eye",
	"nose", "lip", "glass", "mustache", "mole", "beard",
}

func (p Page) String() string {
	if p < 0 || p >= NumPages {
		return fmt.Sprintf("Page(%d)", int(p))
	}
	return pageNames[p]
}

// Next returns the following page, wrapping around.
func (p Page) Next() Page {
	p++
	if p >= NumPages {
		p = 0
	}
	return p
}

// Prev returns the preceding page, wrapping around.
func (p Page) Prev() Page {
	if p <= 0 {
		p = NumPages
	}
	return p - 1
}

// ParsePage returns the page with the given name.
func ParsePage(s string) (Page, error) {
	for i, n := range pageNames {
		if strings.EqualFold(n, s) {
			return Page(i), nil
		}
	}
	return 0, errors.Errorf("database: unknown page %q", s)
}

// Property is an adjustable attribute on a page.
type Property int

// Properties.
const (
	Style Property = iota
	Color
	Scale
	YScale
	Rotation
	X
	Y

	numProperties
)

var propertyNames = [numProperties]string{"style", "color", "scale", "y_scale", "rotation", "x", "y"}

func (p Property) String() string {
	if p < 0 || p >= numProperties {
		return fmt.Sprintf("Property(%d)", int(p))
	}
	return propertyNames[p]
}

// ParseProperty returns the property with the given name.
func ParseProperty(s string) (Property, error) {
	for i, n := range propertyNames {
		if strings.EqualFold(n, s) {
			return Property(i), nil
		}
	}
	return 0, errors.Errorf("database: unknown property %q", s)
}

// Delta is the direction of an adjustment.
type Delta int

// Directions.
const (
	Dec Delta = -1
	Inc Delta = 1
)

type field interface {
	~uint16 | ~uint32
}

// wrapChange steps v within [0, limit), wrapping at either end.
func wrapChange[U field](v *U, limit U, d Delta) {
	switch d {
	case Inc:
		*v++
		if *v >= limit {
			*v = 0
		}
	case Dec:
		if *v == 0 {
			*v = limit
		}
		*v--
	}
}

// clampChange steps v within [low, high], stopping at either end.
func clampChange[U field](v *U, low, high U, d Delta) {
	switch d {
	case Inc:
		if *v < high {
			*v++
		}
	case Dec:
		if *v > low {
			*v--
		}
	}
}

// Control describes how a property changes. Wrapping controls cycle
// through [0, Max); others are clamped to [Min, Max].
type Control struct {
	Wrap  bool
	Min   int
	Max   int
	apply func(*Profile, Delta)
	value func(*Profile) int
}

func wrap[U field](limit U, ref func(*Profile) *U) Control {
	return Control{
		Wrap:  true,
		Max:   int(limit),
		apply: func(p *Profile, d Delta) { wrapChange(ref(p), limit, d) },
		value: func(p *Profile) int { return int(*ref(p)) },
	}
}

func clamp[U field](low, high U, ref func(*Profile) *U) Control {
	return Control{
		Min:   int(low),
		Max:   int(high),
		apply: func(p *Profile, d Delta) { clampChange(ref(p), low, high, d) },
		value: func(p *Profile) int { return int(*ref(p)) },
	}
}

type control struct {
	page     Page
	property Property
}

var controls = map[control]Control{
	{FacePage, Style}:     wrap(12, func(p *Profile) *uint16 { return &p.Face.Style }),
	{MakeupPage, Style}:   wrap(12, func(p *Profile) *uint16 { return &p.Face.Makeup }),
	{WrinklePage, Style}:  wrap(12, func(p *Profile) *uint16 { return &p.Face.Wrinkle }),
	{HairPage, Style}:     wrap(132, func(p *Profile) *uint16 { return &p.Hair.Style }),
	{EyebrowPage, Style}:  wrap(24, func(p *Profile) *uint32 { return &p.Eyebrow.Style }),
	{EyePage, Style}:      wrap(62, func(p *Profile) *uint32 { return &p.Eye.Style }),
	{NosePage, Style}:     wrap(18, func(p *Profile) *uint16 { return &p.Nose.Style }),
	{LipPage, Style}:      wrap(37, func(p *Profile) *uint16 { return &p.Lip.Style }),
	{GlassPage, Style}:    wrap(9, func(p *Profile) *uint16 { return &p.Glass.Style }),
	{MustachePage, Style}: wrap(6, func(p *Profile) *uint16 { return &p.Misc.MustacheStyle }),
	{MolePage, Style}:     wrap(2, func(p *Profile) *uint16 { return &p.Mole.Style }),
	{BeardPage, Style}:    wrap(6, func(p *Profile) *uint16 { return &p.Beard.Style }),

	{FacePage, Color}:    wrap(6, func(p *Profile) *uint16 { return &p.Face.Color }),
	{HairPage, Color}:    wrap(8, func(p *Profile) *uint16 { return &p.Hair.Color }),
	{EyebrowPage, Color}: wrap(8, func(p *Profile) *uint32 { return &p.Eyebrow.Color }),
	{EyePage, Color}:     wrap(6, func(p *Profile) *uint32 { return &p.Eye.Color }),
	{LipPage, Color}:     wrap(5, func(p *Profile) *uint16 { return &p.Lip.Color }),
	{GlassPage, Color}:   wrap(6, func(p *Profile) *uint16 { return &p.Glass.Color }),
	// Mustache and beard share a color
	{MustachePage, Color}: wrap(8, func(p *Profile) *uint16 { return &p.Beard.Color }),
	{BeardPage, Color}:    wrap(8, func(p *Profile) *uint16 { return &p.Beard.Color }),

	{EyebrowPage, Scale}:  clamp(0, 8, func(p *Profile) *uint32 { return &p.Eyebrow.Scale }),
	{EyePage, Scale}:      clamp(0, 7, func(p *Profile) *uint32 { return &p.Eye.Scale }),
	{NosePage, Scale}:     clamp(0, 8, func(p *Profile) *uint16 { return &p.Nose.Scale }),
	{LipPage, Scale}:      clamp(0, 8, func(p *Profile) *uint16 { return &p.Lip.Scale }),
	{GlassPage, Scale}:    clamp(0, 7, func(p *Profile) *uint16 { return &p.Glass.Scale }),
	{MustachePage, Scale}: clamp(0, 8, func(p *Profile) *uint16 { return &p.Beard.MustacheScale }),
	{MolePage, Scale}:     clamp(0, 8, func(p *Profile) *uint16 { return &p.Mole.Scale }),

	{EyebrowPage, YScale}: clamp(0, 6, func(p *Profile) *uint32 { return &p.Eyebrow.YScale }),
	{EyePage, YScale}:     clamp(0, 6, func(p *Profile) *uint32 { return &p.Eye.YScale }),
	{LipPage, YScale}:     clamp(0, 6, func(p *Profile) *uint16 { return &p.Lip.YScale }),

	{EyebrowPage, Rotation}: clamp(0, 11, func(p *Profile) *uint32 { return &p.Eyebrow.Rotation }),
	{EyePage, Rotation}:     clamp(0, 7, func(p *Profile) *uint32 { return &p.Eye.Rotation }),

	{EyebrowPage, X}: clamp(0, 12, func(p *Profile) *uint32 { return &p.Eyebrow.X }),
	{EyePage, X}:     clamp(0, 12, func(p *Profile) *uint32 { return &p.Eye.X }),
	{MolePage, X}:    clamp(0, 0x10, func(p *Profile) *uint16 { return &p.Mole.X }),

	{EyebrowPage, Y}:  clamp(3, 18, func(p *Profile) *uint32 { return &p.Eyebrow.Y }),
	{EyePage, Y}:      clamp(0, 18, func(p *Profile) *uint32 { return &p.Eye.Y }),
	{NosePage, Y}:     clamp(0, 18, func(p *Profile) *uint16 { return &p.Nose.Y }),
	{LipPage, Y}:      clamp(0, 18, func(p *Profile) *uint16 { return &p.Misc.LipY }),
	{GlassPage, Y}:    clamp(0, 20, func(p *Profile) *uint16 { return &p.Glass.Y }),
	{MustachePage, Y}: clamp(0, 16, func(p *Profile) *uint16 { return &p.Beard.MustacheY }),
	{MolePage, Y}:     clamp(0, 30, func(p *Profile) *uint16 { return &p.Mole.Y }),
}

// Lookup returns the control for property on page, if the page has one.
func Lookup(page Page, property Property) (Control, bool) {
	c, ok := controls[control{page, property}]
	return c, ok
}

// Properties returns the properties the page can adjust, in order.
func (p Page) Properties() []Property {
	var props []Property
	for prop := Style; prop < numProperties; prop++ {
		if _, ok := Lookup(p, prop); ok {
			props = append(props, prop)
		}
	}
	return props
}

// Value returns the current value of the property controlled by c.
func (c Control) Value(p *Profile) int {
	return c.value(p)
}

// Adjust steps a property of the profile by one in the direction d. It
// reports false, leaving the profile untouched, if the page has no such
// property.
func (p *Profile) Adjust(page Page, property Property, d Delta) bool {
	c, ok := Lookup(page, property)
	if !ok {
		return false
	}
	c.apply(p, d)
	return true
}
