package database

import (
	"encoding/binary"
	"time"
	"unicode/utf16"

	"github.com/bodgit/citrii/bytestruct"
	"github.com/pkg/errors"
)

// NameLength is the maximum length of a profile or author name in UTF-16
// code units.
const NameLength = 10

// ErrSlotRange is returned for a slot outside 0-99.
var ErrSlotRange = errors.New("database: slot out of range")

// Epoch is the zero point of profile creation dates.
var Epoch = time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)

// Header is the leading word of a profile.
type Header struct {
	Three        uint32
	AllowCopying uint32
	PrivateName  uint32
	RegionLock   uint32 // 0 none, 1 JPN, 2 USA, 3 EUR
	CharSet      uint32 // 0 standard, 1 CHN, 2 KOR, 3 TWN
	paddingA     uint32
	Page         uint32
	Slot         uint32
	VersionMinor uint32
	VersionMajor uint32
	paddingB     uint32
}

var headerLayout = bytestruct.MustBitfield(bytestruct.Uint32,
	bytestruct.Bit("three", 8, func(h *Header) *uint32 { return &h.Three }),
	bytestruct.Bit("allow_copying", 1, func(h *Header) *uint32 { return &h.AllowCopying }),
	bytestruct.Bit("private_name", 1, func(h *Header) *uint32 { return &h.PrivateName }),
	bytestruct.Bit("region_lock", 2, func(h *Header) *uint32 { return &h.RegionLock }),
	bytestruct.Bit("char_set", 2, func(h *Header) *uint32 { return &h.CharSet }),
	bytestruct.Bit("padding_a", 2, func(h *Header) *uint32 { return &h.paddingA }),
	bytestruct.Bit("page", 4, func(h *Header) *uint32 { return &h.Page }),
	bytestruct.Bit("slot", 4, func(h *Header) *uint32 { return &h.Slot }),
	bytestruct.Bit("version_minor", 4, func(h *Header) *uint32 { return &h.VersionMinor }),
	bytestruct.Bit("version_major", 3, func(h *Header) *uint32 { return &h.VersionMajor }),
	bytestruct.Bit("padding_b", 1, func(h *Header) *uint32 { return &h.paddingB }),
)

// IDLow is the flag word of a profile ID.
type IDLow struct {
	CreationDate uint32
	Unknown      uint32
	Temporary    uint32
	NTR          uint32
	Normal       uint32
}

var idLowLayout = bytestruct.MustBitfield(bytestruct.Uint32,
	bytestruct.Bit("creation_date", 28, func(l *IDLow) *uint32 { return &l.CreationDate }),
	bytestruct.Bit("unknown", 1, func(l *IDLow) *uint32 { return &l.Unknown }),
	bytestruct.Bit("temporary", 1, func(l *IDLow) *uint32 { return &l.Temporary }),
	bytestruct.Bit("ntr", 1, func(l *IDLow) *uint32 { return &l.NTR }),
	bytestruct.Bit("normal", 1, func(l *IDLow) *uint32 { return &l.Normal }),
)

// ID identifies a profile. Unlike the rest of the profile it is stored
// big-endian.
type ID struct {
	Low IDLow
	MAC [6]uint8
}

var idLayout = bytestruct.NewRecord(binary.BigEndian,
	bytestruct.Member[ID, IDLow]("low", idLowLayout, func(id *ID) *IDLow { return &id.Low }),
	bytestruct.Array("mac", 6, bytestruct.Uint8, func(id *ID) []uint8 { return id.MAC[:] }),
)

// General holds the personal details.
type General struct {
	Sex           uint16
	BirthMonth    uint16
	BirthDay      uint16
	FavoriteColor uint16
	Favorite      uint16
	padding       uint16
}

var generalLayout = bytestruct.MustBitfield(bytestruct.Uint16,
	bytestruct.Bit("sex", 1, func(g *General) *uint16 { return &g.Sex }),
	bytestruct.Bit("birth_month", 4, func(g *General) *uint16 { return &g.BirthMonth }),
	bytestruct.Bit("birth_day", 5, func(g *General) *uint16 { return &g.BirthDay }),
	bytestruct.Bit("favorite_color", 4, func(g *General) *uint16 { return &g.FavoriteColor }),
	bytestruct.Bit("favorite", 1, func(g *General) *uint16 { return &g.Favorite }),
	bytestruct.Bit("padding", 1, func(g *General) *uint16 { return &g.padding }),
)

// Face is the face shape, skin color, wrinkles and makeup.
type Face struct {
	DisableSharing uint16
	Style          uint16
	Color          uint16
	Wrinkle        uint16
	Makeup         uint16
}

var faceLayout = bytestruct.MustBitfield(bytestruct.Uint16,
	bytestruct.Bit("disable_sharing", 1, func(f *Face) *uint16 { return &f.DisableSharing }),
	bytestruct.Bit("style", 4, func(f *Face) *uint16 { return &f.Style }),
	bytestruct.Bit("color", 3, func(f *Face) *uint16 { return &f.Color }),
	bytestruct.Bit("wrinkle", 4, func(f *Face) *uint16 { return &f.Wrinkle }),
	bytestruct.Bit("makeup", 4, func(f *Face) *uint16 { return &f.Makeup }),
)

// Hair is the hair style.
type Hair struct {
	Style   uint16
	Color   uint16
	Flip    uint16
	padding uint16
}

var hairLayout = bytestruct.MustBitfield(bytestruct.Uint16,
	bytestruct.Bit("style", 8, func(h *Hair) *uint16 { return &h.Style }),
	bytestruct.Bit("color", 3, func(h *Hair) *uint16 { return &h.Color }),
	bytestruct.Bit("flip", 1, func(h *Hair) *uint16 { return &h.Flip }),
	bytestruct.Bit("padding", 4, func(h *Hair) *uint16 { return &h.padding }),
)

// Eye is the eye style and placement.
type Eye struct {
	Style    uint32
	Color    uint32
	Scale    uint32
	YScale   uint32
	Rotation uint32
	X        uint32
	Y        uint32
	padding  uint32
}

var eyeLayout = bytestruct.MustBitfield(bytestruct.Uint32,
	bytestruct.Bit("style", 6, func(e *Eye) *uint32 { return &e.Style }),
	bytestruct.Bit("color", 3, func(e *Eye) *uint32 { return &e.Color }),
	bytestruct.Bit("scale", 4, func(e *Eye) *uint32 { return &e.Scale }),
	bytestruct.Bit("y_scale", 3, func(e *Eye) *uint32 { return &e.YScale }),
	bytestruct.Bit("rotation", 5, func(e *Eye) *uint32 { return &e.Rotation }),
	bytestruct.Bit("x", 4, func(e *Eye) *uint32 { return &e.X }),
	bytestruct.Bit("y", 5, func(e *Eye) *uint32 { return &e.Y }),
	bytestruct.Bit("padding", 2, func(e *Eye) *uint32 { return &e.padding }),
)

// Eyebrow is the eyebrow style and placement.
type Eyebrow struct {
	Style    uint32
	Color    uint32
	Scale    uint32
	YScale   uint32
	padding  uint32
	Rotation uint32
	X        uint32
	Y        uint32
	padding2 uint32
}

var eyebrowLayout = bytestruct.MustBitfield(bytestruct.Uint32,
	bytestruct.Bit("style", 5, func(e *Eyebrow) *uint32 { return &e.Style }),
	bytestruct.Bit("color", 3, func(e *Eyebrow) *uint32 { return &e.Color }),
	bytestruct.Bit("scale", 4, func(e *Eyebrow) *uint32 { return &e.Scale }),
	bytestruct.Bit("y_scale", 3, func(e *Eyebrow) *uint32 { return &e.YScale }),
	bytestruct.Bit("padding", 1, func(e *Eyebrow) *uint32 { return &e.padding }),
	bytestruct.Bit("rotation", 5, func(e *Eyebrow) *uint32 { return &e.Rotation }),
	bytestruct.Bit("x", 4, func(e *Eyebrow) *uint32 { return &e.X }),
	bytestruct.Bit("y", 5, func(e *Eyebrow) *uint32 { return &e.Y }),
	bytestruct.Bit("padding2", 2, func(e *Eyebrow) *uint32 { return &e.padding2 }),
)

// Nose is the nose style and placement.
type Nose struct {
	Style   uint16
	Scale   uint16
	Y       uint16
	padding uint16
}

var noseLayout = bytestruct.MustBitfield(bytestruct.Uint16,
	bytestruct.Bit("style", 5, func(n *Nose) *uint16 { return &n.Style }),
	bytestruct.Bit("scale", 4, func(n *Nose) *uint16 { return &n.Scale }),
	bytestruct.Bit("y", 5, func(n *Nose) *uint16 { return &n.Y }),
	bytestruct.Bit("padding", 2, func(n *Nose) *uint16 { return &n.padding }),
)

// Lip is the mouth style. Its vertical position lives in Misc.
type Lip struct {
	Style  uint16
	Color  uint16
	Scale  uint16
	YScale uint16
}

var lipLayout = bytestruct.MustBitfield(bytestruct.Uint16,
	bytestruct.Bit("style", 6, func(l *Lip) *uint16 { return &l.Style }),
	bytestruct.Bit("color", 3, func(l *Lip) *uint16 { return &l.Color }),
	bytestruct.Bit("scale", 4, func(l *Lip) *uint16 { return &l.Scale }),
	bytestruct.Bit("y_scale", 3, func(l *Lip) *uint16 { return &l.YScale }),
)

// Misc holds the mouth position and the mustache style.
type Misc struct {
	LipY          uint16
	MustacheStyle uint16
	padding       uint16
}

var miscLayout = bytestruct.MustBitfield(bytestruct.Uint16,
	bytestruct.Bit("lip_y", 5, func(m *Misc) *uint16 { return &m.LipY }),
	bytestruct.Bit("mustache_style", 3, func(m *Misc) *uint16 { return &m.MustacheStyle }),
	bytestruct.Bit("padding", 8, func(m *Misc) *uint16 { return &m.padding }),
)

// Beard is the beard style plus the mustache size and position. The color
// is shared by both.
type Beard struct {
	Style         uint16
	Color         uint16
	MustacheScale uint16
	MustacheY     uint16
	padding       uint16
}

var beardLayout = bytestruct.MustBitfield(bytestruct.Uint16,
	bytestruct.Bit("style", 3, func(b *Beard) *uint16 { return &b.Style }),
	bytestruct.Bit("color", 3, func(b *Beard) *uint16 { return &b.Color }),
	bytestruct.Bit("mustache_scale", 4, func(b *Beard) *uint16 { return &b.MustacheScale }),
	bytestruct.Bit("mustache_y", 5, func(b *Beard) *uint16 { return &b.MustacheY }),
	bytestruct.Bit("padding", 1, func(b *Beard) *uint16 { return &b.padding }),
)

// Glass is the glasses style and placement.
type Glass struct {
	Style uint16
	Color uint16
	Scale uint16
	Y     uint16
}

var glassLayout = bytestruct.MustBitfield(bytestruct.Uint16,
	bytestruct.Bit("style", 4, func(g *Glass) *uint16 { return &g.Style }),
	bytestruct.Bit("color", 3, func(g *Glass) *uint16 { return &g.Color }),
	bytestruct.Bit("scale", 4, func(g *Glass) *uint16 { return &g.Scale }),
	bytestruct.Bit("y", 5, func(g *Glass) *uint16 { return &g.Y }),
)

// Mole is the mole style and placement.
type Mole struct {
	Style   uint16
	Scale   uint16
	X       uint16
	Y       uint16
	padding uint16
}

var moleLayout = bytestruct.MustBitfield(bytestruct.Uint16,
	bytestruct.Bit("style", 1, func(m *Mole) *uint16 { return &m.Style }),
	bytestruct.Bit("scale", 4, func(m *Mole) *uint16 { return &m.Scale }),
	bytestruct.Bit("x", 5, func(m *Mole) *uint16 { return &m.X }),
	bytestruct.Bit("y", 5, func(m *Mole) *uint16 { return &m.Y }),
	bytestruct.Bit("padding", 1, func(m *Mole) *uint16 { return &m.padding }),
)

// Profile is a single face.
type Profile struct {
	Header   Header
	SystemID [8]uint8
	ID       ID
	padding  uint16
	General  General
	Name     [NameLength]uint16
	Height   uint8
	Width    uint8
	Face     Face
	Hair     Hair
	Eye      Eye
	Eyebrow  Eyebrow
	Nose     Nose
	Lip      Lip
	Misc     Misc
	Beard    Beard
	Glass    Glass
	Mole     Mole
}

var profileLayout = bytestruct.NewRecord(binary.LittleEndian,
	bytestruct.Member[Profile, Header]("header", headerLayout, func(p *Profile) *Header { return &p.Header }),
	bytestruct.Array("system_id", 8, bytestruct.Uint8, func(p *Profile) []uint8 { return p.SystemID[:] }),
	bytestruct.Member[Profile, ID]("id", idLayout, func(p *Profile) *ID { return &p.ID }),
	bytestruct.Member("padding", bytestruct.Uint16, func(p *Profile) *uint16 { return &p.padding }),
	bytestruct.Member[Profile, General]("general", generalLayout, func(p *Profile) *General { return &p.General }),
	bytestruct.Array("name", NameLength, bytestruct.Uint16, func(p *Profile) []uint16 { return p.Name[:] }),
	bytestruct.Member("height", bytestruct.Uint8, func(p *Profile) *uint8 { return &p.Height }),
	bytestruct.Member("width", bytestruct.Uint8, func(p *Profile) *uint8 { return &p.Width }),
	bytestruct.Member[Profile, Face]("face", faceLayout, func(p *Profile) *Face { return &p.Face }),
	bytestruct.Member[Profile, Hair]("hair", hairLayout, func(p *Profile) *Hair { return &p.Hair }),
	bytestruct.Member[Profile, Eye]("eye", eyeLayout, func(p *Profile) *Eye { return &p.Eye }),
	bytestruct.Member[Profile, Eyebrow]("eyebrow", eyebrowLayout, func(p *Profile) *Eyebrow { return &p.Eyebrow }),
	bytestruct.Member[Profile, Nose]("nose", noseLayout, func(p *Profile) *Nose { return &p.Nose }),
	bytestruct.Member[Profile, Lip]("lip", lipLayout, func(p *Profile) *Lip { return &p.Lip }),
	bytestruct.Member[Profile, Misc]("misc", miscLayout, func(p *Profile) *Misc { return &p.Misc }),
	bytestruct.Member[Profile, Beard]("beard", beardLayout, func(p *Profile) *Beard { return &p.Beard }),
	bytestruct.Member[Profile, Glass]("glass", glassLayout, func(p *Profile) *Glass { return &p.Glass }),
	bytestruct.Member[Profile, Mole]("mole", moleLayout, func(p *Profile) *Mole { return &p.Mole }),
)

// ProfileSize is the encoded length of a Profile.
var ProfileSize = profileLayout.Len()

// MarshalBinary encodes the profile.
func (p *Profile) MarshalBinary() ([]byte, error) {
	return profileLayout.Marshal(p), nil
}

// UnmarshalBinary decodes the profile from exactly ProfileSize bytes.
func (p *Profile) UnmarshalBinary(b []byte) error {
	if len(b) != profileLayout.Len() {
		return errors.Wrapf(ErrSize, "profile is %d bytes, want %d", len(b), profileLayout.Len())
	}
	profileLayout.Decode(b, p)
	return nil
}

// Slot returns the position of the profile in the owned list, as shown
// to the user.
func (p *Profile) Slot() int {
	return int(p.Header.Page)*10 + int(p.Header.Slot)
}

// SetSlot sets the page and slot for the given position.
func (p *Profile) SetSlot(slot int) error {
	if slot < 0 || slot >= OwnedCount {
		return errors.Wrapf(ErrSlotRange, "slot %d", slot)
	}
	p.Header.Page = uint32(slot / 10)
	p.Header.Slot = uint32(slot % 10)
	return nil
}

// IsNull reports whether the profile is an unused entry.
func (p *Profile) IsNull() bool {
	return p.ID.Low == IDLow{} && p.ID.MAC == [6]uint8{}
}

// Created returns the creation time encoded in the profile ID.
func (p *Profile) Created() time.Time {
	return Epoch.Add(time.Duration(p.ID.Low.CreationDate) * 2 * time.Second)
}

func decodeName(n []uint16) string {
	for i, c := range n {
		if c == 0 {
			n = n[:i]
			break
		}
	}
	return string(utf16.Decode(n))
}

func encodeName(dst []uint16, s string) error {
	u := utf16.Encode([]rune(s))
	if len(u) > len(dst) {
		return errors.Errorf("database: name %q is %d code units, maximum %d", s, len(u), len(dst))
	}
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, u)
	return nil
}

// NameString returns the profile name.
func (p *Profile) NameString() string {
	return decodeName(p.Name[:])
}

// SetName sets the profile name, which must fit in NameLength UTF-16 code
// units.
func (p *Profile) SetName(s string) error {
	return encodeName(p.Name[:], s)
}

// NewProfile returns the default face, created at t on the console with
// the given MAC address and system ID, placed at slot.
func NewProfile(mac [6]uint8, systemID [8]uint8, t time.Time, slot int) (Profile, error) {
	var created uint32
	if d := t.Sub(Epoch); d > 0 {
		created = uint32(d / time.Second / 2)
	}

	p := Profile{
		Header: Header{
			Three:        3,
			VersionMajor: 3,
		},
		SystemID: systemID,
		ID: ID{
			Low: IDLow{
				CreationDate: created,
				Unknown:      1,
				Normal:       1,
			},
			MAC: mac,
		},
		General: General{Sex: 1},
		Name:    [NameLength]uint16{'?'},
		Height:  64,
		Width:   64,
		Hair:    Hair{Style: 12, Color: 1},
		Eye: Eye{
			Style:    4,
			Scale:    4,
			YScale:   3,
			Rotation: 3,
			X:        2,
			Y:        12,
		},
		Eyebrow: Eyebrow{
			Color:    1,
			Scale:    4,
			YScale:   3,
			Rotation: 6,
			X:        2,
			Y:        10,
		},
		Nose:  Nose{Style: 1, Scale: 4, Y: 9},
		Lip:   Lip{Style: 23, Scale: 4, YScale: 3},
		Misc:  Misc{LipY: 13},
		Beard: Beard{MustacheScale: 4, MustacheY: 10},
		Glass: Glass{Scale: 4, Y: 10},
		Mole:  Mole{Scale: 4, X: 2, Y: 20},
	}
	if err := p.SetSlot(slot); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// ProfileFull is an owned profile with the name of its author.
type ProfileFull struct {
	Profile Profile
	Author  [NameLength]uint16
}

var profileFullLayout = bytestruct.NewRecord(binary.LittleEndian,
	bytestruct.Member[ProfileFull, Profile]("main", profileLayout, func(p *ProfileFull) *Profile { return &p.Profile }),
	bytestruct.Array("author", NameLength, bytestruct.Uint16, func(p *ProfileFull) []uint16 { return p.Author[:] }),
)

// AuthorString returns the author name.
func (p *ProfileFull) AuthorString() string {
	return decodeName(p.Author[:])
}

// SetAuthor sets the author name.
func (p *ProfileFull) SetAuthor(s string) error {
	return encodeName(p.Author[:], s)
}

// ProfileAlt is a profile in the CFHE list with the time it was added.
type ProfileAlt struct {
	Profile   Profile
	Timestamp uint32 // seconds since 2000-01-01
	unknown   [8]uint8
}

var profileAltLayout = bytestruct.NewRecord(binary.LittleEndian,
	bytestruct.Member[ProfileAlt, Profile]("main", profileLayout, func(p *ProfileAlt) *Profile { return &p.Profile }),
	bytestruct.Member("timestamp", bytestruct.Uint32, func(p *ProfileAlt) *uint32 { return &p.Timestamp }),
	bytestruct.Array("unknown", 8, bytestruct.Uint8, func(p *ProfileAlt) []uint8 { return p.unknown[:] }),
)
