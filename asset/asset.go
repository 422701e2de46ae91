/*
Package asset implements the face resource archive, the container holding
every model and texture used to draw a face.

The archive starts with a section count, a version and the absolute offset
of each section. Each section holds an item count, a reserved half word and
one more item offset than it has items, followed by the item data. An item
spans from its own offset to the offset of the next item. The top 10 bits
of an item offset, when non-zero, redirect the item to the one-based index
of another item in the same section, which lets identical items share their
bytes.

The sections have fixed roles: the first nine hold models and the remaining
eleven hold textures. Some model sections carry extra data around each
model, see Parse.
*/
package asset

import (
	"encoding/binary"
	"fmt"

	"github.com/bodgit/citrii/bytestruct"
	"github.com/bodgit/citrii/model"
	"github.com/bodgit/citrii/texture"
	"github.com/pkg/errors"
)

const (
	offsetBits    = 22
	offsetMask    = 1<<offsetBits - 1
	maxRedirect   = 1<<(32-offsetBits) - 1
	maxTrailing   = 4
	hairModelSkip = 0x48
)

var (
	// ErrMalformedOffset is returned when a section or item offset points
	// outside the archive, or a redirect names a missing item.
	ErrMalformedOffset = errors.New("asset: malformed offset")
	// ErrTrailingBytes is returned when an item has more bytes left over
	// after decoding than are tolerated.
	ErrTrailingBytes = errors.New("asset: unexpected trailing bytes")
	// ErrTruncated is returned when a header runs past the end of the
	// archive.
	ErrTruncated = errors.New("asset: truncated")
	// ErrSectionCount is returned when the archive has fewer sections
	// than there are roles.
	ErrSectionCount = errors.New("asset: not enough sections")
)

// Section identifies a section by its role.
type Section int

// Sections, in archive order.
const (
	BeardModel Section = iota
	AccessoryModel
	FaceModel
	ScalpModel
	GlassModel
	HairModel
	FaceCanvasModel
	NoseCanvasModel
	NoseModel
	AccessoryTexture
	EyeTexture
	EyebrowTexture
	BeardTexture
	WrinkleTexture
	MakeupTexture
	GlassTexture
	MoleTexture
	LipTexture
	MustacheTexture
	NoseTexture

	NumSections
)

// Number of sections of each kind.
const (
	NumModelSections   = int(AccessoryTexture)
	NumTextureSections = int(NumSections - AccessoryTexture)
)

var sectionNames = [NumSections]string{
	"beard", "accessory", "face", "scalp", "glass", "hair",
	"face_canvas", "nose_canvas", "nose",
	"accessory", "eye", "eyebrow", "beard", "wrinkle", "makeup",
	"glass", "mole", "lip", "mustache", "nose",
}

// Valid reports whether s is one of the known sections.
func (s Section) Valid() bool { return s >= 0 && s < NumSections }

// IsTexture reports whether the section holds textures.
func (s Section) IsTexture() bool { return s >= AccessoryTexture }

// Name returns the part of the face the section is for.
func (s Section) Name() string {
	if !s.Valid() {
		return fmt.Sprintf("section%d", int(s))
	}
	return sectionNames[s]
}

func (s Section) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Section(%d)", int(s))
	}
	if s.IsTexture() {
		return sectionNames[s] + "_texture"
	}
	return sectionNames[s] + "_model"
}

// SectionRoles lists every section in archive order.
var SectionRoles = func() []Section {
	s := make([]Section, NumSections)
	for i := range s {
		s[i] = Section(i)
	}
	return s
}()

// FaceConfig holds the attachment points of a face model.
type FaceConfig struct {
	HairPos  [3]float32
	NosePos  [3]float32
	BeardPos [3]float32
}

var faceConfigLayout = bytestruct.NewRecord(binary.LittleEndian,
	bytestruct.Array("hair_pos", 3, bytestruct.Float32, func(f *FaceConfig) []float32 { return f.HairPos[:] }),
	bytestruct.Array("nose_pos", 3, bytestruct.Float32, func(f *FaceConfig) []float32 { return f.NosePos[:] }),
	bytestruct.Array("beard_pos", 3, bytestruct.Float32, func(f *FaceConfig) []float32 { return f.BeardPos[:] }),
)

// MarshalBinary encodes the face config as it prefixes a face model.
func (f *FaceConfig) MarshalBinary() ([]byte, error) {
	return faceConfigLayout.Marshal(f), nil
}

// Asset is a fully decoded archive. Every list has one entry per item in
// its section; empty items are nil. Items redirected to another item share
// the decoded value of that item.
type Asset struct {
	Version uint16

	models   [NumModelSections][]*model.Raw
	textures [NumTextureSections][]*texture.Raw

	// FaceConfigs has one entry per FaceModel item
	FaceConfigs []*FaceConfig
}

// Models returns the model list of s, or nil if s holds textures.
func (a *Asset) Models(s Section) []*model.Raw {
	if !s.Valid() || s.IsTexture() {
		return nil
	}
	return a.models[s]
}

// Textures returns the texture list of s, or nil if s holds models.
func (a *Asset) Textures(s Section) []*texture.Raw {
	if !s.Valid() || !s.IsTexture() {
		return nil
	}
	return a.textures[s-AccessoryTexture]
}

// Len returns the number of items in s.
func (a *Asset) Len(s Section) int {
	if s.IsTexture() {
		return len(a.Textures(s))
	}
	return len(a.Models(s))
}

type header struct {
	SectionCount uint16
	Version      uint16
}

var headerLayout = bytestruct.NewRecord(binary.LittleEndian,
	bytestruct.Member("section_count", bytestruct.Uint16, func(h *header) *uint16 { return &h.SectionCount }),
	bytestruct.Member("version", bytestruct.Uint16, func(h *header) *uint16 { return &h.Version }),
)

type sectionHeader struct {
	ItemCount uint16
	Reserved  uint16
}

var sectionHeaderLayout = bytestruct.NewRecord(binary.LittleEndian,
	bytestruct.Member("item_count", bytestruct.Uint16, func(h *sectionHeader) *uint16 { return &h.ItemCount }),
	bytestruct.Member("reserved", bytestruct.Uint16, func(h *sectionHeader) *uint16 { return &h.Reserved }),
)

func readOffsets(b []byte, n int) ([]uint32, error) {
	c := bytestruct.ArrayOf(n, bytestruct.Uint32)
	if len(b) < c.Len() {
		return nil, errors.Wrapf(ErrTruncated, "%d offsets need %d bytes, have %d", n, c.Len(), len(b))
	}
	var offsets []uint32
	c.Read(b[:c.Len()], &offsets, binary.LittleEndian)
	return offsets, nil
}

type item struct {
	model      *model.Raw
	texture    *texture.Raw
	faceConfig *FaceConfig
}

type section struct {
	id      Section
	offsets []uint32
	chunk   []byte
	cache   map[int]*item
}

func parseSection(b []byte, id Section, offset uint32) (*section, error) {
	if int64(offset) > int64(len(b)) {
		return nil, errors.Wrapf(ErrMalformedOffset, "section offset %#x beyond %#x", offset, len(b))
	}
	b = b[offset:]
	if len(b) < sectionHeaderLayout.Len() {
		return nil, errors.Wrap(ErrTruncated, "section header")
	}
	h := sectionHeaderLayout.Unmarshal(b[:sectionHeaderLayout.Len()])
	b = b[sectionHeaderLayout.Len():]

	offsets, err := readOffsets(b, int(h.ItemCount)+1)
	if err != nil {
		return nil, err
	}

	return &section{
		id:      id,
		offsets: offsets,
		chunk:   b[len(offsets)*4:],
		cache:   make(map[int]*item),
	}, nil
}

func (s *section) count() int { return len(s.offsets) - 1 }

// resolve returns the index of the item actually holding the data for
// item k, following a redirect if present, and its bytes.
func (s *section) resolve(k int) (int, []byte, error) {
	off := s.offsets[k]
	if r := off >> offsetBits; r != 0 {
		k = int(r) - 1
		if k >= s.count() {
			return 0, nil, errors.Wrapf(ErrMalformedOffset, "redirect to item %d of %d", k, s.count())
		}
		off = s.offsets[k]
	}
	begin, end := off&offsetMask, s.offsets[k+1]&offsetMask
	if begin > end || int64(end) > int64(len(s.chunk)) {
		return 0, nil, errors.Wrapf(ErrMalformedOffset, "item spans %#x-%#x of %#x", begin, end, len(s.chunk))
	}
	return k, s.chunk[begin:end], nil
}

func checkTrailing(rest []byte, min int) error {
	if len(rest) < min || len(rest) >= min+maxTrailing {
		return errors.Wrapf(ErrTrailingBytes, "%d bytes left, want %d-%d", len(rest), min, min+maxTrailing-1)
	}
	return nil
}

func (s *section) decode(b []byte) (*item, error) {
	if s.id.IsTexture() || !s.id.Valid() {
		t, rest, err := texture.Parse(b)
		if err != nil {
			return nil, err
		}
		if err := checkTrailing(rest, 0); err != nil {
			return nil, err
		}
		return &item{texture: t}, nil
	}

	it := new(item)
	switch s.id {
	case FaceModel:
		if len(b) < faceConfigLayout.Len() {
			return nil, errors.Wrap(ErrTruncated, "face config")
		}
		fc := faceConfigLayout.Unmarshal(b[:faceConfigLayout.Len()])
		it.faceConfig = &fc
		b = b[faceConfigLayout.Len():]
	case HairModel:
		if len(b) < hairModelSkip {
			return nil, errors.Wrap(ErrTruncated, "hair model prefix")
		}
		b = b[hairModelSkip:]
	}

	m, rest, err := model.Parse(b)
	if err != nil {
		return nil, err
	}

	// Face canvas models are followed by two bytes per triangle
	cover := 0
	if s.id == FaceCanvasModel {
		cover = len(m.Indices) / 3 * 2
	}
	if err := checkTrailing(rest, cover); err != nil {
		return nil, err
	}
	it.model = m

	return it, nil
}

func (s *section) item(k int) (*item, error) {
	k, b, err := s.resolve(k)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	if it, ok := s.cache[k]; ok {
		return it, nil
	}
	it, err := s.decode(b)
	if err != nil {
		return nil, err
	}
	s.cache[k] = it
	return it, nil
}

// Parse decodes a complete archive. Face model items are prefixed by a
// FaceConfig, hair model items by 0x48 bytes that are skipped, and face
// canvas models are followed by two bytes for every triangle. Any error in
// any item fails the whole archive. Sections beyond the known roles are
// validated as textures and otherwise ignored.
func Parse(b []byte) (*Asset, error) {
	if len(b) < headerLayout.Len() {
		return nil, errors.Wrap(ErrTruncated, "header")
	}
	h := headerLayout.Unmarshal(b[:headerLayout.Len()])
	if int(h.SectionCount) < int(NumSections) {
		return nil, errors.Wrapf(ErrSectionCount, "have %d, want %d", h.SectionCount, NumSections)
	}

	offsets, err := readOffsets(b[headerLayout.Len():], int(h.SectionCount))
	if err != nil {
		return nil, err
	}

	a := &Asset{Version: h.Version}
	for i, offset := range offsets {
		id := Section(i)
		s, err := parseSection(b, id, offset)
		if err != nil {
			return nil, errors.Wrapf(err, "section %d (%s)", i, id)
		}

		var (
			models   []*model.Raw
			textures []*texture.Raw
		)
		for k := 0; k < s.count(); k++ {
			it, err := s.item(k)
			if err != nil {
				return nil, errors.Wrapf(err, "section %d (%s) item %d", i, id, k)
			}

			switch {
			case it == nil:
				models, textures = append(models, nil), append(textures, nil)
				if id == FaceModel {
					a.FaceConfigs = append(a.FaceConfigs, nil)
				}
			case it.texture != nil:
				textures = append(textures, it.texture)
			default:
				models = append(models, it.model)
				if id == FaceModel {
					a.FaceConfigs = append(a.FaceConfigs, it.faceConfig)
				}
			}
		}

		switch {
		case !id.Valid():
		case id.IsTexture():
			a.textures[id-AccessoryTexture] = textures
		default:
			a.models[id] = models
		}
	}

	return a, nil
}
