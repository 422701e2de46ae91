/*
Package romfs implements read-only access to files stored in a RomFS image,
the filesystem used for the read-only data partition of console titles.

The image starts with a header locating a directory table, a file table and
the file data. Directories and files are linked into trees through offsets
within their tables, with names stored as UTF-16LE after each entry. The
hash tables are not used; lookups walk the sibling lists.
*/
package romfs

import (
	"encoding/binary"
	"path"
	"unicode/utf16"

	"github.com/bodgit/citrii/bytestruct"
	"github.com/pkg/errors"
)

const invalid = 0xffffffff

var (
	// ErrNotFound is returned when a path does not exist in the image.
	ErrNotFound = errors.New("romfs: file not found")
	// ErrCorrupt is returned when an offset or length points outside the
	// image.
	ErrCorrupt = errors.New("romfs: corrupt image")
)

type header struct {
	HeaderLength        uint32
	DirHashTableOffset  uint32
	DirHashTableLength  uint32
	DirTableOffset      uint32
	DirTableLength      uint32
	FileHashTableOffset uint32
	FileHashTableLength uint32
	FileTableOffset     uint32
	FileTableLength     uint32
	DataOffset          uint32
}

func u32[S any](name string, ref func(*S) *uint32) bytestruct.Field[S] {
	return bytestruct.Member(name, bytestruct.Uint32, ref)
}

var headerLayout = bytestruct.NewRecord(binary.LittleEndian,
	u32("header_length", func(h *header) *uint32 { return &h.HeaderLength }),
	u32("dir_hash_table_offset", func(h *header) *uint32 { return &h.DirHashTableOffset }),
	u32("dir_hash_table_length", func(h *header) *uint32 { return &h.DirHashTableLength }),
	u32("dir_table_offset", func(h *header) *uint32 { return &h.DirTableOffset }),
	u32("dir_table_length", func(h *header) *uint32 { return &h.DirTableLength }),
	u32("file_hash_table_offset", func(h *header) *uint32 { return &h.FileHashTableOffset }),
	u32("file_hash_table_length", func(h *header) *uint32 { return &h.FileHashTableLength }),
	u32("file_table_offset", func(h *header) *uint32 { return &h.FileTableOffset }),
	u32("file_table_length", func(h *header) *uint32 { return &h.FileTableLength }),
	u32("data_offset", func(h *header) *uint32 { return &h.DataOffset }),
)

type dirEntry struct {
	Parent       uint32
	Next         uint32
	FirstChild   uint32
	FirstFile    uint32
	SameHashNext uint32
	NameLength   uint32
}

var dirLayout = bytestruct.NewRecord(binary.LittleEndian,
	u32("parent", func(d *dirEntry) *uint32 { return &d.Parent }),
	u32("next", func(d *dirEntry) *uint32 { return &d.Next }),
	u32("first_child", func(d *dirEntry) *uint32 { return &d.FirstChild }),
	u32("first_file", func(d *dirEntry) *uint32 { return &d.FirstFile }),
	u32("same_hash_next", func(d *dirEntry) *uint32 { return &d.SameHashNext }),
	u32("name_length", func(d *dirEntry) *uint32 { return &d.NameLength }),
)

type fileEntry struct {
	Parent       uint32
	Next         uint32
	DataOffset   uint64
	DataLength   uint64
	SameHashNext uint32
	NameLength   uint32
}

var fileLayout = bytestruct.NewRecord(binary.LittleEndian,
	u32("parent", func(f *fileEntry) *uint32 { return &f.Parent }),
	u32("next", func(f *fileEntry) *uint32 { return &f.Next }),
	bytestruct.Member("data_offset", bytestruct.Uint64, func(f *fileEntry) *uint64 { return &f.DataOffset }),
	bytestruct.Member("data_length", bytestruct.Uint64, func(f *fileEntry) *uint64 { return &f.DataLength }),
	u32("same_hash_next", func(f *fileEntry) *uint32 { return &f.SameHashNext }),
	u32("name_length", func(f *fileEntry) *uint32 { return &f.NameLength }),
)

// Image is a RomFS image held in memory.
type Image struct {
	b []byte
	h header
}

// New checks the header of the image in b.
func New(b []byte) (*Image, error) {
	if len(b) < headerLayout.Len() {
		return nil, errors.Wrap(ErrCorrupt, "short header")
	}
	im := &Image{b: b}
	headerLayout.Decode(b[:headerLayout.Len()], &im.h)

	for _, t := range [][2]uint32{
		{im.h.DirTableOffset, im.h.DirTableLength},
		{im.h.FileTableOffset, im.h.FileTableLength},
	} {
		if uint64(t[0])+uint64(t[1]) > uint64(len(b)) {
			return nil, errors.Wrapf(ErrCorrupt, "table at %#x+%#x beyond %#x", t[0], t[1], len(b))
		}
	}
	if uint64(im.h.DataOffset) > uint64(len(b)) {
		return nil, errors.Wrapf(ErrCorrupt, "data at %#x beyond %#x", im.h.DataOffset, len(b))
	}

	return im, nil
}

// entry reads the fixed part and name of the entry at offset within the
// table at base.
func (im *Image) entry(base, offset uint32, size int) ([]byte, []byte, error) {
	start := uint64(base) + uint64(offset)
	end := start + uint64(size)
	if end > uint64(len(im.b)) {
		return nil, nil, errors.Wrapf(ErrCorrupt, "entry at %#x beyond %#x", start, len(im.b))
	}
	return im.b[start:end], im.b[end:], nil
}

func (im *Image) dir(offset uint32) (dirEntry, string, error) {
	var d dirEntry
	fixed, rest, err := im.entry(im.h.DirTableOffset, offset, dirLayout.Len())
	if err != nil {
		return d, "", err
	}
	dirLayout.Decode(fixed, &d)
	name, err := decodeName(rest, d.NameLength)
	return d, name, err
}

func (im *Image) file(offset uint32) (fileEntry, string, error) {
	var f fileEntry
	fixed, rest, err := im.entry(im.h.FileTableOffset, offset, fileLayout.Len())
	if err != nil {
		return f, "", err
	}
	fileLayout.Decode(fixed, &f)
	name, err := decodeName(rest, f.NameLength)
	return f, name, err
}

func decodeName(b []byte, n uint32) (string, error) {
	if uint64(n) > uint64(len(b)) || n%2 != 0 {
		return "", errors.Wrapf(ErrCorrupt, "name of %d bytes", n)
	}
	u := make([]uint16, n/2)
	for i := range u {
		u[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return string(utf16.Decode(u)), nil
}

// maxLinks bounds any walk along a sibling list so that a cyclic image
// cannot loop forever.
func (im *Image) maxLinks() int {
	return len(im.b)/dirLayout.Len() + 1
}

func (im *Image) data(f fileEntry) ([]byte, error) {
	start := uint64(im.h.DataOffset) + f.DataOffset
	end := start + f.DataLength
	if start < f.DataOffset || end < start || end > uint64(len(im.b)) {
		return nil, errors.Wrapf(ErrCorrupt, "data at %#x+%#x beyond %#x", start, f.DataLength, len(im.b))
	}
	return im.b[start:end], nil
}

// Open returns the contents of the file at the given path, one element
// per directory level. The returned slice aliases the image.
func (im *Image) Open(elem ...string) ([]byte, error) {
	if len(elem) == 0 {
		return nil, errors.Wrap(ErrNotFound, "empty path")
	}

	dir, _, err := im.dir(0)
	if err != nil {
		return nil, err
	}

	for _, name := range elem[:len(elem)-1] {
		child := dir.FirstChild
		for i := 0; ; i++ {
			if child == invalid || i > im.maxLinks() {
				return nil, errors.Wrap(ErrNotFound, path.Join(elem...))
			}
			d, n, err := im.dir(child)
			if err != nil {
				return nil, err
			}
			if n == name {
				dir = d
				break
			}
			child = d.Next
		}
	}

	name := elem[len(elem)-1]
	for i, next := 0, dir.FirstFile; next != invalid && i <= im.maxLinks(); i++ {
		f, n, err := im.file(next)
		if err != nil {
			return nil, err
		}
		if n == name {
			return im.data(f)
		}
		next = f.Next
	}

	return nil, errors.Wrap(ErrNotFound, path.Join(elem...))
}

// Open is a convenience wrapper around New and Image.Open.
func Open(b []byte, elem ...string) ([]byte, error) {
	im, err := New(b)
	if err != nil {
		return nil, err
	}
	return im.Open(elem...)
}

// WalkFunc is called for every file found by Walk.
type WalkFunc func(name string, size uint64) error

// Walk calls fn for every file in the image, depth first, with its path
// relative to the root.
func (im *Image) Walk(fn WalkFunc) error {
	return im.walk(0, "", fn, 0)
}

func (im *Image) walk(offset uint32, prefix string, fn WalkFunc, depth int) error {
	if depth > im.maxLinks() {
		return errors.Wrap(ErrCorrupt, "directory loop")
	}
	dir, _, err := im.dir(offset)
	if err != nil {
		return err
	}

	for i, next := 0, dir.FirstFile; next != invalid; i++ {
		if i > im.maxLinks() {
			return errors.Wrap(ErrCorrupt, "file loop")
		}
		f, n, err := im.file(next)
		if err != nil {
			return err
		}
		if err := fn(path.Join(prefix, n), f.DataLength); err != nil {
			return err
		}
		next = f.Next
	}

	for i, next := 0, dir.FirstChild; next != invalid; i++ {
		if i > im.maxLinks() {
			return errors.Wrap(ErrCorrupt, "directory loop")
		}
		d, n, err := im.dir(next)
		if err != nil {
			return err
		}
		if err := im.walk(next, path.Join(prefix, n), fn, depth+1); err != nil {
			return err
		}
		next = d.Next
	}

	return nil
}
