/*
Package database implements the face database, the fixed size save file
holding every face owned by or shared with the console.

The file is 0x4BD20 bytes long and is made of a number of fixed regions: the
owned profiles, a linked list of recently seen profile IDs, the invited
profiles and the recently seen profiles themselves. The first two regions
and the invited region are each protected by a CRC-16, stored big-endian
immediately after the bytes it covers. Everything else is little-endian,
apart from profile IDs which are big-endian throughout.

Most profile attributes are packed into bit fields; each is described by a
bytestruct.Bitfield so that unknown and padding bits survive a round trip.
*/
package database

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/bodgit/citrii/bytestruct"
	"github.com/bodgit/citrii/crc16"
	"github.com/pkg/errors"
)

// Sizes of the fixed lists.
const (
	OwnedCount   = 100
	InvitedCount = 100
	CFHECount    = 3000
)

// Size is the length of the database file.
const Size = 0x4bd20

// Magic is the expected value of Database.Magic.
const Magic = 0x00000100

// Checksummed regions. Each CRC is stored directly after its region.
const (
	crcAStart = 0x0000
	crcAEnd   = 0xc81e
	crcBStart = 0xc820
	crcBEnd   = 0xe4be
)

var (
	// ErrSize is returned when the database is not exactly Size bytes.
	ErrSize = errors.New("database: wrong size")
	// ErrChecksumMismatch is returned when a stored CRC does not match
	// the data it covers.
	ErrChecksumMismatch = errors.New("database: checksum mismatch")
)

// ListNode links a CFHEObject into the recently seen list.
type ListNode struct {
	Prev uint32
	PF   uint32
	Next uint32
	NF   uint32
}

var listNodeLayout = bytestruct.MustBitfield(bytestruct.Uint32,
	bytestruct.Bit("prev", 15, func(n *ListNode) *uint32 { return &n.Prev }),
	bytestruct.Bit("pf", 1, func(n *ListNode) *uint32 { return &n.PF }),
	bytestruct.Bit("next", 15, func(n *ListNode) *uint32 { return &n.Next }),
	bytestruct.Bit("nf", 1, func(n *ListNode) *uint32 { return &n.NF }),
)

// CFHEObject is an entry in the recently seen list.
type CFHEObject struct {
	ProfileID ID
	ListNode  ListNode
}

var cfheObjectLayout = bytestruct.NewRecord(binary.LittleEndian,
	bytestruct.Member[CFHEObject, ID]("profile_id", idLayout, func(o *CFHEObject) *ID { return &o.ProfileID }),
	bytestruct.Member[CFHEObject, ListNode]("list_node", listNodeLayout, func(o *CFHEObject) *ListNode { return &o.ListNode }),
)

// Database is the decoded face database.
type Database struct {
	CFOG         [4]uint8
	Magic        uint32
	Owned        [OwnedCount]ProfileFull
	CFHE         [4]uint8
	CFHETail     uint16
	CFHEHead     uint16
	CFHEObjects  [CFHECount]CFHEObject
	unknown      [0xe]uint8
	CRCA         uint16
	CFRA         [4]uint8
	InvitedCount uint32
	InvitedOrder [InvitedCount]uint8
	Invited      [InvitedCount]Profile
	unknown2     [0x12]uint8
	CRCB         uint16
	CFHEProfiles [CFHECount]ProfileAlt
}

var be16 = bytestruct.Fixed(bytestruct.Uint16, binary.BigEndian)

var layout = bytestruct.NewRecord(binary.LittleEndian,
	bytestruct.Array("cfog", 4, bytestruct.Uint8, func(d *Database) []uint8 { return d.CFOG[:] }),
	bytestruct.Member("magic", bytestruct.Uint32, func(d *Database) *uint32 { return &d.Magic }),
	bytestruct.Array[Database, ProfileFull]("owned", OwnedCount, profileFullLayout, func(d *Database) []ProfileFull { return d.Owned[:] }),
	bytestruct.Array("cfhe", 4, bytestruct.Uint8, func(d *Database) []uint8 { return d.CFHE[:] }),
	bytestruct.Member("cfhe_tail", bytestruct.Uint16, func(d *Database) *uint16 { return &d.CFHETail }),
	bytestruct.Member("cfhe_head", bytestruct.Uint16, func(d *Database) *uint16 { return &d.CFHEHead }),
	bytestruct.Array[Database, CFHEObject]("cfhe_objects", CFHECount, cfheObjectLayout, func(d *Database) []CFHEObject { return d.CFHEObjects[:] }),
	bytestruct.Array("unknown", 0xe, bytestruct.Uint8, func(d *Database) []uint8 { return d.unknown[:] }),
	bytestruct.Member("crc_a", be16, func(d *Database) *uint16 { return &d.CRCA }),
	bytestruct.Array("cfra", 4, bytestruct.Uint8, func(d *Database) []uint8 { return d.CFRA[:] }),
	bytestruct.Member("invited_count", bytestruct.Uint32, func(d *Database) *uint32 { return &d.InvitedCount }),
	bytestruct.Array("invited_order", InvitedCount, bytestruct.Uint8, func(d *Database) []uint8 { return d.InvitedOrder[:] }),
	bytestruct.Array[Database, Profile]("invited", InvitedCount, profileLayout, func(d *Database) []Profile { return d.Invited[:] }),
	bytestruct.Array("unknown2", 0x12, bytestruct.Uint8, func(d *Database) []uint8 { return d.unknown2[:] }),
	bytestruct.Member("crc_b", be16, func(d *Database) *uint16 { return &d.CRCB }),
	bytestruct.Array[Database, ProfileAlt]("cfhe_profiles", CFHECount, profileAltLayout, func(d *Database) []ProfileAlt { return d.CFHEProfiles[:] }),
)

// Checksums returns the CRCs of the two protected regions of b, which
// must be a complete database.
func Checksums(b []byte) (uint16, uint16, error) {
	if len(b) != Size {
		return 0, 0, errors.Wrapf(ErrSize, "%#x bytes, want %#x", len(b), Size)
	}
	return crc16.Checksum(b[crcAStart:crcAEnd]), crc16.Checksum(b[crcBStart:crcBEnd]), nil
}

// Verify checks both stored CRCs of b against the data they cover.
func Verify(b []byte) error {
	a, c, err := Checksums(b)
	if err != nil {
		return err
	}
	if stored := binary.BigEndian.Uint16(b[crcAEnd:]); stored != a {
		return errors.Wrapf(ErrChecksumMismatch, "region %#x-%#x: stored %#04x, computed %#04x", crcAStart, crcAEnd, stored, a)
	}
	if stored := binary.BigEndian.Uint16(b[crcBEnd:]); stored != c {
		return errors.Wrapf(ErrChecksumMismatch, "region %#x-%#x: stored %#04x, computed %#04x", crcBStart, crcBEnd, stored, c)
	}
	return nil
}

// UnmarshalBinary verifies and decodes a complete database. Nothing is
// decoded unless both checksums are valid.
func (d *Database) UnmarshalBinary(b []byte) error {
	if err := Verify(b); err != nil {
		return err
	}
	layout.Decode(b, d)
	return nil
}

// MarshalBinary encodes the database into a new buffer and stores freshly
// computed checksums in it. The CRCA and CRCB fields are updated to
// match.
func (d *Database) MarshalBinary() ([]byte, error) {
	b := make([]byte, layout.Len())
	layout.Encode(b, d)

	a, c, err := Checksums(b)
	if err != nil {
		return nil, err
	}
	d.CRCA, d.CRCB = a, c
	be16.Write(b[crcAEnd:crcAEnd+2], &d.CRCA, nil)
	be16.Write(b[crcBEnd:crcBEnd+2], &d.CRCB, nil)

	return b, nil
}

// OwnedSlotToIndex returns the index into Owned of the profile shown at
// slot.
func (d *Database) OwnedSlotToIndex(slot int) (int, bool) {
	for i := range d.Owned {
		p := &d.Owned[i].Profile
		if !p.IsNull() && p.Slot() == slot {
			return i, true
		}
	}
	return 0, false
}

// Load reads and verifies the database at path.
func Load(path string) (*Database, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d := new(Database)
	if err := d.UnmarshalBinary(b); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return d, nil
}

// Save encodes the database and replaces the file at path. The data is
// written to a temporary file in the same directory which is then renamed
// over path, so a failed save leaves the original intact.
func (d *Database) Save(path string) (err error) {
	b, err := d.MarshalBinary()
	if err != nil {
		return err
	}

	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	if _, err = f.Write(b); err != nil {
		f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Chmod(f.Name(), mode); err != nil {
		return err
	}

	return os.Rename(f.Name(), path)
}
