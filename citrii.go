/*
Package citrii is a library for inspecting the face resources and editing the
face database of the console's face editor.
*/
package citrii

import (
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bodgit/citrii/asset"
	"github.com/bodgit/citrii/database"
	"github.com/bodgit/citrii/romfs"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ErrNoDatabase is returned by operations that need a database when none
// has been opened.
var ErrNoDatabase = errors.New("citrii: no database open")

type Citrii struct {
	asset   *asset.Asset
	db      *database.Database
	dbPath  string
	catalog *Catalog
	logger  *log.Logger
}

func New(logger *log.Logger) *Citrii {
	return &Citrii{
		logger: logger,
	}
}

// ReadAsset reads the resource archive at name. If image is not empty it
// is a RomFS image and name is a slash separated path within it.
func ReadAsset(name, image string) ([]byte, error) {
	if image == "" {
		return os.ReadFile(name)
	}

	b, err := os.ReadFile(image)
	if err != nil {
		return nil, err
	}
	return romfs.Open(b, strings.Split(strings.Trim(name, "/"), "/")...)
}

// OpenAsset reads and parses the resource archive, see ReadAsset.
func (c *Citrii) OpenAsset(name, image string) error {
	b, err := ReadAsset(name, image)
	if err != nil {
		return err
	}

	a, err := asset.Parse(b)
	if err != nil {
		return errors.Wrap(err, name)
	}
	c.asset = a

	c.logger.Printf("Asset version %d, %d bytes\n", a.Version, len(b))
	for _, s := range asset.SectionRoles {
		c.logger.Printf("Section %s: %d items\n", s, a.Len(s))
	}

	return nil
}

// Asset returns the parsed archive, or nil if none has been opened.
func (c *Citrii) Asset() *asset.Asset {
	return c.asset
}

// OpenDatabase loads and verifies the face database at path. Later calls
// to Save write back to the same path.
func (c *Citrii) OpenDatabase(path string) error {
	db, err := database.Load(path)
	if err != nil {
		return err
	}
	c.db = db
	c.dbPath = path

	c.logger.Printf("Database %s: checksums %04X %04X\n", path, db.CRCA, db.CRCB)

	return nil
}

// Database returns the loaded database, or nil if none has been opened.
func (c *Citrii) Database() *database.Database {
	return c.db
}

// Summary describes an owned profile.
type Summary struct {
	Index   int
	Slot    int
	Name    string
	Author  string
	Created time.Time
}

// Profiles returns the non-empty owned profiles ordered by slot.
func (c *Citrii) Profiles() ([]Summary, error) {
	if c.db == nil {
		return nil, ErrNoDatabase
	}

	profiles := lo.FilterMap(c.db.Owned[:], func(p database.ProfileFull, i int) (Summary, bool) {
		if p.Profile.IsNull() {
			return Summary{}, false
		}
		return Summary{
			Index:   i,
			Slot:    p.Profile.Slot(),
			Name:    p.Profile.NameString(),
			Author:  p.AuthorString(),
			Created: p.Profile.Created(),
		}, true
	})
	sort.SliceStable(profiles, func(i, j int) bool { return profiles[i].Slot < profiles[j].Slot })

	return profiles, nil
}

// Edit adjusts a property of the owned profile shown at slot by steps,
// which may be negative. It is an error for the page to lack the
// property.
func (c *Citrii) Edit(slot int, page database.Page, property database.Property, steps int) error {
	if c.db == nil {
		return ErrNoDatabase
	}

	i, ok := c.db.OwnedSlotToIndex(slot)
	if !ok {
		return errors.Errorf("citrii: no profile in slot %d", slot)
	}
	p := &c.db.Owned[i].Profile

	control, ok := database.Lookup(page, property)
	if !ok {
		return errors.Errorf("citrii: %s has no %s", page, property)
	}

	d := database.Inc
	if steps < 0 {
		d, steps = database.Dec, -steps
	}

	before := control.Value(p)
	for n := 0; n < steps; n++ {
		p.Adjust(page, property, d)
	}
	c.logger.Printf("Slot %d %s %s: %d -> %d\n", slot, page, property, before, control.Value(p))

	return nil
}

// Save writes the database back to the path it was opened from.
func (c *Citrii) Save() error {
	if c.db == nil {
		return ErrNoDatabase
	}
	if err := c.db.Save(c.dbPath); err != nil {
		return err
	}
	c.logger.Printf("Saved %s: checksums %04X %04X\n", c.dbPath, c.db.CRCA, c.db.CRCB)
	return nil
}

// Close releases the catalog, if one is open.
func (c *Citrii) Close() error {
	if c.catalog == nil {
		return nil
	}
	err := c.catalog.Close()
	c.catalog = nil
	return err
}
