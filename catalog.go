package citrii

import (
	"crypto/sha1"
	"database/sql"
	"fmt"

	"github.com/bodgit/citrii/asset"
	"github.com/bodgit/citrii/texture"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Catalog is an sqlite database of exported textures. Textures with
// identical encodings are stored once and shared by every item using them.
type Catalog struct {
	db *sql.DB
}

func NewCatalog(file string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS texture (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, width INTEGER NOT NULL, height INTEGER NOT NULL, format TEXT NOT NULL, png BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS item (section TEXT NOT NULL, idx INTEGER NOT NULL, texture_id INTEGER NOT NULL, PRIMARY KEY(section, idx), FOREIGN KEY(texture_id) REFERENCES texture(id))"); err != nil {
		db.Close()
		return nil, err
	}

	return &Catalog{
		db: db,
	}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Reset removes every item and texture.
func (c *Catalog) Reset() error {
	if _, err := c.db.Exec("DELETE FROM item"); err != nil {
		return err
	}
	_, err := c.db.Exec("DELETE FROM texture")
	return err
}

// addTexture returns the id of the texture matching raw, inserting it with
// the given PNG encoding if it is new.
func (c *Catalog) addTexture(raw *texture.Raw, png []byte) (int64, bool, error) {
	b, err := raw.MarshalBinary()
	if err != nil {
		return 0, false, err
	}
	sha := fmt.Sprintf("%X", sha1.Sum(b))

	var id int64
	switch err := c.db.QueryRow("SELECT id FROM texture WHERE sha1 = ?", sha).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := c.db.Exec("INSERT INTO texture (sha1, width, height, format, png) VALUES (?, ?, ?, ?, ?)", sha, raw.Width, raw.Height, raw.Format.String(), png)
		if err != nil {
			return 0, false, err
		}
		id, err := result.LastInsertId()
		return id, true, err
	case nil:
		return id, false, nil
	default:
		return 0, false, err
	}
}

// Add records png as the image of item index in section. It reports
// whether a new texture was stored.
func (c *Catalog) Add(section asset.Section, index int, raw *texture.Raw, png []byte) (bool, error) {
	id, added, err := c.addTexture(raw, png)
	if err != nil {
		return false, err
	}
	if _, err := c.db.Exec("INSERT OR REPLACE INTO item (section, idx, texture_id) VALUES (?, ?, ?)", section.String(), index, id); err != nil {
		return false, err
	}
	return added, nil
}

// FindPNG returns the PNG stored for item index in section, or nil if
// there is none.
func (c *Catalog) FindPNG(section asset.Section, index int) ([]byte, error) {
	var png []byte
	switch err := c.db.QueryRow("SELECT t.png FROM item AS i JOIN texture AS t ON i.texture_id = t.id WHERE i.section = ? AND i.idx = ?", section.String(), index).Scan(&png); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return png, nil
	default:
		return nil, err
	}
}

// Count returns the number of distinct textures and items.
func (c *Catalog) Count() (int, int, error) {
	var textures, items int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM texture").Scan(&textures); err != nil {
		return 0, 0, err
	}
	if err := c.db.QueryRow("SELECT COUNT(*) FROM item").Scan(&items); err != nil {
		return 0, 0, err
	}
	return textures, items, nil
}

// OpenCatalog opens, creating if necessary, the catalog used by
// ExportTextures.
func (c *Citrii) OpenCatalog(file string) error {
	if c.catalog != nil {
		return errors.New("citrii: catalog already open")
	}
	catalog, err := NewCatalog(file)
	if err != nil {
		return err
	}
	c.catalog = catalog
	return nil
}

// Catalog returns the open catalog, or nil.
func (c *Citrii) Catalog() *Catalog {
	return c.catalog
}
