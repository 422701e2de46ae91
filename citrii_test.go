package citrii

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bodgit/citrii/asset"
	"github.com/bodgit/citrii/database"
	"github.com/bodgit/citrii/texture"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func gradient(w, h int) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetNRGBA(x, y, color.NRGBA{uint8(x * 16), uint8(y * 16), 0x80, 0xff})
		}
	}
	return m
}

func encodeTexture(t *testing.T, m image.Image, f texture.Format) []byte {
	raw, err := texture.Encode(m, f, texture.Edge, texture.Edge)
	require.NoError(t, err)
	b, err := raw.MarshalBinary()
	require.NoError(t, err)
	return b
}

// writeAsset writes an archive with textures in three sections. The eye
// section holds the same texture twice, the first copy of which is also
// used by the mouth section.
func writeAsset(t *testing.T, dir string) string {
	a := encodeTexture(t, gradient(8, 8), texture.RGBA8)
	b := encodeTexture(t, gradient(16, 8), texture.I8)

	sections := make([][][]byte, asset.NumSections)
	sections[asset.EyeTexture] = [][]byte{a, nil, a}
	sections[asset.LipTexture] = [][]byte{a}
	sections[asset.GlassTexture] = [][]byte{b}

	buf, err := asset.Pack(1, sections)
	require.NoError(t, err)

	path := filepath.Join(dir, "CFL_Res.dat")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

var (
	testMAC      = [6]uint8{0x00, 0x1f, 0x32, 0x01, 0x02, 0x03}
	testSystemID = [8]uint8{8, 7, 6, 5, 4, 3, 2, 1}
)

func writeDatabase(t *testing.T, dir string) string {
	d := new(database.Database)
	d.Magic = database.Magic

	for i, slot := range []int{12, 3} {
		p, err := database.NewProfile(testMAC, testSystemID, database.Epoch.Add(time.Duration(i+1)*time.Hour), slot)
		require.NoError(t, err)
		require.NoError(t, p.SetName([]string{"Alice", "Bob"}[i]))
		d.Owned[i*5].Profile = p
		require.NoError(t, d.Owned[i*5].SetAuthor("citrii"))
	}

	path := filepath.Join(dir, "CFL_DB.dat")
	require.NoError(t, d.Save(path))
	return path
}

func TestOpenAsset(t *testing.T) {
	dir := t.TempDir()
	path := writeAsset(t, dir)

	c := New(testLogger())
	defer c.Close()
	assert.Nil(t, c.Asset())

	require.NoError(t, c.OpenAsset(path, ""))
	a := c.Asset()
	require.NotNil(t, a)
	assert.Equal(t, uint16(1), a.Version)
	assert.Equal(t, 3, a.Len(asset.EyeTexture))
	assert.Same(t, a.Textures(asset.EyeTexture)[0], a.Textures(asset.EyeTexture)[2])

	assert.Error(t, c.OpenAsset(filepath.Join(dir, "missing"), ""))

	bad := filepath.Join(dir, "bad.dat")
	require.NoError(t, os.WriteFile(bad, []byte{1, 2}, 0o644))
	err := c.OpenAsset(bad, "")
	assert.True(t, errors.Is(err, asset.ErrTruncated), err)
}

func TestProfilesAndEdit(t *testing.T) {
	dir := t.TempDir()
	path := writeDatabase(t, dir)

	c := New(testLogger())
	_, err := c.Profiles()
	assert.True(t, errors.Is(err, ErrNoDatabase))
	assert.True(t, errors.Is(c.Edit(3, database.HairPage, database.Style, 1), ErrNoDatabase))
	assert.True(t, errors.Is(c.Save(), ErrNoDatabase))

	require.NoError(t, c.OpenDatabase(path))

	profiles, err := c.Profiles()
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, Summary{Index: 5, Slot: 3, Name: "Bob", Author: "citrii", Created: database.Epoch.Add(2 * time.Hour)}, profiles[0])
	assert.Equal(t, 0, profiles[1].Index)
	assert.Equal(t, 12, profiles[1].Slot)
	assert.Equal(t, "Alice", profiles[1].Name)

	require.NoError(t, c.Edit(3, database.HairPage, database.Style, 5))
	require.NoError(t, c.Edit(3, database.EyebrowPage, database.Y, -20))
	assert.Error(t, c.Edit(4, database.HairPage, database.Style, 1))
	assert.Error(t, c.Edit(3, database.FacePage, database.Rotation, 1))

	hair := c.Database().Owned[5].Profile.Hair.Style
	assert.Equal(t, uint32(3), c.Database().Owned[5].Profile.Eyebrow.Y)

	require.NoError(t, c.Save())

	d, err := database.Load(path)
	require.NoError(t, err)
	assert.Equal(t, hair, d.Owned[5].Profile.Hair.Style)
	assert.Equal(t, uint32(3), d.Owned[5].Profile.Eyebrow.Y)
	assert.Equal(t, c.Database().Owned[0], d.Owned[0])
}

func TestExportTextures(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))

	c := New(testLogger())
	defer c.Close()

	ctx := context.Background()
	assert.Error(t, c.ExportTextures(ctx, ExportOptions{Dir: out}), "no asset")

	require.NoError(t, c.OpenAsset(writeAsset(t, dir), ""))
	assert.Error(t, c.ExportTextures(ctx, ExportOptions{}), "no destination")
	assert.Error(t, c.ExportTextures(ctx, ExportOptions{Dir: out, Format: "bmp"}))

	require.NoError(t, c.OpenCatalog(filepath.Join(dir, "citrii.db")))
	assert.Error(t, c.OpenCatalog(filepath.Join(dir, "other.db")))

	require.NoError(t, c.ExportTextures(ctx, ExportOptions{Dir: out, Workers: 3}))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"eye_texture_000.png",
		"eye_texture_002.png",
		"lip_texture_000.png",
		"glass_texture_000.png",
	}, names)

	f, err := os.Open(filepath.Join(out, "glass_texture_000.png"))
	require.NoError(t, err)
	defer f.Close()
	m, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 8), m.Bounds())

	textures, items, err := c.Catalog().Count()
	require.NoError(t, err)
	assert.Equal(t, 2, textures)
	assert.Equal(t, 4, items)

	eye, err := c.Catalog().FindPNG(asset.EyeTexture, 2)
	require.NoError(t, err)
	lip, err := c.Catalog().FindPNG(asset.LipTexture, 0)
	require.NoError(t, err)
	assert.Equal(t, eye, lip)
	expected, err := os.ReadFile(filepath.Join(out, "lip_texture_000.png"))
	require.NoError(t, err)
	assert.Equal(t, expected, lip)

	missing, err := c.Catalog().FindPNG(asset.EyeTexture, 1)
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Exporting again replaces the items without adding textures
	require.NoError(t, c.ExportTextures(ctx, ExportOptions{Format: FormatGIF}))
	textures, items, err = c.Catalog().Count()
	require.NoError(t, err)
	assert.Equal(t, 2, textures)
	assert.Equal(t, 4, items)

	require.NoError(t, c.Catalog().Reset())
	textures, items, err = c.Catalog().Count()
	require.NoError(t, err)
	assert.Equal(t, 0, textures)
	assert.Equal(t, 0, items)

	require.NoError(t, c.Close())
	assert.Nil(t, c.Catalog())
}

func TestExportGIF(t *testing.T) {
	dir := t.TempDir()

	c := New(testLogger())
	require.NoError(t, c.OpenAsset(writeAsset(t, dir), ""))
	require.NoError(t, c.ExportTextures(context.Background(), ExportOptions{Dir: dir, Format: FormatGIF}))

	b, err := os.ReadFile(filepath.Join(dir, "eye_texture_000.gif"))
	require.NoError(t, err)
	cfg, err := gif.DecodeConfig(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, 8, cfg.Height)
}

func TestExportCancelled(t *testing.T) {
	dir := t.TempDir()

	c := New(testLogger())
	require.NoError(t, c.OpenAsset(writeAsset(t, dir), ""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Every stage gives up once the context is done, so this must not
	// hang whatever the outcome.
	_ = c.ExportTextures(ctx, ExportOptions{Dir: dir, Workers: 2})
}
