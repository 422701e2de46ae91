package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage(t *testing.T) {
	assert.Equal(t, MakeupPage, FacePage.Next())
	assert.Equal(t, FacePage, BeardPage.Next())
	assert.Equal(t, BeardPage, FacePage.Prev())
	assert.Equal(t, EyePage, NosePage.Prev())
	assert.Equal(t, "mustache", MustachePage.String())

	p, err := ParsePage("Eyebrow")
	require.NoError(t, err)
	assert.Equal(t, EyebrowPage, p)
	_, err = ParsePage("ear")
	assert.Error(t, err)

	prop, err := ParseProperty("y_scale")
	require.NoError(t, err)
	assert.Equal(t, YScale, prop)
	_, err = ParseProperty("z")
	assert.Error(t, err)

	assert.Equal(t, []Property{Style, Color, Scale, YScale, Rotation, X, Y}, EyePage.Properties())
	assert.Equal(t, []Property{Style}, WrinklePage.Properties())
	assert.Equal(t, []Property{Style, Color, Scale, Y}, MustachePage.Properties())
}

func TestAdjustWrap(t *testing.T) {
	var p Profile

	assert.True(t, p.Adjust(FacePage, Style, Dec))
	assert.Equal(t, uint16(11), p.Face.Style)
	assert.True(t, p.Adjust(FacePage, Style, Inc))
	assert.Equal(t, uint16(0), p.Face.Style)

	for i := 0; i < 131; i++ {
		p.Adjust(HairPage, Style, Inc)
	}
	assert.Equal(t, uint16(131), p.Hair.Style)
	p.Adjust(HairPage, Style, Inc)
	assert.Equal(t, uint16(0), p.Hair.Style)

	p.Eye.Style = 61
	p.Adjust(EyePage, Style, Inc)
	assert.Equal(t, uint32(0), p.Eye.Style)

	p.Mole.Style = 1
	p.Adjust(MolePage, Style, Inc)
	assert.Equal(t, uint16(0), p.Mole.Style)
	p.Adjust(MolePage, Style, Dec)
	assert.Equal(t, uint16(1), p.Mole.Style)
}

func TestAdjustSharedColor(t *testing.T) {
	var p Profile

	p.Adjust(MustachePage, Color, Inc)
	p.Adjust(BeardPage, Color, Inc)
	assert.Equal(t, uint16(2), p.Beard.Color)

	p.Adjust(BeardPage, Color, Dec)
	p.Adjust(BeardPage, Color, Dec)
	p.Adjust(MustachePage, Color, Dec)
	assert.Equal(t, uint16(7), p.Beard.Color)
}

func TestAdjustClamp(t *testing.T) {
	p := Profile{}
	p.Eyebrow.Y = 3
	assert.True(t, p.Adjust(EyebrowPage, Y, Dec))
	assert.Equal(t, uint32(3), p.Eyebrow.Y)
	p.Eyebrow.Y = 18
	p.Adjust(EyebrowPage, Y, Inc)
	assert.Equal(t, uint32(18), p.Eyebrow.Y)
	p.Adjust(EyebrowPage, Y, Dec)
	assert.Equal(t, uint32(17), p.Eyebrow.Y)

	for i := 0; i < 20; i++ {
		p.Adjust(MolePage, X, Inc)
	}
	assert.Equal(t, uint16(16), p.Mole.X)

	for i := 0; i < 40; i++ {
		p.Adjust(LipPage, Y, Inc)
	}
	assert.Equal(t, uint16(18), p.Misc.LipY)

	p.Adjust(MustachePage, Scale, Dec)
	assert.Equal(t, uint16(0), p.Beard.MustacheScale)
	p.Adjust(MustachePage, Y, Inc)
	assert.Equal(t, uint16(1), p.Beard.MustacheY)
}

func TestAdjustUnsupported(t *testing.T) {
	p, err := NewProfile(testMAC, testSystemID, Epoch, 0)
	require.NoError(t, err)
	before := p

	assert.False(t, p.Adjust(FacePage, Rotation, Inc))
	assert.False(t, p.Adjust(MakeupPage, Color, Inc))
	assert.False(t, p.Adjust(NumPages, Style, Inc))
	assert.Equal(t, before, p)
}

func TestAdjustStaysInField(t *testing.T) {
	// Every control's range fits its bit field, so a full sweep in
	// either direction must survive an encode round trip.
	for page := FacePage; page < NumPages; page++ {
		for _, prop := range page.Properties() {
			c, ok := Lookup(page, prop)
			require.True(t, ok)

			p, err := NewProfile(testMAC, testSystemID, Epoch, 0)
			require.NoError(t, err)

			for _, d := range []Delta{Inc, Dec} {
				for i := 0; i < 140; i++ {
					p.Adjust(page, prop, d)

					v := c.Value(&p)
					if c.Wrap {
						assert.Less(t, v, c.Max, "%s %s", page, prop)
					}

					b, err := p.MarshalBinary()
					require.NoError(t, err)
					var q Profile
					require.NoError(t, q.UnmarshalBinary(b))
					assert.Equal(t, v, c.Value(&q), "%s %s", page, prop)
				}
			}
		}
	}
}
