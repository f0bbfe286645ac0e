package lantern

import (
	"fmt"
	"image/color"
)

// SceneColor is a color as stored in a Dungeon Scrawl document: a packed
// integer RGB value plus a separate alpha in [0, 1].
type SceneColor struct {
	Colour uint32  `json:"colour"`
	Alpha  float64 `json:"alpha"`
}

// Hex returns the CSS hex form of the color ("#rrggbbaa"). The RGB value is
// zero-padded to six digits. An alpha of exactly 1 becomes "ff"; any other
// alpha is truncated, not rounded, to a byte. The truncation matches the
// Dungeon Scrawl editor byte for byte, so identical documents render with
// identical colors in both tools.
func (c SceneColor) Hex() string {
	if c.Alpha == 1 {
		return fmt.Sprintf("#%06xff", c.Colour)
	}
	return fmt.Sprintf("#%06x%02x", c.Colour, int(c.Alpha*255))
}

// RGBA returns the color as a non-premultiplied color.NRGBA, using the same
// truncating alpha conversion as Hex.
func (c SceneColor) RGBA() color.NRGBA {
	a := uint8(0xff)
	if c.Alpha != 1 {
		a = uint8(int(c.Alpha * 255))
	}
	return color.NRGBA{
		R: uint8(c.Colour >> 16),
		G: uint8(c.Colour >> 8),
		B: uint8(c.Colour),
		A: a,
	}
}
