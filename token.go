package lantern

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// PuckSize is the discrete rendered-size tier of a token.
type PuckSize string

const (
	PuckSmall PuckSize = "small"
	PuckMid   PuckSize = "mid"
	PuckLarge PuckSize = "large"
)

// Multiplier returns the grid-cell multiplier for the tier. Unrecognized
// tiers (including "") fall back to 1.
func (s PuckSize) Multiplier() int {
	switch s {
	case PuckMid:
		return 2
	case PuckLarge:
		return 3
	default:
		return 1
	}
}

// Token is a drawable entity puck on the live display. Position is in grid
// units; Z orders tokens within a frame.
type Token struct {
	ID   string
	Name string

	X, Y int
	Z    float64

	Size             PuckSize
	Visible          bool
	PlayerControlled bool

	Image *ebiten.Image
}

// Move shifts the token by (dx, dy) grid cells.
func (t *Token) Move(dx, dy int) {
	t.X += dx
	t.Y += dy
}

// SetPosition places the token at an absolute grid coordinate. Movement is
// synchronous; the protocol's lerp flag is accepted but not yet consumed by
// the renderer (see UpdateEvent.Lerp).
func (t *Token) SetPosition(x, y int) {
	t.X = x
	t.Y = y
}

// screenPosition computes the token's top-left pixel position. Grid
// coordinate (0, 0) maps to the viewport's center cell, not the canvas
// origin: the viewport is centered in grid units first, then offset by the
// token coordinate and scaled by the grid size.
func (t *Token) screenPosition(c Canvas, grid float64) (float64, float64) {
	w, h := c.Size()
	cx := math.Floor(w / grid / 2)
	cy := math.Floor(h / grid / 2)
	return (cx + float64(t.X)) * grid, (cy + float64(t.Y)) * grid
}

// Draw renders the token onto c. Invisible tokens draw nothing; a token
// without an image logs a warning and draws nothing, since a missing image
// is a recoverable display gap rather than an error.
func (t *Token) Draw(c Canvas, grid float64) {
	if !t.Visible {
		return
	}
	if t.Image == nil {
		warnf("token %q has no image, skipping", t.ID)
		return
	}

	x, y := t.screenPosition(c, grid)
	size := grid * float64(t.Size.Multiplier())
	if err := c.DrawImage(t.Image, ImageOptions{X: x, Y: y, W: size, H: size}); err != nil {
		warnf("draw token %q: %v", t.ID, err)
		return
	}

	// The label is player-facing: only player-controlled tokens with a name
	// announce themselves on the map.
	if t.PlayerControlled && t.Name != "" {
		if err := c.Text(t.Name, x, y-16); err != nil {
			warnf("label token %q: %v", t.ID, err)
		}
	}
}
