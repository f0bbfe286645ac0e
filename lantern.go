package lantern

import (
	"encoding/json"
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// Vec2 is a 2D vector used for positions, offsets, and vertex data
// throughout the API.
//
// Dungeon Scrawl encodes vertices as two-element JSON arrays, so Vec2
// marshals to and from [x, y] rather than an object.
type Vec2 struct {
	X, Y float64
}

// UnmarshalJSON decodes a [x, y] array.
func (v *Vec2) UnmarshalJSON(data []byte) error {
	var xy [2]float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return fmt.Errorf("vec2: %w", err)
	}
	v.X, v.Y = xy[0], xy[1]
	return nil
}

// MarshalJSON encodes the vector as a [x, y] array.
func (v Vec2) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{v.X, v.Y})
}

// Polygon is an ordered ring or chain of vertices. Rings are implicitly
// closed; polylines are not.
type Polygon []Vec2

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// WhitePixel is a 1x1 white image used for solid color fills.
var WhitePixel *ebiten.Image

func init() {
	WhitePixel = ebiten.NewImage(1, 1)
	WhitePixel.Fill(color.White)
}
