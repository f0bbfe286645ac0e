package lantern

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// scrollAnim holds active scroll-to tweens for camera X and Y.
type scrollAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// Camera controls the editor canvas's view of the dungeon: position, zoom,
// and viewport. Recentering commands animate rather than snap so the game
// master keeps their bearings on a large map.
type Camera struct {
	// X and Y are the world-space position the camera centers on.
	X, Y float64
	// Zoom is the scale factor (1.0 = no zoom, >1 = zoom in).
	Zoom float64
	// Viewport is the screen-space rectangle this camera renders into.
	Viewport Rect

	viewMatrix    [6]float64
	invViewMatrix [6]float64
	dirty         bool

	scrollTween *scrollAnim
}

// NewCamera creates a camera with default values and the given viewport.
func NewCamera(viewport Rect) *Camera {
	return &Camera{Zoom: 1.0, Viewport: viewport, dirty: true}
}

// ScrollTo animates the camera to the given world position over duration
// seconds with an ease-out curve.
func (c *Camera) ScrollTo(x, y float64, duration float32) {
	c.scrollTween = &scrollAnim{
		tweenX: gween.New(float32(c.X), float32(x), duration, ease.OutQuad),
		tweenY: gween.New(float32(c.Y), float32(y), duration, ease.OutQuad),
	}
}

// Update advances the scroll animation. Call once per frame with the frame
// delta in seconds.
func (c *Camera) Update(dt float32) {
	if c.scrollTween == nil {
		return
	}
	prevX, prevY := c.X, c.Y
	if !c.scrollTween.doneX {
		val, done := c.scrollTween.tweenX.Update(dt)
		c.X = float64(val)
		c.scrollTween.doneX = done
	}
	if !c.scrollTween.doneY {
		val, done := c.scrollTween.tweenY.Update(dt)
		c.Y = float64(val)
		c.scrollTween.doneY = done
	}
	if c.scrollTween.doneX && c.scrollTween.doneY {
		c.scrollTween = nil
	}
	if c.X != prevX || c.Y != prevY {
		c.dirty = true
	}
}

// Scrolling reports whether a scroll animation is in progress.
func (c *Camera) Scrolling() bool {
	return c.scrollTween != nil
}

// ViewMatrix recomputes the cached view matrix if dirty.
//
// viewMatrix = Translate(cx, cy) * Scale(zoom) * Translate(-X, -Y)
// where cx, cy = viewport center.
func (c *Camera) ViewMatrix() [6]float64 {
	if !c.dirty {
		return c.viewMatrix
	}
	c.dirty = false

	cx := c.Viewport.X + c.Viewport.Width/2
	cy := c.Viewport.Y + c.Viewport.Height/2
	z := c.Zoom

	c.viewMatrix = [6]float64{z, 0, 0, z, cx - z*c.X, cy - z*c.Y}
	c.invViewMatrix = invertAffine(c.viewMatrix)
	return c.viewMatrix
}

// SetViewport resizes the camera's screen-space viewport.
func (c *Camera) SetViewport(r Rect) {
	if c.Viewport == r {
		return
	}
	c.Viewport = r
	c.dirty = true
}

// SetZoom sets the zoom factor and marks the view matrix dirty.
func (c *Camera) SetZoom(z float64) {
	if z <= 0 {
		return
	}
	c.Zoom = z
	c.dirty = true
}

// SetPosition moves the camera immediately, canceling any scroll animation.
func (c *Camera) SetPosition(x, y float64) {
	c.X = x
	c.Y = y
	c.scrollTween = nil
	c.dirty = true
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float64) (sx, sy float64) {
	c.ViewMatrix()
	return transformPoint(c.viewMatrix, wx, wy)
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	c.ViewMatrix()
	return transformPoint(c.invViewMatrix, sx, sy)
}
