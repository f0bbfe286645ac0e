package lantern

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// ImageOptions positions an image draw in canvas space. The image is scaled
// to fill the W x H destination rectangle.
type ImageOptions struct {
	X, Y, W, H float64
}

// Canvas is the draw surface the rasterizer and compositor target. The
// production implementation wraps an ebiten.Image; tests substitute a
// recording canvas to observe draw order.
//
// A canvas carries a current affine transform that applies to path fills,
// strokes, and image draws. Callers scope transform changes per draw pass;
// nothing resets the transform implicitly.
type Canvas interface {
	// Size returns the canvas dimensions in pixels.
	Size() (w, h float64)

	// Clear fills the whole canvas with clr, ignoring the transform.
	Clear(clr color.Color) error

	// FillPath fills a closed ring.
	FillPath(ring Polygon, clr color.Color) error

	// StrokePath strokes a ring (closed true) or polyline (closed false).
	StrokePath(pts Polygon, width float64, clr color.Color, closed bool) error

	// GridLines draws grid lines covering the visible canvas. Lines lie on
	// multiples of the cell diameter in world space and follow the current
	// transform, so they stay registered with transformed geometry.
	GridLines(g GridSettings) error

	// DrawImage draws img scaled into the destination rectangle.
	DrawImage(img *ebiten.Image, opts ImageOptions) error

	// Text draws a small debug-face label with its top-left at (x, y)
	// pushed through the current transform. The glyphs themselves are
	// unscaled.
	Text(s string, x, y float64) error

	// Transform returns the current affine transform.
	Transform() [6]float64

	// SetTransform replaces the current affine transform.
	SetTransform(m [6]float64)

	// Rotate composes a rotation about the canvas center onto the current
	// transform. Everything drawn afterwards is rotated until the transform
	// is replaced.
	Rotate(angle float64)
}

// ebitenCanvas renders canvas operations onto an ebiten.Image using the
// vector package for geometry. Paths are transformed on the CPU before
// tessellation, mirroring how the scene graph renderer transforms vertices.
type ebitenCanvas struct {
	dst       *ebiten.Image
	transform [6]float64
}

// NewEbitenCanvas wraps dst in a Canvas.
func NewEbitenCanvas(dst *ebiten.Image) Canvas {
	return &ebitenCanvas{dst: dst, transform: identityTransform}
}

func (c *ebitenCanvas) Size() (float64, float64) {
	b := c.dst.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

func (c *ebitenCanvas) Clear(clr color.Color) error {
	c.dst.Fill(clr)
	return nil
}

func (c *ebitenCanvas) Transform() [6]float64 { return c.transform }

func (c *ebitenCanvas) SetTransform(m [6]float64) { c.transform = m }

func (c *ebitenCanvas) Rotate(angle float64) {
	w, h := c.Size()
	cx, cy := w/2, h/2
	sin, cos := math.Sincos(angle)
	rot := [6]float64{cos, sin, -sin, cos, cx - cos*cx + sin*cy, cy - sin*cx - cos*cy}
	c.transform = multiplyAffine(c.transform, rot)
}

// buildPath constructs a vector.Path from transformed points.
func (c *ebitenCanvas) buildPath(pts Polygon, closed bool) vector.Path {
	var path vector.Path
	for i, p := range pts {
		x, y := transformPoint(c.transform, p.X, p.Y)
		if i == 0 {
			path.MoveTo(float32(x), float32(y))
		} else {
			path.LineTo(float32(x), float32(y))
		}
	}
	if closed {
		path.Close()
	}
	return path
}

// drawTris submits tessellated geometry tinted with clr against WhitePixel.
func (c *ebitenCanvas) drawTris(vs []ebiten.Vertex, is []uint16, clr color.Color) {
	r, g, b, a := clr.RGBA()
	for i := range vs {
		vs[i].SrcX = 0
		vs[i].SrcY = 0
		vs[i].ColorR = float32(r) / 0xffff
		vs[i].ColorG = float32(g) / 0xffff
		vs[i].ColorB = float32(b) / 0xffff
		vs[i].ColorA = float32(a) / 0xffff
	}
	op := &ebiten.DrawTrianglesOptions{AntiAlias: true}
	c.dst.DrawTriangles(vs, is, WhitePixel, op)
}

func (c *ebitenCanvas) FillPath(ring Polygon, clr color.Color) error {
	if len(ring) < 3 {
		return nil
	}
	path := c.buildPath(ring, true)
	vs, is := path.AppendVerticesAndIndicesForFilling(nil, nil)
	c.drawTris(vs, is, clr)
	return nil
}

func (c *ebitenCanvas) StrokePath(pts Polygon, width float64, clr color.Color, closed bool) error {
	if len(pts) < 2 {
		return nil
	}
	path := c.buildPath(pts, closed)
	opts := &vector.StrokeOptions{Width: float32(width)}
	vs, is := path.AppendVerticesAndIndicesForStroke(nil, nil, opts)
	c.drawTris(vs, is, clr)
	return nil
}

func (c *ebitenCanvas) GridLines(g GridSettings) error {
	w, h := c.Size()
	clr := g.Colour.RGBA()
	lw := float32(g.LineWidth)
	for _, s := range gridSegments(g, c.transform, w, h) {
		vector.StrokeLine(c.dst, float32(s.X0), float32(s.Y0), float32(s.X1), float32(s.Y1), lw, clr, false)
	}
	return nil
}

// gridSegment is one grid line in screen space.
type gridSegment struct {
	X0, Y0, X1, Y1 float64
}

// gridSegments lays grid lines on multiples of the cell diameter in world
// space, clipped to the world region visible through view on a w x h canvas,
// and returns them as screen-space segments. Laying the lines out in world
// coordinates keeps them registered with geometry drawn through the same
// transform; under the identity transform this degenerates to lines from the
// canvas origin at cell spacing.
func gridSegments(g GridSettings, view [6]float64, w, h float64) []gridSegment {
	cell := g.CellDiameter
	if cell <= 0 {
		return nil
	}

	// Visible world extent: the canvas corners pulled through the inverse
	// transform.
	inv := invertAffine(view)
	x0, y0 := transformPoint(inv, 0, 0)
	x1, y1 := x0, y0
	for _, corner := range [3][2]float64{{w, 0}, {0, h}, {w, h}} {
		x, y := transformPoint(inv, corner[0], corner[1])
		x0, x1 = math.Min(x0, x), math.Max(x1, x)
		y0, y1 = math.Min(y0, y), math.Max(y1, y)
	}

	var segs []gridSegment
	for x := math.Floor(x0/cell) * cell; x <= x1; x += cell {
		sx0, sy0 := transformPoint(view, x, y0)
		sx1, sy1 := transformPoint(view, x, y1)
		segs = append(segs, gridSegment{sx0, sy0, sx1, sy1})
	}
	for y := math.Floor(y0/cell) * cell; y <= y1; y += cell {
		sx0, sy0 := transformPoint(view, x0, y)
		sx1, sy1 := transformPoint(view, x1, y)
		segs = append(segs, gridSegment{sx0, sy0, sx1, sy1})
	}
	return segs
}

func (c *ebitenCanvas) DrawImage(img *ebiten.Image, opts ImageOptions) error {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil
	}
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(opts.W/float64(b.Dx()), opts.H/float64(b.Dy()))
	op.GeoM.Translate(opts.X, opts.Y)

	var world ebiten.GeoM
	m := c.transform
	world.SetElement(0, 0, m[0])
	world.SetElement(0, 1, m[2])
	world.SetElement(0, 2, m[4])
	world.SetElement(1, 0, m[1])
	world.SetElement(1, 1, m[3])
	world.SetElement(1, 2, m[5])
	op.GeoM.Concat(world)

	op.Filter = ebiten.FilterLinear
	c.dst.DrawImage(img, &op)
	return nil
}

func (c *ebitenCanvas) Text(s string, x, y float64) error {
	tx, ty := transformPoint(c.transform, x, y)
	ebitenutil.DebugPrintAt(c.dst, s, int(tx), int(ty))
	return nil
}
