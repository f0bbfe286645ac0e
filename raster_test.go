package lantern

import (
	"errors"
	"image/color"
	"strconv"
	"testing"
)

// rasterFixture builds a minimal one-page dungeon: page → geometry →
// (grid?, polygon nodes appended by callers).
func rasterFixture() *Dungeon {
	d := &Dungeon{Version: 1}
	d.State.Document.DocumentNodeID = "document"
	d.State.Document.Nodes = map[string]*SceneNode{
		"document": {ID: "document", Type: NodeDocument, SelectedPage: "page-1", Children: []string{"page-1"}},
		"page-1": {
			ID: "page-1", Type: NodePage,
			Grid:       &GridSettings{CellDiameter: 32, LineWidth: 1, Colour: SceneColor{Colour: 0x888888, Alpha: 1}},
			Background: &PageBackground{Colour: SceneColor{Colour: 0xeeeeee, Alpha: 1}},
		},
	}
	d.Data.Geometry = map[string]*Geometry{}
	return d
}

func addNode(d *Dungeon, parent string, n *SceneNode) {
	d.State.Document.Nodes[n.ID] = n
	p := d.State.Document.Nodes[parent]
	p.Children = append(p.Children, n.ID)
}

func squareGeometry() *Geometry {
	return &Geometry{Polygons: [][]Polygon{{
		{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}},
	}}}
}

func redFill() *FillStyle {
	return &FillStyle{Visible: true, Colour: SceneColor{Colour: 0xff0000, Alpha: 1}}
}

// The classic floor pass: GEOMETRY scopes a polygon set, a GRID draws
// between background and fill, and the MULTIPOLYGON paints on top of the
// grid lines.
func TestRenderPageGridThenFill(t *testing.T) {
	d := rasterFixture()
	d.Data.Geometry["g1"] = squareGeometry()
	addNode(d, "page-1", &SceneNode{ID: "grid-1", Type: NodeGrid})
	addNode(d, "page-1", &SceneNode{ID: "geo-1", Type: NodeGeometry, GeometryID: "g1", Children: []string{"poly-1"}})
	d.State.Document.Nodes["poly-1"] = &SceneNode{ID: "poly-1", Type: NodeMultiPolygon, Fill: redFill()}

	c := newRecordingCanvas(640, 480)
	r := NewRasterizer(d, c)
	if err := r.RenderPage(""); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}

	want := []string{"clear", "grid", "fill"}
	got := c.kinds()
	if len(got) != len(want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops = %v, want %v", got, want)
		}
	}

	clear := c.opsOf("clear")[0]
	if clear.color != (SceneColor{Colour: 0xeeeeee, Alpha: 1}).RGBA() {
		t.Errorf("clear color = %v, want page background", clear.color)
	}
	fill := c.opsOf("fill")[0]
	if fill.color != (color.NRGBA{R: 0xff, A: 0xff}) {
		t.Errorf("fill color = %v, want red", fill.color)
	}
}

func TestRenderPageDefaultBackground(t *testing.T) {
	d := rasterFixture()
	d.State.Document.Nodes["page-1"].Background = nil

	c := newRecordingCanvas(640, 480)
	if err := NewRasterizer(d, c).RenderPage(""); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	clear := c.opsOf("clear")[0]
	if clear.color != (color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}) {
		t.Errorf("clear color = %v, want white", clear.color)
	}
}

// A GRID node ends the current geometry association: a multipolygon after
// the grid has no geometry in scope and draws nothing.
func TestRenderPageGridResetsGeometry(t *testing.T) {
	d := rasterFixture()
	d.Data.Geometry["g1"] = squareGeometry()
	addNode(d, "page-1", &SceneNode{ID: "geo-1", Type: NodeGeometry, GeometryID: "g1", Children: []string{"grid-1"}})
	d.State.Document.Nodes["grid-1"] = &SceneNode{ID: "grid-1", Type: NodeGrid}
	addNode(d, "page-1", &SceneNode{ID: "poly-1", Type: NodeMultiPolygon, Fill: redFill()})

	c := newRecordingCanvas(640, 480)
	if err := NewRasterizer(d, c).RenderPage(""); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if fills := c.opsOf("fill"); len(fills) != 0 {
		t.Errorf("drew %d fills, want 0 (geometry out of scope)", len(fills))
	}
}

// Hole rings of the primary polygon group are painted in the page
// background color: n rings yield 1 + (n-1) fills, not a punch-through.
func TestRenderPageHoleRings(t *testing.T) {
	d := rasterFixture()
	d.Data.Geometry["g1"] = &Geometry{Polygons: [][]Polygon{{
		{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
		{{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}, {X: 2, Y: 4}},
		{{X: 6, Y: 6}, {X: 8, Y: 6}, {X: 8, Y: 8}, {X: 6, Y: 8}},
	}}}
	addNode(d, "page-1", &SceneNode{ID: "geo-1", Type: NodeGeometry, GeometryID: "g1", Children: []string{"poly-1"}})
	d.State.Document.Nodes["poly-1"] = &SceneNode{ID: "poly-1", Type: NodeMultiPolygon, Fill: redFill()}

	c := newRecordingCanvas(640, 480)
	if err := NewRasterizer(d, c).RenderPage(""); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}

	fills := c.opsOf("fill")
	if len(fills) != 3 {
		t.Fatalf("drew %d fills, want 3", len(fills))
	}
	red := color.NRGBA{R: 0xff, A: 0xff}
	bg := (SceneColor{Colour: 0xeeeeee, Alpha: 1}).RGBA()
	if fills[0].color != red {
		t.Errorf("primary ring color = %v, want fill color", fills[0].color)
	}
	for i, f := range fills[1:] {
		if f.color != bg {
			t.Errorf("hole ring %d color = %v, want page background", i, f.color)
		}
	}
}

// Secondary polygon groups fill normally, without hole handling.
func TestRenderPageSecondaryGroups(t *testing.T) {
	d := rasterFixture()
	d.Data.Geometry["g1"] = &Geometry{Polygons: [][]Polygon{
		{{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}}},
		{
			{{X: 10, Y: 0}, {X: 14, Y: 0}, {X: 14, Y: 4}},
			{{X: 11, Y: 1}, {X: 12, Y: 1}, {X: 12, Y: 2}},
		},
	}}
	addNode(d, "page-1", &SceneNode{ID: "geo-1", Type: NodeGeometry, GeometryID: "g1", Children: []string{"poly-1"}})
	d.State.Document.Nodes["poly-1"] = &SceneNode{ID: "poly-1", Type: NodeMultiPolygon, Fill: redFill()}

	c := newRecordingCanvas(640, 480)
	if err := NewRasterizer(d, c).RenderPage(""); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}

	fills := c.opsOf("fill")
	if len(fills) != 3 {
		t.Fatalf("drew %d fills, want 3", len(fills))
	}
	red := color.NRGBA{R: 0xff, A: 0xff}
	for i, f := range fills {
		if f.color != red {
			t.Errorf("fill %d color = %v, want fill color for all rings", i, f.color)
		}
	}
}

func TestRenderPageStrokes(t *testing.T) {
	d := rasterFixture()
	d.Data.Geometry["g1"] = &Geometry{
		Polygons:  [][]Polygon{{{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}}}},
		Polylines: []Polygon{{{X: 0, Y: 8}, {X: 4, Y: 8}}},
	}
	addNode(d, "page-1", &SceneNode{ID: "geo-1", Type: NodeGeometry, GeometryID: "g1", Children: []string{"poly-1"}})
	d.State.Document.Nodes["poly-1"] = &SceneNode{
		ID: "poly-1", Type: NodeMultiPolygon,
		Stroke: &StrokeStyle{Visible: true, Colour: SceneColor{Colour: 0x000000, Alpha: 1}, Width: 2},
	}

	c := newRecordingCanvas(640, 480)
	if err := NewRasterizer(d, c).RenderPage(""); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}

	strokes := c.opsOf("stroke")
	if len(strokes) != 2 {
		t.Fatalf("drew %d strokes, want 2", len(strokes))
	}
	if !strokes[0].closed {
		t.Error("polygon ring stroke must be closed")
	}
	if strokes[1].closed {
		t.Error("polyline stroke must be open")
	}
	if strokes[0].width != 2 {
		t.Errorf("stroke width = %v, want 2", strokes[0].width)
	}
}

// A hidden subtree is skipped wholesale.
func TestRenderPageHiddenSubtree(t *testing.T) {
	hidden := false
	d := rasterFixture()
	d.Data.Geometry["g1"] = squareGeometry()
	addNode(d, "page-1", &SceneNode{ID: "folder-1", Type: NodeFolder, Visible: &hidden, Children: []string{"geo-1"}})
	d.State.Document.Nodes["geo-1"] = &SceneNode{ID: "geo-1", Type: NodeGeometry, GeometryID: "g1", Children: []string{"poly-1"}}
	d.State.Document.Nodes["poly-1"] = &SceneNode{ID: "poly-1", Type: NodeMultiPolygon, Fill: redFill()}

	c := newRecordingCanvas(640, 480)
	if err := NewRasterizer(d, c).RenderPage(""); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if fills := c.opsOf("fill"); len(fills) != 0 {
		t.Errorf("drew %d fills under a hidden folder, want 0", len(fills))
	}
}

// A child id that resolves to nothing aborts the pass: siblings queued
// after it are not drawn.
func TestRenderPageMissingNodeAborts(t *testing.T) {
	d := rasterFixture()
	d.Data.Geometry["g1"] = squareGeometry()
	addNode(d, "page-1", &SceneNode{ID: "geo-1", Type: NodeGeometry, GeometryID: "g1", Children: []string{"ghost", "poly-1"}})
	d.State.Document.Nodes["poly-1"] = &SceneNode{ID: "poly-1", Type: NodeMultiPolygon, Fill: redFill()}

	c := newRecordingCanvas(640, 480)
	err := NewRasterizer(d, c).RenderPage("")

	var mne *MissingNodeError
	if !errors.As(err, &mne) {
		t.Fatalf("err = %v, want *MissingNodeError", err)
	}
	if mne.ID != "ghost" {
		t.Errorf("missing id = %q, want %q", mne.ID, "ghost")
	}
	if fills := c.opsOf("fill"); len(fills) != 0 {
		t.Errorf("drew %d fills after abort, want 0", len(fills))
	}
}

func TestRenderPageMissingPage(t *testing.T) {
	d := rasterFixture()
	var mne *MissingNodeError
	if err := NewRasterizer(d, newRecordingCanvas(10, 10)).RenderPage("nope"); !errors.As(err, &mne) {
		t.Fatalf("err = %v, want *MissingNodeError", err)
	}
}

func TestRenderPageNotAPage(t *testing.T) {
	d := rasterFixture()
	if err := NewRasterizer(d, newRecordingCanvas(10, 10)).RenderPage("document"); err == nil {
		t.Fatal("rendering a non-page node must fail")
	}
}

func TestRenderPageNestedPage(t *testing.T) {
	d := rasterFixture()
	addNode(d, "page-1", &SceneNode{ID: "page-2", Type: NodePage})

	err := NewRasterizer(d, newRecordingCanvas(10, 10)).RenderPage("")
	if !errors.Is(err, ErrNestedPage) {
		t.Fatalf("err = %v, want ErrNestedPage", err)
	}
}

// Children are visited depth-first in declared order; a folder's subtree
// draws before the folder's later siblings.
func TestRenderPageDepthFirstOrder(t *testing.T) {
	d := rasterFixture()
	d.Data.Geometry["g1"] = squareGeometry()
	d.Data.Geometry["g2"] = squareGeometry()
	addNode(d, "page-1", &SceneNode{ID: "folder-1", Type: NodeFolder, Children: []string{"geo-1"}})
	d.State.Document.Nodes["geo-1"] = &SceneNode{ID: "geo-1", Type: NodeGeometry, GeometryID: "g1", Children: []string{"poly-1"}}
	d.State.Document.Nodes["poly-1"] = &SceneNode{
		ID: "poly-1", Type: NodeMultiPolygon,
		Fill: &FillStyle{Visible: true, Colour: SceneColor{Colour: 0x111111, Alpha: 1}},
	}
	addNode(d, "page-1", &SceneNode{ID: "geo-2", Type: NodeGeometry, GeometryID: "g2", Children: []string{"poly-2"}})
	d.State.Document.Nodes["poly-2"] = &SceneNode{
		ID: "poly-2", Type: NodeMultiPolygon,
		Fill: &FillStyle{Visible: true, Colour: SceneColor{Colour: 0x222222, Alpha: 1}},
	}

	c := newRecordingCanvas(640, 480)
	if err := NewRasterizer(d, c).RenderPage(""); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}

	fills := c.opsOf("fill")
	if len(fills) != 2 {
		t.Fatalf("drew %d fills, want 2", len(fills))
	}
	if fills[0].color != (color.NRGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff}) {
		t.Errorf("first fill = %v, want the folder subtree's polygon", fills[0].color)
	}
}

// A dungeon asset's transform composes onto the canvas after its polygons
// draw, keeps the current translation, and is cleared when traversal
// passes the asset's last child.
func TestRenderPageAssetTransform(t *testing.T) {
	d := rasterFixture()
	d.Data.Geometry["g1"] = squareGeometry()
	addNode(d, "page-1", &SceneNode{
		ID: "asset-1", Type: NodeDungeonAsset,
		Transform: &AssetTransform{A: 2, B: 0, C: 0, D: 2},
		Children:  []string{"geo-1"},
	})
	d.State.Document.Nodes["geo-1"] = &SceneNode{ID: "geo-1", Type: NodeGeometry, GeometryID: "g1", Children: []string{"poly-1", "poly-2"}}
	d.State.Document.Nodes["poly-1"] = &SceneNode{ID: "poly-1", Type: NodeMultiPolygon, Fill: redFill()}
	d.State.Document.Nodes["poly-2"] = &SceneNode{ID: "poly-2", Type: NodeMultiPolygon, Fill: redFill()}

	c := newRecordingCanvas(640, 480)
	r := NewRasterizer(d, c)
	view := [6]float64{1, 0, 0, 1, 50, 60}
	r.SetView(view)
	if err := r.RenderPage(""); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}

	// geo-1 is the asset's last child, so the transform stays pending until
	// a multipolygon consumes it — poly-1 composes it, poly-2 still sees it,
	// and with clearTransformOn = "geo-1" it is never cleared mid-pass.
	// The canvas ends with the composed matrix, translation preserved.
	got := c.Transform()
	want := [6]float64{2, 0, 0, 2, 50, 60}
	if got != want {
		t.Errorf("final transform = %v, want %v", got, want)
	}
}

// When the asset's last child is itself a multipolygon, drawing it clears
// the transform back to the view matrix.
func TestRenderPageAssetTransformCleared(t *testing.T) {
	d := rasterFixture()
	d.Data.Geometry["g1"] = squareGeometry()
	addNode(d, "page-1", &SceneNode{ID: "geo-1", Type: NodeGeometry, GeometryID: "g1", Children: []string{"asset-1"}})
	d.State.Document.Nodes["asset-1"] = &SceneNode{
		ID: "asset-1", Type: NodeDungeonAsset,
		Transform: &AssetTransform{A: 3, B: 0, C: 0, D: 3},
		Children:  []string{"poly-1"},
	}
	d.State.Document.Nodes["poly-1"] = &SceneNode{ID: "poly-1", Type: NodeMultiPolygon, Fill: redFill()}

	c := newRecordingCanvas(640, 480)
	r := NewRasterizer(d, c)
	view := [6]float64{1, 0, 0, 1, 7, 9}
	r.SetView(view)
	if err := r.RenderPage(""); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if got := c.Transform(); got != view {
		t.Errorf("final transform = %v, want view %v restored", got, view)
	}
}

// Reserved shading node types draw nothing but do not fail the pass.
func TestRenderPageShadingNoOps(t *testing.T) {
	d := rasterFixture()
	addNode(d, "page-1", &SceneNode{ID: "shadow-1", Type: NodeShadow})
	addNode(d, "page-1", &SceneNode{ID: "hatch-1", Type: NodeHatching})
	addNode(d, "page-1", &SceneNode{ID: "buffer-1", Type: NodeBufferShading})

	c := newRecordingCanvas(640, 480)
	if err := NewRasterizer(d, c).RenderPage(""); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if got := c.kinds(); len(got) != 1 || got[0] != "clear" {
		t.Errorf("ops = %v, want clear only", got)
	}
}

func TestRenderPageUnknownTypeSkipped(t *testing.T) {
	d := rasterFixture()
	addNode(d, "page-1", &SceneNode{ID: "weird-1", Type: "SPARKLES"})

	c := newRecordingCanvas(640, 480)
	if err := NewRasterizer(d, c).RenderPage(""); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
}

// setupBenchPage builds a page with n geometry scopes, each holding one
// filled and stroked square.
func setupBenchPage(n int) *Dungeon {
	d := rasterFixture()
	for i := 0; i < n; i++ {
		gid := "g" + strconv.Itoa(i)
		d.Data.Geometry[gid] = squareGeometry()
		geoID := "geo-" + gid
		polyID := "poly-" + gid
		addNode(d, "page-1", &SceneNode{ID: geoID, Type: NodeGeometry, GeometryID: gid, Children: []string{polyID}})
		d.State.Document.Nodes[polyID] = &SceneNode{
			ID: polyID, Type: NodeMultiPolygon,
			Fill:   redFill(),
			Stroke: &StrokeStyle{Visible: true, Width: 2, Colour: SceneColor{Colour: 0x222222, Alpha: 1}},
		}
	}
	return d
}

func BenchmarkRenderPage_100Polygons(b *testing.B) {
	d := setupBenchPage(100)
	c := newRecordingCanvas(1280, 720)
	r := NewRasterizer(d, c)

	// Warm up: first pass grows the recording buffers.
	if err := r.RenderPage(""); err != nil {
		b.Fatalf("RenderPage: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.reset()
		if err := r.RenderPage(""); err != nil {
			b.Fatalf("RenderPage: %v", err)
		}
	}
}
