package lantern

import (
	"errors"
	"fmt"
)

// ErrNestedPage is returned when a PAGE node shows up mid-traversal. Pages
// are only ever the traversal root; hitting one below the root means the
// document graph is wired wrong.
var ErrNestedPage = errors.New("page node encountered mid-traversal")

// defaultBackground is used when a page carries no background entry.
var defaultBackground = SceneColor{Colour: 0xffffff, Alpha: 1}

// Rasterizer draws a dungeon page onto a Canvas. It operates directly on
// the flat node map rather than a resolved tree; one render pass walks the
// page's children depth-first with an explicit queue.
type Rasterizer struct {
	dungeon *Dungeon
	canvas  Canvas

	// view is the base transform of a pass, normally the editor camera's
	// view matrix. Asset transforms compose on top of it and clearing an
	// asset transform restores it.
	view [6]float64
}

// NewRasterizer creates a rasterizer for d targeting canvas.
func NewRasterizer(d *Dungeon, canvas Canvas) *Rasterizer {
	return &Rasterizer{dungeon: d, canvas: canvas, view: identityTransform}
}

// SetView sets the base view transform applied at the start of each pass.
func (r *Rasterizer) SetView(m [6]float64) {
	r.view = m
}

// rasterState is the traversal-scoped context of one render pass. Passing
// it explicitly keeps transform and geometry lifetime tied to traversal
// order instead of hidden instance fields.
type rasterState struct {
	queue []string

	// geometryID is the most recently seen GEOMETRY reference; "" when no
	// geometry is in scope. Reset whenever a GRID node is reached.
	geometryID string

	// transform is the pending dungeon-asset transform, cleared when
	// traversal reaches clearTransformOn.
	transform        *AssetTransform
	clearTransformOn string
}

// unshift prepends ids to the queue, preserving their relative order. New
// children are visited before already-queued siblings, which makes the
// FIFO pop a depth-first pre-order walk.
func (st *rasterState) unshift(ids []string) {
	st.queue = append(append(make([]string, 0, len(ids)+len(st.queue)), ids...), st.queue...)
}

// RenderPage rasterizes one page. An empty pageID renders the document's
// selected page.
//
// A child id that is missing from the node map aborts the entire pass with
// *MissingNodeError — remaining siblings are not drawn. That is a deliberate
// fail-fast: a broken reference is a map-authoring bug, and rendering the
// rest of the scene would hide it. Per-node draw failures, by contrast,
// are logged and skipped.
func (r *Rasterizer) RenderPage(pageID string) error {
	if pageID == "" {
		pageID = r.dungeon.SelectedPage()
	}
	page := r.dungeon.Nodes()[pageID]
	if page == nil {
		return &MissingNodeError{ID: pageID}
	}
	if page.Type != NodePage {
		return fmt.Errorf("render page %q: node is %s, not a page", pageID, page.Type)
	}

	background := defaultBackground
	if page.Background != nil {
		background = page.Background.Colour
	}

	r.canvas.SetTransform(r.view)
	if err := r.canvas.Clear(background.RGBA()); err != nil {
		warnf("clear page %q: %v", pageID, err)
	}

	st := &rasterState{}
	st.unshift(page.Children)

	for len(st.queue) > 0 {
		id := st.queue[0]
		st.queue = st.queue[1:]

		node := r.dungeon.Nodes()[id]
		if node == nil {
			warnf("render pass aborted: node %q referenced but missing", id)
			return &MissingNodeError{ID: id}
		}

		switch node.Type {
		case NodePage:
			warnf("render pass aborted: nested page %q", id)
			return fmt.Errorf("node %q: %w", id, ErrNestedPage)

		case NodeImages, NodeTemplate, NodeFolder:
			if node.Hidden() {
				continue
			}
			st.unshift(node.Children)

		case NodeDungeonAsset:
			if node.Hidden() {
				continue
			}
			st.transform = node.Transform
			if n := len(node.Children); n > 0 {
				st.clearTransformOn = node.Children[n-1]
			}
			st.unshift(node.Children)

		case NodeGeometry:
			if node.Hidden() {
				continue
			}
			st.geometryID = node.GeometryID
			st.unshift(node.Children)

		case NodeGrid:
			if page.Grid != nil {
				if err := r.canvas.GridLines(*page.Grid); err != nil {
					warnf("grid %q: %v", id, err)
				}
			}
			// A grid terminates any pending geometry association.
			st.geometryID = ""

		case NodeMultiPolygon:
			r.drawMultiPolygon(node, st, background)

		case NodeShadow, NodeHatching, NodeBufferShading:
			// Reserved for shading passes; nothing to draw yet.

		case NodeDocument:
			warnf("document node %q below page root, skipping", id)

		default:
			warnf("unknown node type %q on %q, skipping", node.Type, id)
		}
	}
	return nil
}

// drawMultiPolygon paints one multipolygon using the geometry most recently
// put in scope by an ancestor GEOMETRY node. Hole rings of the primary
// polygon group are painted in the page background color; a real hole punch
// would show through to lower layers, which is not how Dungeon Scrawl maps
// are built.
func (r *Rasterizer) drawMultiPolygon(node *SceneNode, st *rasterState, background SceneColor) {
	if node.Hidden() || st.geometryID == "" {
		return
	}
	geom := r.dungeon.GeometryByID(st.geometryID)
	if geom == nil {
		warnf("multipolygon %q: geometry %q not found", node.ID, st.geometryID)
		return
	}

	if node.Fill != nil && node.Fill.Visible && len(geom.Polygons) > 0 {
		fill := node.Fill.Colour.RGBA()
		hole := background.RGBA()

		primary := geom.Polygons[0]
		if len(primary) > 0 {
			if err := r.canvas.FillPath(primary[0], fill); err != nil {
				warnf("fill %q: %v", node.ID, err)
			}
			for _, ring := range primary[1:] {
				if err := r.canvas.FillPath(ring, hole); err != nil {
					warnf("fill hole %q: %v", node.ID, err)
				}
			}
		}
		for _, group := range geom.Polygons[1:] {
			for _, ring := range group {
				if err := r.canvas.FillPath(ring, fill); err != nil {
					warnf("fill %q: %v", node.ID, err)
				}
			}
		}
	}

	if node.Stroke != nil && node.Stroke.Visible {
		stroke := node.Stroke.Colour.RGBA()
		width := node.Stroke.Width
		for _, group := range geom.Polygons {
			for _, ring := range group {
				if err := r.canvas.StrokePath(ring, width, stroke, true); err != nil {
					warnf("stroke %q: %v", node.ID, err)
				}
			}
		}
		for _, line := range geom.Polylines {
			if err := r.canvas.StrokePath(line, width, stroke, false); err != nil {
				warnf("stroke polyline %q: %v", node.ID, err)
			}
		}
	}

	if st.transform != nil {
		// Compose the pending asset transform onto the canvas, keeping the
		// canvas's current translation. Cleared at the asset's last child so
		// it cannot leak into unrelated siblings.
		cur := r.canvas.Transform()
		t := st.transform
		r.canvas.SetTransform([6]float64{t.A, t.B, t.C, t.D, cur[4], cur[5]})
		if node.ID == st.clearTransformOn {
			st.transform = nil
			st.clearTransformOn = ""
			r.canvas.SetTransform(r.view)
		}
	}
}
