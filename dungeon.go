package lantern

import (
	"bytes"
	"encoding/json"
	"math"
)

// NodeType discriminates the scene graph union. The values are the literal
// type tags used in Dungeon Scrawl documents.
type NodeType string

const (
	NodeDocument      NodeType = "DOCUMENT"
	NodePage          NodeType = "PAGE"
	NodeImages        NodeType = "IMAGES"
	NodeTemplate      NodeType = "TEMPLATE"
	NodeGeometry      NodeType = "GEOMETRY"
	NodeGrid          NodeType = "GRID"
	NodeMultiPolygon  NodeType = "MULTIPOLYGON"
	NodeFolder        NodeType = "FOLDER"
	NodeDungeonAsset  NodeType = "DUNGEON_ASSET"
	NodeShadow        NodeType = "SHADOW"
	NodeHatching      NodeType = "HATCHING"
	NodeBufferShading NodeType = "BUFFER_SHADING"
)

// SceneNode is one entry in the dungeon scene graph. A single flat struct is
// used for all node types, following the document format: fields that do not
// apply to a node's type are simply absent.
//
// Name and Visible are pointers because absence is meaningful — a node type
// that never carries "visible" must not read as "explicitly hidden".
type SceneNode struct {
	ID      string   `json:"id"`
	Type    NodeType `json:"type"`
	Name    *string  `json:"name,omitempty"`
	Visible *bool    `json:"visible,omitempty"`

	// Children is ordered; it defines depth-first pre-order traversal.
	Children []string `json:"children,omitempty"`

	// DOCUMENT
	SelectedPage string `json:"selectedPage,omitempty"`

	// PAGE
	Grid       *GridSettings   `json:"grid,omitempty"`
	Background *PageBackground `json:"background,omitempty"`

	// GEOMETRY
	GeometryID string `json:"geometryId,omitempty"`

	// MULTIPOLYGON
	Fill   *FillStyle   `json:"fill,omitempty"`
	Stroke *StrokeStyle `json:"stroke,omitempty"`

	// DUNGEON_ASSET
	Transform *AssetTransform `json:"transform,omitempty"`
}

// Hidden reports whether the node is explicitly marked invisible. Absent
// visibility counts as visible.
func (n *SceneNode) Hidden() bool {
	return n.Visible != nil && !*n.Visible
}

// GridSettings holds a page's grid metrics.
type GridSettings struct {
	CellDiameter float64    `json:"cellDiameter"`
	LineWidth    float64    `json:"lineWidth"`
	Colour       SceneColor `json:"colour"`
}

// PageBackground holds a page's background color.
type PageBackground struct {
	Colour SceneColor `json:"colour"`
}

// FillStyle is a multipolygon's fill appearance.
type FillStyle struct {
	Visible bool       `json:"visible"`
	Colour  SceneColor `json:"colour"`
}

// StrokeStyle is a multipolygon's stroke appearance.
type StrokeStyle struct {
	Visible bool       `json:"visible"`
	Colour  SceneColor `json:"colour"`
	Width   float64    `json:"width"`
}

// AssetTransform carries the linear part of a dungeon asset's affine
// transform. Translation is implicit: when the transform is applied during
// rasterization, the canvas keeps its current translation.
type AssetTransform struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	D float64 `json:"d"`
}

// Geometry is the vertex data referenced by GEOMETRY/MULTIPOLYGON pairs.
//
// Polygons[0][0] is the primary outer boundary. Polygons[0][i] for i >= 1
// are hollow cut-outs, painted in the page background color to simulate
// holes. Polygon groups at index >= 1 are filled normally, without hole
// handling. Polylines are open chains, stroke only.
type Geometry struct {
	Polygons  [][]Polygon `json:"polygons"`
	Polylines []Polygon   `json:"polylines"`
}

// Bounds returns the axis-aligned bounding box of all polygon rings and
// polylines, or a zero Rect for empty geometry.
func (g *Geometry) Bounds() Rect {
	first := true
	var minX, minY, maxX, maxY float64
	visit := func(p Vec2) {
		if first {
			minX, maxX = p.X, p.X
			minY, maxY = p.Y, p.Y
			first = false
			return
		}
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	for _, group := range g.Polygons {
		for _, ring := range group {
			for _, p := range ring {
				visit(p)
			}
		}
	}
	for _, line := range g.Polylines {
		for _, p := range line {
			visit(p)
		}
	}
	if first {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// DocumentState is the node graph portion of a dungeon document. The undo
// stack present in save files is deliberately not modeled; this tool never
// replays it.
type DocumentState struct {
	DocumentNodeID string                `json:"documentNodeId"`
	Nodes          map[string]*SceneNode `json:"nodes"`
}

// Dungeon is the root artifact parsed from a Dungeon Scrawl save file.
type Dungeon struct {
	Version int `json:"version"`
	State   struct {
		Document DocumentState `json:"document"`
	} `json:"state"`
	Data struct {
		Geometry map[string]*Geometry `json:"geometry"`
	} `json:"data"`
}

// Nodes returns the flat id-to-node map.
func (d *Dungeon) Nodes() map[string]*SceneNode {
	return d.State.Document.Nodes
}

// SelectedPage returns the id of the page the document was last editing, or
// "" when the document node is missing.
func (d *Dungeon) SelectedPage() string {
	doc := d.State.Document.Nodes[d.State.Document.DocumentNodeID]
	if doc == nil {
		return ""
	}
	return doc.SelectedPage
}

// GeometryByID returns the geometry entry for id, or nil.
func (d *Dungeon) GeometryByID(id string) *Geometry {
	return d.Data.Geometry[id]
}

// payloadMarker locates the embedded JSON payload inside a save file.
var payloadMarker = []byte("map")

// ExtractPayload slices the embedded JSON object out of a raw dungeon save
// file. Save files wrap the payload in a non-JSON envelope; the payload
// starts three bytes past the first "map" marker and runs through the last
// closing brace. This is a compatibility shim for a foreign format, not a
// container parser — if the format ever changes, this is the only function
// that needs to follow it.
func ExtractPayload(raw []byte) ([]byte, error) {
	start := bytes.Index(raw, payloadMarker)
	if start < 0 {
		return nil, &MalformedFileError{Reason: `no "map" marker`}
	}
	rest := raw[start+len(payloadMarker):]
	end := bytes.LastIndexByte(rest, '}')
	if end < 0 {
		return nil, &MalformedFileError{Reason: "no closing brace after marker"}
	}
	return rest[:end+1], nil
}

// ParseDungeon extracts and decodes the payload of a raw dungeon save file.
// Returns *MalformedFileError when the payload cannot be located or is not
// valid JSON, and *UnsupportedVersionError when the document version is not
// 1. On any error no partial document is returned.
func ParseDungeon(raw []byte) (*Dungeon, error) {
	payload, err := ExtractPayload(raw)
	if err != nil {
		return nil, err
	}
	var d Dungeon
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, &MalformedFileError{Reason: "payload is not valid JSON", Err: err}
	}
	if d.Version != 1 {
		return nil, &UnsupportedVersionError{Version: d.Version}
	}
	return &d, nil
}
