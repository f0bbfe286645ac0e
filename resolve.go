package lantern

// DefaultRootID is the node id the resolver starts from when the caller
// does not name one. Dungeon Scrawl documents root their graph at the
// literal id "document".
const DefaultRootID = "document"

// LightNode is a lightweight summary of a scene node, shaped for UI display
// (the editor's outline panel). Name and Visible stay nil when the
// underlying node does not define them, letting consumers distinguish "not
// applicable" from "explicitly hidden".
type LightNode struct {
	Name     *string      `json:"name,omitempty"`
	Visible  *bool        `json:"visible,omitempty"`
	Type     NodeType     `json:"type"`
	ID       string       `json:"id"`
	Children []*LightNode `json:"children,omitempty"`
}

// SummaryTree builds a LightNode tree from the flat node map starting at
// rootID ("" means DefaultRootID). It is pure and side-effect-free; calling
// it repeatedly on the same map yields equal trees. Child ids missing from
// the map are dropped from the summary.
func SummaryTree(nodes map[string]*SceneNode, rootID string) *LightNode {
	if rootID == "" {
		rootID = DefaultRootID
	}
	node := nodes[rootID]
	if node == nil {
		return nil
	}
	light := &LightNode{
		Name:    node.Name,
		Visible: node.Visible,
		Type:    node.Type,
		ID:      node.ID,
	}
	for _, childID := range node.Children {
		if child := SummaryTree(nodes, childID); child != nil {
			light.Children = append(light.Children, child)
		}
	}
	return light
}

// ResolvedNode is a scene node whose child id list has been replaced with
// the child nodes themselves. GEOMETRY nodes additionally carry their joined
// geometry entry.
type ResolvedNode struct {
	Node     *SceneNode
	Geometry *Geometry
	Children []*ResolvedNode
}

// ResolveTree deep-resolves the node graph rooted at rootID ("" means
// DefaultRootID) into a ResolvedNode tree. Used by non-interactive
// consumers such as export and debugging; the rasterizer reads the flat map
// directly instead.
//
// The version check happens once here, at the root call: a dungeon whose
// version is not 1 fails with *UnsupportedVersionError.
func ResolveTree(d *Dungeon, rootID string) (*ResolvedNode, error) {
	if d.Version != 1 {
		return nil, &UnsupportedVersionError{Version: d.Version}
	}
	if rootID == "" {
		rootID = DefaultRootID
	}
	return resolveNode(d, rootID), nil
}

func resolveNode(d *Dungeon, id string) *ResolvedNode {
	node := d.Nodes()[id]
	if node == nil {
		return nil
	}
	resolved := &ResolvedNode{Node: node}
	if node.Type == NodeGeometry {
		resolved.Geometry = d.GeometryByID(node.GeometryID)
	}
	for _, childID := range node.Children {
		if child := resolveNode(d, childID); child != nil {
			resolved.Children = append(resolved.Children, child)
		}
	}
	return resolved
}
